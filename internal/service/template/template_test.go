package template

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opengateware/pocket-release/internal/config"
)

// allVars is a fully populated substitution set.
//
//nolint:gochecknoglobals // Shared immutable fixture.
var allVars = Variables{
	Author:  "acme",
	Core:    "supercore",
	Version: "1.2.3",
	Date:    "20240301",
	Target:  "pocket",
}

// TestRender substitutes every known placeholder.
func TestRender(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		tmpl string
		want string
	}{
		{"single", "core_{author}_{version}.bin", "core_acme_1.2.3.bin"},
		{"all", "{author}.{core}_{target}_{version}_{date}", "acme.supercore_pocket_1.2.3_20240301"},
		{"repeated", "{core}-{core}", "supercore-supercore"},
		{"no placeholders", "plain_name", "plain_name"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := Render(tc.tmpl, allVars)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

// TestRender_MissingVariable fails fast on unknown placeholders.
func TestRender_MissingVariable(t *testing.T) {
	t.Parallel()

	_, err := Render("core_{flavor}_{version}", allVars)
	require.ErrorIs(t, err, ErrMissingVariable)
	require.ErrorContains(t, err, "flavor")

	_, err = Render("{}", allVars)
	require.ErrorIs(t, err, ErrMissingVariable)
}

// TestNewVariables derives the set from manifest, run context and clock.
func TestNewVariables(t *testing.T) {
	t.Parallel()

	m := &config.Manifest{Author: "acme", Name: "supercore"}
	run := &config.RunContext{Target: "pocket", Version: "1.2.3"}
	now := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)

	vars := NewVariables(m, run, now)
	require.Equal(t, allVars, vars)
}
