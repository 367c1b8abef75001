package template

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/opengateware/pocket-release/internal/config"
)

// Variables is the fixed substitution set available to filename templates.
type Variables struct {
	// Author is the core author's account name.
	Author string
	// Core is the core's short name.
	Core string
	// Version is the release tag.
	Version string
	// Date is the render date as YYYYMMDD.
	Date string
	// Target is the platform identifier.
	Target string
}

// ErrMissingVariable is returned when a template references a placeholder
// outside the fixed variable set. Leaving placeholder text in an output
// filename would be a silent configuration error, so rendering fails fast.
var ErrMissingVariable = errors.New("template references unknown variable")

// dateLayout renders the {date} variable as an 8-digit stamp.
const dateLayout = "20060102"

// placeholderPattern matches {name} placeholders in a template.
var placeholderPattern = regexp.MustCompile(`\{([^{}]*)\}`)

// NewVariables builds the substitution set for one render from the manifest,
// the run context and the render time.
func NewVariables(m *config.Manifest, run *config.RunContext, now time.Time) Variables {
	return Variables{
		Author:  m.Author,
		Core:    m.Name,
		Version: run.Version,
		Date:    now.Format(dateLayout),
		Target:  run.Target,
	}
}

// Render substitutes every {placeholder} in tmpl from vars.
// A placeholder not covered by the fixed set yields ErrMissingVariable.
// Callers lower-case the result; Render itself preserves case.
func Render(tmpl string, vars Variables) (string, error) {
	known := map[string]string{
		"author":  vars.Author,
		"core":    vars.Core,
		"version": vars.Version,
		"date":    vars.Date,
		"target":  vars.Target,
	}

	var missing []string

	rendered := placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := strings.Trim(match, "{}")

		value, ok := known[name]
		if !ok {
			missing = append(missing, name)
			return match
		}

		return value
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("%q: %w: %s", tmpl, ErrMissingVariable, strings.Join(missing, ", "))
	}

	return rendered, nil
}
