package version

import "fmt"

var (
	// Version is the release of the tooling itself. Overridden via ldflags;
	// the default marks a build straight from a working tree.
	Version = "0.0.0-dev"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("pocket-release tools %s (commit %s, built %s)", Version, Commit, BuildTime)
}
