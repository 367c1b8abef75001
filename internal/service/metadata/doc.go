// Package metadata updates the platform metadata record (core.json)
// inside the staged tree with the release version and date.
package metadata
