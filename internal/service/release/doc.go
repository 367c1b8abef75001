// Package release composes the full delivery flow on top of the
// individual services: packaging, release upload and webhook
// announcement. The command binaries call into this package so their
// own code stays a thin flag-parsing layer.
package release
