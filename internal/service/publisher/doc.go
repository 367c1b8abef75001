// Package publisher uploads produced archives to a source-control-hosted
// release. It creates (or reuses) the release for the run's tag and
// attaches each archive as a binary asset, returning the public
// download URLs for the announcement step.
package publisher
