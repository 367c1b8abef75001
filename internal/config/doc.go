// Package config defines the typed project manifest (gateware.json) and the
// RunContext resolved from the workflow environment.
//
// The manifest is validated once at load time so configuration mistakes
// surface before the pipeline touches the filesystem. The RunContext makes
// every environment input an explicit parameter instead of ambient state.
package config
