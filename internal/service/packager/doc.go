// Package packager orchestrates the release pipeline for a core.
//
// A run proceeds through fixed, strictly sequential steps: the stage and
// release folders are rebuilt, the target's packaging sources are merged
// into the stage folder, unwanted files are cleaned out, the staged
// core.json gets the release version and date, the compiled bitstream is
// bit-reversed into the staged tree, and finally the release and metadata
// archives are produced under the release folder.
//
// Failure at any step aborts the run. Re-running restarts from the top,
// which is safe because folder preparation wipes all previous output.
package packager
