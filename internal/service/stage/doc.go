// Package stage prepares the staging tree for packaging.
//
// Prepare rebuilds the stage and release folders from scratch, Merge
// union-merges a packaging source tree into the stage folder, and Cleanup
// strips files that must never ship in a package (images, ROMs, placeholder
// markers).
package stage
