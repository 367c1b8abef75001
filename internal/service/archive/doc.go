// Package archive produces the distributable zip and tar.gz files.
//
// Both builders share one traversal: every regular file below the source
// directory becomes an entry named by its slash-separated relative path.
// The source directory name itself never appears in entry names, so
// extracting an archive reproduces the staged tree exactly.
package archive
