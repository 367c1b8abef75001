// Package template renders output filenames from manifest templates.
//
// Templates use {author}, {core}, {version}, {date} and {target}
// placeholders. Unknown placeholders fail rendering instead of leaking
// into filenames.
package template
