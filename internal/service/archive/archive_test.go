package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeTree creates the given relative files under dir.
func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for rel, contents := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	}
}

// readZip extracts entry names and contents from a zip file.
func readZip(t *testing.T, path string) map[string]string {
	t.Helper()

	reader, err := zip.OpenReader(path)
	require.NoError(t, err)

	defer func() {
		_ = reader.Close()
	}()

	entries := make(map[string]string, len(reader.File))

	for _, file := range reader.File {
		rc, openErr := file.Open()
		require.NoError(t, openErr)

		contents, readErr := io.ReadAll(rc)
		require.NoError(t, readErr)
		require.NoError(t, rc.Close())

		entries[file.Name] = string(contents)
	}

	return entries
}

// readTarGz extracts entry names and contents from a tar.gz file.
func readTarGz(t *testing.T, path string) map[string]string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)

	defer func() {
		_ = f.Close()
	}()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	entries := make(map[string]string)
	tr := tar.NewReader(gz)

	for {
		header, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}

		require.NoError(t, nextErr)

		contents, readErr := io.ReadAll(tr)
		require.NoError(t, readErr)

		entries[header.Name] = string(contents)
	}

	return entries
}

// sampleTree is the staged layout used across the round-trip tests.
//
//nolint:gochecknoglobals // Shared immutable fixture.
var sampleTree = map[string]string{
	"Cores/acme.supercore/core.json":       `{"core":{}}`,
	"Cores/acme.supercore/bitstream.rbf_r": "\x01\x03\xff",
	"Platforms/pocket.json":                `{"platform":{}}`,
}

// TestBuildZip_RoundTrip checks entry names and byte content survive.
func TestBuildZip_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "stage")
	out := filepath.Join(dir, "release.zip")

	writeTree(t, src, sampleTree)
	require.NoError(t, BuildZip(src, out))

	require.Equal(t, sampleTree, readZip(t, out))
}

// TestBuildTarGz_RoundTrip checks the tar.gz twin produces the same member set.
func TestBuildTarGz_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "stage")
	out := filepath.Join(dir, "meta.tar.gz")

	writeTree(t, src, sampleTree)
	require.NoError(t, BuildTarGz(src, out))

	require.Equal(t, sampleTree, readTarGz(t, out))
}

// TestBuildZip_NoDirectoryEntries keeps directories out of the member list.
func TestBuildZip_NoDirectoryEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "stage")
	out := filepath.Join(dir, "out.zip")

	writeTree(t, src, map[string]string{"a/b/c.txt": "x"})
	require.NoError(t, BuildZip(src, out))

	entries := readZip(t, out)
	require.Equal(t, map[string]string{"a/b/c.txt": "x"}, entries)
}

// TestBuildZip_EmptyDir produces a valid archive with no entries.
func TestBuildZip_EmptyDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "empty")
	out := filepath.Join(dir, "empty.zip")

	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, BuildZip(src, out))

	require.Empty(t, readZip(t, out))
}

// TestBuildZip_MissingSource treats a nonexistent source like an empty one:
// the archive is still created and holds no entries.
func TestBuildZip_MissingSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "out.zip")

	require.NoError(t, BuildZip(filepath.Join(dir, "missing"), out))
	require.Empty(t, readZip(t, out))
}

// TestBuildTarGz_MissingSource mirrors the zip behavior for the tar stream.
func TestBuildTarGz_MissingSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "out.tar.gz")

	require.NoError(t, BuildTarGz(filepath.Join(dir, "missing"), out))
	require.Empty(t, readTarGz(t, out))
}

// TestBuildTarGz_EmptyDir produces a valid empty stream.
func TestBuildTarGz_EmptyDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "empty")
	out := filepath.Join(dir, "empty.tar.gz")

	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, BuildTarGz(src, out))

	require.Empty(t, readTarGz(t, out))
}
