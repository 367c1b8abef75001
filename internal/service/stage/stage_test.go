package stage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// writeFile creates a file with parents and the provided contents.
func writeFile(t *testing.T, path, contents string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

// readFile returns the file contents as a string.
func readFile(t *testing.T, path string) string {
	t.Helper()

	contents, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(contents)
}

// TestPrepare_RemovesLeftovers rebuilds both folders empty.
func TestPrepare_RemovesLeftovers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	stageDir := filepath.Join(dir, "stage")
	releaseDir := filepath.Join(dir, "release")

	writeFile(t, filepath.Join(stageDir, "old", "leftover.txt"), "stale")
	writeFile(t, filepath.Join(releaseDir, "old.zip"), "stale")

	require.NoError(t, Prepare(stageDir, releaseDir))

	for _, d := range []string{stageDir, releaseDir} {
		entries, err := os.ReadDir(d)
		require.NoError(t, err)
		require.Empty(t, entries)
	}
}

// TestPrepare_MissingFolders treats absent folders as success.
func TestPrepare_MissingFolders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, Prepare(filepath.Join(dir, "a"), filepath.Join(dir, "b")))

	info, err := os.Stat(filepath.Join(dir, "a"))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

// TestMerge_CopiesTree copies nested files and keeps modification times.
func TestMerge_CopiesTree(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")

	writeFile(t, filepath.Join(src, "Cores", "acme.supercore", "core.json"), "{}")
	writeFile(t, filepath.Join(src, "Platforms", "pocket.json"), "{}")

	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(src, "Platforms", "pocket.json"), stamp, stamp))

	require.NoError(t, Merge(src, dst))

	require.Equal(t, "{}", readFile(t, filepath.Join(dst, "Cores", "acme.supercore", "core.json")))

	info, err := os.Stat(filepath.Join(dst, "Platforms", "pocket.json"))
	require.NoError(t, err)
	require.True(t, stamp.Equal(info.ModTime()))
}

// TestMerge_UnionSemantics keeps destination files absent from the source
// and overwrites colliding ones.
func TestMerge_UnionSemantics(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")

	writeFile(t, filepath.Join(src, "shared", "a.txt"), "new")
	writeFile(t, filepath.Join(dst, "shared", "a.txt"), "old")
	writeFile(t, filepath.Join(dst, "shared", "keepme.txt"), "keep")

	require.NoError(t, Merge(src, dst))

	require.Equal(t, "new", readFile(t, filepath.Join(dst, "shared", "a.txt")))
	require.Equal(t, "keep", readFile(t, filepath.Join(dst, "shared", "keepme.txt")))
}

// TestMerge_Idempotent yields the same tree when run twice.
func TestMerge_Idempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")

	writeFile(t, filepath.Join(src, "a", "b.txt"), "payload")

	require.NoError(t, Merge(src, dst))
	require.NoError(t, Merge(src, dst))

	require.Equal(t, "payload", readFile(t, filepath.Join(dst, "a", "b.txt")))

	entries, err := os.ReadDir(filepath.Join(dst, "a"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

// TestMerge_MissingSource surfaces the walk error.
func TestMerge_MissingSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.Error(t, Merge(filepath.Join(dir, "missing"), filepath.Join(dir, "dst")))
}

// TestCleanup_RemovesMatches deletes pattern matches recursively and
// leaves everything else byte-for-byte intact.
func TestCleanup_RemovesMatches(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.png"), "img")
	writeFile(t, filepath.Join(root, "deep", "nested", "b.rom"), "rom")
	writeFile(t, filepath.Join(root, "deep", ".gitkeep"), "")
	writeFile(t, filepath.Join(root, "b.rbf"), "bitstream")
	writeFile(t, filepath.Join(root, "c.txt"), "text")

	removed, err := Cleanup(root, []string{"*.png", "*.rom", "*.gitkeep"})
	require.NoError(t, err)
	require.Len(t, removed, 3)

	require.NoFileExists(t, filepath.Join(root, "a.png"))
	require.NoFileExists(t, filepath.Join(root, "deep", "nested", "b.rom"))
	require.NoFileExists(t, filepath.Join(root, "deep", ".gitkeep"))

	// *.rom must not match a different extension.
	require.Equal(t, "bitstream", readFile(t, filepath.Join(root, "b.rbf")))
	require.Equal(t, "text", readFile(t, filepath.Join(root, "c.txt")))

	// Directories survive even when emptied.
	info, err := os.Stat(filepath.Join(root, "deep", "nested"))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

// TestCleanup_SecondRunIsNoOp removes nothing the second time around.
func TestCleanup_SecondRunIsNoOp(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.png"), "img")

	removed, err := Cleanup(root, []string{"*.png"})
	require.NoError(t, err)
	require.Len(t, removed, 1)

	removed, err = Cleanup(root, []string{"*.png"})
	require.NoError(t, err)
	require.Empty(t, removed)
}

// TestCleanup_BadPattern fails before deleting anything.
func TestCleanup_BadPattern(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.png"), "img")

	_, err := Cleanup(root, []string{"[bad"})
	require.Error(t, err)

	// Nothing was removed.
	require.FileExists(t, filepath.Join(root, "a.png"))
}
