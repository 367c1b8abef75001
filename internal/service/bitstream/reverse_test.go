package bitstream

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestReverseByte checks known bit mirrors.
func TestReverseByte(t *testing.T) {
	t.Parallel()

	cases := map[byte]byte{
		0x00: 0x00,
		0xFF: 0xFF,
		0x80: 0x01,
		0x01: 0x80,
		0xC0: 0x03,
		0x0F: 0xF0,
		0xA5: 0xA5,
		0xB4: 0x2D,
	}
	for in, want := range cases {
		require.Equal(t, want, ReverseByte(in), "input 0x%02X", in)
	}
}

// TestReverse_Involution verifies reverse(reverse(b)) == b for random buffers.
func TestReverse_Involution(t *testing.T) {
	t.Parallel()

	rnd := rand.New(rand.NewSource(42))

	for _, size := range []int{0, 1, 7, 256, 4096} {
		buf := make([]byte, size)
		_, _ = rnd.Read(buf)

		require.Equal(t, buf, Reverse(Reverse(buf)), "size %d", size)
	}
}

// TestReverse_DoesNotMutateInput ensures the source buffer is left untouched.
func TestReverse_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := []byte{0x80, 0x01, 0xC0}
	out := Reverse(in)

	require.Equal(t, []byte{0x80, 0x01, 0xC0}, in)
	require.Equal(t, []byte{0x01, 0x80, 0x03}, out)
}

// TestReverse_Empty keeps empty input empty.
func TestReverse_Empty(t *testing.T) {
	t.Parallel()

	require.Empty(t, Reverse(nil))
	require.Empty(t, Reverse([]byte{}))
}

// TestReverseFile writes a mirrored copy and reports its size.
func TestReverseFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "core_pocket.rbf")
	dst := filepath.Join(dir, "bitstream.rbf_r")

	require.NoError(t, os.WriteFile(src, []byte{0x80, 0xC0, 0xFF, 0x00}, 0o644))

	n, err := ReverseFile(src, dst)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x03, 0xFF, 0x00}, got)

	// The reversed bitstream is data, not an executable.
	info, err := os.Stat(dst)
	require.NoError(t, err)
	require.Zero(t, info.Mode().Perm()&0o111)
}

// TestReverseFile_MissingSource surfaces the I/O error.
func TestReverseFile_MissingSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := ReverseFile(filepath.Join(dir, "missing.rbf"), filepath.Join(dir, "out.rbf_r"))
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestReverseFile_MissingDestinationDir fails when the parent directory is absent.
func TestReverseFile_MissingDestinationDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "core.rbf")
	require.NoError(t, os.WriteFile(src, []byte{0x01}, 0o644))

	_, err := ReverseFile(src, filepath.Join(dir, "nope", "out.rbf_r"))
	require.Error(t, err)
}
