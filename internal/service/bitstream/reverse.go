package bitstream

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/opengateware/pocket-release/internal/config"
)

// reversedByte maps every byte value to its bit-mirrored counterpart.
//
//nolint:gochecknoglobals // Immutable lookup table computed once at startup.
var reversedByte [256]byte

func init() { //nolint:gochecknoinits // Table must exist before any Reverse call.
	for value := range 256 {
		var mirrored byte
		for bit := range 8 {
			if value&(1<<bit) != 0 {
				mirrored |= 1 << (7 - bit)
			}
		}

		reversedByte[value] = mirrored
	}
}

// Reverse returns a new buffer where every byte has its bit order mirrored:
// bit i of the result equals bit (7-i) of the input. The input is never
// modified; length and byte order are preserved. Reverse is an involution.
func Reverse(data []byte) []byte {
	reversed := make([]byte, len(data))
	for i, b := range data {
		reversed[i] = reversedByte[b]
	}

	return reversed
}

// ReverseByte mirrors the bit order of a single byte.
func ReverseByte(b byte) byte {
	return reversedByte[b]
}

// ReverseFile reads the bitstream at src, mirrors the bits of every byte,
// and writes the result to dst. It returns the number of bytes written.
func ReverseFile(src, dst string) (int, error) {
	contents, err := os.ReadFile(filepath.Clean(src))
	if err != nil {
		return 0, fmt.Errorf("read bitstream %s: %w", src, err)
	}

	reversed := Reverse(contents)

	if err = os.WriteFile(filepath.Clean(dst), reversed, config.DefaultFileMode); err != nil {
		return 0, fmt.Errorf("write reversed bitstream %s: %w", dst, err)
	}

	return len(reversed), nil
}
