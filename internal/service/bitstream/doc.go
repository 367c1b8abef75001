// Package bitstream implements the bit-order reversal applied to compiled
// RBF files before they are packaged for the Analogue Pocket.
//
// The device loads the FPGA configuration LSB-first, so every byte of the
// compiled bitstream has to be mirrored. The transform is pure and
// length-preserving; only the bit order inside each byte changes.
package bitstream
