// Package section implements the fixed-size packed structures of the MEF
// 3.0 on-disk format: the 1024-byte Universal Header, the three metadata
// sections of the 16384-byte .tmet file, the 56-byte TimeSeriesIndex, and
// the 24-byte record header/index.
//
// Go offers no packed-struct layout control, so every structure serializes
// field by field at the explicit byte offsets defined in the format
// package. Parse and Bytes are exact inverses for every structure;
// reserved and discretionary regions are filled with format.PadByteValue.
// All multi-byte fields are little-endian.
package section
