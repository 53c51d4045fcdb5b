// Package crc implements the table-driven Koopman CRC-32 used by MEF 3.0
// for universal header and RED block integrity checks.
//
// The standard library's hash/crc32 is not used here: MEF fixes the seed at
// 0xFFFFFFFF with no final XOR, which differs from the IEEE/Castagnoli
// conventions hash/crc32 implements. The byte-exact table below matches
// meflib and pymef.
package crc

// Koopman32 is the CRC-32 polynomial used throughout MEF 3.0.
const Koopman32 = 0xEB31D82E

// StartValue seeds every CRC computation. The CRC of the empty input is
// the seed itself; there is no final XOR.
const StartValue = uint32(0xFFFFFFFF)

var table [256]uint32

func init() {
	for i := range table {
		r := uint32(i)
		for j := 0; j < 8; j++ {
			if r&1 != 0 {
				r = (r >> 1) ^ Koopman32
			} else {
				r >>= 1
			}
		}
		table[i] = r
	}
}

// Calculate computes the CRC-32 of data from the start value.
func Calculate(data []byte) uint32 {
	return Update(data, StartValue)
}

// Update continues a running CRC with additional data, so that
// Update(b, Calculate(a)) == Calculate(append(a, b...)).
func Update(data []byte, current uint32) uint32 {
	crc := current
	for _, b := range data {
		crc = (crc >> 8) ^ table[uint8(crc)^b]
	}

	return crc
}

// Validate reports whether the CRC-32 of data equals expected.
func Validate(data []byte, expected uint32) bool {
	return Calculate(data) == expected
}
