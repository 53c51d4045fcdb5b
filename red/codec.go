// Package red implements the RED ("Range-Encoded Differences") codec, the
// lossless block compression scheme of MEF 3.0 time-series data.
//
// A block stores the first sample verbatim and every subsequent sample as
// the difference from its predecessor, each difference encoded with a
// variable-length prefix code of 1, 2, 3 or 5 bytes. The encoded payload
// follows a 304-byte header and is padded with format.PadByteValue to an
// 8-byte boundary. Blocks are the atomic decompression unit.
package red

import (
	"crypto/cipher"
	"fmt"
	"math"

	"github.com/meflab/mefd/crc"
	"github.com/meflab/mefd/crypt"
	"github.com/meflab/mefd/endian"
	"github.com/meflab/mefd/errs"
	"github.com/meflab/mefd/format"
	"github.com/meflab/mefd/internal/pool"
	"github.com/meflab/mefd/section"
)

// CompressParams controls a single block compression.
type CompressParams struct {
	// Discontinuity marks the block as the start of a discontinuity.
	Discontinuity bool

	// EncryptionLevel selects payload encryption: 0 = none, 1 or 2 select
	// the corresponding key. Key must be non-nil when the level is set.
	EncryptionLevel int8
	Key             cipher.Block
}

// CompressionResult carries a compressed block plus the header and index
// entry describing it. FileOffset and StartSample of the index are left at
// their no-entry values for the caller to fill.
type CompressionResult struct {
	CompressedData []byte
	BlockHeader    BlockHeader
	Index          section.TimeSeriesIndex
}

// DecompressionResult carries the decoded samples and the parsed block
// header.
type DecompressionResult struct {
	Samples     []int32
	BlockHeader BlockHeader
}

// DecompressParams controls block decompression.
type DecompressParams struct {
	// ValidateCRC makes CRC mismatches fatal. When false the caller is
	// expected to log and proceed.
	ValidateCRC bool

	// Level1Key and Level2Key decrypt payloads whose header flags request
	// them. A missing key for a flagged block fails with ErrWrongPassword.
	Level1Key cipher.Block
	Level2Key cipher.Block
}

// FindExtrema returns the minimum and maximum of samples, ignoring the
// REDNaN sentinel. An empty input yields (REDNaN, REDNaN); an all-NaN
// input yields the loop's starting values, min = REDMaximumSampleValue
// and max = REDMinimumSampleValue.
func FindExtrema(samples []int32) (minVal, maxVal int32) {
	if len(samples) == 0 {
		return format.REDNaN, format.REDNaN
	}

	minVal = format.REDMaximumSampleValue
	maxVal = format.REDMinimumSampleValue

	for _, v := range samples {
		if v == format.REDNaN {
			continue
		}
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	return minVal, maxVal
}

// encodeDifferences appends the variable-length encoding of the block's
// differences to buf and returns the number of payload bytes written.
//
// Prefix codes:
//
//	0xxxxxxx                   1 byte,  0..127
//	10xxxxxx                   1 byte,  -64..-1 (stores -d-1)
//	110sxxxx xxxxxxxx          2 bytes, 13-bit sign+magnitude
//	1110sxxx xxxxxxxx xxxxxxxx 3 bytes, 20-bit sign+magnitude
//	11110000 + 4 bytes         full 32-bit two's complement, big-endian
func encodeDifferences(samples []int32, buf *pool.ByteBuffer) int {
	start := buf.Len()
	prev := int32(0)

	for i, s := range samples {
		diff := s - prev
		if i == 0 {
			diff = s
		}
		prev = s

		switch {
		case diff >= 0 && diff <= 127:
			buf.MustWrite([]byte{byte(diff)})
		case diff >= -64 && diff < 0:
			buf.MustWrite([]byte{byte(0x80 | (-diff - 1))})
		case diff >= -4096 && diff <= 4095:
			val := diff
			sign := byte(0)
			if diff < 0 {
				val = -diff - 1
				sign = 0x10
			}
			buf.MustWrite([]byte{
				0xC0 | sign | byte((val>>8)&0x0F),
				byte(val & 0xFF),
			})
		case diff >= -524288 && diff <= 524287:
			val := diff
			sign := byte(0)
			if diff < 0 {
				val = -diff - 1
				sign = 0x08
			}
			buf.MustWrite([]byte{
				0xE0 | sign | byte((val>>16)&0x07),
				byte((val >> 8) & 0xFF),
				byte(val & 0xFF),
			})
		default:
			u := uint32(diff)
			buf.MustWrite([]byte{
				0xF0,
				byte(u >> 24),
				byte(u >> 16),
				byte(u >> 8),
				byte(u),
			})
		}
	}

	return buf.Len() - start
}

// decodeDifferences reconstructs samples by cumulative summation of the
// encoded differences.
func decodeDifferences(input []byte, numSamples uint32, out []int32) error {
	pos := 0
	prev := int32(0)

	for i := uint32(0); i < numSamples; i++ {
		if pos >= len(input) {
			return fmt.Errorf("%w: payload exhausted at sample %d of %d",
				errs.ErrDecompressionFailed, i, numSamples)
		}

		var diff int32
		b := input[pos]
		pos++

		switch {
		case b&0x80 == 0:
			diff = int32(b)
		case b&0xC0 == 0x80:
			diff = -int32(b&0x3F) - 1
		case b&0xE0 == 0xC0:
			if pos+1 > len(input) {
				return fmt.Errorf("%w: truncated 2-byte difference", errs.ErrDecompressionFailed)
			}
			val := int32(b&0x0F)<<8 | int32(input[pos])
			pos++
			if b&0x10 != 0 {
				diff = -val - 1
			} else {
				diff = val
			}
		case b&0xF0 == 0xE0:
			if pos+2 > len(input) {
				return fmt.Errorf("%w: truncated 3-byte difference", errs.ErrDecompressionFailed)
			}
			val := int32(b&0x07)<<16 | int32(input[pos])<<8 | int32(input[pos+1])
			pos += 2
			if b&0x08 != 0 {
				diff = -val - 1
			} else {
				diff = val
			}
		case b == 0xF0:
			if pos+4 > len(input) {
				return fmt.Errorf("%w: truncated 5-byte difference", errs.ErrDecompressionFailed)
			}
			diff = int32(uint32(input[pos])<<24 | uint32(input[pos+1])<<16 |
				uint32(input[pos+2])<<8 | uint32(input[pos+3]))
			pos += 4
		default:
			return fmt.Errorf("%w: unknown prefix code 0x%02x", errs.ErrDecompressionFailed, b)
		}

		if i == 0 {
			out[i] = diff
		} else {
			out[i] = prev + diff
		}
		prev = out[i]
	}

	return nil
}

// computeStatistics fills the advisory 256-byte histogram: difference
// values mapped onto a byte, counts normalized so the largest bucket is
// 255 and non-zero counts never normalize to zero.
func computeStatistics(samples []int32, stats *[format.REDBlockStatisticsBytes]byte) {
	var counts [256]uint32

	prev := int32(0)
	for i, s := range samples {
		diff := s - prev
		if i == 0 {
			diff = s
		}
		prev = s

		counts[uint8(diff+128)]++
	}

	var maxCount uint32
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	if maxCount == 0 {
		return
	}

	for i, c := range counts {
		stats[i] = byte(c * 255 / maxCount)
		if c > 0 && stats[i] == 0 {
			stats[i] = 1
		}
	}
}

// Compress encodes a block of samples starting at startTime (uUTC) into
// the RED wire form: header, variable-length differences, padding to an
// 8-byte boundary. The returned index entry carries the block's extrema
// and sizes; the caller fills FileOffset and StartSample.
func Compress(samples []int32, startTime int64, params CompressParams) (CompressionResult, error) {
	result := CompressionResult{
		BlockHeader: NewBlockHeader(),
		Index:       section.NewTimeSeriesIndex(),
	}

	if len(samples) == 0 {
		return result, fmt.Errorf("%w: empty sample block", errs.ErrCompressionFailed)
	}
	if params.EncryptionLevel != format.NoEncryption && params.Key == nil {
		return result, fmt.Errorf("%w: encryption level %d requested without a key",
			errs.ErrCompressionFailed, params.EncryptionLevel)
	}

	buf := pool.GetBlockBuffer()
	defer pool.PutBlockBuffer(buf)

	buf.ExtendOrGrow(format.REDBlockHeaderBytes)
	diffBytes := encodeDifferences(samples, buf)

	// Pad the block to an 8-byte boundary.
	for buf.Len()%8 != 0 {
		buf.MustWrite([]byte{format.PadByteValue})
	}

	block := make([]byte, buf.Len())
	copy(block, buf.Bytes())

	header := &result.BlockHeader
	if params.Discontinuity {
		header.Flags |= format.REDDiscontinuityMask
	}
	header.DifferenceBytes = uint32(diffBytes)
	header.NumberOfSamples = uint32(len(samples))
	header.BlockBytes = uint32(len(block))
	header.StartTime = startTime
	computeStatistics(samples, &header.Statistics)

	payload := block[format.REDBlockHeaderBytes : format.REDBlockHeaderBytes+diffBytes]
	switch params.EncryptionLevel {
	case format.Level1Encryption:
		header.Flags |= format.REDLevel1EncryptionMask
		crypt.EncryptRegion(payload, params.Key)
	case format.Level2Encryption:
		header.Flags |= format.REDLevel2EncryptionMask
		crypt.EncryptRegion(payload, params.Key)
	}

	header.EncodeTo(block)

	header.BlockCRC = crc.Calculate(block[4:])
	endian.GetLittleEndianEngine().PutUint32(block[format.REDBlockCRCOffset:], header.BlockCRC)

	minVal, maxVal := FindExtrema(samples)
	result.Index.StartTime = startTime
	result.Index.NumberOfSamples = uint32(len(samples))
	result.Index.BlockBytes = uint32(len(block))
	result.Index.MaximumSampleValue = maxVal
	result.Index.MinimumSampleValue = minVal
	result.Index.REDBlockFlags = header.Flags

	result.CompressedData = block

	return result, nil
}

// Decompress decodes one complete RED block. The input must span the full
// block: header, differences and padding.
func Decompress(data []byte, params DecompressParams) (DecompressionResult, error) {
	result := DecompressionResult{BlockHeader: NewBlockHeader()}

	if err := result.BlockHeader.Parse(data); err != nil {
		return result, err
	}
	header := &result.BlockHeader

	if int(header.DifferenceBytes) > len(data)-format.REDBlockHeaderBytes {
		return result, fmt.Errorf("%w: difference bytes %d exceed payload %d",
			errs.ErrDecompressionFailed, header.DifferenceBytes, len(data)-format.REDBlockHeaderBytes)
	}

	if params.ValidateCRC && !crc.Validate(data[4:], header.BlockCRC) {
		return result, fmt.Errorf("%w: RED block CRC", errs.ErrCrcMismatch)
	}

	if header.NumberOfSamples == 0 {
		return result, nil
	}

	payload := data[format.REDBlockHeaderBytes : format.REDBlockHeaderBytes+int(header.DifferenceBytes)]

	if header.IsLevel1Encrypted() || header.IsLevel2Encrypted() {
		key := params.Level1Key
		if header.IsLevel2Encrypted() {
			key = params.Level2Key
		}
		if key == nil {
			return result, fmt.Errorf("%w: block payload is encrypted", errs.ErrWrongPassword)
		}

		decrypted := make([]byte, len(payload))
		copy(decrypted, payload)
		crypt.DecryptRegion(decrypted, key)
		payload = decrypted
	}

	result.Samples = make([]int32, header.NumberOfSamples)
	if err := decodeDifferences(payload, header.NumberOfSamples, result.Samples); err != nil {
		return result, err
	}

	// Lossy blocks arrive pre-scaled; undo the scale so callers always see
	// integer sample space.
	if header.ScaleFactor != 1.0 && header.ScaleFactor != 0.0 {
		for i, s := range result.Samples {
			result.Samples[i] = int32(math.Round(float64(s) * float64(header.ScaleFactor)))
		}
	}

	return result, nil
}
