package red

import (
	"fmt"
	"math"

	"github.com/meflab/mefd/endian"
	"github.com/meflab/mefd/errs"
	"github.com/meflab/mefd/format"
)

// BlockHeader is the 304-byte header preceding every RED block's
// difference payload.
//
// BlockCRC covers the serialized block from byte offset 4 through the end
// of the padded payload, computed after any payload encryption.
type BlockHeader struct {
	BlockCRC uint32 // byte offset 0-3
	// Flags holds the discontinuity and encryption-level bits.
	Flags uint8 // byte offset 4

	DetrendSlope     float32 // byte offset 16-19
	DetrendIntercept float32 // byte offset 20-23
	// ScaleFactor is 1.0 in lossless mode. A different value marks a
	// pre-scaled lossy payload, which decoders tolerate but the writer
	// never produces.
	ScaleFactor float32 // byte offset 24-27

	// DifferenceBytes is the exact encoded payload size, pre-padding.
	DifferenceBytes uint32 // byte offset 28-31
	NumberOfSamples uint32 // byte offset 32-35
	// BlockBytes is the total block size: header, differences and padding.
	BlockBytes uint32 // byte offset 36-39

	StartTime int64 // uUTC of the first sample, byte offset 40-47

	// Statistics is a normalized frequency histogram of the difference
	// bytes. Advisory: decoders ignore it except for CRC purposes.
	Statistics [format.REDBlockStatisticsBytes]byte // byte offset 48-303
}

// NewBlockHeader returns a header with lossless defaults.
func NewBlockHeader() BlockHeader {
	return BlockHeader{
		ScaleFactor: 1.0,
		StartTime:   format.UUTCNoEntry,
	}
}

// IsDiscontinuity reports whether the block starts a discontinuity.
func (h *BlockHeader) IsDiscontinuity() bool {
	return h.Flags&format.REDDiscontinuityMask != 0
}

// IsLevel1Encrypted reports whether the payload is level-1 encrypted.
func (h *BlockHeader) IsLevel1Encrypted() bool {
	return h.Flags&format.REDLevel1EncryptionMask != 0
}

// IsLevel2Encrypted reports whether the payload is level-2 encrypted.
func (h *BlockHeader) IsLevel2Encrypted() bool {
	return h.Flags&format.REDLevel2EncryptionMask != 0
}

// EncodeTo serializes the header into the first 304 bytes of block.
func (h *BlockHeader) EncodeTo(block []byte) {
	engine := endian.GetLittleEndianEngine()

	engine.PutUint32(block[format.REDBlockCRCOffset:], h.BlockCRC)
	block[format.REDBlockFlagsOffset] = h.Flags
	padRegion(block[format.REDBlockProtectedRegionOffset : format.REDBlockProtectedRegionOffset+format.REDBlockProtectedRegionBytes])
	padRegion(block[format.REDBlockDiscretionaryRegionOffset : format.REDBlockDiscretionaryRegionOffset+format.REDBlockDiscretionaryRegionBytes])
	engine.PutUint32(block[format.REDBlockDetrendSlopeOffset:], math.Float32bits(h.DetrendSlope))
	engine.PutUint32(block[format.REDBlockDetrendInterceptOffset:], math.Float32bits(h.DetrendIntercept))
	engine.PutUint32(block[format.REDBlockScaleFactorOffset:], math.Float32bits(h.ScaleFactor))
	engine.PutUint32(block[format.REDBlockDifferenceBytesOffset:], h.DifferenceBytes)
	engine.PutUint32(block[format.REDBlockNumberOfSamplesOffset:], h.NumberOfSamples)
	engine.PutUint32(block[format.REDBlockBlockBytesOffset:], h.BlockBytes)
	engine.PutUint64(block[format.REDBlockStartTimeOffset:], uint64(h.StartTime))
	copy(block[format.REDBlockStatisticsOffset:], h.Statistics[:])
}

// Parse deserializes a 304-byte block header.
func (h *BlockHeader) Parse(data []byte) error {
	if len(data) < format.REDBlockHeaderBytes {
		return fmt.Errorf("%w: RED block header needs %d bytes, got %d",
			errs.ErrDecompressionFailed, format.REDBlockHeaderBytes, len(data))
	}

	engine := endian.GetLittleEndianEngine()

	h.BlockCRC = engine.Uint32(data[format.REDBlockCRCOffset:])
	h.Flags = data[format.REDBlockFlagsOffset]
	h.DetrendSlope = math.Float32frombits(engine.Uint32(data[format.REDBlockDetrendSlopeOffset:]))
	h.DetrendIntercept = math.Float32frombits(engine.Uint32(data[format.REDBlockDetrendInterceptOffset:]))
	h.ScaleFactor = math.Float32frombits(engine.Uint32(data[format.REDBlockScaleFactorOffset:]))
	h.DifferenceBytes = engine.Uint32(data[format.REDBlockDifferenceBytesOffset:])
	h.NumberOfSamples = engine.Uint32(data[format.REDBlockNumberOfSamplesOffset:])
	h.BlockBytes = engine.Uint32(data[format.REDBlockBlockBytesOffset:])
	h.StartTime = int64(engine.Uint64(data[format.REDBlockStartTimeOffset:]))
	copy(h.Statistics[:], data[format.REDBlockStatisticsOffset:])

	return nil
}

func padRegion(dst []byte) {
	for i := range dst {
		dst[i] = format.PadByteValue
	}
}
