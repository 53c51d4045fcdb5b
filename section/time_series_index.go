package section

import (
	"fmt"

	"github.com/meflab/mefd/endian"
	"github.com/meflab/mefd/errs"
	"github.com/meflab/mefd/format"
)

// TimeSeriesIndex is the 56-byte record describing one RED block's
// position and statistics inside a .tdat file. A .tidx file holds a
// Universal Header followed by the packed array of these records, ordered
// by StartSample and FileOffset.
type TimeSeriesIndex struct {
	// FileOffset is the byte offset of the block inside its .tdat file.
	FileOffset int64 // byte offset 0-7
	// StartTime is the uUTC time of the block's first sample.
	StartTime int64 // byte offset 8-15
	// StartSample is the cumulative sample index of the block's first
	// sample within the channel.
	StartSample int64 // byte offset 16-23

	NumberOfSamples uint32 // byte offset 24-27
	// BlockBytes counts the whole block: header, differences and padding.
	BlockBytes uint32 // byte offset 28-31

	MaximumSampleValue int32 // byte offset 32-35
	MinimumSampleValue int32 // byte offset 36-39

	// REDBlockFlags mirrors the flags byte of the block header.
	REDBlockFlags uint8 // byte offset 44
}

// NewTimeSeriesIndex returns an index with every field at its no-entry
// value.
func NewTimeSeriesIndex() TimeSeriesIndex {
	return TimeSeriesIndex{
		FileOffset:         format.TSIndexFileOffsetNoEntry,
		StartTime:          format.UUTCNoEntry,
		StartSample:        format.TSIndexStartSampleNoEntry,
		NumberOfSamples:    format.TSIndexNumberOfSamplesNoEntry,
		BlockBytes:         format.TSIndexBlockBytesNoEntry,
		MaximumSampleValue: format.REDNaN,
		MinimumSampleValue: format.REDNaN,
	}
}

// Bytes serializes the index into a fresh 56-byte slice.
func (idx *TimeSeriesIndex) Bytes() []byte {
	var b [format.TimeSeriesIndexBytes]byte
	engine := endian.GetLittleEndianEngine()

	engine.PutUint64(b[format.TSIndexFileOffsetOffset:], uint64(idx.FileOffset))
	engine.PutUint64(b[format.TSIndexStartTimeOffset:], uint64(idx.StartTime))
	engine.PutUint64(b[format.TSIndexStartSampleOffset:], uint64(idx.StartSample))
	engine.PutUint32(b[format.TSIndexNumberOfSamplesOffset:], idx.NumberOfSamples)
	engine.PutUint32(b[format.TSIndexBlockBytesOffset:], idx.BlockBytes)
	engine.PutUint32(b[format.TSIndexMaximumSampleValueOffset:], uint32(idx.MaximumSampleValue))
	engine.PutUint32(b[format.TSIndexMinimumSampleValueOffset:], uint32(idx.MinimumSampleValue))
	padRegion(b[format.TSIndexProtectedRegionOffset:format.TSIndexProtectedRegionOffset+format.TSIndexProtectedRegionBytes], format.PadByteValue)
	b[format.TSIndexREDBlockFlagsOffset] = idx.REDBlockFlags
	padRegion(b[format.TSIndexREDProtectedRegionOffset:format.TSIndexREDProtectedRegionOffset+format.TSIndexREDProtectedRegionBytes], format.PadByteValue)
	padRegion(b[format.TSIndexREDDiscretionaryRegionOffset:format.TSIndexREDDiscretionaryRegionOffset+format.TSIndexREDDiscretionaryRegionBytes], format.PadByteValue)

	return b[:]
}

// Parse deserializes a 56-byte index record.
func (idx *TimeSeriesIndex) Parse(data []byte) error {
	if len(data) < format.TimeSeriesIndexBytes {
		return fmt.Errorf("%w: time series index needs %d bytes, got %d",
			errs.ErrInvalidHeaderSize, format.TimeSeriesIndexBytes, len(data))
	}

	engine := endian.GetLittleEndianEngine()

	idx.FileOffset = int64(engine.Uint64(data[format.TSIndexFileOffsetOffset:]))
	idx.StartTime = int64(engine.Uint64(data[format.TSIndexStartTimeOffset:]))
	idx.StartSample = int64(engine.Uint64(data[format.TSIndexStartSampleOffset:]))
	idx.NumberOfSamples = engine.Uint32(data[format.TSIndexNumberOfSamplesOffset:])
	idx.BlockBytes = engine.Uint32(data[format.TSIndexBlockBytesOffset:])
	idx.MaximumSampleValue = int32(engine.Uint32(data[format.TSIndexMaximumSampleValueOffset:]))
	idx.MinimumSampleValue = int32(engine.Uint32(data[format.TSIndexMinimumSampleValueOffset:]))
	idx.REDBlockFlags = data[format.TSIndexREDBlockFlagsOffset]

	return nil
}
