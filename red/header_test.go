package red

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meflab/mefd/errs"
	"github.com/meflab/mefd/format"
)

func TestBlockHeader_RoundTrip(t *testing.T) {
	original := NewBlockHeader()
	original.BlockCRC = 0x12345678
	original.Flags = format.REDDiscontinuityMask | format.REDLevel2EncryptionMask
	original.DetrendSlope = 0.5
	original.DetrendIntercept = -1.25
	original.ScaleFactor = 2.0
	original.DifferenceBytes = 777
	original.NumberOfSamples = 1000
	original.BlockBytes = 1088
	original.StartTime = 1_000_000_000_000
	for i := range original.Statistics {
		original.Statistics[i] = byte(i)
	}

	block := make([]byte, format.REDBlockHeaderBytes)
	original.EncodeTo(block)

	parsed := BlockHeader{}
	require.NoError(t, parsed.Parse(block))

	require.Equal(t, original.BlockCRC, parsed.BlockCRC)
	require.Equal(t, original.Flags, parsed.Flags)
	require.Equal(t, original.DetrendSlope, parsed.DetrendSlope)
	require.Equal(t, original.DetrendIntercept, parsed.DetrendIntercept)
	require.Equal(t, original.ScaleFactor, parsed.ScaleFactor)
	require.Equal(t, original.DifferenceBytes, parsed.DifferenceBytes)
	require.Equal(t, original.NumberOfSamples, parsed.NumberOfSamples)
	require.Equal(t, original.BlockBytes, parsed.BlockBytes)
	require.Equal(t, original.StartTime, parsed.StartTime)
	require.Equal(t, original.Statistics, parsed.Statistics)
}

func TestBlockHeader_FlagHelpers(t *testing.T) {
	h := NewBlockHeader()
	require.False(t, h.IsDiscontinuity())
	require.False(t, h.IsLevel1Encrypted())
	require.False(t, h.IsLevel2Encrypted())

	h.Flags = format.REDDiscontinuityMask | format.REDLevel1EncryptionMask
	require.True(t, h.IsDiscontinuity())
	require.True(t, h.IsLevel1Encrypted())
	require.False(t, h.IsLevel2Encrypted())
}

func TestBlockHeader_Parse_ShortInput(t *testing.T) {
	h := BlockHeader{}
	require.ErrorIs(t, h.Parse(make([]byte, 303)), errs.ErrDecompressionFailed)
}

func TestBlockHeader_LosslessDefaults(t *testing.T) {
	h := NewBlockHeader()
	require.EqualValues(t, 1.0, h.ScaleFactor)
	require.EqualValues(t, 0.0, h.DetrendSlope)
	require.EqualValues(t, 0.0, h.DetrendIntercept)
	require.Equal(t, format.UUTCNoEntry, h.StartTime)
}
