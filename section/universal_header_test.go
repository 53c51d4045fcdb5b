package section

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meflab/mefd/errs"
	"github.com/meflab/mefd/format"
)

func TestUniversalHeader_Size(t *testing.T) {
	uh := NewUniversalHeader(format.TypeTimeSeriesData)
	require.Len(t, uh.Bytes(), format.UniversalHeaderBytes)
}

func TestUniversalHeader_RoundTrip(t *testing.T) {
	original := NewUniversalHeader(format.TypeTimeSeriesMeta)
	original.BodyCRC = 0xDEADBEEF
	original.StartTime = 1_000_000_000_000
	original.EndTime = 1_000_000_999_000
	original.NumberOfEntries = 42
	original.MaximumEntrySize = 1234
	original.SegmentNumber = 7
	original.ChannelName = "eeg_01"
	original.SessionName = "test_session"
	original.AnonymizedName = "anon"
	for i := range original.LevelUUID {
		original.LevelUUID[i] = byte(i)
		original.FileUUID[i] = byte(i * 2)
		original.ProvenanceUUID[i] = byte(i * 3)
	}
	original.Level1PasswordValidation[0] = 0xAA
	original.Level2PasswordValidation[15] = 0xBB

	data := original.Bytes()

	parsed := &UniversalHeader{}
	require.NoError(t, parsed.Parse(data))

	require.Equal(t, original.BodyCRC, parsed.BodyCRC)
	require.Equal(t, format.TypeTimeSeriesMeta, parsed.FileType)
	require.EqualValues(t, format.MEFVersionMajor, parsed.VersionMajor)
	require.EqualValues(t, format.MEFVersionMinor, parsed.VersionMinor)
	require.EqualValues(t, 1, parsed.ByteOrderCode)
	require.Equal(t, original.StartTime, parsed.StartTime)
	require.Equal(t, original.EndTime, parsed.EndTime)
	require.Equal(t, original.NumberOfEntries, parsed.NumberOfEntries)
	require.Equal(t, original.MaximumEntrySize, parsed.MaximumEntrySize)
	require.Equal(t, original.SegmentNumber, parsed.SegmentNumber)
	require.Equal(t, original.ChannelName, parsed.ChannelName)
	require.Equal(t, original.SessionName, parsed.SessionName)
	require.Equal(t, original.AnonymizedName, parsed.AnonymizedName)
	require.Equal(t, original.LevelUUID, parsed.LevelUUID)
	require.Equal(t, original.FileUUID, parsed.FileUUID)
	require.Equal(t, original.ProvenanceUUID, parsed.ProvenanceUUID)
	require.Equal(t, original.Level1PasswordValidation, parsed.Level1PasswordValidation)
	require.Equal(t, original.Level2PasswordValidation, parsed.Level2PasswordValidation)
}

func TestUniversalHeader_HeaderCRC(t *testing.T) {
	uh := NewUniversalHeader(format.TypeTimeSeriesIdx)
	uh.ChannelName = "ch"
	data := uh.Bytes()

	require.True(t, ValidateHeaderCRC(data))

	data[100] ^= 0xFF
	require.False(t, ValidateHeaderCRC(data))
}

func TestUniversalHeader_Parse_Errors(t *testing.T) {
	t.Run("short input", func(t *testing.T) {
		uh := &UniversalHeader{}
		err := uh.Parse(make([]byte, 100))
		require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)
	})

	t.Run("unknown file type", func(t *testing.T) {
		data := NewUniversalHeader(format.TypeTimeSeriesData).Bytes()
		copy(data[format.UHFileTypeOffset:], "zzzz\x00")

		uh := &UniversalHeader{}
		require.ErrorIs(t, uh.Parse(data), errs.ErrInvalidFormat)
	})

	t.Run("wrong major version", func(t *testing.T) {
		data := NewUniversalHeader(format.TypeTimeSeriesData).Bytes()
		data[format.UHMEFVersionMajorOffset] = 2

		uh := &UniversalHeader{}
		require.ErrorIs(t, uh.Parse(data), errs.ErrInvalidFormat)
	})

	t.Run("big endian stamp", func(t *testing.T) {
		data := NewUniversalHeader(format.TypeTimeSeriesData).Bytes()
		data[format.UHByteOrderCodeOffset] = 0

		uh := &UniversalHeader{}
		require.ErrorIs(t, uh.Parse(data), errs.ErrInvalidFormat)
	})
}

func TestUniversalHeader_PadRegions(t *testing.T) {
	data := NewUniversalHeader(format.TypeTimeSeriesData).Bytes()

	for i := format.UHProtectedRegionOffset; i < format.UHProtectedRegionOffset+format.UHProtectedRegionBytes; i++ {
		require.EqualValues(t, format.PadByteValue, data[i])
	}
	for i := format.UHDiscretionaryRegionOffset; i < format.UniversalHeaderBytes; i++ {
		require.EqualValues(t, format.PadByteValue, data[i])
	}
}

func TestUniversalHeader_LongNamesTruncated(t *testing.T) {
	uh := NewUniversalHeader(format.TypeTimeSeriesData)
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	uh.ChannelName = string(long)

	data := uh.Bytes()
	parsed := &UniversalHeader{}
	require.NoError(t, parsed.Parse(data))
	require.Len(t, parsed.ChannelName, format.BaseFileNameBytes-1)
}
