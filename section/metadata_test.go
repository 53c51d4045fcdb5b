package section

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meflab/mefd/format"
)

func newMetadataFile() []byte {
	file := make([]byte, format.MetadataFileBytes)
	for i := range file {
		file[i] = format.PadByteValue
	}

	return file
}

func TestMetadataSection1_RoundTrip(t *testing.T) {
	file := newMetadataFile()

	original := NewMetadataSection1()
	original.Section2Encryption = format.Level1Encryption
	original.Section3Encryption = format.Level2Encryption
	original.EncodeTo(file)

	parsed := MetadataSection1{}
	require.NoError(t, parsed.ParseFrom(file))
	require.Equal(t, original.Section2Encryption, parsed.Section2Encryption)
	require.Equal(t, original.Section3Encryption, parsed.Section3Encryption)
}

func TestTimeSeriesMetadataSection2_RoundTrip(t *testing.T) {
	file := newMetadataFile()

	original := NewTimeSeriesMetadataSection2()
	original.ChannelDescription = "frontal electrode"
	original.SessionDescription = "overnight recording"
	original.RecordingDuration = 3_600_000_000
	original.ReferenceDescription = "linked mastoids"
	original.AcquisitionChannelNumber = 3
	original.SamplingFrequency = 1000.0
	original.LowFrequencyFilterSetting = 0.1
	original.HighFrequencyFilterSetting = 500.0
	original.NotchFilterFrequencySetting = 50.0
	original.ACLineFrequency = 50.0
	original.UnitsConversionFactor = 0.042
	original.UnitsDescription = "uV"
	original.MaximumNativeSampleValue = 199.5
	original.MinimumNativeSampleValue = -200.25
	original.StartSample = 0
	original.NumberOfSamples = 3_600_000
	original.NumberOfBlocks = 3600
	original.MaximumBlockBytes = 2048
	original.MaximumBlockSamples = 1000
	original.BlockInterval = 1_000_000
	original.NumberOfDiscontinuities = 1
	original.MaximumContiguousBlocks = 3600
	original.MaximumContiguousBlockBytes = 2048 * 3600
	original.MaximumContiguousSamples = 3_600_000
	original.EncodeTo(file)

	parsed := TimeSeriesMetadataSection2{}
	require.NoError(t, parsed.ParseFrom(file))

	require.Equal(t, original.ChannelDescription, parsed.ChannelDescription)
	require.Equal(t, original.SessionDescription, parsed.SessionDescription)
	require.Equal(t, original.RecordingDuration, parsed.RecordingDuration)
	require.Equal(t, original.ReferenceDescription, parsed.ReferenceDescription)
	require.Equal(t, original.AcquisitionChannelNumber, parsed.AcquisitionChannelNumber)
	require.Equal(t, original.SamplingFrequency, parsed.SamplingFrequency)
	require.Equal(t, original.LowFrequencyFilterSetting, parsed.LowFrequencyFilterSetting)
	require.Equal(t, original.HighFrequencyFilterSetting, parsed.HighFrequencyFilterSetting)
	require.Equal(t, original.NotchFilterFrequencySetting, parsed.NotchFilterFrequencySetting)
	require.Equal(t, original.ACLineFrequency, parsed.ACLineFrequency)
	require.Equal(t, original.UnitsConversionFactor, parsed.UnitsConversionFactor)
	require.Equal(t, original.UnitsDescription, parsed.UnitsDescription)
	require.Equal(t, original.MaximumNativeSampleValue, parsed.MaximumNativeSampleValue)
	require.Equal(t, original.MinimumNativeSampleValue, parsed.MinimumNativeSampleValue)
	require.Equal(t, original.StartSample, parsed.StartSample)
	require.Equal(t, original.NumberOfSamples, parsed.NumberOfSamples)
	require.Equal(t, original.NumberOfBlocks, parsed.NumberOfBlocks)
	require.Equal(t, original.MaximumBlockBytes, parsed.MaximumBlockBytes)
	require.Equal(t, original.MaximumBlockSamples, parsed.MaximumBlockSamples)
	require.Equal(t, original.MaximumDifferenceBytes, parsed.MaximumDifferenceBytes)
	require.Equal(t, original.BlockInterval, parsed.BlockInterval)
	require.Equal(t, original.NumberOfDiscontinuities, parsed.NumberOfDiscontinuities)
	require.Equal(t, original.MaximumContiguousBlocks, parsed.MaximumContiguousBlocks)
	require.Equal(t, original.MaximumContiguousBlockBytes, parsed.MaximumContiguousBlockBytes)
	require.Equal(t, original.MaximumContiguousSamples, parsed.MaximumContiguousSamples)
}

func TestTimeSeriesMetadataSection2_NoEntryDefaults(t *testing.T) {
	m := NewTimeSeriesMetadataSection2()

	require.Equal(t, format.TSMetadataSamplingFrequencyNoEntry, m.SamplingFrequency)
	require.Equal(t, format.TSMetadataUnitsConversionFactorNoEntry, m.UnitsConversionFactor)
	require.Equal(t, format.TSMetadataNumberOfSamplesNoEntry, m.NumberOfSamples)
	require.Equal(t, format.TSMetadataMaximumBlockSamplesNoEntry, m.MaximumBlockSamples)
	require.Equal(t, format.TSMetadataMaximumDifferenceBytesNoEntry, m.MaximumDifferenceBytes)
	require.True(t, math.IsNaN(m.MaximumNativeSampleValue))
	require.True(t, math.IsNaN(m.MinimumNativeSampleValue))
}

func TestMetadataSection3_RoundTrip(t *testing.T) {
	file := newMetadataFile()

	original := NewMetadataSection3()
	original.RecordingTimeOffset = 42
	original.GMTOffset = -5
	original.SubjectName1 = "Test Subject"
	original.SubjectName2 = "Alias"
	original.SubjectID = "S-001"
	original.RecordingLocation = "Ward 7"
	original.EncodeTo(file)

	parsed := MetadataSection3{}
	require.NoError(t, parsed.ParseFrom(file))

	require.Equal(t, original.RecordingTimeOffset, parsed.RecordingTimeOffset)
	require.Equal(t, format.UUTCNoEntry, parsed.DSTStartTime)
	require.Equal(t, format.UUTCNoEntry, parsed.DSTEndTime)
	require.Equal(t, original.GMTOffset, parsed.GMTOffset)
	require.Equal(t, original.SubjectName1, parsed.SubjectName1)
	require.Equal(t, original.SubjectName2, parsed.SubjectName2)
	require.Equal(t, original.SubjectID, parsed.SubjectID)
	require.Equal(t, original.RecordingLocation, parsed.RecordingLocation)
}

func TestMetadataSections_DoNotOverlap(t *testing.T) {
	file := newMetadataFile()

	meta1 := NewMetadataSection1()
	meta2 := NewTimeSeriesMetadataSection2()
	meta2.SamplingFrequency = 250.0
	meta2.UnitsDescription = "mV"
	meta3 := NewMetadataSection3()
	meta3.SubjectID = "S-002"

	meta1.EncodeTo(file)
	meta2.EncodeTo(file)
	meta3.EncodeTo(file)

	parsed2 := TimeSeriesMetadataSection2{}
	require.NoError(t, parsed2.ParseFrom(file))
	require.Equal(t, 250.0, parsed2.SamplingFrequency)
	require.Equal(t, "mV", parsed2.UnitsDescription)

	parsed3 := MetadataSection3{}
	require.NoError(t, parsed3.ParseFrom(file))
	require.Equal(t, "S-002", parsed3.SubjectID)
}
