package section

import (
	"fmt"
	"math"

	"github.com/meflab/mefd/endian"
	"github.com/meflab/mefd/errs"
	"github.com/meflab/mefd/format"
)

// MetadataSection1 occupies the region directly after the Universal Header
// in a .tmet file. It records the encryption level applied to the other
// two sections.
type MetadataSection1 struct {
	Section2Encryption int8 // byte offset 1024
	Section3Encryption int8 // byte offset 1025
}

// NewMetadataSection1 returns a section 1 with no encryption declared.
func NewMetadataSection1() MetadataSection1 {
	return MetadataSection1{
		Section2Encryption: format.NoEncryption,
		Section3Encryption: format.NoEncryption,
	}
}

// EncodeTo writes the section into a full metadata file buffer at its
// absolute offsets.
func (m *MetadataSection1) EncodeTo(file []byte) {
	file[format.MetadataSection2EncryptionOffset] = byte(m.Section2Encryption)
	file[format.MetadataSection3EncryptionOffset] = byte(m.Section3Encryption)
	padRegion(file[format.MetadataSection1ProtectedOffset:format.MetadataSection1ProtectedOffset+format.MetadataSection1ProtectedBytes], format.PadByteValue)
	padRegion(file[format.MetadataSection1DiscretionaryOffset:format.MetadataSection1DiscretionaryOffset+format.MetadataSection1DiscretionaryBytes], format.PadByteValue)
}

// ParseFrom reads the section from a full metadata file buffer.
func (m *MetadataSection1) ParseFrom(file []byte) error {
	if len(file) < format.MetadataFileBytes {
		return fmt.Errorf("%w: metadata file needs %d bytes, got %d",
			errs.ErrInvalidHeaderSize, format.MetadataFileBytes, len(file))
	}

	m.Section2Encryption = int8(file[format.MetadataSection2EncryptionOffset])
	m.Section3Encryption = int8(file[format.MetadataSection3EncryptionOffset])

	return nil
}

// TimeSeriesMetadataSection2 is the channel/segment description block at
// byte offset 2560 of a .tmet file.
type TimeSeriesMetadataSection2 struct {
	ChannelDescription string // 2048-byte buffer at offset 2560
	SessionDescription string // 2048-byte buffer at offset 4608
	RecordingDuration  int64  // byte offset 6656

	ReferenceDescription     string  // 2048-byte buffer at offset 6664
	AcquisitionChannelNumber int64   // byte offset 8712
	SamplingFrequency        float64 // byte offset 8720
	LowFrequencyFilterSetting  float64 // byte offset 8728
	HighFrequencyFilterSetting float64 // byte offset 8736
	NotchFilterFrequencySetting float64 // byte offset 8744
	ACLineFrequency          float64 // byte offset 8752
	UnitsConversionFactor    float64 // byte offset 8760
	UnitsDescription         string  // 128-byte buffer at offset 8768

	MaximumNativeSampleValue float64 // byte offset 8896
	MinimumNativeSampleValue float64 // byte offset 8904

	StartSample     int64 // byte offset 8912
	NumberOfSamples int64 // byte offset 8920
	NumberOfBlocks  int64 // byte offset 8928

	MaximumBlockBytes      int64  // byte offset 8936
	MaximumBlockSamples    uint32 // byte offset 8944
	MaximumDifferenceBytes uint32 // byte offset 8948
	BlockInterval          int64  // byte offset 8952

	NumberOfDiscontinuities     int64 // byte offset 8960
	MaximumContiguousBlocks     int64 // byte offset 8968
	MaximumContiguousBlockBytes int64 // byte offset 8976
	MaximumContiguousSamples    int64 // byte offset 8984
}

// NewTimeSeriesMetadataSection2 returns a section 2 with every field at
// its no-entry value.
func NewTimeSeriesMetadataSection2() TimeSeriesMetadataSection2 {
	return TimeSeriesMetadataSection2{
		RecordingDuration:           format.MetadataRecordingDurationNoEntry,
		AcquisitionChannelNumber:    format.TSMetadataAcquisitionChannelNumberNoEntry,
		SamplingFrequency:           format.TSMetadataSamplingFrequencyNoEntry,
		LowFrequencyFilterSetting:   format.TSMetadataFilterSettingNoEntry,
		HighFrequencyFilterSetting:  format.TSMetadataFilterSettingNoEntry,
		NotchFilterFrequencySetting: format.TSMetadataFilterSettingNoEntry,
		ACLineFrequency:             format.TSMetadataFilterSettingNoEntry,
		UnitsConversionFactor:       format.TSMetadataUnitsConversionFactorNoEntry,
		MaximumNativeSampleValue:    math.NaN(),
		MinimumNativeSampleValue:    math.NaN(),
		StartSample:                 format.TSMetadataStartSampleNoEntry,
		NumberOfSamples:             format.TSMetadataNumberOfSamplesNoEntry,
		NumberOfBlocks:              format.TSMetadataNumberOfBlocksNoEntry,
		MaximumBlockBytes:           format.TSMetadataMaximumBlockBytesNoEntry,
		MaximumBlockSamples:         format.TSMetadataMaximumBlockSamplesNoEntry,
		MaximumDifferenceBytes:      format.TSMetadataMaximumDifferenceBytesNoEntry,
		BlockInterval:               format.TSMetadataBlockIntervalNoEntry,
		NumberOfDiscontinuities:     format.TSMetadataNumberOfDiscontinuitiesNoEntry,
		MaximumContiguousBlocks:     format.TSMetadataMaximumContiguousNoEntry,
		MaximumContiguousBlockBytes: format.TSMetadataMaximumContiguousNoEntry,
		MaximumContiguousSamples:    format.TSMetadataMaximumContiguousNoEntry,
	}
}

// EncodeTo writes the section into a full metadata file buffer at its
// absolute offsets.
func (m *TimeSeriesMetadataSection2) EncodeTo(file []byte) {
	engine := endian.GetLittleEndianEngine()

	putString(file[format.MetadataChannelDescriptionOffset:format.MetadataChannelDescriptionOffset+format.MetadataChannelDescriptionBytes], m.ChannelDescription)
	putString(file[format.MetadataSessionDescriptionOffset:format.MetadataSessionDescriptionOffset+format.MetadataSessionDescriptionBytes], m.SessionDescription)
	engine.PutUint64(file[format.MetadataRecordingDurationOffset:], uint64(m.RecordingDuration))
	putString(file[format.TSMetadataReferenceDescriptionOffset:format.TSMetadataReferenceDescriptionOffset+format.TSMetadataReferenceDescriptionBytes], m.ReferenceDescription)
	engine.PutUint64(file[format.TSMetadataAcquisitionChannelNumberOffset:], uint64(m.AcquisitionChannelNumber))
	engine.PutUint64(file[format.TSMetadataSamplingFrequencyOffset:], math.Float64bits(m.SamplingFrequency))
	engine.PutUint64(file[format.TSMetadataLowFrequencyFilterOffset:], math.Float64bits(m.LowFrequencyFilterSetting))
	engine.PutUint64(file[format.TSMetadataHighFrequencyFilterOffset:], math.Float64bits(m.HighFrequencyFilterSetting))
	engine.PutUint64(file[format.TSMetadataNotchFilterOffset:], math.Float64bits(m.NotchFilterFrequencySetting))
	engine.PutUint64(file[format.TSMetadataACLineFrequencyOffset:], math.Float64bits(m.ACLineFrequency))
	engine.PutUint64(file[format.TSMetadataUnitsConversionFactorOffset:], math.Float64bits(m.UnitsConversionFactor))
	putString(file[format.TSMetadataUnitsDescriptionOffset:format.TSMetadataUnitsDescriptionOffset+format.TSMetadataUnitsDescriptionBytes], m.UnitsDescription)
	engine.PutUint64(file[format.TSMetadataMaximumNativeSampleOffset:], math.Float64bits(m.MaximumNativeSampleValue))
	engine.PutUint64(file[format.TSMetadataMinimumNativeSampleOffset:], math.Float64bits(m.MinimumNativeSampleValue))
	engine.PutUint64(file[format.TSMetadataStartSampleOffset:], uint64(m.StartSample))
	engine.PutUint64(file[format.TSMetadataNumberOfSamplesOffset:], uint64(m.NumberOfSamples))
	engine.PutUint64(file[format.TSMetadataNumberOfBlocksOffset:], uint64(m.NumberOfBlocks))
	engine.PutUint64(file[format.TSMetadataMaximumBlockBytesOffset:], uint64(m.MaximumBlockBytes))
	engine.PutUint32(file[format.TSMetadataMaximumBlockSamplesOffset:], m.MaximumBlockSamples)
	engine.PutUint32(file[format.TSMetadataMaximumDifferenceBytesOffset:], m.MaximumDifferenceBytes)
	engine.PutUint64(file[format.TSMetadataBlockIntervalOffset:], uint64(m.BlockInterval))
	engine.PutUint64(file[format.TSMetadataNumberOfDiscontinuitiesOffset:], uint64(m.NumberOfDiscontinuities))
	engine.PutUint64(file[format.TSMetadataMaximumContiguousBlocksOffset:], uint64(m.MaximumContiguousBlocks))
	engine.PutUint64(file[format.TSMetadataMaximumContiguousBlockBytesOffset:], uint64(m.MaximumContiguousBlockBytes))
	engine.PutUint64(file[format.TSMetadataMaximumContiguousSamplesOffset:], uint64(m.MaximumContiguousSamples))
	padRegion(file[format.TSMetadataSection2ProtectedOffset:format.TSMetadataSection2ProtectedOffset+format.TSMetadataSection2ProtectedBytes], format.PadByteValue)
	padRegion(file[format.TSMetadataSection2DiscretionaryOffset:format.TSMetadataSection2DiscretionaryOffset+format.TSMetadataSection2DiscretionaryBytes], format.PadByteValue)
}

// ParseFrom reads the section from a full metadata file buffer.
func (m *TimeSeriesMetadataSection2) ParseFrom(file []byte) error {
	if len(file) < format.MetadataFileBytes {
		return fmt.Errorf("%w: metadata file needs %d bytes, got %d",
			errs.ErrInvalidHeaderSize, format.MetadataFileBytes, len(file))
	}

	engine := endian.GetLittleEndianEngine()

	m.ChannelDescription = getString(file[format.MetadataChannelDescriptionOffset : format.MetadataChannelDescriptionOffset+format.MetadataChannelDescriptionBytes])
	m.SessionDescription = getString(file[format.MetadataSessionDescriptionOffset : format.MetadataSessionDescriptionOffset+format.MetadataSessionDescriptionBytes])
	m.RecordingDuration = int64(engine.Uint64(file[format.MetadataRecordingDurationOffset:]))
	m.ReferenceDescription = getString(file[format.TSMetadataReferenceDescriptionOffset : format.TSMetadataReferenceDescriptionOffset+format.TSMetadataReferenceDescriptionBytes])
	m.AcquisitionChannelNumber = int64(engine.Uint64(file[format.TSMetadataAcquisitionChannelNumberOffset:]))
	m.SamplingFrequency = math.Float64frombits(engine.Uint64(file[format.TSMetadataSamplingFrequencyOffset:]))
	m.LowFrequencyFilterSetting = math.Float64frombits(engine.Uint64(file[format.TSMetadataLowFrequencyFilterOffset:]))
	m.HighFrequencyFilterSetting = math.Float64frombits(engine.Uint64(file[format.TSMetadataHighFrequencyFilterOffset:]))
	m.NotchFilterFrequencySetting = math.Float64frombits(engine.Uint64(file[format.TSMetadataNotchFilterOffset:]))
	m.ACLineFrequency = math.Float64frombits(engine.Uint64(file[format.TSMetadataACLineFrequencyOffset:]))
	m.UnitsConversionFactor = math.Float64frombits(engine.Uint64(file[format.TSMetadataUnitsConversionFactorOffset:]))
	m.UnitsDescription = getString(file[format.TSMetadataUnitsDescriptionOffset : format.TSMetadataUnitsDescriptionOffset+format.TSMetadataUnitsDescriptionBytes])
	m.MaximumNativeSampleValue = math.Float64frombits(engine.Uint64(file[format.TSMetadataMaximumNativeSampleOffset:]))
	m.MinimumNativeSampleValue = math.Float64frombits(engine.Uint64(file[format.TSMetadataMinimumNativeSampleOffset:]))
	m.StartSample = int64(engine.Uint64(file[format.TSMetadataStartSampleOffset:]))
	m.NumberOfSamples = int64(engine.Uint64(file[format.TSMetadataNumberOfSamplesOffset:]))
	m.NumberOfBlocks = int64(engine.Uint64(file[format.TSMetadataNumberOfBlocksOffset:]))
	m.MaximumBlockBytes = int64(engine.Uint64(file[format.TSMetadataMaximumBlockBytesOffset:]))
	m.MaximumBlockSamples = engine.Uint32(file[format.TSMetadataMaximumBlockSamplesOffset:])
	m.MaximumDifferenceBytes = engine.Uint32(file[format.TSMetadataMaximumDifferenceBytesOffset:])
	m.BlockInterval = int64(engine.Uint64(file[format.TSMetadataBlockIntervalOffset:]))
	m.NumberOfDiscontinuities = int64(engine.Uint64(file[format.TSMetadataNumberOfDiscontinuitiesOffset:]))
	m.MaximumContiguousBlocks = int64(engine.Uint64(file[format.TSMetadataMaximumContiguousBlocksOffset:]))
	m.MaximumContiguousBlockBytes = int64(engine.Uint64(file[format.TSMetadataMaximumContiguousBlockBytesOffset:]))
	m.MaximumContiguousSamples = int64(engine.Uint64(file[format.TSMetadataMaximumContiguousSamplesOffset:]))

	return nil
}

// MetadataSection3 is the subject/recording description block at byte
// offset 13312 of a .tmet file. When level-2 encryption is in force this
// is the section it protects.
type MetadataSection3 struct {
	RecordingTimeOffset int64  // byte offset 13312
	DSTStartTime        int64  // byte offset 13320
	DSTEndTime          int64  // byte offset 13328
	GMTOffset           int32  // byte offset 13336
	SubjectName1        string // 128-byte buffer at offset 13340
	SubjectName2        string // 128-byte buffer at offset 13468
	SubjectID           string // 128-byte buffer at offset 13596
	RecordingLocation   string // 512-byte buffer at offset 13724
}

// NewMetadataSection3 returns a section 3 with every field at its
// no-entry value.
func NewMetadataSection3() MetadataSection3 {
	return MetadataSection3{
		RecordingTimeOffset: format.UUTCNoEntry,
		DSTStartTime:        format.UUTCNoEntry,
		DSTEndTime:          format.UUTCNoEntry,
		GMTOffset:           format.GMTOffsetNoEntry,
	}
}

// EncodeTo writes the section into a full metadata file buffer at its
// absolute offsets.
func (m *MetadataSection3) EncodeTo(file []byte) {
	engine := endian.GetLittleEndianEngine()

	engine.PutUint64(file[format.MetadataRecordingTimeOffsetOffset:], uint64(m.RecordingTimeOffset))
	engine.PutUint64(file[format.MetadataDSTStartTimeOffset:], uint64(m.DSTStartTime))
	engine.PutUint64(file[format.MetadataDSTEndTimeOffset:], uint64(m.DSTEndTime))
	engine.PutUint32(file[format.MetadataGMTOffsetOffset:], uint32(m.GMTOffset))
	putString(file[format.MetadataSubjectName1Offset:format.MetadataSubjectName1Offset+format.MetadataSubjectNameBytes], m.SubjectName1)
	putString(file[format.MetadataSubjectName2Offset:format.MetadataSubjectName2Offset+format.MetadataSubjectNameBytes], m.SubjectName2)
	putString(file[format.MetadataSubjectIDOffset:format.MetadataSubjectIDOffset+format.MetadataSubjectIDBytes], m.SubjectID)
	putString(file[format.MetadataRecordingLocationOffset:format.MetadataRecordingLocationOffset+format.MetadataRecordingLocationBytes], m.RecordingLocation)
	padRegion(file[format.MetadataSection3ProtectedOffset:format.MetadataSection3ProtectedOffset+format.MetadataSection3ProtectedBytes], format.PadByteValue)
	padRegion(file[format.MetadataSection3DiscretionaryOffset:format.MetadataSection3DiscretionaryOffset+format.MetadataSection3DiscretionaryBytes], format.PadByteValue)
}

// ParseFrom reads the section from a full metadata file buffer.
func (m *MetadataSection3) ParseFrom(file []byte) error {
	if len(file) < format.MetadataFileBytes {
		return fmt.Errorf("%w: metadata file needs %d bytes, got %d",
			errs.ErrInvalidHeaderSize, format.MetadataFileBytes, len(file))
	}

	engine := endian.GetLittleEndianEngine()

	m.RecordingTimeOffset = int64(engine.Uint64(file[format.MetadataRecordingTimeOffsetOffset:]))
	m.DSTStartTime = int64(engine.Uint64(file[format.MetadataDSTStartTimeOffset:]))
	m.DSTEndTime = int64(engine.Uint64(file[format.MetadataDSTEndTimeOffset:]))
	m.GMTOffset = int32(engine.Uint32(file[format.MetadataGMTOffsetOffset:]))
	m.SubjectName1 = getString(file[format.MetadataSubjectName1Offset : format.MetadataSubjectName1Offset+format.MetadataSubjectNameBytes])
	m.SubjectName2 = getString(file[format.MetadataSubjectName2Offset : format.MetadataSubjectName2Offset+format.MetadataSubjectNameBytes])
	m.SubjectID = getString(file[format.MetadataSubjectIDOffset : format.MetadataSubjectIDOffset+format.MetadataSubjectIDBytes])
	m.RecordingLocation = getString(file[format.MetadataRecordingLocationOffset : format.MetadataRecordingLocationOffset+format.MetadataRecordingLocationBytes])

	return nil
}
