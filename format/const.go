package format

// MEF version stamped into every Universal Header. Readers reject files
// whose major version differs.
const (
	MEFVersionMajor = 3
	MEFVersionMinor = 0
)

// Miscellaneous format constants.
const (
	TypeBytes            = 5
	UUIDBytes            = 16
	BaseFileNameBytes    = 256
	PadByteValue         = 0x7e // ASCII tilde '~'
	FileNumberingDigits  = 6
	MaximumGMTOffset     = 86400
	MinimumGMTOffset     = -86400
	UnknownNumberOfEntries = int64(-1)
	CRCNoEntry           = uint32(0)
)

// UUTCNoEntry marks an unknown time in microseconds since the Unix epoch.
const UUTCNoEntry = int64(-0x8000000000000000)

// Encryption constants (AES-128).
const (
	NoEncryption     = int8(0)
	Level1Encryption = int8(1)
	Level2Encryption = int8(2)

	EncryptionBlockBytes = 16
	PasswordBytes        = EncryptionBlockBytes
	MaxPasswordCharacters = PasswordBytes - 1
	PasswordValidationFieldBytes = PasswordBytes
)

// Universal Header layout. Present as the first 1024 bytes of every MEF
// file. The header CRC covers bytes 4..1024; the body CRC covers the file
// from byte 1024 to its end.
const (
	UniversalHeaderBytes = 1024

	UHHeaderCRCOffset       = 0
	UHBodyCRCOffset         = 4
	UHFileTypeOffset        = 8
	UHMEFVersionMajorOffset = 13
	UHMEFVersionMinorOffset = 14
	UHByteOrderCodeOffset   = 15
	UHStartTimeOffset       = 16
	UHEndTimeOffset         = 24
	UHNumberOfEntriesOffset = 32
	UHMaximumEntrySizeOffset = 40
	UHSegmentNumberOffset   = 48
	UHChannelNameOffset     = 52
	UHSessionNameOffset     = 308
	UHAnonymizedNameOffset  = 564
	UHAnonymizedNameBytes   = 256
	UHLevelUUIDOffset       = 820
	UHFileUUIDOffset        = 836
	UHProvenanceUUIDOffset  = 852
	UHLevel1PasswordValidationOffset = 868
	UHLevel2PasswordValidationOffset = 884
	UHProtectedRegionOffset = 900
	UHProtectedRegionBytes  = 60
	UHDiscretionaryRegionOffset = 960
	UHDiscretionaryRegionBytes  = 64

	// Segment number codes for files above the segment level.
	SegmentNumberNoEntry = int32(-1)
	ChannelLevelCode     = int32(-2)
	SessionLevelCode     = int32(-3)
)

// Metadata file layout: a Universal Header followed by three sections at
// fixed offsets, padded to 16 KiB total.
const (
	MetadataFileBytes = 16384

	MetadataSection1Bytes            = 1536
	MetadataSection2EncryptionOffset = 1024
	MetadataSection3EncryptionOffset = 1025
	MetadataSection1ProtectedOffset  = 1026
	MetadataSection1ProtectedBytes   = 766
	MetadataSection1DiscretionaryOffset = 1792
	MetadataSection1DiscretionaryBytes  = 768

	MetadataSection2Offset = 2560
	MetadataSection2Bytes  = 10752

	MetadataChannelDescriptionOffset = 2560
	MetadataChannelDescriptionBytes  = 2048
	MetadataSessionDescriptionOffset = 4608
	MetadataSessionDescriptionBytes  = 2048
	MetadataRecordingDurationOffset  = 6656
	MetadataRecordingDurationNoEntry = int64(-1)

	TSMetadataReferenceDescriptionOffset = 6664
	TSMetadataReferenceDescriptionBytes  = 2048
	TSMetadataAcquisitionChannelNumberOffset = 8712
	TSMetadataAcquisitionChannelNumberNoEntry = int64(-1)
	TSMetadataSamplingFrequencyOffset = 8720
	TSMetadataLowFrequencyFilterOffset  = 8728
	TSMetadataHighFrequencyFilterOffset = 8736
	TSMetadataNotchFilterOffset         = 8744
	TSMetadataACLineFrequencyOffset     = 8752
	TSMetadataUnitsConversionFactorOffset = 8760
	TSMetadataUnitsDescriptionOffset = 8768
	TSMetadataUnitsDescriptionBytes  = 128
	TSMetadataMaximumNativeSampleOffset = 8896
	TSMetadataMinimumNativeSampleOffset = 8904
	TSMetadataStartSampleOffset      = 8912
	TSMetadataNumberOfSamplesOffset  = 8920
	TSMetadataNumberOfBlocksOffset   = 8928
	TSMetadataMaximumBlockBytesOffset = 8936
	TSMetadataMaximumBlockSamplesOffset = 8944
	TSMetadataMaximumDifferenceBytesOffset = 8948
	TSMetadataBlockIntervalOffset    = 8952
	TSMetadataNumberOfDiscontinuitiesOffset = 8960
	TSMetadataMaximumContiguousBlocksOffset = 8968
	TSMetadataMaximumContiguousBlockBytesOffset = 8976
	TSMetadataMaximumContiguousSamplesOffset = 8984
	TSMetadataSection2ProtectedOffset = 8992
	TSMetadataSection2ProtectedBytes  = 2160
	TSMetadataSection2DiscretionaryOffset = 11152
	TSMetadataSection2DiscretionaryBytes  = 2160

	TSMetadataSamplingFrequencyNoEntry = float64(-1.0)
	TSMetadataFilterSettingNoEntry     = float64(-1.0)
	TSMetadataUnitsConversionFactorNoEntry = float64(0.0)
	TSMetadataStartSampleNoEntry     = int64(-1)
	TSMetadataNumberOfSamplesNoEntry = int64(-1)
	TSMetadataNumberOfBlocksNoEntry  = int64(-1)
	TSMetadataMaximumBlockBytesNoEntry = int64(-1)
	TSMetadataMaximumBlockSamplesNoEntry = uint32(0xFFFFFFFF)
	TSMetadataMaximumDifferenceBytesNoEntry = uint32(0xFFFFFFFF)
	TSMetadataBlockIntervalNoEntry   = int64(-1)
	TSMetadataNumberOfDiscontinuitiesNoEntry = int64(-1)
	TSMetadataMaximumContiguousNoEntry = int64(-1)

	MetadataSection3Offset = 13312
	MetadataSection3Bytes  = 3072

	MetadataRecordingTimeOffsetOffset = 13312
	MetadataDSTStartTimeOffset        = 13320
	MetadataDSTEndTimeOffset          = 13328
	MetadataGMTOffsetOffset           = 13336
	MetadataSubjectName1Offset        = 13340
	MetadataSubjectNameBytes          = 128
	MetadataSubjectName2Offset        = 13468
	MetadataSubjectIDOffset           = 13596
	MetadataSubjectIDBytes            = 128
	MetadataRecordingLocationOffset   = 13724
	MetadataRecordingLocationBytes    = 512
	MetadataSection3ProtectedOffset   = 14236
	MetadataSection3ProtectedBytes    = 1124
	MetadataSection3DiscretionaryOffset = 15360
	MetadataSection3DiscretionaryBytes  = 1024

	GMTOffsetNoEntry = int32(-86401)
)

// TimeSeriesIndex layout: one 56-byte record per RED block in a .tidx file.
const (
	TimeSeriesIndexBytes = 56

	TSIndexFileOffsetOffset      = 0
	TSIndexStartTimeOffset       = 8
	TSIndexStartSampleOffset     = 16
	TSIndexNumberOfSamplesOffset = 24
	TSIndexBlockBytesOffset      = 28
	TSIndexMaximumSampleValueOffset = 32
	TSIndexMinimumSampleValueOffset = 36
	TSIndexProtectedRegionOffset = 40
	TSIndexProtectedRegionBytes  = 4
	TSIndexREDBlockFlagsOffset   = 44
	TSIndexREDProtectedRegionOffset = 45
	TSIndexREDProtectedRegionBytes  = 3
	TSIndexREDDiscretionaryRegionOffset = 48
	TSIndexREDDiscretionaryRegionBytes  = 8

	TSIndexFileOffsetNoEntry      = int64(-1)
	TSIndexStartSampleNoEntry     = int64(-1)
	TSIndexNumberOfSamplesNoEntry = uint32(0xFFFFFFFF)
	TSIndexBlockBytesNoEntry      = uint32(0xFFFFFFFF)
)

// Record header and index layout (24 bytes each). Declared for layout
// compatibility; the core neither produces nor consumes record streams.
const (
	RecordHeaderBytes = 24

	RecordHeaderCRCOffset          = 0
	RecordHeaderTypeOffset         = 4
	RecordHeaderVersionMajorOffset = 9
	RecordHeaderVersionMinorOffset = 10
	RecordHeaderEncryptionOffset   = 11
	RecordHeaderBytesOffset        = 12
	RecordHeaderTimeOffset         = 16

	RecordIndexBytes = 24

	RecordIndexTypeOffset         = 0
	RecordIndexVersionMajorOffset = 5
	RecordIndexVersionMinorOffset = 6
	RecordIndexEncryptionOffset   = 7
	RecordIndexFileOffsetOffset   = 8
	RecordIndexTimeOffset         = 16

	RecordVersionNoEntry = uint8(0xFF)
)

// RED block layout: a 304-byte header followed by the variable-length
// difference payload, padded with PadByteValue to an 8-byte boundary.
const (
	REDBlockHeaderBytes = 304

	REDBlockCRCOffset             = 0
	REDBlockFlagsOffset           = 4
	REDBlockProtectedRegionOffset = 5
	REDBlockProtectedRegionBytes  = 3
	REDBlockDiscretionaryRegionOffset = 8
	REDBlockDiscretionaryRegionBytes  = 8
	REDBlockDetrendSlopeOffset    = 16
	REDBlockDetrendInterceptOffset = 20
	REDBlockScaleFactorOffset     = 24
	REDBlockDifferenceBytesOffset = 28
	REDBlockNumberOfSamplesOffset = 32
	REDBlockBlockBytesOffset      = 36
	REDBlockStartTimeOffset       = 40
	REDBlockStatisticsOffset      = 48
	REDBlockStatisticsBytes       = 256
)

// RED flag masks (stored both in the block header and the index).
const (
	REDDiscontinuityMask    = uint8(0x01)
	REDLevel1EncryptionMask = uint8(0x02)
	REDLevel2EncryptionMask = uint8(0x04)
)

// RED reserved sample values in int32 sample space.
const (
	REDNaN                = int32(-0x80000000) // 0x80000000: missing sample
	REDNegativeInfinity   = int32(-0x7FFFFFFF) // 0x80000001
	REDPositiveInfinity   = int32(0x7FFFFFFF)
	REDMaximumSampleValue = int32(0x7FFFFFFE)
	REDMinimumSampleValue = int32(-0x7FFFFFFE) // 0x80000002
)

// Compile-time layout checks. Each expression underflows (constant overflow
// error) if an offset drifts from the byte-exact MEF 3.0 layout.
const (
	_ uint = UHDiscretionaryRegionOffset + UHDiscretionaryRegionBytes - UniversalHeaderBytes
	_ uint = UniversalHeaderBytes - UHDiscretionaryRegionOffset - UHDiscretionaryRegionBytes
	_ uint = MetadataSection1Bytes - (MetadataSection1DiscretionaryOffset + MetadataSection1DiscretionaryBytes - UniversalHeaderBytes)
	_ uint = TSMetadataSection2DiscretionaryOffset + TSMetadataSection2DiscretionaryBytes - MetadataSection3Offset
	_ uint = MetadataSection3Offset - TSMetadataSection2DiscretionaryOffset - TSMetadataSection2DiscretionaryBytes
	_ uint = MetadataSection3DiscretionaryOffset + MetadataSection3DiscretionaryBytes - MetadataFileBytes
	_ uint = MetadataFileBytes - MetadataSection3DiscretionaryOffset - MetadataSection3DiscretionaryBytes
	_ uint = TSIndexREDDiscretionaryRegionOffset + TSIndexREDDiscretionaryRegionBytes - TimeSeriesIndexBytes
	_ uint = TimeSeriesIndexBytes - TSIndexREDDiscretionaryRegionOffset - TSIndexREDDiscretionaryRegionBytes
	_ uint = REDBlockStatisticsOffset + REDBlockStatisticsBytes - REDBlockHeaderBytes
	_ uint = REDBlockHeaderBytes - REDBlockStatisticsOffset - REDBlockStatisticsBytes
)

// REDMaxDifferenceBytes returns the worst-case encoded size of n samples
// (every difference taking the 5-byte form).
func REDMaxDifferenceBytes(n int) int {
	return n * 5
}

// REDMaxCompressedBytes returns the worst-case size of a single compressed
// block of n samples, including header and padding slack.
func REDMaxCompressedBytes(n int) int {
	return REDMaxDifferenceBytes(n) + REDBlockHeaderBytes + 7
}
