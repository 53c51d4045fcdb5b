package section

import (
	"fmt"

	"github.com/meflab/mefd/crc"
	"github.com/meflab/mefd/endian"
	"github.com/meflab/mefd/errs"
	"github.com/meflab/mefd/format"
)

// UniversalHeader represents the 1024-byte preamble present on every MEF
// 3.0 file.
//
// The header CRC covers bytes 4..1024 of the serialized header (so the
// body CRC field is included and must be set before Bytes is called). The
// body CRC covers the file contents from byte 1024 to the end, or
// format.CRCNoEntry when not computed.
type UniversalHeader struct {
	HeaderCRC uint32 // byte offset 0-3
	BodyCRC   uint32 // byte offset 4-7

	FileType     format.FileType // 5-byte type tag at offset 8-12
	VersionMajor uint8           // byte offset 13
	VersionMinor uint8           // byte offset 14
	// ByteOrderCode records the writer's endianness: 1 = little-endian.
	ByteOrderCode uint8 // byte offset 15

	StartTime       int64 // uUTC, byte offset 16-23
	EndTime         int64 // uUTC, byte offset 24-31
	NumberOfEntries int64 // byte offset 32-39
	MaximumEntrySize int64 // byte offset 40-47

	// SegmentNumber is the zero-based segment this file belongs to, or one
	// of the negative level codes for channel- and session-level files.
	SegmentNumber int32 // byte offset 48-51

	ChannelName    string // 256-byte NUL-terminated buffer at offset 52
	SessionName    string // 256-byte NUL-terminated buffer at offset 308
	AnonymizedName string // 256-byte NUL-terminated buffer at offset 564

	LevelUUID      [format.UUIDBytes]byte // byte offset 820
	FileUUID       [format.UUIDBytes]byte // byte offset 836
	ProvenanceUUID [format.UUIDBytes]byte // byte offset 852

	Level1PasswordValidation [format.PasswordValidationFieldBytes]byte // byte offset 868
	Level2PasswordValidation [format.PasswordValidationFieldBytes]byte // byte offset 884
}

// NewUniversalHeader creates a header for the given file type with every
// other field at its no-entry value.
func NewUniversalHeader(fileType format.FileType) *UniversalHeader {
	return &UniversalHeader{
		FileType:         fileType,
		VersionMajor:     format.MEFVersionMajor,
		VersionMinor:     format.MEFVersionMinor,
		ByteOrderCode:    1,
		StartTime:        format.UUTCNoEntry,
		EndTime:          format.UUTCNoEntry,
		NumberOfEntries:  format.UnknownNumberOfEntries,
		MaximumEntrySize: format.UnknownNumberOfEntries,
		SegmentNumber:    format.SegmentNumberNoEntry,
	}
}

// Bytes serializes the header into a fresh 1024-byte slice. The header CRC
// is computed over bytes 4..1024 and written at offset 0; the HeaderCRC
// field is updated to match.
func (h *UniversalHeader) Bytes() []byte {
	b := make([]byte, format.UniversalHeaderBytes)
	engine := endian.GetLittleEndianEngine()

	engine.PutUint32(b[format.UHBodyCRCOffset:], h.BodyCRC)
	putString(b[format.UHFileTypeOffset:format.UHFileTypeOffset+format.TypeBytes], h.FileType.TypeString())
	b[format.UHMEFVersionMajorOffset] = h.VersionMajor
	b[format.UHMEFVersionMinorOffset] = h.VersionMinor
	b[format.UHByteOrderCodeOffset] = h.ByteOrderCode
	engine.PutUint64(b[format.UHStartTimeOffset:], uint64(h.StartTime))
	engine.PutUint64(b[format.UHEndTimeOffset:], uint64(h.EndTime))
	engine.PutUint64(b[format.UHNumberOfEntriesOffset:], uint64(h.NumberOfEntries))
	engine.PutUint64(b[format.UHMaximumEntrySizeOffset:], uint64(h.MaximumEntrySize))
	engine.PutUint32(b[format.UHSegmentNumberOffset:], uint32(h.SegmentNumber))
	putString(b[format.UHChannelNameOffset:format.UHChannelNameOffset+format.BaseFileNameBytes], h.ChannelName)
	putString(b[format.UHSessionNameOffset:format.UHSessionNameOffset+format.BaseFileNameBytes], h.SessionName)
	putString(b[format.UHAnonymizedNameOffset:format.UHAnonymizedNameOffset+format.UHAnonymizedNameBytes], h.AnonymizedName)
	copy(b[format.UHLevelUUIDOffset:], h.LevelUUID[:])
	copy(b[format.UHFileUUIDOffset:], h.FileUUID[:])
	copy(b[format.UHProvenanceUUIDOffset:], h.ProvenanceUUID[:])
	copy(b[format.UHLevel1PasswordValidationOffset:], h.Level1PasswordValidation[:])
	copy(b[format.UHLevel2PasswordValidationOffset:], h.Level2PasswordValidation[:])
	padRegion(b[format.UHProtectedRegionOffset:format.UHProtectedRegionOffset+format.UHProtectedRegionBytes], format.PadByteValue)
	padRegion(b[format.UHDiscretionaryRegionOffset:format.UHDiscretionaryRegionOffset+format.UHDiscretionaryRegionBytes], format.PadByteValue)

	h.HeaderCRC = crc.Calculate(b[format.UHBodyCRCOffset:])
	engine.PutUint32(b[format.UHHeaderCRCOffset:], h.HeaderCRC)

	return b
}

// Parse deserializes a 1024-byte universal header. It rejects unknown file
// type tags, MEF major versions other than 3, and big-endian-stamped
// files. CRC verification is left to ValidateHeaderCRC so callers can
// choose their validation policy.
func (h *UniversalHeader) Parse(data []byte) error {
	if len(data) < format.UniversalHeaderBytes {
		return fmt.Errorf("%w: universal header needs %d bytes, got %d",
			errs.ErrInvalidHeaderSize, format.UniversalHeaderBytes, len(data))
	}

	engine := endian.GetLittleEndianEngine()

	h.HeaderCRC = engine.Uint32(data[format.UHHeaderCRCOffset:])
	h.BodyCRC = engine.Uint32(data[format.UHBodyCRCOffset:])

	tag := getString(data[format.UHFileTypeOffset : format.UHFileTypeOffset+format.TypeBytes])
	h.FileType = format.FileTypeFromString(tag)
	if h.FileType == format.TypeUnknown {
		return fmt.Errorf("%w: unrecognized file type tag %q", errs.ErrInvalidFormat, tag)
	}

	h.VersionMajor = data[format.UHMEFVersionMajorOffset]
	h.VersionMinor = data[format.UHMEFVersionMinorOffset]
	if h.VersionMajor != format.MEFVersionMajor {
		return fmt.Errorf("%w: unsupported MEF major version %d", errs.ErrInvalidFormat, h.VersionMajor)
	}

	h.ByteOrderCode = data[format.UHByteOrderCodeOffset]
	if h.ByteOrderCode != 1 {
		return fmt.Errorf("%w: big-endian files are not supported", errs.ErrInvalidFormat)
	}

	h.StartTime = int64(engine.Uint64(data[format.UHStartTimeOffset:]))
	h.EndTime = int64(engine.Uint64(data[format.UHEndTimeOffset:]))
	h.NumberOfEntries = int64(engine.Uint64(data[format.UHNumberOfEntriesOffset:]))
	h.MaximumEntrySize = int64(engine.Uint64(data[format.UHMaximumEntrySizeOffset:]))
	h.SegmentNumber = int32(engine.Uint32(data[format.UHSegmentNumberOffset:]))
	h.ChannelName = getString(data[format.UHChannelNameOffset : format.UHChannelNameOffset+format.BaseFileNameBytes])
	h.SessionName = getString(data[format.UHSessionNameOffset : format.UHSessionNameOffset+format.BaseFileNameBytes])
	h.AnonymizedName = getString(data[format.UHAnonymizedNameOffset : format.UHAnonymizedNameOffset+format.UHAnonymizedNameBytes])
	copy(h.LevelUUID[:], data[format.UHLevelUUIDOffset:])
	copy(h.FileUUID[:], data[format.UHFileUUIDOffset:])
	copy(h.ProvenanceUUID[:], data[format.UHProvenanceUUIDOffset:])
	copy(h.Level1PasswordValidation[:], data[format.UHLevel1PasswordValidationOffset:])
	copy(h.Level2PasswordValidation[:], data[format.UHLevel2PasswordValidationOffset:])

	return nil
}

// ValidateHeaderCRC recomputes the header CRC over bytes 4..1024 of a
// serialized header and compares it with the stored value.
func ValidateHeaderCRC(data []byte) bool {
	if len(data) < format.UniversalHeaderBytes {
		return false
	}

	engine := endian.GetLittleEndianEngine()
	stored := engine.Uint32(data[format.UHHeaderCRCOffset:])

	return crc.Validate(data[format.UHBodyCRCOffset:format.UniversalHeaderBytes], stored)
}

// ParseUniversalHeader parses a universal header from a byte slice.
func ParseUniversalHeader(data []byte) (*UniversalHeader, error) {
	h := &UniversalHeader{}
	if err := h.Parse(data); err != nil {
		return nil, err
	}

	return h, nil
}
