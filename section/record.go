package section

import (
	"fmt"

	"github.com/meflab/mefd/endian"
	"github.com/meflab/mefd/errs"
	"github.com/meflab/mefd/format"
)

// RecordHeader is the 24-byte header preceding each annotation record in a
// .rdat file. The core declares the layout for compatibility but neither
// produces nor consumes record streams.
type RecordHeader struct {
	RecordCRC    uint32 // byte offset 0-3
	TypeString   string // 5-byte tag at offset 4-8
	VersionMajor uint8  // byte offset 9
	VersionMinor uint8  // byte offset 10
	Encryption   int8   // byte offset 11
	Bytes        uint32 // byte offset 12-15
	Time         int64  // uUTC, byte offset 16-23
}

// NewRecordHeader returns a record header with every field at its
// no-entry value.
func NewRecordHeader() RecordHeader {
	return RecordHeader{
		RecordCRC:    format.CRCNoEntry,
		VersionMajor: format.RecordVersionNoEntry,
		VersionMinor: format.RecordVersionNoEntry,
		Encryption:   format.NoEncryption,
		Time:         format.UUTCNoEntry,
	}
}

// Encode serializes the record header into a fresh 24-byte slice.
func (r *RecordHeader) Encode() []byte {
	var b [format.RecordHeaderBytes]byte
	engine := endian.GetLittleEndianEngine()

	engine.PutUint32(b[format.RecordHeaderCRCOffset:], r.RecordCRC)
	putString(b[format.RecordHeaderTypeOffset:format.RecordHeaderTypeOffset+format.TypeBytes], r.TypeString)
	b[format.RecordHeaderVersionMajorOffset] = r.VersionMajor
	b[format.RecordHeaderVersionMinorOffset] = r.VersionMinor
	b[format.RecordHeaderEncryptionOffset] = byte(r.Encryption)
	engine.PutUint32(b[format.RecordHeaderBytesOffset:], r.Bytes)
	engine.PutUint64(b[format.RecordHeaderTimeOffset:], uint64(r.Time))

	return b[:]
}

// Parse deserializes a 24-byte record header.
func (r *RecordHeader) Parse(data []byte) error {
	if len(data) < format.RecordHeaderBytes {
		return fmt.Errorf("%w: record header needs %d bytes, got %d",
			errs.ErrInvalidHeaderSize, format.RecordHeaderBytes, len(data))
	}

	engine := endian.GetLittleEndianEngine()

	r.RecordCRC = engine.Uint32(data[format.RecordHeaderCRCOffset:])
	r.TypeString = getString(data[format.RecordHeaderTypeOffset : format.RecordHeaderTypeOffset+format.TypeBytes])
	r.VersionMajor = data[format.RecordHeaderVersionMajorOffset]
	r.VersionMinor = data[format.RecordHeaderVersionMinorOffset]
	r.Encryption = int8(data[format.RecordHeaderEncryptionOffset])
	r.Bytes = engine.Uint32(data[format.RecordHeaderBytesOffset:])
	r.Time = int64(engine.Uint64(data[format.RecordHeaderTimeOffset:]))

	return nil
}

// RecordIndex is the 24-byte entry of a .ridx file pointing at one record
// in the companion .rdat file.
type RecordIndex struct {
	TypeString   string // 5-byte tag at offset 0-4
	VersionMajor uint8  // byte offset 5
	VersionMinor uint8  // byte offset 6
	Encryption   int8   // byte offset 7
	FileOffset   int64  // byte offset 8-15
	Time         int64  // uUTC, byte offset 16-23
}

// NewRecordIndex returns a record index with every field at its no-entry
// value.
func NewRecordIndex() RecordIndex {
	return RecordIndex{
		VersionMajor: format.RecordVersionNoEntry,
		VersionMinor: format.RecordVersionNoEntry,
		Encryption:   format.NoEncryption,
		FileOffset:   -1,
		Time:         format.UUTCNoEntry,
	}
}

// Encode serializes the record index into a fresh 24-byte slice.
func (r *RecordIndex) Encode() []byte {
	var b [format.RecordIndexBytes]byte
	engine := endian.GetLittleEndianEngine()

	putString(b[format.RecordIndexTypeOffset:format.RecordIndexTypeOffset+format.TypeBytes], r.TypeString)
	b[format.RecordIndexVersionMajorOffset] = r.VersionMajor
	b[format.RecordIndexVersionMinorOffset] = r.VersionMinor
	b[format.RecordIndexEncryptionOffset] = byte(r.Encryption)
	engine.PutUint64(b[format.RecordIndexFileOffsetOffset:], uint64(r.FileOffset))
	engine.PutUint64(b[format.RecordIndexTimeOffset:], uint64(r.Time))

	return b[:]
}

// Parse deserializes a 24-byte record index.
func (r *RecordIndex) Parse(data []byte) error {
	if len(data) < format.RecordIndexBytes {
		return fmt.Errorf("%w: record index needs %d bytes, got %d",
			errs.ErrInvalidHeaderSize, format.RecordIndexBytes, len(data))
	}

	engine := endian.GetLittleEndianEngine()

	r.TypeString = getString(data[format.RecordIndexTypeOffset : format.RecordIndexTypeOffset+format.TypeBytes])
	r.VersionMajor = data[format.RecordIndexVersionMajorOffset]
	r.VersionMinor = data[format.RecordIndexVersionMinorOffset]
	r.Encryption = int8(data[format.RecordIndexEncryptionOffset])
	r.FileOffset = int64(engine.Uint64(data[format.RecordIndexFileOffsetOffset:]))
	r.Time = int64(engine.Uint64(data[format.RecordIndexTimeOffset:]))

	return nil
}
