// Package errs defines the sentinel error values surfaced by the mefd module.
//
// Callers match these with errors.Is; call sites wrap them with additional
// context using fmt.Errorf("%w: ...", errs.ErrX).
package errs

import "errors"

var (
	// ErrInvalidPath indicates a session path that is missing, not a
	// directory, or could not be created.
	ErrInvalidPath = errors.New("invalid session path")

	// ErrInvalidFormat indicates a magic mismatch, a structure-size check
	// failure, an unsupported MEF version, or a truncated file.
	ErrInvalidFormat = errors.New("invalid MEF format")

	// ErrInvalidHeaderSize indicates a byte slice of the wrong length was
	// passed to a fixed-size structure parser.
	ErrInvalidHeaderSize = errors.New("invalid header size")

	// ErrCrcMismatch indicates a universal header or RED block CRC check
	// failed while CRC validation is enabled.
	ErrCrcMismatch = errors.New("CRC mismatch")

	// ErrUnknownProperty indicates a reader property name outside the
	// recognized set.
	ErrUnknownProperty = errors.New("unknown property")

	// ErrChannelNotFound indicates a query against a channel name that is
	// not part of the session.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrSamplingFrequencyMismatch indicates a write with a sampling
	// frequency different from the one the channel was created with.
	ErrSamplingFrequencyMismatch = errors.New("sampling frequency mismatch")

	// ErrCompressionFailed indicates the RED compressor rejected its input.
	ErrCompressionFailed = errors.New("RED compression failed")

	// ErrDecompressionFailed indicates a RED block that is truncated,
	// inconsistent, or contains an unknown prefix code.
	ErrDecompressionFailed = errors.New("RED decompression failed")

	// ErrWrongPassword indicates the SHA-256 digest of the provided
	// password does not match the file's validation field.
	ErrWrongPassword = errors.New("wrong password")

	// ErrWriterClosed indicates a write attempt on a closed MefWriter.
	ErrWriterClosed = errors.New("writer is closed")
)
