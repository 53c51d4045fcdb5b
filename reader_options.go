package mefd

import (
	"github.com/rs/zerolog"

	"github.com/meflab/mefd/internal/options"
)

// ReaderOption configures a MefReader at construction time.
type ReaderOption = options.Option[*MefReader]

// WithPassword supplies the password for sessions written with level-1 or
// level-2 protection. It is verified against the universal header
// validation fields before any key derived from it is used.
func WithPassword(password string) ReaderOption {
	return options.NoError(func(r *MefReader) {
		r.password = password
	})
}

// WithCRCValidation makes universal header and RED block CRC mismatches
// fatal. By default mismatches are logged and decoding proceeds.
func WithCRCValidation() ReaderOption {
	return options.NoError(func(r *MefReader) {
		r.validateCRC = true
	})
}

// WithReaderLogger attaches a logger for skipped-segment and CRC
// diagnostics. The default discards everything.
func WithReaderLogger(logger zerolog.Logger) ReaderOption {
	return options.NoError(func(r *MefReader) {
		r.logger = logger
	})
}
