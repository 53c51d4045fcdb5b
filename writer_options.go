package mefd

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/meflab/mefd/errs"
	"github.com/meflab/mefd/format"
	"github.com/meflab/mefd/internal/options"
)

// WriterOption configures a MefWriter at construction time.
type WriterOption = options.Option[*MefWriter]

// WithBlockLength sets the maximum number of samples per RED block.
// The default is 1000.
func WithBlockLength(samples int) WriterOption {
	return options.New(func(w *MefWriter) error {
		if samples <= 0 {
			return fmt.Errorf("%w: block length must be positive, got %d", errs.ErrInvalidFormat, samples)
		}
		w.blockLen = samples

		return nil
	})
}

// WithUnits sets the units description recorded in segment metadata
// (e.g. "uV"). The default is "V".
func WithUnits(units string) WriterOption {
	return options.NoError(func(w *MefWriter) {
		w.dataUnits = units
	})
}

// WithGMTOffset sets the recording site's offset from GMT in hours or
// seconds as agreed by the producing system; the value is stored verbatim.
func WithGMTOffset(offset int32) WriterOption {
	return options.New(func(w *MefWriter) error {
		if offset < format.MinimumGMTOffset || offset > format.MaximumGMTOffset {
			return fmt.Errorf("%w: GMT offset %d out of range", errs.ErrInvalidFormat, offset)
		}
		w.gmtOffset = offset

		return nil
	})
}

// WithRecordingTimeOffset sets the recording time offset stored in
// metadata section 3.
func WithRecordingTimeOffset(offset int64) WriterOption {
	return options.NoError(func(w *MefWriter) {
		w.recordingTimeOffset = offset
	})
}

// WithSubjectName sets subject_name_1 in metadata section 3.
func WithSubjectName(name string) WriterOption {
	return options.NoError(func(w *MefWriter) {
		w.subjectName = name
	})
}

// WithSubjectID sets the subject ID in metadata section 3.
func WithSubjectID(id string) WriterOption {
	return options.NoError(func(w *MefWriter) {
		w.subjectID = id
	})
}

// WithRecordingLocation sets the recording location in metadata section 3.
func WithRecordingLocation(location string) WriterOption {
	return options.NoError(func(w *MefWriter) {
		w.recordingLocation = location
	})
}

// WithChannelDescription sets the channel description in metadata section 2.
func WithChannelDescription(desc string) WriterOption {
	return options.NoError(func(w *MefWriter) {
		w.channelDescription = desc
	})
}

// WithSessionDescription sets the session description in metadata section 2.
func WithSessionDescription(desc string) WriterOption {
	return options.NoError(func(w *MefWriter) {
		w.sessionDescription = desc
	})
}

// WithLevel1Password protects the sample data: RED block payloads are
// encrypted with the level-1 key and the matching validation field is
// stamped into every universal header.
func WithLevel1Password(password string) WriterOption {
	return options.NoError(func(w *MefWriter) {
		w.password1 = password
	})
}

// WithLevel2Password stamps the level-2 validation field into every
// universal header. It encrypts nothing: section 3 metadata is written in
// the clear and block payloads use only the level-1 key.
func WithLevel2Password(password string) WriterOption {
	return options.NoError(func(w *MefWriter) {
		w.password2 = password
	})
}

// WithWriterLogger attaches a logger for segment lifecycle diagnostics.
// The default discards everything.
func WithWriterLogger(logger zerolog.Logger) WriterOption {
	return options.NoError(func(w *MefWriter) {
		w.logger = logger
	})
}

// writeParams carries per-call write configuration.
type writeParams struct {
	precision  int
	newSegment bool
}

// WriteOption configures a single WriteData or WriteRawData call.
type WriteOption = options.Option[*writeParams]

// WithNewSegment forces the write to open a new segment regardless of
// discontinuity detection.
func WithNewSegment() WriteOption {
	return options.NoError(func(p *writeParams) {
		p.newSegment = true
	})
}

// WithPrecision quantizes with a fixed scale of 10^digits instead of the
// automatic full-range scale.
func WithPrecision(digits int) WriteOption {
	return options.NoError(func(p *writeParams) {
		p.precision = digits
	})
}
