package mefd

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/meflab/mefd/crc"
	"github.com/meflab/mefd/crypt"
	"github.com/meflab/mefd/errs"
	"github.com/meflab/mefd/format"
	"github.com/meflab/mefd/internal/options"
	"github.com/meflab/mefd/red"
	"github.com/meflab/mefd/section"
)

// MefReader opens a MEF 3.0 session for querying. All metadata and index
// arrays are copied into memory during open; the session is treated as
// immutable for the reader's lifetime and .tdat files are reopened per
// query.
//
// A MefReader is stateless after load and safe to share for read-only use.
type MefReader struct {
	path        string
	sessionName string
	password    string
	passwords   *crypt.PasswordData
	validateCRC bool
	logger      zerolog.Logger

	passwordChecked bool

	startTime int64
	endTime   int64

	channels map[string]*ChannelInfo
}

// ChannelInfo aggregates a channel's metadata across its segments.
type ChannelInfo struct {
	Name                  string
	SamplingFrequency     float64
	Units                 string
	UnitsConversionFactor float64
	NumberOfSamples       int64
	NumberOfSegments      int
	StartTime             int64
	EndTime               int64

	segments []*segmentInfo
	meta2    section.TimeSeriesMetadataSection2
	meta3    section.MetadataSection3
	hasMeta  bool
}

// Metadata returns the channel-level metadata section 2, cached from the
// channel's first readable segment.
func (c *ChannelInfo) Metadata() section.TimeSeriesMetadataSection2 {
	return c.meta2
}

// SubjectMetadata returns the channel-level metadata section 3, cached
// from the channel's first readable segment.
func (c *ChannelInfo) SubjectMetadata() section.MetadataSection3 {
	return c.meta3
}

// segmentInfo is the per-segment state captured during open.
type segmentInfo struct {
	name            string
	path            string
	segmentNumber   int32
	startTime       int64
	endTime         int64
	numberOfSamples int64
	numberOfBlocks  int64
	indices         []section.TimeSeriesIndex
}

// NewMefReader opens the session directory at path (which must exist and
// end in ".mefd"). A session with zero readable channels loads with
// IsValid() == false.
func NewMefReader(path string, opts ...ReaderOption) (*MefReader, error) {
	r := &MefReader{
		path:     path,
		logger:   zerolog.Nop(),
		channels: make(map[string]*ChannelInfo),
	}

	if err := options.Apply(r, opts...); err != nil {
		return nil, err
	}

	r.passwords = &crypt.PasswordData{}
	if r.password != "" {
		key, err := crypt.ExpandKey(r.password)
		if err != nil {
			return nil, err
		}
		// One reader password: it unlocks whichever level its validation
		// field matches, so the same key serves both block flag variants.
		r.passwords.Level1Key = key
		r.passwords.Level2Key = key
		r.passwords.AccessLevel = 1
	}

	if err := r.loadSession(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *MefReader) loadSession() error {
	info, err := os.Stat(r.path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", errs.ErrInvalidPath, r.path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", errs.ErrInvalidPath, r.path)
	}
	if !strings.HasSuffix(r.path, ".mefd") {
		return fmt.Errorf("%w: %s lacks the .mefd suffix", errs.ErrInvalidPath, r.path)
	}

	r.sessionName = strings.TrimSuffix(filepath.Base(r.path), ".mefd")
	r.startTime = format.UUTCNoEntry
	r.endTime = format.UUTCNoEntry

	entries, err := os.ReadDir(r.path)
	if err != nil {
		return fmt.Errorf("%w: reading session directory: %v", errs.ErrInvalidPath, err)
	}

	for _, e := range entries {
		if !e.IsDir() || !strings.HasSuffix(e.Name(), ".timd") {
			continue
		}

		if err := r.loadChannel(filepath.Join(r.path, e.Name())); err != nil {
			if isFatalLoadError(err) {
				return err
			}
			r.logger.Warn().Err(err).Str("channel", e.Name()).Msg("skipping unreadable channel")
		}
	}

	for _, ch := range r.channels {
		if ch.StartTime != format.UUTCNoEntry &&
			(r.startTime == format.UUTCNoEntry || ch.StartTime < r.startTime) {
			r.startTime = ch.StartTime
		}
		if ch.EndTime != format.UUTCNoEntry &&
			(r.endTime == format.UUTCNoEntry || ch.EndTime > r.endTime) {
			r.endTime = ch.EndTime
		}
	}

	return nil
}

// isFatalLoadError distinguishes errors that must abort open (a wrong
// password) from per-segment damage the reader tolerates.
func isFatalLoadError(err error) bool {
	return errors.Is(err, errs.ErrWrongPassword)
}

func (r *MefReader) loadChannel(channelPath string) error {
	channelName := strings.TrimSuffix(filepath.Base(channelPath), ".timd")

	ch := &ChannelInfo{
		Name:      channelName,
		StartTime: format.UUTCNoEntry,
		EndTime:   format.UUTCNoEntry,
	}

	entries, err := os.ReadDir(channelPath)
	if err != nil {
		return fmt.Errorf("%w: reading channel directory: %v", errs.ErrInvalidPath, err)
	}

	segNames := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && strings.HasSuffix(e.Name(), ".segd") {
			segNames = append(segNames, e.Name())
		}
	}
	// Lexicographic order equals numeric order on the zero-padded suffix.
	sort.Strings(segNames)

	for _, segName := range segNames {
		seg, err := r.loadSegment(filepath.Join(channelPath, segName))
		if err != nil {
			if isFatalLoadError(err) {
				return err
			}
			r.logger.Warn().Err(err).
				Str("channel", channelName).
				Str("segment", segName).
				Msg("skipping unreadable segment")

			continue
		}

		if !ch.hasMeta {
			// First readable segment supplies the channel-level metadata.
			meta2, meta3, err := r.loadSegmentMetadata(seg)
			if err == nil {
				ch.meta2 = meta2
				ch.meta3 = meta3
				ch.SamplingFrequency = meta2.SamplingFrequency
				ch.Units = meta2.UnitsDescription
				ch.UnitsConversionFactor = meta2.UnitsConversionFactor
				ch.hasMeta = true
			} else {
				r.logger.Warn().Err(err).
					Str("channel", channelName).
					Str("segment", segName).
					Msg("segment metadata unreadable")
			}
		}

		ch.segments = append(ch.segments, seg)
	}

	for _, seg := range ch.segments {
		ch.NumberOfSamples += seg.numberOfSamples

		if seg.startTime != format.UUTCNoEntry &&
			(ch.StartTime == format.UUTCNoEntry || seg.startTime < ch.StartTime) {
			ch.StartTime = seg.startTime
		}
		if seg.endTime != format.UUTCNoEntry &&
			(ch.EndTime == format.UUTCNoEntry || seg.endTime > ch.EndTime) {
			ch.EndTime = seg.endTime
		}
	}
	ch.NumberOfSegments = len(ch.segments)

	if len(ch.segments) == 0 {
		return fmt.Errorf("%w: channel %q has no readable segments", errs.ErrInvalidFormat, channelName)
	}

	r.channels[channelName] = ch

	return nil
}

// loadSegment parses a segment's .tidx file. The .tmet file is read
// separately by loadSegmentMetadata.
func (r *MefReader) loadSegment(segPath string) (*segmentInfo, error) {
	segName := strings.TrimSuffix(filepath.Base(segPath), ".segd")

	seg := &segmentInfo{
		name:      segName,
		path:      segPath,
		startTime: format.UUTCNoEntry,
		endTime:   format.UUTCNoEntry,
	}

	if dash := strings.LastIndexByte(segName, '-'); dash >= 0 {
		var n int32
		if _, err := fmt.Sscanf(segName[dash+1:], "%d", &n); err == nil {
			seg.segmentNumber = n
		}
	}

	idxPath := filepath.Join(segPath, segName+".tidx")
	data, err := os.ReadFile(idxPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading index file: %v", errs.ErrInvalidFormat, err)
	}
	if len(data) < format.UniversalHeaderBytes {
		return nil, fmt.Errorf("%w: truncated index file %s", errs.ErrInvalidFormat, idxPath)
	}

	uh, err := r.parseHeader(data, format.TypeTimeSeriesIdx, idxPath)
	if err != nil {
		return nil, err
	}

	seg.startTime = uh.StartTime
	seg.endTime = uh.EndTime
	seg.numberOfBlocks = uh.NumberOfEntries

	body := data[format.UniversalHeaderBytes:]
	if uh.BodyCRC != format.CRCNoEntry && !crc.Validate(body, uh.BodyCRC) {
		if r.validateCRC {
			return nil, fmt.Errorf("%w: index body of %s", errs.ErrCrcMismatch, idxPath)
		}
		r.logger.Warn().Str("file", idxPath).Msg("index body CRC mismatch")
	}

	n := int(uh.NumberOfEntries)
	if n < 0 || len(body) < n*format.TimeSeriesIndexBytes {
		return nil, fmt.Errorf("%w: index file %s declares %d entries", errs.ErrInvalidFormat, idxPath, n)
	}

	seg.indices = make([]section.TimeSeriesIndex, n)
	for i := 0; i < n; i++ {
		off := i * format.TimeSeriesIndexBytes
		if err := seg.indices[i].Parse(body[off : off+format.TimeSeriesIndexBytes]); err != nil {
			return nil, err
		}
		seg.numberOfSamples += int64(seg.indices[i].NumberOfSamples)
	}

	return seg, nil
}

// loadSegmentMetadata parses the .tmet sections of a segment.
func (r *MefReader) loadSegmentMetadata(seg *segmentInfo) (section.TimeSeriesMetadataSection2, section.MetadataSection3, error) {
	meta2 := section.NewTimeSeriesMetadataSection2()
	meta3 := section.NewMetadataSection3()

	metaPath := filepath.Join(seg.path, seg.name+".tmet")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return meta2, meta3, fmt.Errorf("%w: reading metadata file: %v", errs.ErrInvalidFormat, err)
	}
	if len(data) < format.MetadataFileBytes {
		return meta2, meta3, fmt.Errorf("%w: truncated metadata file %s", errs.ErrInvalidFormat, metaPath)
	}

	if _, err := r.parseHeader(data, format.TypeTimeSeriesMeta, metaPath); err != nil {
		return meta2, meta3, err
	}

	if err := meta2.ParseFrom(data); err != nil {
		return meta2, meta3, err
	}
	if err := meta3.ParseFrom(data); err != nil {
		return meta2, meta3, err
	}

	return meta2, meta3, nil
}

// parseHeader parses and checks a universal header: expected file type,
// optional CRC validation, and password verification on first contact.
func (r *MefReader) parseHeader(data []byte, want format.FileType, path string) (*section.UniversalHeader, error) {
	uh, err := section.ParseUniversalHeader(data)
	if err != nil {
		return nil, err
	}

	if uh.FileType != want {
		return nil, fmt.Errorf("%w: %s has type %s, want %s", errs.ErrInvalidFormat, path, uh.FileType, want)
	}

	if !section.ValidateHeaderCRC(data) {
		if r.validateCRC {
			return nil, fmt.Errorf("%w: universal header of %s", errs.ErrCrcMismatch, path)
		}
		r.logger.Warn().Str("file", path).Msg("universal header CRC mismatch")
	}

	if !r.passwordChecked {
		level1Set := uh.Level1PasswordValidation != [16]byte{}
		level2Set := uh.Level2PasswordValidation != [16]byte{}
		if level1Set || level2Set {
			field := crypt.ValidationField(r.password, uh.LevelUUID[:])
			matches := (level1Set && field == uh.Level1PasswordValidation) ||
				(level2Set && field == uh.Level2PasswordValidation)
			if !matches {
				return nil, fmt.Errorf("%w: session %s", errs.ErrWrongPassword, r.sessionName)
			}
		}
		r.passwordChecked = true
	}

	return uh, nil
}

// IsValid reports whether the session loaded with at least one readable
// channel.
func (r *MefReader) IsValid() bool {
	return len(r.channels) > 0
}

// Path returns the session directory path.
func (r *MefReader) Path() string {
	return r.path
}

// SessionName returns the session name derived from the directory stem.
func (r *MefReader) SessionName() string {
	return r.sessionName
}

// StartTime returns the earliest channel start time, or format.UUTCNoEntry.
func (r *MefReader) StartTime() int64 {
	return r.startTime
}

// EndTime returns the latest channel end time, or format.UUTCNoEntry.
func (r *MefReader) EndTime() int64 {
	return r.endTime
}

// Duration returns the session duration in microseconds, or zero when the
// bounds are unknown.
func (r *MefReader) Duration() int64 {
	if r.startTime == format.UUTCNoEntry || r.endTime == format.UUTCNoEntry {
		return 0
	}

	return r.endTime - r.startTime
}

// Channels returns the sorted channel names of the session.
func (r *MefReader) Channels() []string {
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// GetChannelInfo returns the aggregated metadata of one channel.
func (r *MefReader) GetChannelInfo(channelName string) (*ChannelInfo, error) {
	ch, ok := r.channels[channelName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrChannelNotFound, channelName)
	}

	return ch, nil
}

// GetRawData returns the channel's quantized samples in the half-open
// sample range [sampleStart, sampleEnd), spliced across segments and
// blocks in order. Unreadable blocks are logged and skipped, except that a
// missing or wrong password, or a CRC mismatch while CRC validation is on,
// returns an error.
func (r *MefReader) GetRawData(channelName string, sampleStart, sampleEnd int64) ([]int32, error) {
	ch, ok := r.channels[channelName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrChannelNotFound, channelName)
	}

	if sampleStart < 0 {
		sampleStart = 0
	}
	if sampleEnd > ch.NumberOfSamples {
		sampleEnd = ch.NumberOfSamples
	}
	if sampleEnd <= sampleStart {
		return nil, nil
	}

	result := make([]int32, 0, sampleEnd-sampleStart)

	var accumulated int64
	for _, seg := range ch.segments {
		segStart := accumulated
		segEnd := accumulated + seg.numberOfSamples
		accumulated = segEnd

		if segEnd <= sampleStart || segStart >= sampleEnd {
			continue
		}

		samples, err := r.decompressSegment(seg, segStart, sampleStart, sampleEnd)
		if err != nil {
			return nil, err
		}
		result = append(result, samples...)
	}

	return result, nil
}

// decompressSegment decodes the blocks of one segment overlapping the
// channel-global sample window [sampleStart, sampleEnd).
func (r *MefReader) decompressSegment(seg *segmentInfo, segStart, sampleStart, sampleEnd int64) ([]int32, error) {
	if len(seg.indices) == 0 {
		return nil, nil
	}

	dataPath := filepath.Join(seg.path, seg.name+".tdat")
	f, err := os.Open(dataPath)
	if err != nil {
		r.logger.Warn().Err(err).Str("file", dataPath).Msg("data file unreadable, skipping segment")
		return nil, nil
	}
	defer f.Close()

	params := red.DecompressParams{
		ValidateCRC: r.validateCRC,
		Level1Key:   r.passwords.Level1Key,
		Level2Key:   r.passwords.Level2Key,
	}

	// Block coordinates are segment-local offsets from the first index,
	// mapped into the channel-global window.
	base := seg.indices[0].StartSample

	var result []int32
	for i := range seg.indices {
		idx := &seg.indices[i]
		blkStart := segStart + (idx.StartSample - base)
		blkEnd := blkStart + int64(idx.NumberOfSamples)

		if blkEnd <= sampleStart || blkStart >= sampleEnd {
			continue
		}

		block := make([]byte, idx.BlockBytes)
		if _, err := f.ReadAt(block, idx.FileOffset); err != nil {
			r.logger.Warn().Err(err).
				Str("file", dataPath).
				Int64("offset", idx.FileOffset).
				Msg("block read failed, skipping")

			continue
		}

		decoded, err := red.Decompress(block, params)
		if err != nil {
			if errors.Is(err, errs.ErrWrongPassword) || (r.validateCRC && errors.Is(err, errs.ErrCrcMismatch)) {
				return nil, err
			}
			r.logger.Warn().Err(err).
				Str("file", dataPath).
				Int64("offset", idx.FileOffset).
				Msg("block decode failed, skipping")

			continue
		}

		lo := sampleStart - blkStart
		if lo < 0 {
			lo = 0
		}
		hi := sampleEnd - blkStart
		if hi > int64(len(decoded.Samples)) {
			hi = int64(len(decoded.Samples))
		}
		if lo < hi {
			result = append(result, decoded.Samples[lo:hi]...)
		}
	}

	return result, nil
}

// GetData reads the channel from its start time to its end time as
// floating-point values: quantized samples times units_conversion_factor,
// with REDNaN mapped to NaN. The range is read through GetDataRange, so
// the sample at the end time is not included.
func (r *MefReader) GetData(channelName string) ([]float64, error) {
	ch, ok := r.channels[channelName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrChannelNotFound, channelName)
	}

	return r.GetDataRange(channelName, ch.StartTime, ch.EndTime)
}

// GetDataRange reads the channel between tStart and tEnd (uUTC). Each
// bound is converted to a sample index by rounding (t − start)·f/10⁶, and
// the samples in the half-open range [start index, end index) are
// returned, so the sample at tEnd itself is excluded. Pass
// format.UUTCNoEntry for either bound to default it to the channel's own
// bound.
func (r *MefReader) GetDataRange(channelName string, tStart, tEnd int64) ([]float64, error) {
	ch, ok := r.channels[channelName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrChannelNotFound, channelName)
	}

	fs := ch.SamplingFrequency
	if fs <= 0 {
		return nil, fmt.Errorf("%w: channel %q has no sampling frequency", errs.ErrInvalidFormat, channelName)
	}

	if tStart == format.UUTCNoEntry {
		tStart = ch.StartTime
	}
	if tEnd == format.UUTCNoEntry {
		tEnd = ch.EndTime
	}

	sampleStart := int64(math.Round(float64(tStart-ch.StartTime) * fs / 1e6))
	sampleEnd := int64(math.Round(float64(tEnd-ch.StartTime) * fs / 1e6))

	if sampleStart < 0 {
		sampleStart = 0
	}
	if sampleEnd > ch.NumberOfSamples {
		sampleEnd = ch.NumberOfSamples
	}

	raw, err := r.GetRawData(channelName, sampleStart, sampleEnd)
	if err != nil {
		return nil, err
	}

	conversion := ch.UnitsConversionFactor
	if conversion == 0 {
		conversion = 1.0
	}

	result := make([]float64, len(raw))
	for i, v := range raw {
		if v == format.REDNaN {
			result[i] = math.NaN()
		} else {
			result[i] = float64(v) * conversion
		}
	}

	return result, nil
}

// GetNumericProperty resolves a numeric property. An empty channel name
// addresses session-level properties.
func (r *MefReader) GetNumericProperty(name, channelName string) (float64, error) {
	if channelName == "" {
		switch name {
		case "start_time":
			return float64(r.startTime), nil
		case "end_time":
			return float64(r.endTime), nil
		case "duration":
			return float64(r.Duration()), nil
		}

		return 0, fmt.Errorf("%w: %q", errs.ErrUnknownProperty, name)
	}

	ch, ok := r.channels[channelName]
	if !ok {
		return 0, fmt.Errorf("%w: %q", errs.ErrChannelNotFound, channelName)
	}

	switch name {
	case "fsamp", "sampling_frequency":
		return ch.SamplingFrequency, nil
	case "num_samples", "number_of_samples":
		return float64(ch.NumberOfSamples), nil
	case "start_time":
		return float64(ch.StartTime), nil
	case "end_time":
		return float64(ch.EndTime), nil
	case "duration":
		return float64(ch.EndTime - ch.StartTime), nil
	case "units_conversion_factor":
		return ch.UnitsConversionFactor, nil
	}

	return 0, fmt.Errorf("%w: %q", errs.ErrUnknownProperty, name)
}

// GetStringProperty resolves a string property. An empty channel name
// addresses session-level properties.
func (r *MefReader) GetStringProperty(name, channelName string) (string, error) {
	if channelName == "" {
		switch name {
		case "session_name":
			return r.sessionName, nil
		case "path":
			return r.path, nil
		}

		return "", fmt.Errorf("%w: %q", errs.ErrUnknownProperty, name)
	}

	ch, ok := r.channels[channelName]
	if !ok {
		return "", fmt.Errorf("%w: %q", errs.ErrChannelNotFound, channelName)
	}

	switch name {
	case "unit", "units":
		return ch.Units, nil
	case "channel_name":
		return ch.Name, nil
	}

	return "", fmt.Errorf("%w: %q", errs.ErrUnknownProperty, name)
}
