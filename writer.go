package mefd

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meflab/mefd/crc"
	"github.com/meflab/mefd/crypt"
	"github.com/meflab/mefd/errs"
	"github.com/meflab/mefd/format"
	"github.com/meflab/mefd/internal/options"
	"github.com/meflab/mefd/internal/pool"
	"github.com/meflab/mefd/red"
	"github.com/meflab/mefd/section"
)

// DefaultBlockLength is the default maximum number of samples per RED
// block.
const DefaultBlockLength = 1000

// MefWriter writes a MEF 3.0 session: it quantizes floating-point samples
// to int32, segments them on time discontinuities, emits RED-compressed
// blocks into .tdat files, and finalizes .tmet/.tidx files at every
// segment boundary.
//
// A MefWriter exclusively owns all files under the session path until
// Close. It is not safe for concurrent use.
type MefWriter struct {
	path        string
	sessionName string
	overwrite   bool

	password1 string
	password2 string
	passwords *crypt.PasswordData

	sessionUUID [format.UUIDBytes]byte

	blockLen              int
	dataUnits             string
	unitsConversionFactor float64
	recordingTimeOffset   int64
	gmtOffset             int32
	subjectName           string
	subjectID             string
	recordingLocation     string
	channelDescription    string
	sessionDescription    string

	logger zerolog.Logger

	channels map[string]*channelState
	closed   bool
}

// channelState tracks one channel between writes.
type channelState struct {
	path              string
	currentSegment    int32
	lastSampleIndex   int64
	lastEndTime       int64
	samplingFrequency float64
	unitsConversion   float64
	indices           []section.TimeSeriesIndex
	totalSamples      int64
	totalBlocks       int64

	dataFile   *os.File
	dataOffset int64
}

// NewMefWriter creates or opens a MEF 3.0 session at path. A missing
// ".mefd" suffix is appended. When overwrite is true an existing session
// directory is removed first; otherwise new segments are appended after
// the highest existing segment number of each channel.
func NewMefWriter(path string, overwrite bool, opts ...WriterOption) (*MefWriter, error) {
	w := &MefWriter{
		path:                  path,
		overwrite:             overwrite,
		blockLen:              DefaultBlockLength,
		dataUnits:             "V",
		unitsConversionFactor: 1.0,
		gmtOffset:             format.GMTOffsetNoEntry,
		logger:                zerolog.Nop(),
		channels:              make(map[string]*channelState),
	}

	if err := options.Apply(w, opts...); err != nil {
		return nil, err
	}

	pd, err := crypt.NewPasswordData(w.password1, w.password2)
	if err != nil {
		return nil, err
	}
	w.passwords = pd

	sessionUUID := uuid.New()
	copy(w.sessionUUID[:], sessionUUID[:])

	if err := w.createSession(); err != nil {
		return nil, err
	}

	return w, nil
}

func (w *MefWriter) createSession() error {
	if !strings.HasSuffix(w.path, ".mefd") {
		w.path += ".mefd"
	}
	w.sessionName = strings.TrimSuffix(filepath.Base(w.path), ".mefd")

	if info, err := os.Stat(w.path); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%w: %s exists and is not a directory", errs.ErrInvalidPath, w.path)
		}
		if w.overwrite {
			if err := os.RemoveAll(w.path); err != nil {
				return fmt.Errorf("%w: removing existing session: %v", errs.ErrInvalidPath, err)
			}
		}
	}

	if err := os.MkdirAll(w.path, 0o755); err != nil {
		return fmt.Errorf("%w: creating session directory: %v", errs.ErrInvalidPath, err)
	}

	return nil
}

// Path returns the session directory path, including the .mefd suffix.
func (w *MefWriter) Path() string {
	return w.path
}

// SessionName returns the session name derived from the directory stem.
func (w *MefWriter) SessionName() string {
	return w.sessionName
}

// WriteData quantizes floating-point samples and writes them to the named
// channel starting at startTime (uUTC).
//
// NaN samples become the REDNaN sentinel. Without WithPrecision the scale
// factor is derived from the data so the quantized values span most of the
// int32 range; the inverse is recorded as units_conversion_factor.
func (w *MefWriter) WriteData(data []float64, channelName string, startTime int64, samplingFrequency float64, opts ...WriteOption) error {
	if w.closed {
		return errs.ErrWriterClosed
	}
	if len(data) == 0 {
		return nil
	}

	params := &writeParams{precision: -1}
	if err := options.Apply(params, opts...); err != nil {
		return err
	}

	scale := 1.0
	if params.precision >= 0 {
		scale = math.Pow(10, float64(params.precision))
	} else {
		maxAbs := 0.0
		for _, v := range data {
			if !math.IsNaN(v) {
				maxAbs = math.Max(maxAbs, math.Abs(v))
			}
		}
		if maxAbs > 0 {
			scale = 0.9 * float64(format.REDMaximumSampleValue) / maxAbs
		}
	}

	samples, cleanup := pool.GetInt32Slice(len(data))
	defer cleanup()

	for i, v := range data {
		if math.IsNaN(v) {
			samples[i] = format.REDNaN
			continue
		}

		scaled := math.Round(v * scale)
		scaled = math.Min(scaled, float64(format.REDMaximumSampleValue))
		scaled = math.Max(scaled, float64(format.REDMinimumSampleValue))
		samples[i] = int32(scaled)
	}

	if err := w.writeRaw(samples, channelName, startTime, samplingFrequency, params.newSegment); err != nil {
		return err
	}

	if scale != 1.0 {
		w.channels[channelName].unitsConversion = 1.0 / scale
	}

	return nil
}

// WriteRawData writes already-quantized int32 samples to the named channel
// starting at startTime (uUTC).
func (w *MefWriter) WriteRawData(samples []int32, channelName string, startTime int64, samplingFrequency float64, opts ...WriteOption) error {
	if w.closed {
		return errs.ErrWriterClosed
	}
	if len(samples) == 0 {
		return nil
	}

	params := &writeParams{precision: -1}
	if err := options.Apply(params, opts...); err != nil {
		return err
	}

	return w.writeRaw(samples, channelName, startTime, samplingFrequency, params.newSegment)
}

func (w *MefWriter) writeRaw(samples []int32, channelName string, startTime int64, samplingFrequency float64, forceSegment bool) error {
	state, err := w.ensureChannel(channelName, samplingFrequency)
	if err != nil {
		return err
	}

	needNewSegment := forceSegment || state.dataFile == nil

	// Discontinuity detection: a gap (or overlap) of more than two block
	// intervals relative to the expected next-sample time opens a new
	// segment.
	if !needNewSegment && state.lastEndTime != format.UUTCNoEntry {
		expectedStart := state.lastEndTime + sampleInterval(1, samplingFrequency)
		gap := startTime - expectedStart
		maxGap := 2 * sampleInterval(int64(w.blockLen), samplingFrequency)

		if gap > maxGap || gap < -maxGap {
			needNewSegment = true
		}
	}

	if needNewSegment {
		if err := w.finalizeSegment(channelName, state); err != nil {
			return err
		}
		if err := w.createSegment(channelName, state); err != nil {
			return err
		}
	}

	written := 0
	firstBlock := true
	for written < len(samples) {
		n := len(samples) - written
		if n > w.blockLen {
			n = w.blockLen
		}

		blockTime := startTime + sampleInterval(int64(written), samplingFrequency)
		discontinuity := firstBlock && needNewSegment

		if err := w.writeBlock(state, samples[written:written+n], blockTime, discontinuity); err != nil {
			return err
		}

		written += n
		firstBlock = false
	}

	state.lastEndTime = startTime + sampleInterval(int64(len(samples)-1), samplingFrequency)
	state.totalSamples += int64(len(samples))

	return nil
}

// ensureChannel creates the channel directory on first use and verifies
// the sampling frequency on every subsequent write.
func (w *MefWriter) ensureChannel(channelName string, samplingFrequency float64) (*channelState, error) {
	if state, ok := w.channels[channelName]; ok {
		if state.samplingFrequency != 0 && state.samplingFrequency != samplingFrequency {
			return nil, fmt.Errorf("%w: channel %q has %g Hz, write requested %g Hz",
				errs.ErrSamplingFrequencyMismatch, channelName, state.samplingFrequency, samplingFrequency)
		}

		return state, nil
	}

	channelPath := filepath.Join(w.path, channelName+".timd")
	if err := os.MkdirAll(channelPath, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating channel directory: %v", errs.ErrInvalidPath, err)
	}

	state := &channelState{
		path:              channelPath,
		currentSegment:    w.lastExistingSegment(channelPath),
		lastEndTime:       format.UUTCNoEntry,
		samplingFrequency: samplingFrequency,
		unitsConversion:   w.unitsConversionFactor,
	}
	w.channels[channelName] = state

	return state, nil
}

// lastExistingSegment returns the highest segment number already on disk
// for an appended channel, or -1 for a fresh one.
func (w *MefWriter) lastExistingSegment(channelPath string) int32 {
	entries, err := os.ReadDir(channelPath)
	if err != nil {
		return -1
	}

	last := int32(-1)
	for _, e := range entries {
		if !e.IsDir() || !strings.HasSuffix(e.Name(), ".segd") {
			continue
		}

		name := strings.TrimSuffix(e.Name(), ".segd")
		dash := strings.LastIndexByte(name, '-')
		if dash < 0 {
			continue
		}

		var n int32
		if _, err := fmt.Sscanf(name[dash+1:], "%d", &n); err == nil && n > last {
			last = n
		}
	}

	return last
}

func segmentName(channelName string, segment int32) string {
	return fmt.Sprintf("%s-%0*d", channelName, format.FileNumberingDigits, segment)
}

// createSegment opens the next segment directory and its .tdat file,
// writing the data file's universal header.
func (w *MefWriter) createSegment(channelName string, state *channelState) error {
	state.currentSegment++

	segName := segmentName(channelName, state.currentSegment)
	segPath := filepath.Join(state.path, segName+".segd")
	if err := os.MkdirAll(segPath, 0o755); err != nil {
		return fmt.Errorf("%w: creating segment directory: %v", errs.ErrInvalidPath, err)
	}

	dataPath := filepath.Join(segPath, segName+".tdat")
	f, err := os.Create(dataPath)
	if err != nil {
		return fmt.Errorf("%w: creating data file: %v", errs.ErrInvalidPath, err)
	}

	uh := w.newUniversalHeader(format.TypeTimeSeriesData, channelName, state.currentSegment)
	if _, err := f.Write(uh.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("writing data file header: %w", err)
	}

	state.dataFile = f
	state.dataOffset = format.UniversalHeaderBytes
	state.indices = state.indices[:0]
	state.lastSampleIndex = state.totalSamples

	w.logger.Debug().
		Str("channel", channelName).
		Int32("segment", state.currentSegment).
		Msg("opened segment")

	return nil
}

// writeBlock compresses one block and appends it to the open .tdat file.
func (w *MefWriter) writeBlock(state *channelState, samples []int32, blockTime int64, discontinuity bool) error {
	params := red.CompressParams{Discontinuity: discontinuity}
	if w.passwords.Level1Key != nil {
		params.EncryptionLevel = format.Level1Encryption
		params.Key = w.passwords.Level1Key
	}

	result, err := red.Compress(samples, blockTime, params)
	if err != nil {
		return err
	}

	result.Index.FileOffset = state.dataOffset
	result.Index.StartSample = state.lastSampleIndex

	if _, err := state.dataFile.Write(result.CompressedData); err != nil {
		return fmt.Errorf("writing block: %w", err)
	}

	state.dataOffset += int64(len(result.CompressedData))
	state.lastSampleIndex += int64(len(samples))
	state.indices = append(state.indices, result.Index)
	state.totalBlocks++

	return nil
}

// finalizeSegment closes the open .tdat file and writes the companion
// .tmet and .tidx files, the commit point for the segment's durability.
func (w *MefWriter) finalizeSegment(channelName string, state *channelState) error {
	if state.dataFile == nil {
		return nil
	}

	if err := state.dataFile.Close(); err != nil {
		return fmt.Errorf("closing data file: %w", err)
	}
	state.dataFile = nil

	if err := w.writeMetadata(channelName, state); err != nil {
		return err
	}
	if err := w.writeIndices(channelName, state); err != nil {
		return err
	}

	w.logger.Debug().
		Str("channel", channelName).
		Int32("segment", state.currentSegment).
		Int("blocks", len(state.indices)).
		Msg("finalized segment")

	return nil
}

// segmentBounds derives [start, end] uUTC times from the segment's index
// array.
func (w *MefWriter) segmentBounds(state *channelState) (startTime, endTime int64) {
	startTime = format.UUTCNoEntry
	endTime = format.UUTCNoEntry

	if len(state.indices) == 0 {
		return startTime, endTime
	}

	startTime = state.indices[0].StartTime
	last := state.indices[len(state.indices)-1]
	endTime = last.StartTime + sampleInterval(int64(last.NumberOfSamples)-1, state.samplingFrequency)

	return startTime, endTime
}

func (w *MefWriter) writeMetadata(channelName string, state *channelState) error {
	segName := segmentName(channelName, state.currentSegment)
	metaPath := filepath.Join(state.path, segName+".segd", segName+".tmet")

	startTime, endTime := w.segmentBounds(state)

	var segmentSamples int64
	var maxBlockSamples uint32
	var maxBlockBytes int64
	var discontinuities int64
	for _, idx := range state.indices {
		segmentSamples += int64(idx.NumberOfSamples)
		if idx.NumberOfSamples > maxBlockSamples {
			maxBlockSamples = idx.NumberOfSamples
		}
		if int64(idx.BlockBytes) > maxBlockBytes {
			maxBlockBytes = int64(idx.BlockBytes)
		}
		if idx.REDBlockFlags&format.REDDiscontinuityMask != 0 {
			discontinuities++
		}
	}

	meta1 := section.NewMetadataSection1()

	meta2 := section.NewTimeSeriesMetadataSection2()
	meta2.ChannelDescription = w.channelDescription
	meta2.SessionDescription = w.sessionDescription
	meta2.SamplingFrequency = state.samplingFrequency
	meta2.UnitsConversionFactor = state.unitsConversion
	meta2.UnitsDescription = w.dataUnits
	meta2.StartSample = state.lastSampleIndex - segmentSamples
	meta2.NumberOfSamples = segmentSamples
	meta2.NumberOfBlocks = int64(len(state.indices))
	meta2.NumberOfDiscontinuities = discontinuities
	if len(state.indices) > 0 {
		meta2.MaximumBlockSamples = maxBlockSamples
		meta2.MaximumBlockBytes = maxBlockBytes
		if state.samplingFrequency > 0 {
			meta2.BlockInterval = sampleInterval(int64(maxBlockSamples), state.samplingFrequency)
		}
	}
	if startTime != format.UUTCNoEntry && endTime != format.UUTCNoEntry {
		meta2.RecordingDuration = endTime - startTime
	}

	meta3 := section.NewMetadataSection3()
	meta3.RecordingTimeOffset = w.recordingTimeOffset
	meta3.GMTOffset = w.gmtOffset
	meta3.SubjectName1 = w.subjectName
	meta3.SubjectID = w.subjectID
	meta3.RecordingLocation = w.recordingLocation

	buf := pool.GetFileBuffer()
	defer pool.PutFileBuffer(buf)
	buf.ExtendOrGrow(format.MetadataFileBytes)

	file := buf.Bytes()
	for i := range file {
		file[i] = format.PadByteValue
	}

	meta1.EncodeTo(file)
	meta2.EncodeTo(file)
	meta3.EncodeTo(file)

	uh := w.newUniversalHeader(format.TypeTimeSeriesMeta, channelName, state.currentSegment)
	uh.StartTime = startTime
	uh.EndTime = endTime
	uh.NumberOfEntries = 1
	uh.BodyCRC = bodyCRC(file[format.UniversalHeaderBytes:])
	copy(file[:format.UniversalHeaderBytes], uh.Bytes())

	if err := os.WriteFile(metaPath, file, 0o644); err != nil {
		return fmt.Errorf("%w: writing metadata file: %v", errs.ErrInvalidPath, err)
	}

	return nil
}

func (w *MefWriter) writeIndices(channelName string, state *channelState) error {
	segName := segmentName(channelName, state.currentSegment)
	idxPath := filepath.Join(state.path, segName+".segd", segName+".tidx")

	startTime, endTime := w.segmentBounds(state)

	var maxEntrySize int64
	buf := pool.GetFileBuffer()
	defer pool.PutFileBuffer(buf)
	buf.ExtendOrGrow(format.UniversalHeaderBytes)

	for i := range state.indices {
		idx := &state.indices[i]
		if int64(idx.BlockBytes) > maxEntrySize {
			maxEntrySize = int64(idx.BlockBytes)
		}
		buf.MustWrite(idx.Bytes())
	}

	file := buf.Bytes()

	uh := w.newUniversalHeader(format.TypeTimeSeriesIdx, channelName, state.currentSegment)
	uh.StartTime = startTime
	uh.EndTime = endTime
	uh.NumberOfEntries = int64(len(state.indices))
	uh.MaximumEntrySize = maxEntrySize
	uh.BodyCRC = bodyCRC(file[format.UniversalHeaderBytes:])
	copy(file[:format.UniversalHeaderBytes], uh.Bytes())

	if err := os.WriteFile(idxPath, file, 0o644); err != nil {
		return fmt.Errorf("%w: writing index file: %v", errs.ErrInvalidPath, err)
	}

	return nil
}

// newUniversalHeader builds a header stamped with the session identity,
// a fresh file UUID, and the password validation fields.
func (w *MefWriter) newUniversalHeader(fileType format.FileType, channelName string, segment int32) *section.UniversalHeader {
	uh := section.NewUniversalHeader(fileType)
	uh.ChannelName = channelName
	uh.SessionName = w.sessionName
	uh.SegmentNumber = segment
	uh.LevelUUID = w.sessionUUID

	fileUUID := uuid.New()
	copy(uh.FileUUID[:], fileUUID[:])
	uh.ProvenanceUUID = uh.FileUUID

	if w.password1 != "" {
		uh.Level1PasswordValidation = crypt.ValidationField(w.password1, uh.LevelUUID[:])
	}
	if w.password2 != "" {
		uh.Level2PasswordValidation = crypt.ValidationField(w.password2, uh.LevelUUID[:])
	}

	return uh
}

// Flush flushes every open .tdat file to disk. Metadata and index files
// are only written at segment finalization, so flushed blocks are not yet
// durable on their own.
func (w *MefWriter) Flush() error {
	if w.closed {
		return errs.ErrWriterClosed
	}

	for _, state := range w.channels {
		if state.dataFile != nil {
			if err := state.dataFile.Sync(); err != nil {
				return fmt.Errorf("flushing data file: %w", err)
			}
		}
	}

	return nil
}

// Close finalizes every open segment and marks the writer closed. It is
// idempotent; writes after Close fail with ErrWriterClosed.
func (w *MefWriter) Close() error {
	if w.closed {
		return nil
	}

	names := make([]string, 0, len(w.channels))
	for name := range w.channels {
		names = append(names, name)
	}
	sort.Strings(names)

	var firstErr error
	for _, name := range names {
		if err := w.finalizeSegment(name, w.channels[name]); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	w.closed = true
	w.logger.Debug().Str("session", w.sessionName).Msg("writer closed")

	return firstErr
}

// bodyCRC computes the universal header's body CRC over the file bytes
// after the header.
func bodyCRC(body []byte) uint32 {
	return crc.Calculate(body)
}

// sampleInterval converts a sample count at frequency f to rounded
// integer microseconds. The same formula is used on read so that
// sample-to-time mappings round-trip.
func sampleInterval(samples int64, samplingFrequency float64) int64 {
	return int64(math.Round(float64(samples) * 1e6 / samplingFrequency))
}
