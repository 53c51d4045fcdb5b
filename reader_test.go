package mefd

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meflab/mefd/errs"
)

// writeSession creates a single-channel session of 1000 sine samples at
// 1000 Hz starting at t=10^12 microseconds with 100-sample blocks.
func writeSession(t *testing.T, opts ...WriterOption) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test_session.mefd")

	all := append([]WriterOption{WithBlockLength(100)}, opts...)
	w, err := NewMefWriter(path, true, all...)
	require.NoError(t, err)

	err = w.WriteData(sineWave(1000, 100, 100), "test_channel", 1_000_000_000_000, 1000.0)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return path
}

func TestMefReader_WriteReadRoundTrip(t *testing.T) {
	path := writeSession(t)

	r, err := NewMefReader(path)
	require.NoError(t, err)
	require.True(t, r.IsValid())

	channels := r.Channels()
	require.Len(t, channels, 1)
	require.Equal(t, "test_channel", channels[0])

	fs, err := r.GetNumericProperty("fsamp", "test_channel")
	require.NoError(t, err)
	require.InDelta(t, 1000.0, fs, 1e-6)

	data, err := r.GetData("test_channel")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(data), 900)
	require.LessOrEqual(t, len(data), 1000)

	expected := sineWave(1000, 100, 100)
	for i, v := range data {
		require.InDelta(t, expected[i], v, 1e-4, "sample %d", i)
	}
}

func TestMefReader_GetRawData_FullRange(t *testing.T) {
	path := writeSession(t)

	r, err := NewMefReader(path)
	require.NoError(t, err)

	info, err := r.GetChannelInfo("test_channel")
	require.NoError(t, err)
	require.EqualValues(t, 1000, info.NumberOfSamples)

	raw, err := r.GetRawData("test_channel", 0, info.NumberOfSamples)
	require.NoError(t, err)
	require.Len(t, raw, 1000)
}

func TestMefReader_GetRawData_Subranges(t *testing.T) {
	path := writeSession(t)

	r, err := NewMefReader(path)
	require.NoError(t, err)

	full, err := r.GetRawData("test_channel", 0, 1000)
	require.NoError(t, err)

	t.Run("inside one block", func(t *testing.T) {
		got, err := r.GetRawData("test_channel", 10, 20)
		require.NoError(t, err)
		require.Equal(t, full[10:20], got)
	})

	t.Run("across block boundary", func(t *testing.T) {
		got, err := r.GetRawData("test_channel", 95, 205)
		require.NoError(t, err)
		require.Equal(t, full[95:205], got)
	})

	t.Run("clamped to channel bounds", func(t *testing.T) {
		got, err := r.GetRawData("test_channel", -50, 2000)
		require.NoError(t, err)
		require.Equal(t, full, got)
	})

	t.Run("empty range", func(t *testing.T) {
		got, err := r.GetRawData("test_channel", 500, 500)
		require.NoError(t, err)
		require.Empty(t, got)
	})
}

func TestMefReader_MultiChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multi_channel.mefd")

	w, err := NewMefWriter(path, true, WithBlockLength(50))
	require.NoError(t, err)

	for ch := 1; ch <= 3; ch++ {
		data := make([]float64, 500)
		for i := range data {
			data[i] = float64(ch)*10.0 + math.Sin(2*math.Pi*float64(i)/50.0)
		}
		name := []string{"channel_1", "channel_2", "channel_3"}[ch-1]
		require.NoError(t, w.WriteData(data, name, 2_000_000_000_000, 500.0))
	}
	require.NoError(t, w.Close())

	r, err := NewMefReader(path)
	require.NoError(t, err)

	channels := r.Channels()
	require.Equal(t, []string{"channel_1", "channel_2", "channel_3"}, channels)

	// Each channel reconstructs its own sequence independently.
	for ch := 1; ch <= 3; ch++ {
		name := channels[ch-1]
		data, err := r.GetData(name)
		require.NoError(t, err)
		require.NotEmpty(t, data)
		require.InDelta(t, float64(ch)*10.0, data[0], 1e-4)
	}
}

func TestMefReader_Properties(t *testing.T) {
	path := filepath.Join(t.TempDir(), "properties.mefd")

	w, err := NewMefWriter(path, true,
		WithBlockLength(100),
		WithUnits("uV"),
		WithGMTOffset(-5),
	)
	require.NoError(t, err)

	data := make([]float64, 200)
	for i := range data {
		data[i] = 50.0
	}
	require.NoError(t, w.WriteData(data, "prop_ch", 3_000_000_000_000, 200.0))
	require.NoError(t, w.Close())

	r, err := NewMefReader(path)
	require.NoError(t, err)

	fs, err := r.GetNumericProperty("fsamp", "prop_ch")
	require.NoError(t, err)
	require.InDelta(t, 200.0, fs, 0.01)

	unit, err := r.GetStringProperty("unit", "prop_ch")
	require.NoError(t, err)
	require.Equal(t, "uV", unit)

	num, err := r.GetNumericProperty("number_of_samples", "prop_ch")
	require.NoError(t, err)
	require.EqualValues(t, 200, num)

	start, err := r.GetNumericProperty("start_time", "prop_ch")
	require.NoError(t, err)
	require.EqualValues(t, 3_000_000_000_000, start)

	name, err := r.GetStringProperty("channel_name", "prop_ch")
	require.NoError(t, err)
	require.Equal(t, "prop_ch", name)

	session, err := r.GetStringProperty("session_name", "")
	require.NoError(t, err)
	require.Equal(t, "properties", session)

	pathProp, err := r.GetStringProperty("path", "")
	require.NoError(t, err)
	require.Equal(t, path, pathProp)

	info, err := r.GetChannelInfo("prop_ch")
	require.NoError(t, err)
	require.EqualValues(t, -5, info.SubjectMetadata().GMTOffset)
}

func TestMefReader_UnknownProperty(t *testing.T) {
	r, err := NewMefReader(writeSession(t))
	require.NoError(t, err)

	_, err = r.GetNumericProperty("bogus", "test_channel")
	require.ErrorIs(t, err, errs.ErrUnknownProperty)

	_, err = r.GetStringProperty("bogus", "")
	require.ErrorIs(t, err, errs.ErrUnknownProperty)
}

func TestMefReader_ChannelNotFound(t *testing.T) {
	r, err := NewMefReader(writeSession(t))
	require.NoError(t, err)

	_, err = r.GetData("missing")
	require.ErrorIs(t, err, errs.ErrChannelNotFound)

	_, err = r.GetRawData("missing", 0, 10)
	require.ErrorIs(t, err, errs.ErrChannelNotFound)

	_, err = r.GetNumericProperty("fsamp", "missing")
	require.ErrorIs(t, err, errs.ErrChannelNotFound)

	_, err = r.GetChannelInfo("missing")
	require.ErrorIs(t, err, errs.ErrChannelNotFound)
}

func TestMefReader_InvalidPath(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := NewMefReader(filepath.Join(t.TempDir(), "nope.mefd"))
		require.ErrorIs(t, err, errs.ErrInvalidPath)
	})

	t.Run("missing suffix", func(t *testing.T) {
		_, err := NewMefReader(t.TempDir())
		require.ErrorIs(t, err, errs.ErrInvalidPath)
	})
}

func TestMefReader_EmptySessionInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.mefd")

	w, err := NewMefWriter(path, true)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := NewMefReader(path)
	require.NoError(t, err)
	require.False(t, r.IsValid())
	require.Empty(t, r.Channels())
}

func TestMefReader_Discontinuity_SplitsSegments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gaps.mefd")

	w, err := NewMefWriter(path, true, WithBlockLength(100))
	require.NoError(t, err)

	start := int64(1_000_000_000_000)
	require.NoError(t, w.WriteData(sineWave(500, 100, 10), "ch", start, 1000.0))

	// A ten-second gap far exceeds the two-block discontinuity threshold.
	gapStart := start + 10_000_000
	require.NoError(t, w.WriteData(sineWave(500, 100, 10), "ch", gapStart, 1000.0))
	require.NoError(t, w.Close())

	r, err := NewMefReader(path)
	require.NoError(t, err)

	info, err := r.GetChannelInfo("ch")
	require.NoError(t, err)
	require.Equal(t, 2, info.NumberOfSegments)
	require.EqualValues(t, 1000, info.NumberOfSamples)

	raw, err := r.GetRawData("ch", 0, 1000)
	require.NoError(t, err)
	require.Len(t, raw, 1000)
}

func TestMefReader_ForcedNewSegment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forced.mefd")

	w, err := NewMefWriter(path, true, WithBlockLength(100))
	require.NoError(t, err)

	start := int64(1_000_000_000_000)
	require.NoError(t, w.WriteData(sineWave(200, 100, 10), "ch", start, 1000.0))
	// Contiguous in time, but the caller forces a segment boundary.
	require.NoError(t, w.WriteData(sineWave(200, 100, 10), "ch", start+200_000, 1000.0, WithNewSegment()))
	require.NoError(t, w.Close())

	r, err := NewMefReader(path)
	require.NoError(t, err)

	info, err := r.GetChannelInfo("ch")
	require.NoError(t, err)
	require.Equal(t, 2, info.NumberOfSegments)
}

func TestMefReader_RawRoundTripWithPrecision(t *testing.T) {
	path := filepath.Join(t.TempDir(), "precision.mefd")

	w, err := NewMefWriter(path, true, WithBlockLength(100))
	require.NoError(t, err)

	data := []float64{1.25, -2.5, 3.75, 100.125, -0.0625}
	// 10^4 scale keeps four decimal digits exactly.
	require.NoError(t, w.WriteData(data, "ch", 0, 100.0, WithPrecision(4)))
	require.NoError(t, w.Close())

	r, err := NewMefReader(path)
	require.NoError(t, err)

	raw, err := r.GetRawData("ch", 0, int64(len(data)))
	require.NoError(t, err)
	require.Equal(t, []int32{12500, -25000, 37500, 1001250, -625}, raw)

	info, err := r.GetChannelInfo("ch")
	require.NoError(t, err)
	require.InDelta(t, 1e-4, info.UnitsConversionFactor, 1e-12)
}

func TestMefReader_NaNRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nan.mefd")

	w, err := NewMefWriter(path, true, WithBlockLength(10))
	require.NoError(t, err)

	data := []float64{1.0, math.NaN(), 3.0, math.NaN(), 5.0}
	require.NoError(t, w.WriteData(data, "ch", 0, 10.0))
	require.NoError(t, w.Close())

	r, err := NewMefReader(path)
	require.NoError(t, err)

	got, err := r.GetRawData("ch", 0, 5)
	require.NoError(t, err)
	require.Len(t, got, 5)

	values, err := r.GetDataRange("ch", 0, 500_000)
	require.NoError(t, err)
	for i, v := range values {
		if math.IsNaN(data[i]) {
			require.True(t, math.IsNaN(v), "sample %d", i)
		} else {
			require.False(t, math.IsNaN(v), "sample %d", i)
		}
	}
}

func TestMefReader_SessionBounds(t *testing.T) {
	path := writeSession(t)

	r, err := NewMefReader(path)
	require.NoError(t, err)

	require.EqualValues(t, 1_000_000_000_000, r.StartTime())
	require.EqualValues(t, 1_000_000_000_000+999_000, r.EndTime())
	require.EqualValues(t, 999_000, r.Duration())

	start, err := r.GetNumericProperty("start_time", "")
	require.NoError(t, err)
	require.EqualValues(t, 1_000_000_000_000, start)
}

func TestMefReader_WithCRCValidation(t *testing.T) {
	path := writeSession(t)

	r, err := NewMefReader(path, WithCRCValidation())
	require.NoError(t, err)

	data, err := r.GetData("test_channel")
	require.NoError(t, err)
	require.NotEmpty(t, data)
}
