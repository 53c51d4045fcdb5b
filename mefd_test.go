package mefd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meflab/mefd/errs"
)

func TestEncryptedSession_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "protected.mefd")

	w, err := NewMefWriter(path, true,
		WithBlockLength(100),
		WithLevel1Password("secret_pass"),
	)
	require.NoError(t, err)

	expected := sineWave(500, 100, 50)
	require.NoError(t, w.WriteData(expected, "ch", 1_000_000_000_000, 500.0))
	require.NoError(t, w.Close())

	t.Run("correct password decodes", func(t *testing.T) {
		r, err := NewMefReader(path, WithPassword("secret_pass"))
		require.NoError(t, err)
		require.True(t, r.IsValid())

		data, err := r.GetData("ch")
		require.NoError(t, err)
		require.NotEmpty(t, data)
		for i, v := range data {
			require.InDelta(t, expected[i], v, 1e-4, "sample %d", i)
		}
	})

	t.Run("missing password rejected", func(t *testing.T) {
		_, err := NewMefReader(path)
		require.ErrorIs(t, err, errs.ErrWrongPassword)
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		_, err := NewMefReader(path, WithPassword("not_the_pass"))
		require.ErrorIs(t, err, errs.ErrWrongPassword)
	})
}

func TestUnprotectedSession_IgnoresPassword(t *testing.T) {
	path := writeSession(t)

	// A password against an unprotected session is harmless; the
	// validation fields are empty and no payload is encrypted.
	r, err := NewMefReader(path, WithPassword("whatever"))
	require.NoError(t, err)

	data, err := r.GetData("test_channel")
	require.NoError(t, err)
	require.NotEmpty(t, data)
}
