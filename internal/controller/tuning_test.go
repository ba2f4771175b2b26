package controller

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultTuning_Valid(t *testing.T) {
	require.NoError(t, DefaultTuning().Validate())
}

func TestLoadTuning(t *testing.T) {
	dir := t.TempDir()

	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := filepath.Join(dir, "partial.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"yaw_dead": 12, "place_hold": "500ms", "invert_x": false}`), 0o644))

		got, err := LoadTuning(path)
		require.NoError(t, err)
		require.Equal(t, 12.0, got.YawDead)
		require.False(t, got.InvertX)
		require.Equal(t, 500*time.Millisecond, got.PlaceHold.Duration)
		require.Equal(t, 9, got.AngleWindow)
		require.Equal(t, 3*time.Second, got.ResetHold.Duration)
	})

	t.Run("rejects out of range values", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"blink_drop": 1.5}`), 0o644))

		_, err := LoadTuning(path)
		require.Error(t, err)
	})

	t.Run("rejects dead zone above engage threshold", func(t *testing.T) {
		path := filepath.Join(dir, "dead.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"pitch_dead": 25}`), 0o644))

		_, err := LoadTuning(path)
		require.Error(t, err)
	})

	t.Run("rejects bad duration", func(t *testing.T) {
		path := filepath.Join(dir, "dur.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"reset_hold": "soon"}`), 0o644))

		_, err := LoadTuning(path)
		require.Error(t, err)
	})

	t.Run("rejects non-json extension", func(t *testing.T) {
		_, err := LoadTuning(filepath.Join(dir, "tuning.yaml"))
		require.Error(t, err)
	})
}
