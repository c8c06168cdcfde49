package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() RuntimeSettings {
	return RuntimeSettings{
		SegmentDuration: 300,
		MatchPattern:    `S(\d+)E(\d+)`,
		CronExpr:        "0 3 * * *",
	}
}

func TestRuntimeSettings_Validate(t *testing.T) {
	require.NoError(t, validSettings().Validate())

	bad := validSettings()
	bad.SegmentDuration = 0
	assert.Error(t, bad.Validate())

	bad = validSettings()
	bad.MatchPattern = `S(\d+)` // single capture group cannot build a key
	assert.Error(t, bad.Validate())

	bad = validSettings()
	bad.CronExpr = "every tuesday"
	assert.Error(t, bad.Validate())

	// Pattern and cron are optional.
	optional := RuntimeSettings{SegmentDuration: 60}
	assert.NoError(t, optional.Validate())
}

func TestRuntimeSettings_WriteAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	settings := validSettings()

	require.NoError(t, WriteRuntimeSettingsFile(path, settings))

	loaded, err := LoadRuntimeSettingsFile(path)
	require.NoError(t, err)
	assert.Equal(t, settings, loaded)

	// No temp file left behind after the atomic rename.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestRuntimeSettings_WriteRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	bad := validSettings()
	bad.SegmentDuration = -5

	require.Error(t, WriteRuntimeSettingsFile(path, bad))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRuntimeSettingsStore_Update(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store, err := NewRuntimeSettingsStore(path, validSettings())
	require.NoError(t, err)

	next := validSettings()
	next.SegmentDuration = 120
	updated, err := store.UpdateRuntimeSettings(next)
	require.NoError(t, err)
	assert.InDelta(t, 120.0, updated.SegmentDuration, 1e-9)

	current, err := store.GetRuntimeSettings()
	require.NoError(t, err)
	assert.InDelta(t, 120.0, current.SegmentDuration, 1e-9)

	loaded, err := LoadRuntimeSettingsFile(path)
	require.NoError(t, err)
	assert.InDelta(t, 120.0, loaded.SegmentDuration, 1e-9)

	// Invalid updates change nothing.
	bad := validSettings()
	bad.CronExpr = "nope"
	_, err = store.UpdateRuntimeSettings(bad)
	require.Error(t, err)
	current, _ = store.GetRuntimeSettings()
	assert.InDelta(t, 120.0, current.SegmentDuration, 1e-9)
}

func TestWithRuntimeSettings(t *testing.T) {
	cfg, err := NewFromEnv(WithRuntimeSettings(RuntimeSettings{
		SegmentDuration: 45,
		MatchPattern:    `E(\d+)x(\d+)`,
	}))
	require.NoError(t, err)

	assert.InDelta(t, 45.0, cfg.Analysis.SegmentDuration, 1e-9)
	assert.Equal(t, `E(\d+)x(\d+)`, cfg.Watch.MatchPattern)
	// Unset fields keep their env defaults.
	assert.Equal(t, "0 3 * * *", cfg.Watch.CronExpr)
}
