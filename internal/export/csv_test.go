package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwatch/audiosync/internal/avsync"
)

func ptr(v float64) *float64 { return &v }

func TestWriteCSV(t *testing.T) {
	results := []avsync.Result{
		{
			VideoFile:    "Show.S01E01.mkv",
			AudioFile:    "Show.S01E01.flac",
			StartDelayMs: ptr(120.5),
			EndDelayMs:   ptr(118.25),
			ElapsedMs:    4321,
		},
		{
			VideoFile: "Show.S01E02.mkv",
			Error:     "no audio match",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, results))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{
		"Video", "Audio", "Start Delay (ms)", "End Delay (ms)",
		"Elapsed (ms)", "Confidence", "Status",
	}, rows[0])

	assert.Equal(t, []string{
		"Show.S01E01.mkv", "Show.S01E01.flac", "120.5", "118.2", "4321", "high", "OK",
	}, rows[1])

	// Unknown delays become empty cells, the error text becomes the status.
	assert.Equal(t, []string{
		"Show.S01E02.mkv", "", "", "", "0", "low", "no audio match",
	}, rows[2])
}

func TestWriteCSV_EmptyResultSet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
