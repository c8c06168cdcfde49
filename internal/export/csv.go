// Package export renders result sets for consumption outside the tool.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/driftwatch/audiosync/internal/avsync"
)

// DefaultFileName is the suggested name for a CSV export.
const DefaultFileName = "sync-results.csv"

var csvHeader = []string{
	"Video",
	"Audio",
	"Start Delay (ms)",
	"End Delay (ms)",
	"Elapsed (ms)",
	"Confidence",
	"Status",
}

// WriteCSV renders one row per result. Unknown delays stay as empty
// cells so spreadsheet tooling does not mistake a sentinel for a value.
func WriteCSV(w io.Writer, results []avsync.Result) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write(csvRow(result)); err != nil {
			return fmt.Errorf("write csv row for %s: %w", result.VideoFile, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func csvRow(result avsync.Result) []string {
	status := "OK"
	if !result.OK() {
		status = result.Error
	}
	return []string{
		result.VideoFile,
		result.AudioFile,
		delayCell(result.StartDelayMs),
		delayCell(result.EndDelayMs),
		fmt.Sprintf("%d", result.ElapsedMs),
		string(avsync.ClassifyResult(result)),
		status,
	}
}

func delayCell(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.1f", *v)
}
