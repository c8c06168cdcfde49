package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/driftwatch/audiosync/internal/avsync"
)

func renderResultsTable(out io.Writer, results []avsync.Result) {
	tw := table.NewWriter()
	if isTerminal(out) {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleDefault)
	}

	tw.AppendHeader(table.Row{"Video", "Audio", "Start (ms)", "End (ms)", "Confidence", "Status"})
	for _, result := range results {
		tw.AppendRow(table.Row{
			result.VideoFile,
			result.AudioFile,
			delayText(result.StartDelayMs),
			delayText(result.EndDelayMs),
			confidenceText(result),
			statusText(result),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})

	fmt.Fprintln(out, tw.Render())
}

func delayText(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%+.1f", *v)
}

func confidenceText(result avsync.Result) string {
	grade := string(avsync.ClassifyResult(result))
	if avsync.ResultIsOutlier(result) {
		grade += " (outlier)"
	}
	return grade
}

func statusText(result avsync.Result) string {
	if result.OK() {
		return "OK"
	}
	return result.Error
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
