package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftwatch/audiosync/internal/avsync"
	"github.com/driftwatch/audiosync/internal/engine"
	"github.com/driftwatch/audiosync/internal/export"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		modeFlag    string
		videoDir    string
		audioDir    string
		audioFile   string
		videoFiles  []string
		pattern     string
		segmentFlag float64
		csvPath     string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a sync check over a set of video files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			mode, ok := avsync.ParseMode(modeFlag)
			if !ok {
				return fmt.Errorf("unknown mode %q (want movie or series)", modeFlag)
			}
			if pattern == "" {
				pattern = cfg.Watch.MatchPattern
			}
			if mode == avsync.ModeSeries {
				if err := avsync.CheckPattern(pattern); err != nil {
					return err
				}
			}

			store, closeStore, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer closeStore()
			eng, err := ctx.buildEngine(store)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			run, err := eng.Start(runCtx, avsync.Request{
				Mode:            mode,
				VideoFolder:     videoDir,
				AudioFolder:     audioDir,
				AudioFile:       audioFile,
				VideoFiles:      videoFiles,
				SegmentDuration: segmentFlag,
				MatchPattern:    pattern,
			})
			if err != nil {
				return err
			}

			results, err := followRun(cmd, run)
			if err != nil {
				return err
			}

			renderResultsTable(cmd.OutOrStdout(), results)
			if csvPath != "" {
				if err := writeCSVFile(csvPath, results); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", csvPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "series", "Pairing mode: movie or series")
	cmd.Flags().StringVar(&videoDir, "video-dir", "", "Folder containing the video files")
	cmd.Flags().StringVar(&audioDir, "audio-dir", "", "Folder containing the reference audio files (series mode)")
	cmd.Flags().StringVar(&audioFile, "audio-file", "", "Reference audio file (movie mode)")
	cmd.Flags().StringArrayVar(&videoFiles, "video", nil, "Explicit video file, repeatable (overrides --video-dir)")
	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "Episode match pattern with two capture groups")
	cmd.Flags().Float64VarP(&segmentFlag, "segment", "s", 0, "Excerpt length in seconds (0 = configured default)")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Also write the results to this CSV file")

	return cmd
}

// followRun prints the event stream as progress lines and returns the
// final result set.
func followRun(cmd *cobra.Command, run *engine.Run) ([]avsync.Result, error) {
	out := cmd.OutOrStdout()
	for event := range run.Events() {
		switch event.Type {
		case engine.EventLog:
			fmt.Fprintln(out, event.Message)
		case engine.EventFileStart:
			fmt.Fprintf(out, "Analyzing %s ...\n", event.File)
		case engine.EventFileEnd:
			fmt.Fprintf(out, "  finished %s in %s\n", event.File, time.Duration(event.ElapsedMs)*time.Millisecond)
		case engine.EventProgress:
			if p := event.Progress; p != nil && p.EtaMs != nil {
				fmt.Fprintf(out, "  %d/%d done, ~%s remaining\n",
					p.Processed, p.Total, (time.Duration(*p.EtaMs) * time.Millisecond).Round(time.Second))
			}
		case engine.EventDone:
			return event.Results, nil
		case engine.EventCanceled:
			fmt.Fprintf(out, "Canceled after %d file(s)\n", len(event.Results))
			return event.Results, nil
		case engine.EventFailed:
			return nil, fmt.Errorf("sync run failed: %s", event.Error)
		}
	}
	return run.Results(), nil
}

func writeCSVFile(path string, results []avsync.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteCSV(f, results); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
