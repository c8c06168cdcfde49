package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftwatch/audiosync/internal/avsync"
	"github.com/driftwatch/audiosync/internal/export"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var (
		scope string
		out   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored results to a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			var results []avsync.Result
			switch scope {
			case "current":
				results = store.Current()
			case "history":
				results = store.MergedResults()
			default:
				return fmt.Errorf("unknown scope %q (want current or history)", scope)
			}

			if err := writeCSVFile(out, results); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d result(s) to %s\n", len(results), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "history", "Result set to export: current or history")
	cmd.Flags().StringVarP(&out, "out", "o", export.DefaultFileName, "Output file")
	return cmd
}
