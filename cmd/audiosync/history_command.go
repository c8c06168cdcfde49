package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past sync runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			runs := store.Runs()
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet")
				return nil
			}
			for _, run := range runs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s  %d file(s)\n",
					run.Timestamp.Format("2006-01-02 15:04"), run.ID, run.Mode, run.FileCount)
			}
			return nil
		},
	}

	cmd.AddCommand(newHistoryShowCommand(ctx))
	cmd.AddCommand(newHistoryDeleteCommand(ctx))
	cmd.AddCommand(newHistoryClearCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the results of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			run, ok := store.Run(args[0])
			if !ok {
				return fmt.Errorf("run %s not found", args[0])
			}
			renderResultsTable(cmd.OutOrStdout(), run.Results)
			return nil
		},
	}
}

func newHistoryDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete one run from the history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			store.DeleteRun(args[0])
			return nil
		},
	}
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the whole run history",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			store.ClearRuns()
			return nil
		},
	}
}
