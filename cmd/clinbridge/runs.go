package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clinical-bridge/clinbridge/internal/pipeline"
	"github.com/clinical-bridge/clinbridge/internal/store"
)

var runsFlags struct {
	status string
	limit  int
	asJSON bool
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect persisted workflow runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := store.NewRunDAO(db).List(cmd.Context(),
			pipeline.WorkflowStatus(runsFlags.status), runsFlags.limit)
		if err != nil {
			return err
		}

		if runsFlags.asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}

		renderRunList(cmd.OutOrStdout(), runs)
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <workflow-id>",
	Short: "Show one persisted run in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		run, err := store.NewRunDAO(db).GetByID(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if runsFlags.asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		}

		renderSummary(cmd.OutOrStdout(), run.Summary, true)
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded: %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

func init() {
	runsListCmd.Flags().StringVar(&runsFlags.status, "status", "", "Filter by workflow status")
	runsListCmd.Flags().IntVar(&runsFlags.limit, "limit", 20, "Maximum number of runs to list")
	runsCmd.PersistentFlags().BoolVar(&runsFlags.asJSON, "json", false, "Emit JSON instead of text")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
}
