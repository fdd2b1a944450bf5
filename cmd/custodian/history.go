package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/cli"
)

var historyFlags struct {
	limit int
}

var historyCmd = &cobra.Command{
	Use:   "history <policy-id>",
	Short: "Show the execution history of a policy",
	Long: `Show the most recent executions of a policy, oldest first.

Examples:
  # Show the last 20 executions
  custodian history mail-7y

  # Show the whole ledger as CSV
  custodian history mail-7y --limit 0 --format csv`,
	Args: cobra.ExactArgs(1),
	RunE: showHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", -1, "number of executions to show; 0 shows all (default: engine.history_limit)")
}

func showHistory(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		limit := historyFlags.limit
		if limit < 0 {
			limit = a.cfg.Engine.HistoryLimit
		}
		records, err := a.engine.ExecutionHistory(cmd.Context(), args[0], limit)
		if err != nil {
			return cli.NewCommandError(cmd.CommandPath(), err)
		}
		return render(cmd.OutOrStdout(), executionList(records))
	})
}
