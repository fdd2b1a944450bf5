package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/cli"
)

var dashboardFlags struct {
	owner string
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the retention dashboard",
	Long: `Show policy counts, legal holds (including expired ones), pending
approvals, upcoming dispositions and recent executions.

Examples:
  custodian dashboard --owner legal
  custodian dashboard --format json`,
	Args: cobra.NoArgs,
	RunE: showDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.Flags().StringVar(&dashboardFlags.owner, "owner", "", "owner to report on (default: all owners)")
}

func showDashboard(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		d, err := a.engine.GetDashboard(cmd.Context(), dashboardFlags.owner)
		if err != nil {
			return cli.NewCommandError(cmd.CommandPath(), err)
		}
		return render(cmd.OutOrStdout(), dashboardView{d})
	})
}
