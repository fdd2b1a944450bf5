package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/retention/source"
)

var syncCmd = &cobra.Command{
	Use:   "sync [dir]",
	Short: "Apply a directory of policy definition files",
	Long: `Apply policy definition files once, the way "custodian run" does at
startup. Unknown policy ids are created; known ones are updated with the
sections that changed. Policies whose files were removed are left alone.

Without an argument the configured policies.dir is used.

Examples:
  custodian sync policies/
  custodian sync --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: syncDefinitions,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func syncDefinitions(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		dir := a.cfg.Policies.Dir
		if len(args) == 1 {
			dir = args[0]
		}
		if dir == "" {
			return cli.NewConfigError("policies.dir", "no definition directory given or configured")
		}

		report, syncErr := source.NewSyncer(nil, a.engine).SyncDir(cmd.Context(), dir)
		if err := render(cmd.OutOrStdout(), syncView{report}); err != nil {
			return err
		}
		if syncErr != nil {
			return cli.NewCommandError(cmd.CommandPath(), syncErr)
		}
		return nil
	})
}
