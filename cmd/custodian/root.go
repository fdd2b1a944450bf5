package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/cli"
)

var (
	// Global flags
	cfgFile      string
	verbose      bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "custodian",
	Short: "Custodian - data retention and disposition scheduling engine",
	Long: `Custodian manages retention policies for governed data and disposes of
records once their retention period has run out.

It provides:
  - Retention policies with calendar-based disposition schedules
  - Legal holds that block disposition until released
  - Approval gates for sensitive dispositions
  - An execution ledger with per-policy statistics
  - Policy definition files with hot reload

Most commands open the configured policy repository and record store
directly, so they can be used while "custodian run" is serving.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := cli.NotifyShutdown(context.Background())
	defer stop()

	registerPolicyCompletions(rootCmd)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		var refused *cli.RefusedError
		if !errors.As(err, &refused) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	return cli.ExitCode(err)
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "o", "text", "output format: text, json, csv")
}
