package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/retention/engine"
)

var holdFlags struct {
	name         string
	caseRef      string
	reason       string
	by           string
	expires      string
	noReactivate bool
}

var holdCmd = &cobra.Command{
	Use:   "hold",
	Short: "Apply and release legal holds",
	Long: `Apply and release legal holds.

A policy under legal hold is paused and never disposes of records, whatever
triggers the execution. Holds are not released automatically when they
expire; expired holds are listed on the dashboard for a decision.`,
}

var holdApplyCmd = &cobra.Command{
	Use:   "apply <policy-id>",
	Short: "Put a policy under legal hold",
	Long: `Put a policy under legal hold. Applying a hold to a policy that is
already held updates the hold details and keeps its identity.

Examples:
  custodian hold apply mail-7y --name "Case 12" --case LIT-2024-12 \
    --by legal@example.com --expires 2025-06-30`,
	Args: cobra.ExactArgs(1),
	RunE: applyHold,
}

var holdReleaseCmd = &cobra.Command{
	Use:   "release <policy-id>",
	Short: "Release the legal hold of a policy",
	Long: `Release the legal hold of a policy. By default the policy becomes
active again and its next run is computed from now; with --no-reactivate
it stays paused until resumed.

Examples:
  custodian hold release mail-7y --by legal@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: releaseHold,
}

func init() {
	rootCmd.AddCommand(holdCmd)
	holdCmd.AddCommand(holdApplyCmd, holdReleaseCmd)

	holdApplyCmd.Flags().StringVar(&holdFlags.name, "name", "", "hold name")
	holdApplyCmd.Flags().StringVar(&holdFlags.caseRef, "case", "", "case reference")
	holdApplyCmd.Flags().StringVar(&holdFlags.reason, "reason", "", "reason for the hold")
	holdApplyCmd.Flags().StringVar(&holdFlags.by, "by", "", "who applies the hold")
	holdApplyCmd.Flags().StringVar(&holdFlags.expires, "expires", "", "expiry date (YYYY-MM-DD or RFC3339)")
	_ = holdApplyCmd.MarkFlagRequired("name")

	holdReleaseCmd.Flags().StringVar(&holdFlags.by, "by", "", "who releases the hold")
	holdReleaseCmd.Flags().BoolVar(&holdFlags.noReactivate, "no-reactivate", false, "leave the policy paused after release")
}

// parseDate accepts a calendar date (midnight UTC) or an RFC3339 timestamp.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q (want YYYY-MM-DD or RFC3339)", s)
}

func applyHold(cmd *cobra.Command, args []string) error {
	expires, err := parseDate(holdFlags.expires)
	if err != nil {
		return cli.NewConfigError("expires", err.Error())
	}

	return withApp(cmd, func(a *app) error {
		res, err := a.engine.ApplyLegalHold(cmd.Context(), args[0], engine.HoldRequest{
			Name:          holdFlags.name,
			CaseReference: holdFlags.caseRef,
			Reason:        holdFlags.reason,
			AppliedBy:     holdFlags.by,
			ExpiresAt:     expires,
		})
		if err != nil {
			return cli.NewCommandError(cmd.CommandPath(), err)
		}
		return renderResult(cmd, "hold apply", res)
	})
}

func releaseHold(cmd *cobra.Command, args []string) error {
	reactivate := !holdFlags.noReactivate

	return withApp(cmd, func(a *app) error {
		res, err := a.engine.ReleaseLegalHold(cmd.Context(), args[0], engine.ReleaseOptions{
			Reactivate: &reactivate,
			ReleasedBy: holdFlags.by,
		})
		if err != nil {
			return cli.NewCommandError(cmd.CommandPath(), err)
		}
		return renderResult(cmd, "hold release", res)
	})
}
