package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/retention/engine"
)

var approveFlags struct {
	approver   string
	notes      string
	executeNow bool
	owner      string
}

var approveCmd = &cobra.Command{
	Use:   "approve <policy-id>",
	Short: "Approve the pending disposition of a policy",
	Long: `Approve the pending disposition of a policy that requires approval.

The approver must be listed in the policy's disposition approvers. With
--execute-now the records are disposed of immediately. Otherwise the
approval waits for "custodian policy execute"; scheduled runs never use it.
The approval is consumed by the first run that disposes of records.

Examples:
  custodian approve mail-7y --approver alice
  custodian approve mail-7y --approver alice --notes "checked with legal" --execute-now`,
	Args: cobra.ExactArgs(1),
	RunE: approveDisposition,
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List dispositions waiting for approval",
	Long: `List active policies that require approval and have records due now.
Counts come from the record store at the time of the call.

Examples:
  custodian pending --owner legal`,
	Args: cobra.NoArgs,
	RunE: listPending,
}

func init() {
	rootCmd.AddCommand(approveCmd, pendingCmd)

	approveCmd.Flags().StringVar(&approveFlags.approver, "approver", "", "approver identity")
	approveCmd.Flags().StringVar(&approveFlags.notes, "notes", "", "approval notes")
	approveCmd.Flags().BoolVar(&approveFlags.executeNow, "execute-now", false, "run the approved disposition immediately")
	_ = approveCmd.MarkFlagRequired("approver")

	pendingCmd.Flags().StringVar(&approveFlags.owner, "owner", "", "only dispositions of this owner")
}

func approveDisposition(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		res, err := a.engine.ApproveDisposition(cmd.Context(), args[0], engine.ApprovalRequest{
			Approver:   approveFlags.approver,
			Notes:      approveFlags.notes,
			ExecuteNow: approveFlags.executeNow,
		})
		if err != nil {
			return cli.NewCommandError(cmd.CommandPath(), err)
		}
		return renderResult(cmd, "approve", res)
	})
}

func listPending(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		pending, err := a.engine.GetPendingDispositions(cmd.Context(), approveFlags.owner)
		if err != nil {
			return cli.NewCommandError(cmd.CommandPath(), err)
		}
		return render(cmd.OutOrStdout(), pendingList(pending))
	})
}
