package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/retention/engine"
	"mercator-hq/custodian/pkg/retention/source"
)

var policyFlags struct {
	file   string
	owner  string
	status string
	force  bool
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage retention policies",
	Long: `Manage retention policies and their lifecycle.

Policies are written as YAML definitions, the same format used by the
policy definition directory:

  id: mail-7y
  name: Mail retention
  owner_id: legal
  scope:
    data_categories: [mail]
  retention:
    duration: 7
    unit: years
  disposition:
    action: archive
    archive_location: /archive/mail
  schedule:
    frequency: monthly
    day_of_month: 1
    time: "03:00"
  status: active

Subcommands:
  create    - Create policies from a definition file
  update    - Update a policy from a definition file
  list      - List policies
  show      - Show one policy
  activate  - Activate a draft policy
  pause     - Pause an active policy
  resume    - Resume a paused policy
  archive   - Archive a policy
  execute   - Run a policy now`,
}

var policyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create policies from a definition file",
	Long: `Create one policy per definition in a YAML file.

Examples:
  # Create the policies in mail.yaml
  custodian policy create --file mail.yaml`,
	Args: cobra.NoArgs,
	RunE: createPolicies,
}

var policyUpdateCmd = &cobra.Command{
	Use:   "update <policy-id>",
	Short: "Update a policy from a definition file",
	Long: `Update a policy from a YAML definition. Only the sections that differ
are changed; the next run is recomputed only when the schedule changed.
Status, legal holds and the execution ledger are never touched.

Examples:
  custodian policy update mail-7y --file mail.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: updatePolicy,
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List policies",
	Long: `List policies, optionally filtered by owner and status.

Examples:
  custodian policy list --owner legal --status active
  custodian policy list --format csv`,
	Args: cobra.NoArgs,
	RunE: listPolicies,
}

var policyShowCmd = &cobra.Command{
	Use:   "show <policy-id>",
	Short: "Show one policy",
	Args:  cobra.ExactArgs(1),
	RunE:  showPolicy,
}

var policyExecuteCmd = &cobra.Command{
	Use:   "execute <policy-id>",
	Short: "Run a policy now",
	Long: `Run a policy immediately, outside its schedule.

Without --force the run disposes of records only when automatic disposal
is enabled; otherwise it is a dry run that only counts due records.
--force never bypasses a legal hold or an approval gate.

Examples:
  # Count what would be disposed of
  custodian policy execute mail-7y

  # Dispose of due records even with auto_dispose off
  custodian policy execute mail-7y --force`,
	Args: cobra.ExactArgs(1),
	RunE: executePolicy,
}

func transitionCmd(use, short string, op func(a *app, cmd *cobra.Command, id string) (*retention.Policy, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <policy-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				p, err := op(a, cmd, args[0])
				if err != nil {
					return policyError(cmd, err)
				}
				return render(cmd.OutOrStdout(), policyView{p})
			})
		},
	}
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(
		policyCreateCmd,
		policyUpdateCmd,
		policyListCmd,
		policyShowCmd,
		policyExecuteCmd,
		transitionCmd("activate", "Activate a draft policy", func(a *app, cmd *cobra.Command, id string) (*retention.Policy, error) {
			return a.engine.ActivatePolicy(cmd.Context(), id)
		}),
		transitionCmd("pause", "Pause an active policy", func(a *app, cmd *cobra.Command, id string) (*retention.Policy, error) {
			return a.engine.PausePolicy(cmd.Context(), id)
		}),
		transitionCmd("resume", "Resume a manually paused policy", func(a *app, cmd *cobra.Command, id string) (*retention.Policy, error) {
			return a.engine.ResumePolicy(cmd.Context(), id)
		}),
		transitionCmd("archive", "Archive a policy", func(a *app, cmd *cobra.Command, id string) (*retention.Policy, error) {
			return a.engine.ArchivePolicy(cmd.Context(), id)
		}),
	)

	policyCreateCmd.Flags().StringVarP(&policyFlags.file, "file", "f", "", "policy definition file")
	_ = policyCreateCmd.MarkFlagRequired("file")
	policyUpdateCmd.Flags().StringVarP(&policyFlags.file, "file", "f", "", "policy definition file")
	_ = policyUpdateCmd.MarkFlagRequired("file")

	policyListCmd.Flags().StringVar(&policyFlags.owner, "owner", "", "only policies of this owner")
	policyListCmd.Flags().StringVar(&policyFlags.status, "status", "", "only policies with this status (draft, active, paused, archived)")

	policyExecuteCmd.Flags().BoolVar(&policyFlags.force, "force", false, "dispose of records even when auto disposal is off")
}

// policyError turns a lifecycle refusal into a RefusedError and wraps the
// rest as command errors.
func policyError(cmd *cobra.Command, err error) error {
	var terr *retention.TransitionError
	if errors.As(err, &terr) {
		return cli.NewRefusedError(cmd.Name(), terr.Error())
	}
	return cli.NewCommandError(cmd.CommandPath(), err)
}

func createPolicies(cmd *cobra.Command, args []string) error {
	defs, loadErr := source.NewLoader(nil).LoadFile(policyFlags.file)
	if len(defs) == 0 {
		if loadErr != nil {
			return cli.NewCommandError(cmd.CommandPath(), loadErr)
		}
		return cli.NewCommandError(cmd.CommandPath(), fmt.Errorf("no policy definitions in %s", policyFlags.file))
	}

	return withApp(cmd, func(a *app) error {
		created := make(policyList, 0, len(defs))
		for _, def := range defs {
			p, err := a.engine.CreatePolicy(cmd.Context(), def)
			if err != nil {
				return cli.NewCommandError(cmd.CommandPath(), fmt.Errorf("policy %s: %w", def.ID, err))
			}
			created = append(created, p)
		}
		if err := render(cmd.OutOrStdout(), created); err != nil {
			return err
		}
		if loadErr != nil {
			return cli.NewCommandError(cmd.CommandPath(), loadErr)
		}
		return nil
	})
}

func updatePolicy(cmd *cobra.Command, args []string) error {
	id := args[0]
	defs, err := source.NewLoader(nil).LoadFile(policyFlags.file)
	if err != nil {
		return cli.NewCommandError(cmd.CommandPath(), err)
	}

	var def *retention.Policy
	for _, d := range defs {
		if d.ID == id {
			def = d
			break
		}
	}
	if def == nil {
		return cli.NewCommandError(cmd.CommandPath(), fmt.Errorf("no definition with id %q in %s", id, policyFlags.file))
	}

	return withApp(cmd, func(a *app) error {
		existing, err := a.engine.GetPolicy(cmd.Context(), id)
		if err != nil {
			return cli.NewCommandError(cmd.CommandPath(), err)
		}
		update := source.Diff(existing, def)
		if update.Empty() {
			fmt.Fprintf(cmd.ErrOrStderr(), "policy %s is unchanged\n", id)
		}
		p, err := a.engine.UpdatePolicy(cmd.Context(), id, update)
		if err != nil {
			return cli.NewCommandError(cmd.CommandPath(), err)
		}
		return render(cmd.OutOrStdout(), policyView{p})
	})
}

func listPolicies(cmd *cobra.Command, args []string) error {
	filter := retention.Filter{OwnerID: policyFlags.owner, Status: retention.Status(policyFlags.status)}
	switch filter.Status {
	case "", retention.StatusDraft, retention.StatusActive, retention.StatusPaused, retention.StatusArchived:
	default:
		return cli.NewConfigError("status", fmt.Sprintf("unknown status %q", policyFlags.status))
	}

	return withApp(cmd, func(a *app) error {
		policies, err := a.engine.ListPolicies(cmd.Context(), filter)
		if err != nil {
			return cli.NewCommandError(cmd.CommandPath(), err)
		}
		return render(cmd.OutOrStdout(), policyList(policies))
	})
}

func showPolicy(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		p, err := a.engine.GetPolicy(cmd.Context(), args[0])
		if err != nil {
			return cli.NewCommandError(cmd.CommandPath(), err)
		}
		return render(cmd.OutOrStdout(), policyView{p})
	})
}

func executePolicy(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		res, err := a.engine.ExecutePolicy(cmd.Context(), args[0], engine.ExecuteOptions{Force: policyFlags.force})
		if err != nil {
			return policyError(cmd, err)
		}
		return renderResult(cmd, "execute", res)
	})
}
