package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/retention"
)

var completionCmd = &cobra.Command{
	Use:   "completion <bash|zsh|fish|powershell>",
	Short: "Print a shell completion script",
	Long: `Print a completion script for the given shell.

Policy ids are completed from the configured policy repository, so
"custodian hold apply <TAB>" offers the policies that exist.

  bash:        source <(custodian completion bash)
  zsh:         custodian completion zsh > "${fpath[1]}/_custodian"
  fish:        custodian completion fish > ~/.config/fish/completions/custodian.fish
  powershell:  custodian completion powershell | Out-String | Invoke-Expression`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletionV2(out, true)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		default:
			return rootCmd.GenPowerShellCompletionWithDesc(out)
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

// registerPolicyCompletions attaches policy id completion to every command
// whose first argument is a policy id. Commands are registered from several
// init functions, so this runs once the tree is complete.
func registerPolicyCompletions(root *cobra.Command) {
	for _, c := range root.Commands() {
		if strings.HasSuffix(c.Use, "<policy-id>") && c.ValidArgsFunction == nil {
			c.ValidArgsFunction = completePolicyIDs
		}
		registerPolicyCompletions(c)
	}
}

// completePolicyIDs offers the ids in the policy repository, with the
// policy name and status as the description.
func completePolicyIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	repo, err := openRepository(cfg)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	defer repo.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	policies, err := repo.List(ctx, retention.Filter{})
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	ids := make([]string, 0, len(policies))
	for _, p := range policies {
		if strings.HasPrefix(p.ID, toComplete) {
			ids = append(ids, fmt.Sprintf("%s\t%s (%s)", p.ID, p.Name, p.Status))
		}
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}
