package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pushguard/push-guard/pkg/gitmeta"
	"github.com/pushguard/push-guard/pkg/hook"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Run as a PreToolUse hook (reads the JSON envelope from stdin)",
	Long: `Hook reads the agent runtime's PreToolUse envelope from stdin, inspects
the Bash command it carries, and exits 0 to allow or 2 to block. Branch
creations in the command are tracked as a side effect.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := hook.Read(os.Stdin)
		if err != nil {
			// A hook that cannot read its input must not brick the session.
			hook.Allow()
		}
		if input.ToolName != "Bash" || input.ToolInput.Command == "" {
			hook.Allow()
		}

		result, err := newEngine().EvaluateCommand(cmd.Context(), hookRepoRoot(input.CWD), input.ToolInput.Command)
		if err != nil {
			hook.Fail(err)
		}
		if !result.Allow {
			var reasons []string
			for _, d := range result.Blocked() {
				reasons = append(reasons, fmt.Sprintf("%s: %s (branch '%s')", d.Command, d.Reason, d.Branch))
			}
			hook.Block("git push requires authorization", reasons)
		}
		hook.Allow()
		return nil
	},
}

// hookRepoRoot resolves the repository containing the hook's working
// directory. Outside a repository the directory itself is the store key;
// the push would fail there anyway.
func hookRepoRoot(cwd string) string {
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	if root, err := gitmeta.RepoRoot(cwd); err == nil {
		return root
	}
	return canonicalRepo(cwd)
}

func init() {
	rootCmd.AddCommand(hookCmd)
}
