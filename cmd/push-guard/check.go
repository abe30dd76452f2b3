package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pushguard/push-guard/pkg/guard"
)

// exitStoreError is distinct from the block exit code: an unreadable store
// is a command failure, not evidence of a violation.
const (
	exitBlocked    = 1
	exitStoreError = 3
)

var (
	checkRepo   string
	checkRemote string
	checkBranch string
	checkForce  bool
	checkDryRun bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether a push to a branch is allowed",
	Long: `Check runs the authorization state machine for a single (repo, branch)
pair and exits 0 (allow) or 1 (blocked). A successful check consumes any
one-time authorization for the branch.

With --dry-run the verdict is printed and the exit code stays 0.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := canonicalRepo(checkRepo)

		decision, err := newEngine().Decide(cmd.Context(), repo, checkRemote, checkBranch, checkForce)
		if err != nil {
			fmt.Fprintf(os.Stderr, "push-guard: %v\n", err)
			os.Exit(exitStoreError)
		}

		if checkDryRun {
			if decision.Allow {
				fmt.Printf("allow: push to '%s' on '%s'\n", decision.Branch, decision.Remote)
			} else {
				fmt.Printf("block: %s\n", decision.Reason)
			}
			return nil
		}

		if decision.Allow {
			return nil
		}
		fmt.Fprintln(os.Stderr, blockMessage(repo, decision))
		os.Exit(exitBlocked)
		return nil
	},
}

// blockMessage renders the operator-facing explanation, naming the remedy.
func blockMessage(repo string, d guard.Decision) string {
	switch d.Reason {
	case guard.ReasonForce:
		return fmt.Sprintf(
			"BLOCKED: force push to '%s' requires explicit user authorization.\nSay \"I authorize\" to proceed.",
			d.Branch)
	case guard.ReasonProtected:
		return fmt.Sprintf(
			"BLOCKED: '%s' is a protected branch.\nRecommendation: push to a feature branch instead.\nTo push to '%s' directly, say \"I authorize\".",
			d.Branch, d.Branch)
	case guard.ReasonNoDest:
		return "BLOCKED: cannot determine the destination branch of this push."
	default:
		return fmt.Sprintf(
			"BLOCKED: branch '%s' was not created by the agent and has no authorization.\nTo authorize a one-time push: push-guard authorize --repo '%s' --branch '%s'",
			d.Branch, repo, d.Branch)
	}
}

func init() {
	checkCmd.Flags().StringVar(&checkRepo, "repo", "", "Repository path")
	checkCmd.Flags().StringVar(&checkRemote, "remote", "origin", "Remote the push targets")
	checkCmd.Flags().StringVar(&checkBranch, "branch", "", "Destination branch")
	checkCmd.Flags().BoolVar(&checkForce, "force", false, "Treat as a force push")
	checkCmd.Flags().BoolVar(&checkDryRun, "dry-run", false, "Print the verdict without the exit-code side effect")
	_ = checkCmd.MarkFlagRequired("repo")
	_ = checkCmd.MarkFlagRequired("branch")
	rootCmd.AddCommand(checkCmd)
}
