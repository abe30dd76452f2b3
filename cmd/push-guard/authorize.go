package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	authorizeRepo   string
	authorizeBranch string
)

var authorizeCmd = &cobra.Command{
	Use:   "authorize",
	Short: "Grant a one-time push authorization",
	Long: `Authorize grants a single-use token for pushing to a branch the agent did
not create (or for one force push). The token is consumed by the next
qualifying push check; authorizing again replaces an unconsumed token rather
than stacking.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := canonicalRepo(authorizeRepo)
		if err := newStore().Authorize(repo, authorizeBranch); err != nil {
			fmt.Fprintf(os.Stderr, "push-guard: %v\n", err)
			os.Exit(exitStoreError)
		}
		fmt.Fprintf(os.Stderr, "Authorized one push to '%s' in '%s'\n", authorizeBranch, repo)
		return nil
	},
}

func init() {
	authorizeCmd.Flags().StringVar(&authorizeRepo, "repo", "", "Repository path")
	authorizeCmd.Flags().StringVar(&authorizeBranch, "branch", "", "Branch name")
	_ = authorizeCmd.MarkFlagRequired("repo")
	_ = authorizeCmd.MarkFlagRequired("branch")
	rootCmd.AddCommand(authorizeCmd)
}
