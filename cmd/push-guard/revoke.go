package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	revokeRepo   string
	revokeBranch string
)

var revokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke an unconsumed push authorization",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := canonicalRepo(revokeRepo)
		if err := newStore().Revoke(repo, revokeBranch); err != nil {
			fmt.Fprintf(os.Stderr, "push-guard: %v\n", err)
			os.Exit(exitStoreError)
		}
		fmt.Fprintf(os.Stderr, "Revoked authorization for '%s' in '%s'\n", revokeBranch, repo)
		return nil
	},
}

func init() {
	revokeCmd.Flags().StringVar(&revokeRepo, "repo", "", "Repository path")
	revokeCmd.Flags().StringVar(&revokeBranch, "branch", "", "Branch name")
	_ = revokeCmd.MarkFlagRequired("repo")
	_ = revokeCmd.MarkFlagRequired("branch")
	rootCmd.AddCommand(revokeCmd)
}
