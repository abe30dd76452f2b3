package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	trackRepo   string
	trackBranch string
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Mark a branch as created by the agent",
	Long: `Track records that the agent created a branch, making plain pushes to it
freely allowed. The hook calls this automatically when it sees
"git checkout -b" or "git switch -c".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := canonicalRepo(trackRepo)
		if err := newStore().Track(repo, trackBranch); err != nil {
			fmt.Fprintf(os.Stderr, "push-guard: %v\n", err)
			os.Exit(exitStoreError)
		}
		fmt.Fprintf(os.Stderr, "Tracking '%s' in '%s'\n", trackBranch, repo)
		return nil
	},
}

func init() {
	trackCmd.Flags().StringVar(&trackRepo, "repo", "", "Repository path")
	trackCmd.Flags().StringVar(&trackBranch, "branch", "", "Branch name")
	_ = trackCmd.MarkFlagRequired("repo")
	_ = trackCmd.MarkFlagRequired("branch")
	rootCmd.AddCommand(trackCmd)
}
