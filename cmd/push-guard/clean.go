package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cleanRepo  string
	cleanStale bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove branch records",
	Long: `Clean removes records for one repository (--repo) or for every
repository whose path no longer exists on disk (--stale).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cleanStale == (cleanRepo != "") {
			return fmt.Errorf("exactly one of --repo or --stale is required")
		}

		store := newStore()
		if cleanStale {
			removed, err := store.CleanStale(func(repo string) bool {
				_, err := os.Stat(repo)
				return err == nil
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "push-guard: %v\n", err)
				os.Exit(exitStoreError)
			}
			for _, repo := range removed {
				fmt.Fprintf(os.Stderr, "Removed records for '%s'\n", repo)
			}
			return nil
		}

		repo := canonicalRepo(cleanRepo)
		if err := store.CleanRepo(repo); err != nil {
			fmt.Fprintf(os.Stderr, "push-guard: %v\n", err)
			os.Exit(exitStoreError)
		}
		fmt.Fprintf(os.Stderr, "Removed records for '%s'\n", repo)
		return nil
	},
}

func init() {
	cleanCmd.Flags().StringVar(&cleanRepo, "repo", "", "Repository path")
	cleanCmd.Flags().BoolVar(&cleanStale, "stale", false, "Remove records for repositories missing on disk")
	rootCmd.AddCommand(cleanCmd)
}
