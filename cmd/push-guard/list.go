package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	listRepo string
	listJSON bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked and authorized branches",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := listRepo
		if repo != "" {
			repo = canonicalRepo(repo)
		}

		infos, err := newStore().List(repo)
		if err != nil {
			fmt.Fprintf(os.Stderr, "push-guard: %v\n", err)
			os.Exit(exitStoreError)
		}

		if listJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(infos)
		}

		for _, info := range infos {
			label := "[tracked]   "
			if info.Authorized {
				label = "[authorized]"
				if info.Tracked {
					label = "[both]      "
				}
			}
			fmt.Printf("%s %s  ::  %s\n", label, info.Repo, info.Branch)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listRepo, "repo", "", "Limit to one repository")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Machine-readable output")
	rootCmd.AddCommand(listCmd)
}
