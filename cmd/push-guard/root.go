package main

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pushguard/push-guard/pkg/config"
	"github.com/pushguard/push-guard/pkg/gitmeta"
	"github.com/pushguard/push-guard/pkg/guard"
	"github.com/pushguard/push-guard/pkg/protected"
	"github.com/pushguard/push-guard/pkg/state"
)

var (
	// Global flags
	stateFile string
	cfgFile   string
	verbose   bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "push-guard",
	Short: "Git push authorization manager for agent hooks",
	Long: `push-guard decides whether a git push issued by a coding agent may
proceed. Branches the agent created are freely pushable; everything else
(protected branches, foreign branches, any force push) needs a one-time
authorization granted by the operator.

Wire the "hook" subcommand (or the push-guard-hook binary) into the agent
runtime's PreToolUse hook; use the other subcommands to grant, revoke, and
inspect authorizations.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}

		c, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&stateFile, "state", "", "State file (default: per-user data dir)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.config/push-guard/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

func statePath() string {
	if stateFile != "" {
		return stateFile
	}
	if cfg.StateFile != "" {
		return cfg.StateFile
	}
	return state.DefaultPath()
}

func newStore() *state.Store {
	return state.New(statePath())
}

func newEngine() *guard.Engine {
	meta := gitmeta.Git{}
	resolver := protected.New(meta, cfg.NetworkTimeout(), cfg.DisableNetworkFallback, cfg.ProtectedBranches)
	return guard.New(newStore(), resolver, meta, cfg.Remote())
}

// canonicalRepo normalizes a user-supplied repository path so store keys are
// stable across invocations.
func canonicalRepo(repo string) string {
	abs, err := filepath.Abs(repo)
	if err != nil {
		return filepath.Clean(repo)
	}
	return abs
}
