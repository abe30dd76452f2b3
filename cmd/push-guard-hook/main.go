// Package main implements the dedicated PreToolUse hook binary. It carries no
// subcommands so the agent runtime can invoke it with zero arguments.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pushguard/push-guard/pkg/config"
	"github.com/pushguard/push-guard/pkg/gitmeta"
	"github.com/pushguard/push-guard/pkg/guard"
	"github.com/pushguard/push-guard/pkg/hook"
	"github.com/pushguard/push-guard/pkg/protected"
	"github.com/pushguard/push-guard/pkg/state"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	input, err := hook.Read(os.Stdin)
	if err != nil {
		// A hook that cannot read its input must not brick the session.
		hook.Allow()
	}
	if input.ToolName != "Bash" || input.ToolInput.Command == "" {
		hook.Allow()
	}

	cfg, err := config.Load("")
	if err != nil {
		hook.Fail(err)
	}

	statePath := cfg.StateFile
	if statePath == "" {
		statePath = state.DefaultPath()
	}

	meta := gitmeta.Git{}
	resolver := protected.New(meta, cfg.NetworkTimeout(), cfg.DisableNetworkFallback, cfg.ProtectedBranches)
	engine := guard.New(state.New(statePath), resolver, meta, cfg.Remote())

	result, err := engine.EvaluateCommand(context.Background(), repoRoot(input.CWD), input.ToolInput.Command)
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
}

func repoRoot(cwd string) string {
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	if root, err := gitmeta.RepoRoot(cwd); err == nil {
		return root
	}
	return cwd
}
