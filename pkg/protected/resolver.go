// Package protected resolves which branch of a remote is its protected
// default branch.
package protected

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
)

// wellKnown is the last-resort heuristic set consulted only when both
// resolution tiers fail. It is not a shortcut for resolution: default
// branches can be renamed.
var wellKnown = []string{"main", "master", "trunk", "develop"}

// HeadSource provides the two lookup tiers for a remote's HEAD branch.
type HeadSource interface {
	RemoteHead(repo, remote string) (string, error)
	RemoteHeadNetwork(ctx context.Context, repo, remote string) (string, error)
}

// Source records which tier produced a resolution.
type Source int

const (
	// SourceLocal is the recorded refs/remotes/<remote>/HEAD symbolic ref.
	SourceLocal Source = iota
	// SourceNetwork is a live query against the remote.
	SourceNetwork
)

// Resolution is a successfully resolved protected branch.
type Resolution struct {
	Branch string
	Source Source
}

// Resolver looks up a remote's default branch, local tier first.
type Resolver struct {
	heads          HeadSource
	timeout        time.Duration
	disableNetwork bool
	extra          []string // additional protected names for the heuristic
}

// New builds a Resolver. timeout bounds the network tier; zero means 5s.
func New(heads HeadSource, timeout time.Duration, disableNetwork bool, extraProtected []string) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{
		heads:          heads,
		timeout:        timeout,
		disableNetwork: disableNetwork,
		extra:          extraProtected,
	}
}

// Resolve returns the remote's default branch. The local symbolic ref is
// tried first; on a miss the remote is queried directly. An error means both
// tiers failed and the caller must fall back to LikelyProtected.
func (r *Resolver) Resolve(ctx context.Context, repo, remote string) (Resolution, error) {
	branch, localErr := r.heads.RemoteHead(repo, remote)
	if localErr == nil && branch != "" {
		return Resolution{Branch: branch, Source: SourceLocal}, nil
	}

	if r.disableNetwork {
		return Resolution{}, fmt.Errorf("resolve default branch of %s: %w (network fallback disabled)", remote, localErr)
	}

	netCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	branch, netErr := r.heads.RemoteHeadNetwork(netCtx, repo, remote)
	if netErr == nil && branch != "" {
		return Resolution{Branch: branch, Source: SourceNetwork}, nil
	}

	log.Warn().
		AnErr("local", localErr).
		AnErr("network", netErr).
		Msgf("could not resolve default branch of %s", remote)
	return Resolution{}, fmt.Errorf("resolve default branch of %s: local: %v; network: %v", remote, localErr, netErr)
}

// LikelyProtected reports whether a branch name belongs to the well-known
// protected set (plus configured extras). Used only when Resolve fails, and
// the verdict it feeds is a downgraded one.
func (r *Resolver) LikelyProtected(branch string) bool {
	return slices.Contains(wellKnown, branch) || slices.Contains(r.extra, branch)
}
