// Package guard renders the allow/block verdict for push commands.
//
// The engine is the only place that knows the authorization policy. Parsing,
// branch resolution, and persistence are collaborators handed in by the
// caller; nothing here reaches for ambient global state.
package guard

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/pushguard/push-guard/pkg/protected"
	"github.com/pushguard/push-guard/pkg/pushparse"
	"github.com/pushguard/push-guard/pkg/shellsplit"
	"github.com/pushguard/push-guard/pkg/state"
)

// Canonical block reasons.
const (
	ReasonForce     = "force push requires authorization"
	ReasonProtected = "protected branch requires authorization"
	ReasonForeign   = "foreign branch requires authorization"
	ReasonNoDest    = "cannot determine destination branch"
)

// Meta is the git-metadata collaborator used to resolve implicit push
// destinations.
type Meta interface {
	CurrentBranch(repo string) (string, error)
	Upstream(repo, branch string) (remote, upstreamBranch string, err error)
}

// Decision is the terminal verdict for one push.
type Decision struct {
	Allow  bool
	Reason string // canonical reason when blocked
	Branch string // destination branch, "" when unresolvable
	Remote string
	// Command is the offending sub-command when the decision came out of
	// EvaluateCommand.
	Command string
	// Degraded is set when protected-branch resolution failed and the
	// well-known heuristic decided instead.
	Degraded bool
}

// Result aggregates the decisions for every push found in one command line.
type Result struct {
	Allow     bool
	Decisions []Decision
}

// Blocked returns only the blocking decisions, for reporting.
func (r Result) Blocked() []Decision {
	var blocked []Decision
	for _, d := range r.Decisions {
		if !d.Allow {
			blocked = append(blocked, d)
		}
	}
	return blocked
}

// Engine composes splitter, parser, resolver, and store into verdicts.
type Engine struct {
	Store         *state.Store
	Resolver      *protected.Resolver
	Meta          Meta
	DefaultRemote string
}

// New builds an engine with the given collaborators.
func New(store *state.Store, resolver *protected.Resolver, meta Meta, defaultRemote string) *Engine {
	if defaultRemote == "" {
		defaultRemote = "origin"
	}
	return &Engine{Store: store, Resolver: resolver, Meta: meta, DefaultRemote: defaultRemote}
}

// EvaluateCommand inspects a raw shell command line and decides whether every
// push in it may proceed. Branch creations found along the way are recorded
// as tracked. All sub-commands are evaluated even after a block, so the
// report names every offender, and authorization consumed by an earlier
// sub-command is not available to a later one.
func (e *Engine) EvaluateCommand(ctx context.Context, repo, raw string) (Result, error) {
	result := Result{Allow: true}

	for _, sub := range shellsplit.Split(raw) {
		for _, cls := range pushparse.ClassifyAll(sub) {
			switch cls.Kind {
			case pushparse.BranchCreated:
				if err := e.Store.Track(repo, cls.Branch); err != nil {
					return Result{}, fmt.Errorf("track created branch: %w", err)
				}
				log.Debug().Msgf("tracking branch %q created in %s", cls.Branch, repo)
			case pushparse.Push:
				decisions, err := e.evaluatePush(ctx, repo, cls.Push)
				if err != nil {
					return Result{}, err
				}
				for i := range decisions {
					decisions[i].Command = sub
					if !decisions[i].Allow {
						result.Allow = false
					}
				}
				result.Decisions = append(result.Decisions, decisions...)
			}
		}
	}

	return result, nil
}

// evaluatePush renders a decision for every destination of one push.
func (e *Engine) evaluatePush(ctx context.Context, repo string, spec *pushparse.PushSpec) ([]Decision, error) {
	remote := spec.Remote
	if remote == "" {
		remote = e.DefaultRemote
	}

	var decisions []Decision
	for _, dest := range spec.Destinations() {
		branch := dest.BranchName()
		force := spec.Force || dest.IsDeletion()

		if dest.Kind == pushparse.DestImplicit {
			resolved, resolvedRemote, ok := e.implicitDestination(repo, spec.Remote)
			if !ok {
				decisions = append(decisions, Decision{Reason: ReasonNoDest, Remote: remote})
				continue
			}
			branch = resolved
			if spec.Remote == "" {
				remote = resolvedRemote
			}
		}

		d, err := e.Decide(ctx, repo, remote, branch, force)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return decisions, nil
}

// implicitDestination resolves "git push" with no refspec: the current
// branch's configured upstream, or origin plus the current branch name
// without one. explicitRemote narrows the upstream to pushes aimed at that
// remote.
func (e *Engine) implicitDestination(repo, explicitRemote string) (branch, remote string, ok bool) {
	current, err := e.Meta.CurrentBranch(repo)
	if err != nil || current == "" {
		log.Debug().Err(err).Msg("no current branch for implicit destination")
		return "", "", false
	}

	upRemote, upBranch, err := e.Meta.Upstream(repo, current)
	if err == nil {
		if explicitRemote == "" || explicitRemote == upRemote {
			return upBranch, upRemote, true
		}
		// pushing to a remote other than the upstream: the branch keeps
		// its local name there
		return current, explicitRemote, true
	}
	return current, e.DefaultRemote, true
}

// Decide runs the authorization state machine for a single resolved push
// target. Order matters: force is judged before anything else, protection
// before tracking, and authorization is consulted only by consuming it.
func (e *Engine) Decide(ctx context.Context, repo, remote, branch string, force bool) (Decision, error) {
	d := Decision{Branch: branch, Remote: remote}

	if force {
		ok, err := e.Store.TryConsumeAuthorization(repo, branch)
		if err != nil {
			return Decision{}, err
		}
		d.Allow = ok
		if !ok {
			d.Reason = ReasonForce
		}
		return d, nil
	}

	isProtected, degraded := e.isProtected(ctx, repo, remote, branch)
	d.Degraded = degraded
	if isProtected {
		ok, err := e.Store.TryConsumeAuthorization(repo, branch)
		if err != nil {
			return Decision{}, err
		}
		d.Allow = ok
		if !ok {
			d.Reason = ReasonProtected
		}
		return d, nil
	}

	tracked, err := e.Store.IsTracked(repo, branch)
	if err != nil {
		return Decision{}, err
	}
	if tracked {
		d.Allow = true
		return d, nil
	}

	ok, err := e.Store.TryConsumeAuthorization(repo, branch)
	if err != nil {
		return Decision{}, err
	}
	d.Allow = ok
	if !ok {
		d.Reason = ReasonForeign
	}
	return d, nil
}

// isProtected compares the destination against the remote's resolved default
// branch. When resolution fails entirely, the well-known set decides and the
// verdict is flagged as degraded. An empty destination (refspec with an
// empty right-hand side) always gets protected-level scrutiny.
func (e *Engine) isProtected(ctx context.Context, repo, remote, branch string) (protectedBranch, degraded bool) {
	if branch == "" {
		return true, false
	}

	res, err := e.Resolver.Resolve(ctx, repo, remote)
	if err != nil {
		return e.Resolver.LikelyProtected(branch), true
	}
	return branch == res.Branch, false
}
