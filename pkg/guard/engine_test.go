package guard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushguard/push-guard/pkg/protected"
	"github.com/pushguard/push-guard/pkg/state"
)

const repo = "/tmp/push-guard-test-repo"

type fakeMeta struct {
	current    string
	currentErr error
	upRemote   string
	upBranch   string
	upErr      error
}

func (f fakeMeta) CurrentBranch(repo string) (string, error) {
	return f.current, f.currentErr
}

func (f fakeMeta) Upstream(repo, branch string) (string, string, error) {
	return f.upRemote, f.upBranch, f.upErr
}

type fakeHeads struct {
	head string
	err  error
}

func (f fakeHeads) RemoteHead(repo, remote string) (string, error) {
	return f.head, f.err
}

func (f fakeHeads) RemoteHeadNetwork(ctx context.Context, repo, remote string) (string, error) {
	return f.head, f.err
}

func testEngine(t *testing.T, meta Meta, heads protected.HeadSource) *Engine {
	t.Helper()
	store := state.New(filepath.Join(t.TempDir(), "state.json"))
	resolver := protected.New(heads, time.Second, false, nil)
	return New(store, resolver, meta, "origin")
}

// heads resolving "main" as the protected branch, the common fixture.
func mainHeads() fakeHeads {
	return fakeHeads{head: "main"}
}

func TestTrackedBranchAllowed(t *testing.T) {
	e := testEngine(t, fakeMeta{}, mainHeads())
	require.NoError(t, e.Store.Track(repo, "feature"))

	d, err := e.Decide(context.Background(), repo, "origin", "feature", false)
	require.NoError(t, err)
	assert.True(t, d.Allow)
}

func TestForeignBranchBlocked(t *testing.T) {
	e := testEngine(t, fakeMeta{}, mainHeads())

	d, err := e.Decide(context.Background(), repo, "origin", "untracked", false)
	require.NoError(t, err)
	assert.False(t, d.Allow)
	assert.Equal(t, ReasonForeign, d.Reason)
}

func TestProtectedBranchNeedsOneTimeToken(t *testing.T) {
	e := testEngine(t, fakeMeta{}, mainHeads())

	d, err := e.Decide(context.Background(), repo, "origin", "main", false)
	require.NoError(t, err)
	assert.False(t, d.Allow)
	assert.Equal(t, ReasonProtected, d.Reason)

	require.NoError(t, e.Store.Authorize(repo, "main"))

	d, err = e.Decide(context.Background(), repo, "origin", "main", false)
	require.NoError(t, err)
	assert.True(t, d.Allow, "authorized push should pass")

	d, err = e.Decide(context.Background(), repo, "origin", "main", false)
	require.NoError(t, err)
	assert.False(t, d.Allow, "the token must be gone after one use")
	assert.Equal(t, ReasonProtected, d.Reason)
}

func TestForceAlwaysNeedsFreshToken(t *testing.T) {
	e := testEngine(t, fakeMeta{}, mainHeads())
	require.NoError(t, e.Store.Track(repo, "feature"))

	// plain push to the tracked branch is fine
	d, err := e.Decide(context.Background(), repo, "origin", "feature", false)
	require.NoError(t, err)
	assert.True(t, d.Allow)

	// force on the very same branch is not
	d, err = e.Decide(context.Background(), repo, "origin", "feature", true)
	require.NoError(t, err)
	assert.False(t, d.Allow)
	assert.Equal(t, ReasonForce, d.Reason)

	require.NoError(t, e.Store.Authorize(repo, "feature"))
	d, err = e.Decide(context.Background(), repo, "origin", "feature", true)
	require.NoError(t, err)
	assert.True(t, d.Allow)
}

func TestProtectedBranchRenamed(t *testing.T) {
	// the remote's default branch is "trunk", so "main" is just foreign
	e := testEngine(t, fakeMeta{}, fakeHeads{head: "trunk"})

	d, err := e.Decide(context.Background(), repo, "origin", "main", false)
	require.NoError(t, err)
	assert.Equal(t, ReasonForeign, d.Reason)

	d, err = e.Decide(context.Background(), repo, "origin", "trunk", false)
	require.NoError(t, err)
	assert.Equal(t, ReasonProtected, d.Reason)
}

func TestResolutionFailureFallsBackToHeuristic(t *testing.T) {
	e := testEngine(t, fakeMeta{}, fakeHeads{err: errors.New("unreachable")})
	require.NoError(t, e.Store.Track(repo, "feature"))

	d, err := e.Decide(context.Background(), repo, "origin", "main", false)
	require.NoError(t, err)
	assert.False(t, d.Allow, "well-known names stay protected without resolution")
	assert.True(t, d.Degraded)

	d, err = e.Decide(context.Background(), repo, "origin", "feature", false)
	require.NoError(t, err)
	assert.True(t, d.Allow, "tracked branch still pushable without resolution")
	assert.True(t, d.Degraded)
}

func TestEmptyDestinationGetsProtectedScrutiny(t *testing.T) {
	e := testEngine(t, fakeMeta{}, mainHeads())

	d, err := e.Decide(context.Background(), repo, "origin", "", false)
	require.NoError(t, err)
	assert.False(t, d.Allow)
	assert.Equal(t, ReasonProtected, d.Reason)
}

func TestEvaluateCommandAllowsIrrelevant(t *testing.T) {
	e := testEngine(t, fakeMeta{}, mainHeads())

	res, err := e.EvaluateCommand(context.Background(), repo, "git status && ls -la")
	require.NoError(t, err)
	assert.True(t, res.Allow)
	assert.Empty(t, res.Decisions)
}

func TestEvaluateCommandTracksCreatedBranch(t *testing.T) {
	e := testEngine(t, fakeMeta{}, mainHeads())

	res, err := e.EvaluateCommand(context.Background(), repo, "git checkout -b newborn && git push origin newborn")
	require.NoError(t, err)
	assert.True(t, res.Allow, "a branch created earlier in the chain is pushable")

	tracked, err := e.Store.IsTracked(repo, "newborn")
	require.NoError(t, err)
	assert.True(t, tracked)
}

func TestEvaluateCommandBlockIfAnyAndNamesOffender(t *testing.T) {
	e := testEngine(t, fakeMeta{}, mainHeads())
	require.NoError(t, e.Store.Track(repo, "a"))

	res, err := e.EvaluateCommand(context.Background(), repo, "git push origin a && git push origin main")
	require.NoError(t, err)
	assert.False(t, res.Allow)
	require.Len(t, res.Decisions, 2)
	assert.True(t, res.Decisions[0].Allow)

	blocked := res.Blocked()
	require.Len(t, blocked, 1)
	assert.Equal(t, ReasonProtected, blocked[0].Reason)
	assert.Contains(t, blocked[0].Command, "main")
}

func TestEvaluateCommandOrChainSecondPushBlocked(t *testing.T) {
	e := testEngine(t, fakeMeta{}, mainHeads())
	require.NoError(t, e.Store.Track(repo, "safe"))

	res, err := e.EvaluateCommand(context.Background(), repo, "git push origin safe || git push -f origin main")
	require.NoError(t, err)
	assert.False(t, res.Allow)
	require.Len(t, res.Decisions, 2)
	assert.True(t, res.Decisions[0].Allow)

	blocked := res.Blocked()
	require.Len(t, blocked, 1)
	assert.Equal(t, ReasonForce, blocked[0].Reason)
	assert.Equal(t, "main", blocked[0].Branch)
}

func TestEvaluateCommandOrChainAfterBranchCreation(t *testing.T) {
	e := testEngine(t, fakeMeta{}, mainHeads())

	res, err := e.EvaluateCommand(context.Background(), repo, "git checkout -b x || git push -f origin main")
	require.NoError(t, err)
	assert.False(t, res.Allow)

	blocked := res.Blocked()
	require.Len(t, blocked, 1)
	assert.Equal(t, ReasonForce, blocked[0].Reason)

	tracked, err := e.Store.IsTracked(repo, "x")
	require.NoError(t, err)
	assert.True(t, tracked, "branch creation is still recorded")
}

func TestEvaluateCommandTokenNotReusableAcrossSubcommands(t *testing.T) {
	e := testEngine(t, fakeMeta{}, mainHeads())
	require.NoError(t, e.Store.Authorize(repo, "main"))

	res, err := e.EvaluateCommand(context.Background(), repo, "git push origin main && git push origin main")
	require.NoError(t, err)
	assert.False(t, res.Allow)
	require.Len(t, res.Decisions, 2)
	assert.True(t, res.Decisions[0].Allow, "first push consumes the token")
	assert.False(t, res.Decisions[1].Allow, "second push must not see the consumed token")
}

func TestEvaluateCommandImplicitDestination(t *testing.T) {
	meta := fakeMeta{current: "dev", upRemote: "origin", upBranch: "dev"}
	e := testEngine(t, meta, mainHeads())
	require.NoError(t, e.Store.Track(repo, "dev"))

	res, err := e.EvaluateCommand(context.Background(), repo, "git push")
	require.NoError(t, err)
	assert.True(t, res.Allow)
	require.Len(t, res.Decisions, 1)
	assert.Equal(t, "dev", res.Decisions[0].Branch)
}

func TestEvaluateCommandImplicitWithoutUpstream(t *testing.T) {
	meta := fakeMeta{current: "main", upErr: errors.New("no upstream")}
	e := testEngine(t, meta, mainHeads())

	res, err := e.EvaluateCommand(context.Background(), repo, "git push")
	require.NoError(t, err)
	assert.False(t, res.Allow)
	require.Len(t, res.Decisions, 1)
	assert.Equal(t, ReasonProtected, res.Decisions[0].Reason, "falls back to origin plus current branch")
}

func TestEvaluateCommandNoCurrentBranch(t *testing.T) {
	meta := fakeMeta{currentErr: errors.New("detached HEAD")}
	e := testEngine(t, meta, mainHeads())

	res, err := e.EvaluateCommand(context.Background(), repo, "git push")
	require.NoError(t, err)
	assert.False(t, res.Allow)
	require.Len(t, res.Decisions, 1)
	assert.Equal(t, ReasonNoDest, res.Decisions[0].Reason)
}

func TestEvaluateCommandDeletionIsForceEquivalent(t *testing.T) {
	e := testEngine(t, fakeMeta{}, mainHeads())
	require.NoError(t, e.Store.Track(repo, "feature"))

	res, err := e.EvaluateCommand(context.Background(), repo, "git push origin :feature")
	require.NoError(t, err)
	assert.False(t, res.Allow)
	require.Len(t, res.Decisions, 1)
	assert.Equal(t, ReasonForce, res.Decisions[0].Reason, "deleting a remote ref needs a token even on a tracked branch")
}

func TestEvaluateCommandForceFlag(t *testing.T) {
	e := testEngine(t, fakeMeta{}, mainHeads())
	require.NoError(t, e.Store.Track(repo, "feature"))

	res, err := e.EvaluateCommand(context.Background(), repo, "git push --force origin feature")
	require.NoError(t, err)
	assert.False(t, res.Allow)
	assert.Equal(t, ReasonForce, res.Decisions[0].Reason)
}

func TestEvaluateCommandMultipleRefspecs(t *testing.T) {
	e := testEngine(t, fakeMeta{}, mainHeads())
	require.NoError(t, e.Store.Track(repo, "safe"))

	res, err := e.EvaluateCommand(context.Background(), repo, "git push origin safe main")
	require.NoError(t, err)
	assert.False(t, res.Allow, "every refspec of a push is checked")
	require.Len(t, res.Decisions, 2)
	assert.True(t, res.Decisions[0].Allow)
	assert.Equal(t, ReasonProtected, res.Decisions[1].Reason)
}

func TestEvaluateCommandQuotedSeparatorNotSplit(t *testing.T) {
	e := testEngine(t, fakeMeta{}, mainHeads())

	res, err := e.EvaluateCommand(context.Background(), repo, `git commit -m "tidy && polish"`)
	require.NoError(t, err)
	assert.True(t, res.Allow)
	assert.Empty(t, res.Decisions)
}

func TestEvaluateCommandStoreErrorSurfaces(t *testing.T) {
	store := state.New(filepath.Join(t.TempDir(), "state.json"))
	resolver := protected.New(mainHeads(), time.Second, false, nil)
	e := New(store, resolver, fakeMeta{}, "origin")

	// corrupt the backing file
	require.NoError(t, os.WriteFile(store.Path(), []byte("{broken"), 0600))

	_, err := e.EvaluateCommand(context.Background(), repo, "git push origin main")
	require.Error(t, err)
	assert.ErrorIs(t, err, state.ErrCorrupt)
	assert.False(t, strings.Contains(err.Error(), "blocked"), "store failure is not a verdict")
}
