// Package gitmeta queries git for repository metadata by shelling out to the
// git binary. All lookups except RemoteHeadNetwork are local and offline.
package gitmeta

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Git is the exec-backed metadata client.
type Git struct{}

func run(repo string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = filepath.Clean(repo)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s failed: %s: %w", args[0], strings.TrimSpace(string(output)), err)
	}
	return strings.TrimSpace(string(output)), nil
}

// CurrentBranch returns the name of the checked-out branch.
func (Git) CurrentBranch(repo string) (string, error) {
	return run(repo, "symbolic-ref", "--short", "HEAD")
}

// Upstream returns the configured upstream remote and branch for the given
// local branch. Errors when no upstream is configured.
func (Git) Upstream(repo, branch string) (remote, upstreamBranch string, err error) {
	out, err := run(repo, "rev-parse", "--abbrev-ref", branch+"@{upstream}")
	if err != nil {
		return "", "", err
	}
	// output is "<remote>/<branch>"
	idx := strings.IndexByte(out, '/')
	if idx <= 0 || idx == len(out)-1 {
		return "", "", fmt.Errorf("unexpected upstream ref %q", out)
	}
	return out[:idx], out[idx+1:], nil
}

// RemoteHead returns the remote's default branch from the locally recorded
// symbolic ref. The ref is absent in repositories cloned without it, in which
// case the caller should fall back to a network query.
func (Git) RemoteHead(repo, remote string) (string, error) {
	out, err := run(repo, "symbolic-ref", "--short", "refs/remotes/"+remote+"/HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(out, remote+"/"), nil
}

// RemoteHeadNetwork asks the remote itself for its HEAD branch. Honors ctx
// for the connect/read timeout.
func (Git) RemoteHeadNetwork(ctx context.Context, repo, remote string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "ls-remote", "--symref", remote, "HEAD")
	cmd.Dir = filepath.Clean(repo)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git ls-remote failed: %s: %w", strings.TrimSpace(string(output)), err)
	}
	// first line: "ref: refs/heads/<branch>\tHEAD"
	for _, line := range strings.Split(string(output), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "ref:" {
			return strings.TrimPrefix(fields[1], "refs/heads/"), nil
		}
	}
	return "", fmt.Errorf("no symref in ls-remote output for %s", remote)
}

// RepoRoot resolves the repository top-level directory containing dir.
func RepoRoot(dir string) (string, error) {
	return run(dir, "rev-parse", "--show-toplevel")
}
