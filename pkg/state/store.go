// Package state persists which branches the agent created and which carry a
// one-time push authorization.
//
// The whole document lives in a single JSON file keyed by repository path
// then branch name. Every operation is a read-modify-write cycle under an
// exclusive file lock, so concurrent hook invocations cannot corrupt the
// document or lose each other's mutations.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"syscall"
)

// ErrCorrupt marks a state file that exists but cannot be decoded. Callers
// must surface this instead of guessing a verdict from broken state.
var ErrCorrupt = errors.New("state file is corrupt")

// EnvStateFile overrides the state file location when set. Optional; used by
// tests and nonstandard installs.
const EnvStateFile = "PUSH_GUARD_STATE_FILE"

// Record is one branch's persisted flags. Unknown fields in the file are
// ignored so newer schemas stay readable.
type Record struct {
	Tracked    bool `json:"tracked"`
	Authorized bool `json:"authorized"`
}

// document maps repository path to branch name to record.
type document map[string]map[string]Record

// BranchInfo is one row of a store listing.
type BranchInfo struct {
	Repo       string `json:"repo"`
	Branch     string `json:"branch"`
	Tracked    bool   `json:"tracked"`
	Authorized bool   `json:"authorized"`
}

// Store is a handle to the persisted document.
type Store struct {
	path string
}

// New returns a store backed by the given file path.
func New(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns the per-user state file location, honoring the
// EnvStateFile override.
func DefaultPath() string {
	if p := os.Getenv(EnvStateFile); p != "" {
		return p
	}
	base, err := os.UserConfigDir()
	if err != nil {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, "push-guard", "state.json")
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// update runs fn against the current document under an exclusive lock and
// rewrites the file when fn reports a change.
func (s *Store) update(fn func(doc document) (bool, error)) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("lock state file: %w", err)
	}
	defer func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}()

	raw, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read state file: %w", err)
	}

	doc := document{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}

	changed, err := fn(doc)
	if err != nil || !changed {
		return err
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate state file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind state file: %w", err)
	}
	if _, err := f.Write(out); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// prune enforces the no-empty-records invariant: a record survives only
// while it is tracked or authorized, and a repo entry only while it has
// records.
func prune(doc document, repo, branch string) {
	branches, ok := doc[repo]
	if !ok {
		return
	}
	if rec, ok := branches[branch]; ok && !rec.Tracked && !rec.Authorized {
		delete(branches, branch)
	}
	if len(branches) == 0 {
		delete(doc, repo)
	}
}

// Track marks a branch as created by the agent. Idempotent.
func (s *Store) Track(repo, branch string) error {
	return s.update(func(doc document) (bool, error) {
		rec := doc.record(repo, branch)
		if rec.Tracked {
			return false, nil
		}
		rec.Tracked = true
		doc.put(repo, branch, rec)
		return true, nil
	})
}

// Authorize grants a fresh one-time push authorization, replacing any
// existing token.
func (s *Store) Authorize(repo, branch string) error {
	return s.update(func(doc document) (bool, error) {
		rec := doc.record(repo, branch)
		if rec.Authorized {
			return false, nil
		}
		rec.Authorized = true
		doc.put(repo, branch, rec)
		return true, nil
	})
}

// Revoke removes any authorization token. Tracking is untouched; a record
// left with neither flag is deleted.
func (s *Store) Revoke(repo, branch string) error {
	return s.update(func(doc document) (bool, error) {
		rec := doc.record(repo, branch)
		if !rec.Authorized {
			return false, nil
		}
		rec.Authorized = false
		doc.put(repo, branch, rec)
		prune(doc, repo, branch)
		return true, nil
	})
}

// IsTracked reports whether the agent created this branch.
func (s *Store) IsTracked(repo, branch string) (bool, error) {
	var tracked bool
	err := s.update(func(doc document) (bool, error) {
		tracked = doc.record(repo, branch).Tracked
		return false, nil
	})
	return tracked, err
}

// TryConsumeAuthorization atomically checks for an authorization token and
// removes it, reporting whether one was present. This is the only read path
// for authorizations: a token never survives being consulted.
func (s *Store) TryConsumeAuthorization(repo, branch string) (bool, error) {
	var consumed bool
	err := s.update(func(doc document) (bool, error) {
		rec := doc.record(repo, branch)
		if !rec.Authorized {
			return false, nil
		}
		consumed = true
		rec.Authorized = false
		doc.put(repo, branch, rec)
		prune(doc, repo, branch)
		return true, nil
	})
	return consumed, err
}

// List enumerates records, optionally filtered to one repository, in stable
// (repo, branch) order.
func (s *Store) List(repoFilter string) ([]BranchInfo, error) {
	var infos []BranchInfo
	err := s.update(func(doc document) (bool, error) {
		repos := make([]string, 0, len(doc))
		for repo := range doc {
			if repoFilter != "" && repo != repoFilter {
				continue
			}
			repos = append(repos, repo)
		}
		sort.Strings(repos)
		for _, repo := range repos {
			branches := make([]string, 0, len(doc[repo]))
			for branch := range doc[repo] {
				branches = append(branches, branch)
			}
			sort.Strings(branches)
			for _, branch := range branches {
				rec := doc[repo][branch]
				infos = append(infos, BranchInfo{
					Repo:       repo,
					Branch:     branch,
					Tracked:    rec.Tracked,
					Authorized: rec.Authorized,
				})
			}
		}
		return false, nil
	})
	return infos, err
}

// CleanRepo deletes every record of one repository.
func (s *Store) CleanRepo(repo string) error {
	return s.update(func(doc document) (bool, error) {
		if _, ok := doc[repo]; !ok {
			return false, nil
		}
		delete(doc, repo)
		return true, nil
	})
}

// CleanStale deletes records of repositories for which exists returns false,
// returning the removed repository paths.
func (s *Store) CleanStale(exists func(string) bool) ([]string, error) {
	var removed []string
	err := s.update(func(doc document) (bool, error) {
		for repo := range doc {
			if !exists(repo) {
				delete(doc, repo)
				removed = append(removed, repo)
			}
		}
		sort.Strings(removed)
		return len(removed) > 0, nil
	})
	return removed, err
}

func (d document) record(repo, branch string) Record {
	return d[repo][branch]
}

func (d document) put(repo, branch string, rec Record) {
	if d[repo] == nil {
		d[repo] = map[string]Record{}
	}
	d[repo][branch] = rec
}
