// pattern: Imperative Shell

package git

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
)

// CommandError is returned when a required git invocation exits nonzero.
// It carries the full argument list and captured stderr for diagnostics.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("git %s: %s", strings.Join(e.Args, " "), e.Stderr)
	}
	return fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Runner executes a git subcommand in dir and returns its stdout.
// A nonzero exit returns a *CommandError. Injected for testing.
type Runner func(dir string, args ...string) (string, error)

// execGit runs git as a subprocess, capturing stdout and stderr separately.
func execGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &CommandError{
			Args:   args,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return stdout.String(), nil
}

// Backend issues git subcommands against base repositories and worktrees.
// It is stateless; every operation is parametrized by a working directory.
type Backend struct {
	run Runner
}

// NewBackend creates a Backend that shells out to the git binary.
func NewBackend() *Backend {
	return &Backend{run: execGit}
}

// NewBackendWithRunner creates a Backend with the given runner (for testing).
func NewBackendWithRunner(run Runner) *Backend {
	return &Backend{run: run}
}

// Clone clones a repository into dest.
func (b *Backend) Clone(url, dest string) error {
	_, err := b.run("", "clone", url, dest)
	return err
}

// FetchAll fetches every remote and prunes stale remote refs.
// Callers treat fetch as best-effort; the error is informational.
func (b *Backend) FetchAll(path string) error {
	_, err := b.run(path, "fetch", "--all", "--prune")
	return err
}

// CurrentBranch returns the checked-out branch name, or "" for a
// detached HEAD.
func (b *Backend) CurrentBranch(path string) (string, error) {
	out, err := b.run(path, "branch", "--show-current")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// DefaultBranch returns the repository's default branch, resolved from
// the remote HEAD when possible, falling back to main/master probing.
func (b *Backend) DefaultBranch(path string) string {
	out, err := b.run(path, "symbolic-ref", "refs/remotes/origin/HEAD")
	if err == nil {
		// Output looks like "refs/remotes/origin/main"
		ref := strings.TrimSpace(out)
		if i := strings.LastIndex(ref, "/"); i >= 0 {
			return ref[i+1:]
		}
	}

	for _, branch := range []string{"main", "master"} {
		if _, err := b.run(path, "rev-parse", "--verify", "origin/"+branch); err == nil {
			return branch
		}
	}

	return "main"
}

// BranchExists reports whether branch resolves locally or as origin/<branch>.
func (b *Backend) BranchExists(path, branch string) bool {
	if _, err := b.run(path, "rev-parse", "--verify", branch); err == nil {
		return true
	}
	_, err := b.run(path, "rev-parse", "--verify", "origin/"+branch)
	return err == nil
}

// ListBranches returns the deduplicated, sorted set of branch short-names.
// The symbolic HEAD pointer is excluded and the origin/ prefix stripped.
func (b *Backend) ListBranches(path string, remoteOnly bool) ([]string, error) {
	args := []string{"branch", "-r", "--format=%(refname:short)"}
	if !remoteOnly {
		args = []string{"branch", "-a", "--format=%(refname:short)"}
	}

	out, err := b.run(path, args...)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var branches []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" || strings.HasSuffix(line, "/HEAD") {
			continue
		}
		branch := strings.TrimPrefix(line, "origin/")
		if !seen[branch] {
			seen[branch] = true
			branches = append(branches, branch)
		}
	}
	sort.Strings(branches)
	return branches, nil
}

// IsBranchCheckedOutElsewhere reports whether branch is the checked-out
// branch of any worktree attached to the base repository.
func (b *Backend) IsBranchCheckedOutElsewhere(path, branch string) (bool, error) {
	out, err := b.run(path, "worktree", "list", "--porcelain")
	if err != nil {
		return false, err
	}

	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if !strings.HasPrefix(line, "branch ") {
			continue
		}
		// Format: "branch refs/heads/feature-x"
		ref := strings.TrimPrefix(line, "branch ")
		if strings.TrimPrefix(ref, "refs/heads/") == branch {
			return true, nil
		}
	}
	return false, nil
}

// TrackingBranchName generates a collision-free alias of the form
// tracking/<random-8-hex>/<branch>.
func TrackingBranchName(branch string) string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("tracking/%s/%s", hex.EncodeToString(buf), branch)
}

// CreateWorktree attaches a worktree for branch at dest and returns the
// actual branch name checked out, which may differ from the requested one:
//
//  1. With createFrom set, a new branch named branch is created from
//     origin/<createFrom>.
//  2. If branch is already checked out in another worktree, a synthesized
//     tracking branch is created from origin/<branch> and returned instead;
//     git forbids the same branch in two worktrees.
//  3. Otherwise the existing local branch is attached directly.
func (b *Backend) CreateWorktree(baseRepo, branch, dest, createFrom string) (string, error) {
	if createFrom != "" {
		_, err := b.run(baseRepo, "worktree", "add", "-b", branch, dest, "origin/"+createFrom)
		if err != nil {
			return "", err
		}
		return branch, nil
	}

	elsewhere, err := b.IsBranchCheckedOutElsewhere(baseRepo, branch)
	if err != nil {
		return "", err
	}
	if elsewhere {
		tracking := TrackingBranchName(branch)
		_, err := b.run(baseRepo, "worktree", "add", "-b", tracking, dest, "origin/"+branch)
		if err != nil {
			return "", err
		}
		return tracking, nil
	}

	if _, err := b.run(baseRepo, "worktree", "add", dest, branch); err != nil {
		return "", err
	}
	return branch, nil
}

// RemoveWorktree detaches a worktree from its base repository.
func (b *Backend) RemoveWorktree(baseRepo, worktreePath string, force bool) error {
	args := []string{"worktree", "remove", worktreePath}
	if force {
		args = append(args, "--force")
	}
	_, err := b.run(baseRepo, args...)
	return err
}

// PruneWorktrees drops stale worktree metadata from the base repository.
func (b *Backend) PruneWorktrees(baseRepo string) error {
	_, err := b.run(baseRepo, "worktree", "prune")
	return err
}

// Status holds a transient snapshot of a repository's state. It is
// recomputed on every request and never persisted.
type Status struct {
	Branch           string
	HasUncommitted   bool
	UncommittedCount int
	CommitsAhead     int
	CommitsBehind    int
	Err              string
}

// Status computes a snapshot for the repository at path. Underlying
// failures are reported in the Err field rather than returned, so that
// aggregation across many repositories never aborts early.
func (b *Backend) Status(path string) Status {
	var st Status

	out, err := b.run(path, "branch", "--show-current")
	if err != nil {
		st.Err = err.Error()
		return st
	}
	st.Branch = strings.TrimSpace(out)

	out, err = b.run(path, "status", "--porcelain")
	if err != nil {
		st.Err = err.Error()
		return st
	}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line != "" {
			st.UncommittedCount++
		}
	}
	st.HasUncommitted = st.UncommittedCount > 0

	// No upstream configured is not an error; ahead/behind stay zero.
	out, err = b.run(path, "rev-list", "--left-right", "--count", "@{u}...HEAD")
	if err == nil {
		parts := strings.Split(strings.TrimSpace(out), "\t")
		if len(parts) == 2 {
			st.CommitsBehind, _ = strconv.Atoi(parts[0])
			st.CommitsAhead, _ = strconv.Atoi(parts[1])
		}
	}

	return st
}
