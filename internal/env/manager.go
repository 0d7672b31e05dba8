// pattern: Imperative Shell

package env

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"qdpi/internal/config"
	"qdpi/internal/git"
	"qdpi/internal/logging"
	"qdpi/internal/provision"
	"qdpi/internal/registry"
)

// Error is the single environment-level error type surfaced by Manager
// operations. It wraps the underlying cause where one exists.
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func errf(err error, format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...), Err: err}
}

// nameRe matches valid environment names: first character alphanumeric or
// underscore, remainder may also contain hyphens.
var nameRe = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_-]*$`)

// ValidateName checks an environment name against the naming grammar.
func ValidateName(name string) error {
	if name == "" {
		return &Error{Msg: "environment name cannot be empty"}
	}
	if !nameRe.MatchString(name) {
		return &Error{Msg: fmt.Sprintf("invalid environment name %q: use only letters, numbers, hyphens, and underscores", name)}
	}
	return nil
}

// BranchResolver decides what to do when a requested branch does not
// exist: it returns the base branch to fork from, or ok=false to abort
// the creation. This is the core's only interactive extension point.
type BranchResolver func(repoName, branch string, available []string) (baseBranch string, ok bool)

// CreateOptions controls optional behavior of Manager.Create.
type CreateOptions struct {
	Fetch           bool            // fetch remotes before resolving branches (best-effort)
	RenderTemplates bool            // apply configured template rules
	Resolver        BranchResolver  // invoked for missing branches; nil aborts on any miss
	PR              *registry.PRInfo // optional provenance attached to the record
}

// Manager orchestrates the environment lifecycle: it composes the git
// backend, the registry, and the provisioning engine to implement
// create, delete, status, and lookup.
type Manager struct {
	cfg    *config.Config
	reg    *registry.Store
	git    *git.Backend
	prov   *provision.Engine
	logger *logging.ScopedLogger
}

// NewManager creates an environment manager.
func NewManager(cfg *config.Config, reg *registry.Store, backend *git.Backend, prov *provision.Engine, logger *logging.ScopedLogger) *Manager {
	return &Manager{
		cfg:    cfg,
		reg:    reg,
		git:    backend,
		prov:   prov,
		logger: logger,
	}
}

// ensureBaseRepo clones the configured repository into the shared base
// directory if it is not already there, returning its path.
func (m *Manager) ensureBaseRepo(repoName string) (string, error) {
	url, ok := m.cfg.RepoURL(repoName)
	if !ok {
		return "", &Error{Msg: fmt.Sprintf("repository %q not found in configuration", repoName)}
	}

	basePath := filepath.Join(m.cfg.BaseReposDir, repoName)
	if _, err := os.Stat(basePath); err == nil {
		return basePath, nil
	}

	if err := os.MkdirAll(m.cfg.BaseReposDir, 0755); err != nil {
		return "", errf(err, "creating base repos directory")
	}

	m.logger.Info("cloning base repository", "repo", repoName, "url", url)
	if err := m.git.Clone(url, basePath); err != nil {
		return "", errf(err, "failed to clone %s", repoName)
	}
	return basePath, nil
}

// resolvedBranch pairs a branch name with the base branch to create it
// from; createFrom is empty when the branch already exists.
type resolvedBranch struct {
	branch     string
	createFrom string
}

// Create provisions a new environment: base clones, optional fetch,
// branch resolution, worktrees, symlinks, templates, copies, and finally
// the registry commit. Any fatal failure after the environment directory
// is created triggers best-effort removal of that directory; the registry
// is never touched until the final commit.
func (m *Manager) Create(name string, repoBranches map[string]string, opts CreateOptions) (registry.Environment, error) {
	if err := ValidateName(name); err != nil {
		return registry.Environment{}, err
	}

	exists, err := m.reg.Exists(name)
	if err != nil {
		return registry.Environment{}, errf(err, "loading registry")
	}
	if exists {
		return registry.Environment{}, &Error{Msg: fmt.Sprintf("environment %q already exists", name)}
	}

	envPath := filepath.Join(m.cfg.EnvironmentsDir, name)
	if _, err := os.Stat(envPath); err == nil {
		return registry.Environment{}, &Error{Msg: fmt.Sprintf("directory already exists: %s", envPath)}
	}

	repoNames := sortedKeys(repoBranches)

	// Pre-flight: every requested repository must be configured before
	// any work starts.
	for _, repoName := range repoNames {
		if _, ok := m.cfg.RepoURL(repoName); !ok {
			return registry.Environment{}, &Error{Msg: fmt.Sprintf("repository %q not found in configuration", repoName)}
		}
	}

	for _, repoName := range repoNames {
		if _, err := m.ensureBaseRepo(repoName); err != nil {
			return registry.Environment{}, err
		}
	}

	if opts.Fetch {
		for _, repoName := range repoNames {
			basePath := filepath.Join(m.cfg.BaseReposDir, repoName)
			if err := m.git.FetchAll(basePath); err != nil {
				// Staleness is acceptable; a transient fetch failure is not
				// worth failing the whole operation.
				m.logger.Warn("fetch failed", "repo", repoName, "error", err)
			}
		}
	}

	resolved := make(map[string]resolvedBranch, len(repoNames))
	for _, repoName := range repoNames {
		branch := repoBranches[repoName]
		basePath := filepath.Join(m.cfg.BaseReposDir, repoName)

		if m.git.BranchExists(basePath, branch) {
			resolved[repoName] = resolvedBranch{branch: branch}
			continue
		}

		if opts.Resolver == nil {
			return registry.Environment{}, &Error{Msg: fmt.Sprintf("branch %q does not exist in %s", branch, repoName)}
		}

		available, err := m.git.ListBranches(basePath, true)
		if err != nil {
			return registry.Environment{}, errf(err, "listing branches of %s", repoName)
		}
		base, ok := opts.Resolver(repoName, branch, available)
		if !ok {
			return registry.Environment{}, &Error{Msg: fmt.Sprintf("branch %q does not exist in %s", branch, repoName)}
		}
		resolved[repoName] = resolvedBranch{branch: branch, createFrom: base}
	}

	// Only now is anything created on disk, so a failed resolution
	// leaves no directory behind.
	if err := os.MkdirAll(envPath, 0755); err != nil {
		return registry.Environment{}, errf(err, "creating environment directory")
	}

	env, err := m.populate(name, envPath, repoNames, resolved, opts)
	if err != nil {
		// Best-effort rollback; the registry has not been written.
		_ = os.RemoveAll(envPath)
		return registry.Environment{}, err
	}
	return env, nil
}

// populate runs the on-disk half of the creation transaction. The caller
// removes envPath when it returns an error.
func (m *Manager) populate(name, envPath string, repoNames []string, resolved map[string]resolvedBranch, opts CreateOptions) (registry.Environment, error) {
	instances := make([]registry.RepoInstance, 0, len(repoNames))
	for _, repoName := range repoNames {
		rb := resolved[repoName]
		worktreePath := filepath.Join(envPath, repoName)
		basePath := filepath.Join(m.cfg.BaseReposDir, repoName)

		actual, err := m.git.CreateWorktree(basePath, rb.branch, worktreePath, rb.createFrom)
		if err != nil {
			return registry.Environment{}, errf(err, "creating worktree for %s", repoName)
		}
		if actual != rb.branch {
			m.logger.Info("branch aliased", "repo", repoName, "requested", rb.branch, "actual", actual)
		}

		instances = append(instances, registry.RepoInstance{
			Name:         repoName,
			Branch:       actual,
			WorktreePath: worktreePath,
		})
	}

	present := make(map[string]bool, len(repoNames))
	for _, repoName := range repoNames {
		present[repoName] = true
	}

	symlinks, err := m.prov.ApplySymlinks(envPath, m.cfg.Symlinks, present)
	if err != nil {
		return registry.Environment{}, errf(err, "creating symlinks")
	}

	var generated []string
	if opts.RenderTemplates {
		generated = m.prov.RenderTemplates(envPath, m.cfg.Templates, provision.Context{
			EnvName:   name,
			EnvPath:   envPath,
			CreatedAt: time.Now().Format(time.RFC3339),
			Repos:     instances,
			Symlinks:  symlinks,
		})
	}

	if err := m.prov.CopyFiles(envPath, m.cfg.CopyFiles, present); err != nil {
		return registry.Environment{}, errf(err, "copying files")
	}

	env := registry.NewEnvironment(name, envPath, instances, generated, symlinks, opts.PR)
	if err := m.reg.Add(env); err != nil {
		return registry.Environment{}, errf(err, "registering environment")
	}

	m.logger.Info("environment created", "name", name, "path", envPath, "repos", len(instances))
	return env, nil
}

// Delete tears an environment down: worktrees, directory, registry
// record. Without force it refuses when any repository carries
// uncommitted changes or unpushed commits.
func (m *Manager) Delete(name string, force bool) error {
	env, err := m.reg.Get(name)
	if err != nil {
		return errf(err, "deleting environment")
	}

	if _, statErr := os.Stat(env.Path); !force && statErr == nil {
		status, err := m.Status(name)
		if err != nil {
			return err
		}

		var dirty []string
		for _, r := range status.Repos {
			if r.Status.HasUncommitted || r.Status.CommitsAhead > 0 {
				dirty = append(dirty, fmt.Sprintf("%s (%d unpushed, %d uncommitted)",
					r.Name, r.Status.CommitsAhead, r.Status.UncommittedCount))
			}
		}
		if len(dirty) > 0 {
			return &Error{Msg: fmt.Sprintf("environment has unpushed changes: %s (use --force to delete anyway)", strings.Join(dirty, ", "))}
		}
	}

	// Teardown from here on is best-effort throughout: a stuck worktree
	// must not leave the environment half-deleted and undeletable.
	for _, repo := range env.Repos {
		basePath := filepath.Join(m.cfg.BaseReposDir, repo.Name)
		if _, err := os.Stat(basePath); err != nil {
			continue
		}
		if err := m.git.RemoveWorktree(basePath, repo.WorktreePath, force); err != nil {
			m.logger.Warn("worktree removal failed", "repo", repo.Name, "error", err)
		}
		if err := m.git.PruneWorktrees(basePath); err != nil {
			m.logger.Warn("worktree prune failed", "repo", repo.Name, "error", err)
		}
	}

	if err := os.RemoveAll(env.Path); err != nil {
		m.logger.Warn("environment directory removal failed", "path", env.Path, "error", err)
	}

	if err := m.reg.Remove(name); err != nil && !errors.Is(err, registry.ErrNotFound) {
		m.logger.Warn("registry removal failed", "name", name, "error", err)
	}

	m.logger.Info("environment deleted", "name", name)
	return nil
}

// RepoStatusInfo is a repository's live status annotated with its
// registered name and branch.
type RepoStatusInfo struct {
	Name   string
	Branch string
	Status git.Status
}

// EnvironmentStatus aggregates live repository status for one
// environment.
type EnvironmentStatus struct {
	Name         string
	Path         string
	ExistsOnDisk bool
	Repos        []RepoStatusInfo
}

// Status computes live status for every repository in the environment.
// A missing worktree yields a degenerate entry carrying the error
// "Worktree not found"; aggregation never fails for one repository.
func (m *Manager) Status(name string) (EnvironmentStatus, error) {
	env, err := m.reg.Get(name)
	if err != nil {
		return EnvironmentStatus{}, errf(err, "loading environment")
	}

	_, statErr := os.Stat(env.Path)
	status := EnvironmentStatus{
		Name:         name,
		Path:         env.Path,
		ExistsOnDisk: statErr == nil,
	}

	for _, repo := range env.Repos {
		var st git.Status
		if _, err := os.Stat(repo.WorktreePath); err == nil {
			st = m.git.Status(repo.WorktreePath)
		} else {
			st = git.Status{Branch: repo.Branch, Err: "Worktree not found"}
		}
		status.Repos = append(status.Repos, RepoStatusInfo{
			Name:   repo.Name,
			Branch: repo.Branch,
			Status: st,
		})
	}
	return status, nil
}

// ListAll returns every registered environment.
func (m *Manager) ListAll() ([]registry.Environment, error) {
	envs, err := m.reg.ListAll()
	if err != nil {
		return nil, errf(err, "loading registry")
	}
	return envs, nil
}

// Get returns the registered record for an environment.
func (m *Manager) Get(name string) (registry.Environment, error) {
	env, err := m.reg.Get(name)
	if err != nil {
		return registry.Environment{}, errf(err, "loading environment")
	}
	return env, nil
}

// Path returns the directory of a registered environment.
func (m *Manager) Path(name string) (string, error) {
	env, err := m.Get(name)
	if err != nil {
		return "", err
	}
	return env.Path, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

