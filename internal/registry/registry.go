// pattern: Imperative Shell

package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Sentinel errors for registry lookups and inserts. Callers match with
// errors.Is.
var (
	ErrNotFound = errors.New("environment not found")
	ErrExists   = errors.New("environment already exists")
)

// RepoInstance is a single repository's materialization inside an
// environment. Branch holds the branch actually checked out, which may be
// a synthesized tracking alias rather than the requested name.
type RepoInstance struct {
	Name         string `json:"name"`
	Branch       string `json:"branch"`
	WorktreePath string `json:"worktree_path"`
}

// SymlinkEntry records a symlink created inside an environment. Both paths
// are relative to the environment root.
type SymlinkEntry struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// PRInfo is pull-request provenance attached to review environments.
// Opaque to the core; populated from the hosting provider.
type PRInfo struct {
	Number   int    `json:"number"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	HeadRef  string `json:"head_ref"`
	RepoName string `json:"repo_name"`
}

// Environment is a named, registry-tracked directory of worktrees plus
// generated files and symlinks. Immutable once registered except for
// deletion.
type Environment struct {
	Name           string         `json:"name"`
	Path           string         `json:"path"`
	CreatedAt      string         `json:"created_at"`
	Repos          []RepoInstance `json:"repos"`
	GeneratedFiles []string       `json:"generated_files"`
	Symlinks       []SymlinkEntry `json:"symlinks"`
	PR             *PRInfo        `json:"pr_info,omitempty"`
}

// NewEnvironment constructs an Environment stamped with the current time.
func NewEnvironment(name, path string, repos []RepoInstance, generated []string, symlinks []SymlinkEntry, pr *PRInfo) Environment {
	return Environment{
		Name:           name,
		Path:           path,
		CreatedAt:      time.Now().Format(time.RFC3339),
		Repos:          repos,
		GeneratedFiles: generated,
		Symlinks:       symlinks,
		PR:             pr,
	}
}

// document is the persisted registry format: a version integer plus a
// mapping from environment name to record.
type document struct {
	Version      int                    `json:"version"`
	Environments map[string]Environment `json:"environments"`
}

// Store is the durable registry of environments. The document is loaded
// lazily on first access and rewritten in full on every mutation; the
// in-memory copy is the sole cache and is dropped by Refresh.
type Store struct {
	path string
	doc  *document
}

// NewStore creates a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the registry file path.
func (s *Store) Path() string {
	return s.path
}

// load reads the persisted document. A missing file yields an empty
// version-1 registry; a malformed document is a hard error.
func (s *Store) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &document{Version: 1, Environments: map[string]Environment{}}, nil
		}
		return nil, fmt.Errorf("reading registry: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing registry %s: %w", s.path, err)
	}
	if doc.Version == 0 {
		doc.Version = 1
	}
	if doc.Environments == nil {
		doc.Environments = map[string]Environment{}
	}
	return &doc, nil
}

func (s *Store) get() (*document, error) {
	if s.doc == nil {
		doc, err := s.load()
		if err != nil {
			return nil, err
		}
		s.doc = doc
	}
	return s.doc, nil
}

// save rewrites the entire document. Registry size is bounded by the
// number of environments a single developer maintains, so a full rewrite
// is acceptable.
func (s *Store) save(doc *document) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	return nil
}

// Exists reports whether an environment with the given name is registered.
func (s *Store) Exists(name string) (bool, error) {
	doc, err := s.get()
	if err != nil {
		return false, err
	}
	_, ok := doc.Environments[name]
	return ok, nil
}

// Get returns the environment with the given name.
func (s *Store) Get(name string) (Environment, error) {
	doc, err := s.get()
	if err != nil {
		return Environment{}, err
	}
	env, ok := doc.Environments[name]
	if !ok {
		return Environment{}, fmt.Errorf("environment %q: %w", name, ErrNotFound)
	}
	return env, nil
}

// Add registers an environment and persists the document.
func (s *Store) Add(env Environment) error {
	doc, err := s.get()
	if err != nil {
		return err
	}
	if _, ok := doc.Environments[env.Name]; ok {
		return fmt.Errorf("environment %q: %w", env.Name, ErrExists)
	}
	doc.Environments[env.Name] = env
	return s.save(doc)
}

// Remove deletes an environment record and persists the document.
func (s *Store) Remove(name string) error {
	doc, err := s.get()
	if err != nil {
		return err
	}
	if _, ok := doc.Environments[name]; !ok {
		return fmt.Errorf("environment %q: %w", name, ErrNotFound)
	}
	delete(doc.Environments, name)
	return s.save(doc)
}

// ListAll returns every registered environment, sorted by name.
func (s *Store) ListAll() ([]Environment, error) {
	doc, err := s.get()
	if err != nil {
		return nil, err
	}
	envs := make([]Environment, 0, len(doc.Environments))
	for _, env := range doc.Environments {
		envs = append(envs, env)
	}
	sort.Slice(envs, func(i, j int) bool { return envs[i].Name < envs[j].Name })
	return envs, nil
}

// ListNames returns every registered environment name, sorted.
func (s *Store) ListNames() ([]string, error) {
	doc, err := s.get()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(doc.Environments))
	for name := range doc.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Refresh drops the in-memory cache, forcing the next access to reload
// from disk.
func (s *Store) Refresh() {
	s.doc = nil
}
