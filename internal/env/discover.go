// pattern: Imperative Shell

package env

import (
	"path/filepath"
	"sync"
)

// DiscoverBranches ensures base clones exist for the given repositories,
// then fetches and lists remote branches for each of them concurrently.
// Concurrency is bounded by the number of repositories; the per-repo
// working directories are disjoint, so no state is shared. A repository
// whose fetch or listing fails contributes an empty list rather than
// blocking or failing the others.
func (m *Manager) DiscoverBranches(repoNames []string, fetch bool) (map[string][]string, error) {
	// Clones are serialized: cloning is the expensive, once-ever step and
	// a configuration error here should fail discovery outright.
	for _, repoName := range repoNames {
		if _, err := m.ensureBaseRepo(repoName); err != nil {
			return nil, err
		}
	}

	results := make([][]string, len(repoNames))

	var wg sync.WaitGroup
	for i, repoName := range repoNames {
		wg.Add(1)
		go func(i int, repoName string) {
			defer wg.Done()
			basePath := filepath.Join(m.cfg.BaseReposDir, repoName)

			if fetch {
				if err := m.git.FetchAll(basePath); err != nil {
					m.logger.Warn("fetch failed during discovery", "repo", repoName, "error", err)
				}
			}

			branches, err := m.git.ListBranches(basePath, true)
			if err != nil {
				m.logger.Warn("branch listing failed", "repo", repoName, "error", err)
				return
			}
			results[i] = branches
		}(i, repoName)
	}
	wg.Wait()

	branches := make(map[string][]string, len(repoNames))
	for i, repoName := range repoNames {
		branches[repoName] = results[i]
	}
	return branches, nil
}

// DefaultBranch returns the default branch of a configured repository's
// base clone, used to pre-select sensible pick-list defaults.
func (m *Manager) DefaultBranch(repoName string) string {
	return m.git.DefaultBranch(filepath.Join(m.cfg.BaseReposDir, repoName))
}
