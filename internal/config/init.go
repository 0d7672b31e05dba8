package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// defaultConfigTemplate is the commented starter config written by Init.
func defaultConfigTemplate() string {
	cfg := DefaultConfig()
	configDir := Dir()

	return fmt.Sprintf(`# qdpi configuration

# Where base repositories are cloned (worktree sources)
# Default: %s
# base_repos_dir: %s

# Where environments are created
# Default: %s
# environments_dir: %s

# Repository definitions
# Key is the repository name (used in commands and templates)
repositories: {}
  # example:
  #   url: git@github.com:your-org/example-repo.git

# Templates to render into environments
templates: []
  # - source: %s/templates/AGENTS.md.tmpl
  #   destination: AGENTS.md
  #   # Optional: only generate when these repos are present
  #   # when: [repo1, repo2]

# Static files to copy (no templating)
copy_files: []
  # - source: %s/files/.editorconfig
  #   destination: .editorconfig
  #   # when: [repo1]

# Symlinks to create between repositories
symlinks: []
  # - source: repo1/shared_module
  #   target: repo2/src/shared_module
  #   when: [repo1, repo2]  # Required: repos that must be present
`,
		cfg.BaseReposDir, cfg.BaseReposDir,
		cfg.EnvironmentsDir, cfg.EnvironmentsDir,
		configDir, configDir)
}

// Init writes the default config file and creates the templates
// directory. Refuses to overwrite an existing config unless force is set.
func Init(force bool) (string, error) {
	path := Path()

	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(filepath.Dir(path), "templates"), 0755); err != nil {
		return "", fmt.Errorf("creating templates directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0644); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}
	return path, nil
}
