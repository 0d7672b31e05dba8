package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// RepoConfig describes a single configured repository.
type RepoConfig struct {
	URL string `yaml:"url"`
}

// TemplateRule renders a template into the environment when every
// repository in When is present. An empty When always applies.
type TemplateRule struct {
	Source      string   `yaml:"source"`
	Destination string   `yaml:"destination"`
	When        []string `yaml:"when"`
}

// CopyRule copies a static file into the environment, gated like
// TemplateRule.
type CopyRule struct {
	Source      string   `yaml:"source"`
	Destination string   `yaml:"destination"`
	When        []string `yaml:"when"`
}

// SymlinkRule creates a symlink between repositories inside an
// environment. Source and Target are relative to the environment root;
// When is required.
type SymlinkRule struct {
	Source string   `yaml:"source"`
	Target string   `yaml:"target"`
	When   []string `yaml:"when"`
}

// Config is the top-level qdpi configuration.
type Config struct {
	BaseReposDir    string                `yaml:"base_repos_dir"`
	EnvironmentsDir string                `yaml:"environments_dir"`
	LogLevel        string                `yaml:"log_level"`
	Theme           string                `yaml:"theme"`
	Repositories    map[string]RepoConfig `yaml:"repositories"`
	Templates       []TemplateRule        `yaml:"templates"`
	CopyFiles       []CopyRule            `yaml:"copy_files"`
	Symlinks        []SymlinkRule         `yaml:"symlinks"`
}

// localConfigName is checked in the working directory before the global
// config; a local file completely overrides the global one.
const localConfigName = ".qdpi.yaml"

func DefaultConfig() Config {
	return Config{
		BaseReposDir:    filepath.Join(DataDir(), "repos"),
		EnvironmentsDir: expandPath("~/qdpi-envs"),
		Theme:           "mocha",
	}
}

// FindConfigFile locates the effective config file: a local .qdpi.yaml in
// the current directory wins over the global config. Returns "" when
// neither exists.
func FindConfigFile() string {
	if cwd, err := os.Getwd(); err == nil {
		local := filepath.Join(cwd, localConfigName)
		if _, err := os.Stat(local); err == nil {
			return local
		}
	}

	global := Path()
	if _, err := os.Stat(global); err == nil {
		return global
	}
	return ""
}

// Load reads the effective configuration. A missing config file is an
// error pointing the user at qdpi init.
func Load() (Config, error) {
	path := FindConfigFile()
	if path == "" {
		return DefaultConfig(), fmt.Errorf("no configuration file found; run 'qdpi init' to create one at %s", Path())
	}
	return LoadFrom(path)
}

// LoadFrom reads and validates the configuration at configPath.
func LoadFrom(configPath string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("invalid YAML in %s: %w", configPath, err)
	}

	cfg.BaseReposDir = expandPath(cfg.BaseReposDir)
	cfg.EnvironmentsDir = expandPath(cfg.EnvironmentsDir)
	for i := range cfg.Templates {
		cfg.Templates[i].Source = expandPath(cfg.Templates[i].Source)
	}
	for i := range cfg.CopyFiles {
		cfg.CopyFiles[i].Source = expandPath(cfg.CopyFiles[i].Source)
	}

	if cfg.Theme == "" {
		cfg.Theme = "mocha"
	}

	return cfg, nil
}

// RepoURL returns the clone URL of a configured repository.
func (c *Config) RepoURL(name string) (string, bool) {
	repo, ok := c.Repositories[name]
	return repo.URL, ok
}

// RepoURLs returns the name -> clone URL mapping for all configured
// repositories.
func (c *Config) RepoURLs() map[string]string {
	urls := make(map[string]string, len(c.Repositories))
	for name, repo := range c.Repositories {
		urls[name] = repo.URL
	}
	return urls
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
