package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFrom(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
base_repos_dir: /data/repos
environments_dir: /data/envs
log_level: debug
theme: latte
repositories:
  alpha:
    url: git@github.com:org/alpha.git
  beta:
    url: https://github.com/org/beta.git
templates:
  - source: /cfg/templates/compose.yml.tmpl
    destination: docker-compose.yml
    when: [alpha, beta]
copy_files:
  - source: /cfg/files/.editorconfig
    destination: .editorconfig
symlinks:
  - source: alpha/shared
    target: beta/src/shared
    when: [alpha, beta]
`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	if cfg.BaseReposDir != "/data/repos" || cfg.EnvironmentsDir != "/data/envs" {
		t.Errorf("dirs = %q, %q", cfg.BaseReposDir, cfg.EnvironmentsDir)
	}
	if cfg.LogLevel != "debug" || cfg.Theme != "latte" {
		t.Errorf("log_level=%q theme=%q", cfg.LogLevel, cfg.Theme)
	}

	url, ok := cfg.RepoURL("alpha")
	if !ok || url != "git@github.com:org/alpha.git" {
		t.Errorf("RepoURL(alpha) = %q, %v", url, ok)
	}
	if _, ok := cfg.RepoURL("gamma"); ok {
		t.Error("RepoURL(gamma) reported ok for unconfigured repo")
	}
	if urls := cfg.RepoURLs(); len(urls) != 2 || urls["beta"] != "https://github.com/org/beta.git" {
		t.Errorf("RepoURLs = %v", urls)
	}

	if len(cfg.Templates) != 1 || cfg.Templates[0].Destination != "docker-compose.yml" {
		t.Errorf("Templates = %+v", cfg.Templates)
	}
	if len(cfg.Symlinks) != 1 || len(cfg.Symlinks[0].When) != 2 {
		t.Errorf("Symlinks = %+v", cfg.Symlinks)
	}
}

func TestLoadFromDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "repositories: {}\n")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Theme != "mocha" {
		t.Errorf("Theme default = %q, want mocha", cfg.Theme)
	}
	if cfg.BaseReposDir == "" || cfg.EnvironmentsDir == "" {
		t.Errorf("directory defaults missing: %q, %q", cfg.BaseReposDir, cfg.EnvironmentsDir)
	}
}

func TestLoadFromExpandsTilde(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
base_repos_dir: ~/repos
environments_dir: ~/envs
copy_files:
  - source: ~/shared/.env
    destination: .env
`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if cfg.BaseReposDir != filepath.Join(home, "repos") {
		t.Errorf("BaseReposDir = %q", cfg.BaseReposDir)
	}
	if cfg.CopyFiles[0].Source != filepath.Join(home, "shared/.env") {
		t.Errorf("copy source = %q", cfg.CopyFiles[0].Source)
	}
}

func TestLoadFromInvalidYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "repositories: [not: a: map\n")

	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFindConfigFileLocalWins(t *testing.T) {
	global := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", global)
	if err := os.MkdirAll(filepath.Join(global, "qdpi"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(global, "qdpi", "config.yaml"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	local := t.TempDir()
	if err := os.WriteFile(filepath.Join(local, localConfigName), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(local)

	got := FindConfigFile()
	if filepath.Base(got) != localConfigName {
		t.Errorf("FindConfigFile = %q, want local %s", got, localConfigName)
	}
}

func TestInit(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path, err := Init(false)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(path), "templates")); err != nil {
		t.Errorf("templates directory not created: %v", err)
	}

	// The starter config must itself parse.
	if _, err := LoadFrom(path); err != nil {
		t.Errorf("generated config does not load: %v", err)
	}

	if _, err := Init(false); err == nil || !strings.Contains(err.Error(), "--force") {
		t.Errorf("second Init = %v, want refusal mentioning --force", err)
	}
	if _, err := Init(true); err != nil {
		t.Errorf("forced Init failed: %v", err)
	}
}

func TestPathsHonorXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_DATA_HOME", "/xdg/data")

	if got := Path(); got != "/xdg/config/qdpi/config.yaml" {
		t.Errorf("Path = %q", got)
	}
	if got := RegistryPath(); got != "/xdg/data/qdpi/registry.json" {
		t.Errorf("RegistryPath = %q", got)
	}
	if got := LogPath(); got != "/xdg/data/qdpi/qdpi.log" {
		t.Errorf("LogPath = %q", got)
	}
}
