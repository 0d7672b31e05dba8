// pattern: Imperative Shell
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"qdpi/internal/config"
	"qdpi/internal/env"
	"qdpi/internal/git"
	"qdpi/internal/logging"
	"qdpi/internal/provision"
	"qdpi/internal/registry"
	"qdpi/internal/tui"
)

// cmdContext wires together everything a command invocation needs:
// configuration, logging, and the environment manager.
type cmdContext struct {
	cfg     config.Config
	styles  *Styles
	manager *env.Manager
	logs    *logging.Manager
}

// newCmdContext loads configuration (from configPath when set, otherwise
// via discovery) and assembles the manager stack.
func newCmdContext(configPath string) (*cmdContext, error) {
	var cfg config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	logs, err := logging.NewManager(logging.Config{
		FilePath:   config.LogPath(),
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 7,
		Level:      cfg.LogLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}

	store := registry.NewStore(config.RegistryPath())
	backend := git.NewBackend()
	engine := provision.NewEngine(logs.For("provision"))
	manager := env.NewManager(&cfg, store, backend, engine, logs.For("env"))

	return &cmdContext{
		cfg:     cfg,
		styles:  NewStyles(cfg.Theme),
		manager: manager,
		logs:    logs,
	}, nil
}

// Close flushes and closes the log file.
func (c *cmdContext) Close() {
	if c.logs != nil {
		_ = c.logs.Close()
	}
}

// fail prints a styled error message to stderr and exits nonzero.
func fail(styles *Styles, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if styles != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", styles.Error("Error:"), msg)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}

// PrintJSON writes v to stdout as indented JSON.
func PrintJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// parseRepoSpecs parses REPO:BRANCH arguments. A bare REPO (no colon)
// maps to an empty branch, which callers resolve interactively.
func parseRepoSpecs(specs []string, styles *Styles) map[string]string {
	repoBranches := make(map[string]string, len(specs))
	for _, spec := range specs {
		repoName, branch, found := strings.Cut(spec, ":")
		if !found {
			repoBranches[spec] = ""
			continue
		}
		if repoName == "" || branch == "" {
			fail(styles, "invalid format: %q (use REPO:BRANCH)", spec)
		}
		repoBranches[repoName] = branch
	}
	return repoBranches
}

// branchResolver builds the missing-branch resolution strategy: with
// assumeYes the default branch is chosen automatically; otherwise the
// interactive picker runs.
func branchResolver(styles *Styles, theme string, assumeYes bool) env.BranchResolver {
	return func(repoName, branch string, available []string) (string, bool) {
		fmt.Println(styles.Warning(fmt.Sprintf("Branch %q does not exist in %s.", branch, repoName)))
		if len(available) == 0 {
			fmt.Println(styles.Error("No branches available."))
			return "", false
		}

		preselect := pickDefault(available)
		if assumeYes {
			fmt.Printf("Using %q as base branch\n", preselect)
			return preselect, true
		}

		title := fmt.Sprintf("Pick a base branch for new branch %q in %s", branch, repoName)
		return tui.Pick(theme, title, available, preselect)
	}
}

// pickDefault prefers main when present, otherwise the first branch.
func pickDefault(available []string) string {
	for _, b := range available {
		if b == "main" {
			return b
		}
	}
	return available[0]
}
