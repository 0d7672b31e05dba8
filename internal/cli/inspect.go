// pattern: Imperative Shell
package cli

import (
	"fmt"

	flag "github.com/spf13/pflag"

	"qdpi/internal/config"
	"qdpi/internal/env"
	"qdpi/internal/registry"
)

// repoStatusJSON is the serialized per-repository status used by the
// list and info JSON outputs.
type repoStatusJSON struct {
	Name             string `json:"name"`
	Branch           string `json:"branch"`
	HasUncommitted   bool   `json:"has_uncommitted"`
	UncommittedCount int    `json:"uncommitted_count"`
	CommitsAhead     int    `json:"commits_ahead"`
	CommitsBehind    int    `json:"commits_behind"`
	Error            string `json:"error,omitempty"`
}

func repoStatuses(status env.EnvironmentStatus) []repoStatusJSON {
	out := make([]repoStatusJSON, 0, len(status.Repos))
	for _, r := range status.Repos {
		out = append(out, repoStatusJSON{
			Name:             r.Name,
			Branch:           r.Branch,
			HasUncommitted:   r.Status.HasUncommitted,
			UncommittedCount: r.Status.UncommittedCount,
			CommitsAhead:     r.Status.CommitsAhead,
			CommitsBehind:    r.Status.CommitsBehind,
			Error:            r.Status.Err,
		})
	}
	return out
}

func listCommand(configPath string) *Command {
	return &Command{
		Name:    "list",
		Summary: "List all environments",
		Usage:   "Usage: qdpi list [--json] [--path-only] [--name-only]",
		Run: func(args []string) error {
			fs := flag.NewFlagSet("list", flag.ContinueOnError)
			asJSON := fs.Bool("json", false, "output as JSON")
			pathOnly := fs.Bool("path-only", false, "only print paths (one per line)")
			nameOnly := fs.Bool("name-only", false, "only print names (one per line)")
			if err := fs.Parse(args); err != nil {
				fail(nil, "%v", err)
			}

			ctx, err := newCmdContext(configPath)
			if err != nil {
				fail(nil, "%v", err)
			}
			defer ctx.Close()
			styles := ctx.styles

			environments, err := ctx.manager.ListAll()
			if err != nil {
				fail(styles, "%v", err)
			}

			if len(environments) == 0 {
				if *asJSON {
					fmt.Println("[]")
				} else {
					fmt.Println("No environments found.")
				}
				return nil
			}

			switch {
			case *pathOnly:
				for _, e := range environments {
					fmt.Println(e.Path)
				}
			case *nameOnly:
				for _, e := range environments {
					fmt.Println(e.Name)
				}
			case *asJSON:
				type envJSON struct {
					Name   string           `json:"name"`
					Path   string           `json:"path"`
					Exists bool             `json:"exists"`
					Repos  []repoStatusJSON `json:"repos"`
					PR     *registry.PRInfo `json:"pr_info,omitempty"`
				}
				data := make([]envJSON, 0, len(environments))
				for _, e := range environments {
					status, err := ctx.manager.Status(e.Name)
					if err != nil {
						data = append(data, envJSON{Name: e.Name, Path: e.Path, Repos: []repoStatusJSON{}})
						continue
					}
					data = append(data, envJSON{
						Name:   e.Name,
						Path:   e.Path,
						Exists: status.ExistsOnDisk,
						Repos:  repoStatuses(status),
						PR:     e.PR,
					})
				}
				return PrintJSON(data)
			default:
				printEnvironmentTable(ctx, environments)
			}
			return nil
		},
	}
}

// printEnvironmentTable prints one block per environment with per-repo
// status markers.
func printEnvironmentTable(ctx *cmdContext, environments []registry.Environment) {
	styles := ctx.styles
	for _, e := range environments {
		status, err := ctx.manager.Status(e.Name)
		if err != nil {
			fmt.Printf("%s  %s\n", styles.Accent(e.Name), styles.Error("✗ error"))
			continue
		}
		if !status.ExistsOnDisk {
			fmt.Printf("%s  %s\n", styles.Accent(e.Name), styles.Error("✗ missing"))
			continue
		}

		fmt.Println(styles.Accent(e.Name))
		if e.PR != nil {
			fmt.Println(styles.Dim(fmt.Sprintf("  └─ %q by @%s", e.PR.Title, e.PR.Author)))
		}
		for _, r := range status.Repos {
			fmt.Printf("  %s (%s)  %s\n", r.Name, r.Branch, statusMarker(styles, r))
		}
	}
}

func statusMarker(styles *Styles, r env.RepoStatusInfo) string {
	switch {
	case r.Status.Err != "":
		return styles.Error("✗ error")
	case r.Status.HasUncommitted:
		return styles.Warning(fmt.Sprintf("⚠ uncommitted (%d)", r.Status.UncommittedCount))
	case r.Status.CommitsAhead > 0:
		return styles.Accent(fmt.Sprintf("↑ %d unpushed", r.Status.CommitsAhead))
	default:
		return styles.Success("✓ clean")
	}
}

func infoCommand(configPath string) *Command {
	return &Command{
		Name:    "info",
		Summary: "Show detailed information about an environment",
		Usage:   "Usage: qdpi info <name> [--json]",
		Run: func(args []string) error {
			fs := flag.NewFlagSet("info", flag.ContinueOnError)
			asJSON := fs.Bool("json", false, "output as JSON")
			if err := fs.Parse(args); err != nil {
				fail(nil, "%v", err)
			}
			if fs.NArg() < 1 {
				fail(nil, "environment name is required")
			}
			name := fs.Arg(0)

			ctx, err := newCmdContext(configPath)
			if err != nil {
				fail(nil, "%v", err)
			}
			defer ctx.Close()
			styles := ctx.styles

			environment, err := ctx.manager.Get(name)
			if err != nil {
				fail(styles, "%v", err)
			}
			status, err := ctx.manager.Status(name)
			if err != nil {
				fail(styles, "%v", err)
			}

			if *asJSON {
				return PrintJSON(struct {
					Name           string                  `json:"name"`
					Path           string                  `json:"path"`
					CreatedAt      string                  `json:"created_at"`
					Exists         bool                    `json:"exists"`
					Repos          []repoStatusJSON        `json:"repos"`
					GeneratedFiles []string                `json:"generated_files"`
					Symlinks       []registry.SymlinkEntry `json:"symlinks"`
					PR             *registry.PRInfo        `json:"pr_info,omitempty"`
				}{
					Name:           environment.Name,
					Path:           environment.Path,
					CreatedAt:      environment.CreatedAt,
					Exists:         status.ExistsOnDisk,
					Repos:          repoStatuses(status),
					GeneratedFiles: environment.GeneratedFiles,
					Symlinks:       environment.Symlinks,
					PR:             environment.PR,
				})
			}

			fmt.Printf("\n%s %s\n", styles.Title("Environment:"), environment.Name)
			fmt.Printf("%s %s\n", styles.Title("Path:"), environment.Path)
			fmt.Printf("%s %s\n", styles.Title("Created:"), environment.CreatedAt)

			if environment.PR != nil {
				fmt.Printf("\n%s\n", styles.Title("Pull Request:"))
				fmt.Printf("  #%d: %s\n", environment.PR.Number, environment.PR.Title)
				fmt.Printf("  Author: @%s\n", environment.PR.Author)
				fmt.Printf("  URL: %s\n", environment.PR.URL)
			}

			if !status.ExistsOnDisk {
				fmt.Printf("\n%s\n", styles.Error("⚠ Environment directory is missing!"))
				return nil
			}

			fmt.Printf("\n%s\n", styles.Title("Repositories:"))
			for _, r := range status.Repos {
				fmt.Printf("\n  %s\n", styles.Accent(r.Name))
				fmt.Printf("    Branch: %s\n", r.Branch)
				fmt.Printf("    Status: %s\n", statusMarker(styles, r))
			}

			if len(environment.GeneratedFiles) > 0 {
				fmt.Printf("\n%s\n", styles.Title("Generated Files:"))
				for _, f := range environment.GeneratedFiles {
					fmt.Printf("  - %s\n", f)
				}
			}

			fmt.Printf("\n%s\n", styles.Title("Symlinks:"))
			if len(environment.Symlinks) == 0 {
				fmt.Println("  (none)")
			}
			for _, s := range environment.Symlinks {
				fmt.Printf("  - %s → %s\n", s.Target, s.Source)
			}
			return nil
		},
	}
}

func pathCommand(configPath string) *Command {
	return &Command{
		Name:    "path",
		Summary: "Print the absolute path to an environment",
		Usage:   "Usage: qdpi path <name>",
		Run: func(args []string) error {
			if len(args) < 1 {
				fail(nil, "environment name is required")
			}

			ctx, err := newCmdContext(configPath)
			if err != nil {
				fail(nil, "%v", err)
			}
			defer ctx.Close()

			envPath, err := ctx.manager.Path(args[0])
			if err != nil {
				fail(ctx.styles, "%v", err)
			}
			// Raw path on stdout for shell integration.
			fmt.Println(envPath)
			return nil
		},
	}
}

func configCommand(configPath string) *Command {
	return &Command{
		Name:    "config",
		Summary: "Show current configuration",
		Usage:   "Usage: qdpi config [--path] [--json]",
		Run: func(args []string) error {
			fs := flag.NewFlagSet("config", flag.ContinueOnError)
			pathOnly := fs.Bool("path", false, "only print config file path")
			asJSON := fs.Bool("json", false, "output as JSON")
			if err := fs.Parse(args); err != nil {
				fail(nil, "%v", err)
			}

			if *pathOnly {
				fmt.Println(config.Path())
				return nil
			}

			ctx, err := newCmdContext(configPath)
			if err != nil {
				fail(nil, "%v", err)
			}
			defer ctx.Close()
			cfg := ctx.cfg
			styles := ctx.styles

			if *asJSON {
				return PrintJSON(cfg)
			}

			fmt.Printf("%s %s\n", styles.Title("Configuration File:"), config.Path())
			fmt.Printf("\n%s %s\n", styles.Title("Base Repos Directory:"), cfg.BaseReposDir)
			fmt.Printf("%s %s\n", styles.Title("Environments Directory:"), cfg.EnvironmentsDir)

			fmt.Printf("\n%s\n", styles.Title(fmt.Sprintf("Repositories (%d):", len(cfg.Repositories))))
			for name, repo := range cfg.Repositories {
				fmt.Printf("  %s: %s\n", styles.Accent(name), repo.URL)
			}

			if len(cfg.Templates) > 0 {
				fmt.Printf("\n%s\n", styles.Title(fmt.Sprintf("Templates (%d):", len(cfg.Templates))))
				for _, t := range cfg.Templates {
					fmt.Printf("  %s → %s%s\n", t.Source, t.Destination, whenSuffix(t.When))
				}
			}
			if len(cfg.CopyFiles) > 0 {
				fmt.Printf("\n%s\n", styles.Title(fmt.Sprintf("Copy Files (%d):", len(cfg.CopyFiles))))
				for _, c := range cfg.CopyFiles {
					fmt.Printf("  %s → %s%s\n", c.Source, c.Destination, whenSuffix(c.When))
				}
			}
			if len(cfg.Symlinks) > 0 {
				fmt.Printf("\n%s\n", styles.Title(fmt.Sprintf("Symlinks (%d):", len(cfg.Symlinks))))
				for _, s := range cfg.Symlinks {
					fmt.Printf("  %s → %s%s\n", s.Source, s.Target, whenSuffix(s.When))
				}
			}
			return nil
		},
	}
}

func whenSuffix(when []string) string {
	if len(when) == 0 {
		return ""
	}
	out := " (when: "
	for i, w := range when {
		if i > 0 {
			out += ", "
		}
		out += w
	}
	return out + ")"
}
