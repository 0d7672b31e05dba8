// pattern: Imperative Shell
package cli

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"qdpi/internal/config"
	"qdpi/internal/env"
	"qdpi/internal/instance"
	"qdpi/internal/registry"
	"qdpi/internal/tui"
)

func createCommand(configPath string) *Command {
	return &Command{
		Name:    "create",
		Summary: "Create a new environment",
		Usage:   "Usage: qdpi create <name> -r REPO:BRANCH [-r REPO:BRANCH ...] [--no-fetch] [--no-templates] [-y]",
		Run: func(args []string) error {
			fs := flag.NewFlagSet("create", flag.ContinueOnError)
			repos := fs.StringArrayP("repo", "r", nil, "add repository with branch (REPO:BRANCH, or REPO to pick interactively)")
			noFetch := fs.Bool("no-fetch", false, "skip fetching latest from remotes")
			noTemplates := fs.Bool("no-templates", false, "skip template generation")
			yes := fs.BoolP("yes", "y", false, "skip interactive prompts")
			if err := fs.Parse(args); err != nil {
				fail(nil, "%v", err)
			}

			if fs.NArg() < 1 {
				fmt.Fprintln(os.Stderr, "Usage: qdpi create <name> -r REPO:BRANCH [...]")
				os.Exit(1)
			}
			name := fs.Arg(0)
			if len(*repos) == 0 {
				fail(nil, "at least one --repo is required")
			}

			ctx, err := newCmdContext(configPath)
			if err != nil {
				fail(nil, "%v", err)
			}
			defer ctx.Close()
			styles := ctx.styles

			repoBranches := parseRepoSpecs(*repos, styles)
			resolveBareRepos(ctx, repoBranches, !*noFetch, *yes)

			fl, err := instance.Lock(config.DataDir())
			if err != nil {
				fail(styles, "%v", err)
			}
			defer instance.Unlock(fl)

			environment, err := ctx.manager.Create(name, repoBranches, env.CreateOptions{
				Fetch:           !*noFetch,
				RenderTemplates: !*noTemplates,
				Resolver:        branchResolver(styles, ctx.cfg.Theme, *yes),
			})
			if err != nil {
				fail(styles, "%v", err)
			}

			printCreated(styles, environment, "")
			return nil
		},
	}
}

// resolveBareRepos fills in branches for repositories given without one,
// using concurrent branch discovery plus the interactive picker (or the
// default branch with --yes).
func resolveBareRepos(ctx *cmdContext, repoBranches map[string]string, fetch, assumeYes bool) {
	var bare []string
	for repoName, branch := range repoBranches {
		if branch == "" {
			bare = append(bare, repoName)
		}
	}
	if len(bare) == 0 {
		return
	}

	discovered, err := ctx.manager.DiscoverBranches(bare, fetch)
	if err != nil {
		fail(ctx.styles, "%v", err)
	}

	for _, repoName := range bare {
		branches := discovered[repoName]
		if len(branches) == 0 {
			fail(ctx.styles, "no branches found for %s", repoName)
		}

		preselect := ctx.manager.DefaultBranch(repoName)
		if assumeYes {
			repoBranches[repoName] = preselect
			continue
		}

		title := fmt.Sprintf("Pick a branch for %s", repoName)
		branch, ok := tui.Pick(ctx.cfg.Theme, title, branches, preselect)
		if !ok {
			fail(ctx.styles, "aborted")
		}
		repoBranches[repoName] = branch
	}
}

// printCreated prints the post-creation summary. prRepo marks the
// repository checked out from a pull request, when set.
func printCreated(styles *Styles, environment registry.Environment, prRepo string) {
	fmt.Printf("\n%s %s\n", styles.Success("Environment created:"), environment.Path)
	fmt.Println("\nRepositories:")
	for _, repo := range environment.Repos {
		if repo.Name == prRepo {
			fmt.Printf("  - %s (%s) %s\n", styles.Accent(repo.Name), repo.Branch, styles.Title("← PR"))
		} else {
			fmt.Printf("  - %s (%s)\n", styles.Accent(repo.Name), repo.Branch)
		}
	}
	if len(environment.GeneratedFiles) > 0 {
		fmt.Println("\nGenerated files:")
		for _, f := range environment.GeneratedFiles {
			fmt.Printf("  - %s\n", f)
		}
	}
}
