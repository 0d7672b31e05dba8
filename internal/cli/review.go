// pattern: Imperative Shell
package cli

import (
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"qdpi/internal/config"
	"qdpi/internal/env"
	"qdpi/internal/github"
	"qdpi/internal/instance"
	"qdpi/internal/registry"
)

func reviewCommand(configPath string) *Command {
	return &Command{
		Name:    "review",
		Summary: "Create a review environment for a GitHub PR",
		Usage:   "Usage: qdpi review <pr-url | repo#123> [-r REPO:BRANCH ...] [--name NAME] [--no-fetch] [--no-templates]",
		Run: func(args []string) error {
			fs := flag.NewFlagSet("review", flag.ContinueOnError)
			repos := fs.StringArrayP("repo", "r", nil, "add companion repository with branch (REPO:BRANCH)")
			name := fs.StringP("name", "n", "", "custom environment name (default: pr-<number>)")
			noFetch := fs.Bool("no-fetch", false, "skip fetching latest from remotes")
			noTemplates := fs.Bool("no-templates", false, "skip template generation")
			yes := fs.BoolP("yes", "y", false, "skip interactive prompts")
			if err := fs.Parse(args); err != nil {
				fail(nil, "%v", err)
			}

			if fs.NArg() < 1 {
				fmt.Fprintln(os.Stderr, "Usage: qdpi review <pr-url | repo#123> [options]")
				os.Exit(1)
			}
			prRef := fs.Arg(0)

			ctx, err := newCmdContext(configPath)
			if err != nil {
				fail(nil, "%v", err)
			}
			defer ctx.Close()
			styles := ctx.styles

			parsed, ok := github.ParsePRReference(prRef, ctx.cfg.RepoURLs())
			if !ok {
				fail(styles, "invalid PR reference: %q (use a GitHub PR URL or shorthand like 'backend#123')", prRef)
			}

			repoName := configRepoFor(&ctx.cfg, parsed.FullName())
			if repoName == "" {
				fail(styles, "repository %q not found in configuration", parsed.FullName())
			}

			client := github.NewClient()
			if !client.CheckAuth() {
				fail(styles, "gh CLI is not authenticated; run 'gh auth login'")
			}

			metadata, err := client.PRMetadata(parsed)
			if err != nil {
				fail(styles, "%v", err)
			}

			fmt.Printf("%s %s\n", styles.Title(fmt.Sprintf("PR #%d:", metadata.Number)), metadata.Title)
			fmt.Printf("%s %s\n", styles.Dim("Branch:"), metadata.HeadRef)
			fmt.Printf("%s @%s\n\n", styles.Dim("Author:"), metadata.Author)

			envName := *name
			if envName == "" {
				envName = fmt.Sprintf("pr-%d", parsed.Number)
			}

			repoBranches := map[string]string{repoName: metadata.HeadRef}
			for extra, branch := range parseRepoSpecs(*repos, styles) {
				if branch == "" {
					fail(styles, "companion repositories need an explicit branch: %q", extra)
				}
				repoBranches[extra] = branch
			}

			fl, err := instance.Lock(config.DataDir())
			if err != nil {
				fail(styles, "%v", err)
			}
			defer instance.Unlock(fl)

			environment, err := ctx.manager.Create(envName, repoBranches, env.CreateOptions{
				Fetch:           !*noFetch,
				RenderTemplates: !*noTemplates,
				Resolver:        branchResolver(styles, ctx.cfg.Theme, *yes),
				PR: &registry.PRInfo{
					Number:   metadata.Number,
					URL:      metadata.URL,
					Title:    metadata.Title,
					Author:   metadata.Author,
					HeadRef:  metadata.HeadRef,
					RepoName: repoName,
				},
			})
			if err != nil {
				fail(styles, "%v", err)
			}

			printCreated(styles, environment, repoName)
			return nil
		},
	}
}

// configRepoFor maps a GitHub owner/repo back to the configured
// repository name whose clone URL points at it.
func configRepoFor(cfg *config.Config, fullName string) string {
	for repoName, url := range cfg.RepoURLs() {
		if parsed, ok := github.ParseRepoURL(url); ok && strings.EqualFold(parsed, fullName) {
			return repoName
		}
	}
	return ""
}
