// pattern: Imperative Shell

package github

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// ParsedPR is a pull-request reference resolved to its repository
// coordinates.
type ParsedPR struct {
	Owner  string
	Repo   string
	Number int
}

// FullName returns the owner/repo form.
func (p ParsedPR) FullName() string {
	return p.Owner + "/" + p.Repo
}

// Ref returns the owner/repo#number form used in messages.
func (p ParsedPR) Ref() string {
	return fmt.Sprintf("%s#%d", p.FullName(), p.Number)
}

var (
	httpsRepoRe = regexp.MustCompile(`^https?://github\.com/([^/]+/[^/]+?)(?:\.git)?/?$`)
	prURLRe     = regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/]+)/pull/(\d+)(?:/.*)?$`)
	shorthandRe = regexp.MustCompile(`^([a-zA-Z0-9_-]+)#(\d+)$`)
)

// ParseRepoURL extracts "owner/repo" from a GitHub clone URL. Both SSH
// (git@github.com:owner/repo.git) and HTTPS forms are supported.
func ParseRepoURL(url string) (string, bool) {
	if rest, ok := strings.CutPrefix(url, "git@github.com:"); ok {
		rest = strings.TrimSuffix(rest, ".git")
		if parts := strings.Split(rest, "/"); len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			return rest, true
		}
		return "", false
	}

	if m := httpsRepoRe.FindStringSubmatch(url); m != nil {
		return m[1], true
	}
	return "", false
}

// ParsePRURL parses a full GitHub pull-request URL, tolerating trailing
// path segments like /files or /commits.
func ParsePRURL(url string) (ParsedPR, bool) {
	m := prURLRe.FindStringSubmatch(url)
	if m == nil {
		return ParsedPR{}, false
	}
	number, _ := strconv.Atoi(m[3])
	return ParsedPR{Owner: m[1], Repo: m[2], Number: number}, true
}

// ParsePRShorthand parses a "repo#123" shorthand against the configured
// repository URLs.
func ParsePRShorthand(shorthand string, repoURLs map[string]string) (ParsedPR, bool) {
	m := shorthandRe.FindStringSubmatch(shorthand)
	if m == nil {
		return ParsedPR{}, false
	}

	url, ok := repoURLs[m[1]]
	if !ok {
		return ParsedPR{}, false
	}
	fullName, ok := ParseRepoURL(url)
	if !ok {
		return ParsedPR{}, false
	}

	parts := strings.Split(fullName, "/")
	number, _ := strconv.Atoi(m[2])
	return ParsedPR{Owner: parts[0], Repo: parts[1], Number: number}, true
}

// ParsePRReference accepts either a full PR URL or a shorthand.
func ParsePRReference(reference string, repoURLs map[string]string) (ParsedPR, bool) {
	if pr, ok := ParsePRURL(reference); ok {
		return pr, true
	}
	if strings.Contains(reference, "#") {
		return ParsePRShorthand(reference, repoURLs)
	}
	return ParsedPR{}, false
}

// Metadata is the pull-request metadata fetched from the hosting
// provider. The core consumes it as opaque provenance.
type Metadata struct {
	Number  int
	Title   string
	Author  string
	HeadRef string
	URL     string
}

// Runner executes a gh subcommand and returns its stdout. Injected for
// testing.
type Runner func(args ...string) (string, error)

func execGH(args ...string) (string, error) {
	cmd := exec.Command("gh", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			return "", fmt.Errorf("gh CLI not found; install it from https://cli.github.com/")
		}
		return "", fmt.Errorf("gh %s: %s", strings.Join(args, " "), strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Client wraps the gh CLI.
type Client struct {
	run Runner
}

// NewClient creates a Client that shells out to the gh binary.
func NewClient() *Client {
	return &Client{run: execGH}
}

// NewClientWithRunner creates a Client with the given runner (for testing).
func NewClientWithRunner(run Runner) *Client {
	return &Client{run: run}
}

// CheckAuth reports whether the gh CLI has valid credentials.
func (c *Client) CheckAuth() bool {
	_, err := c.run("auth", "status")
	return err == nil
}

// PRMetadata fetches pull-request metadata for the given reference.
func (c *Client) PRMetadata(pr ParsedPR) (Metadata, error) {
	out, err := c.run(
		"pr", "view", strconv.Itoa(pr.Number),
		"--repo", pr.FullName(),
		"--json", "number,title,author,headRefName,url",
	)
	if err != nil {
		return Metadata{}, err
	}

	var payload struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
		Author struct {
			Login string `json:"login"`
		} `json:"author"`
		HeadRefName string `json:"headRefName"`
		URL         string `json:"url"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		return Metadata{}, fmt.Errorf("parsing PR metadata for %s: %w", pr.Ref(), err)
	}

	return Metadata{
		Number:  payload.Number,
		Title:   payload.Title,
		Author:  payload.Author.Login,
		HeadRef: payload.HeadRefName,
		URL:     payload.URL,
	}, nil
}
