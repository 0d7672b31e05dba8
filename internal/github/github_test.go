package github

import (
	"errors"
	"strings"
	"testing"
)

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
		ok   bool
	}{
		{"git@github.com:org/alpha.git", "org/alpha", true},
		{"git@github.com:org/alpha", "org/alpha", true},
		{"https://github.com/org/alpha.git", "org/alpha", true},
		{"https://github.com/org/alpha", "org/alpha", true},
		{"https://github.com/org/alpha/", "org/alpha", true},
		{"http://github.com/org/alpha", "org/alpha", true},
		{"git@github.com:missing-repo", "", false},
		{"https://gitlab.com/org/alpha", "", false},
		{"not a url", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseRepoURL(tt.url)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseRepoURL(%q) = (%q, %v), want (%q, %v)", tt.url, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParsePRURL(t *testing.T) {
	tests := []struct {
		url  string
		want ParsedPR
		ok   bool
	}{
		{"https://github.com/org/alpha/pull/42", ParsedPR{"org", "alpha", 42}, true},
		{"https://github.com/org/alpha/pull/42/files", ParsedPR{"org", "alpha", 42}, true},
		{"http://github.com/org/alpha/pull/7", ParsedPR{"org", "alpha", 7}, true},
		{"https://github.com/org/alpha/pull/", ParsedPR{}, false},
		{"https://github.com/org/alpha/issues/42", ParsedPR{}, false},
		{"alpha#42", ParsedPR{}, false},
	}
	for _, tt := range tests {
		got, ok := ParsePRURL(tt.url)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParsePRURL(%q) = (%+v, %v), want (%+v, %v)", tt.url, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParsePRShorthand(t *testing.T) {
	repoURLs := map[string]string{
		"alpha": "git@github.com:org/alpha.git",
		"weird": "not-a-github-url",
	}

	tests := []struct {
		shorthand string
		want      ParsedPR
		ok        bool
	}{
		{"alpha#42", ParsedPR{"org", "alpha", 42}, true},
		{"unknown#42", ParsedPR{}, false},
		{"weird#42", ParsedPR{}, false},
		{"alpha", ParsedPR{}, false},
		{"alpha#notanumber", ParsedPR{}, false},
	}
	for _, tt := range tests {
		got, ok := ParsePRShorthand(tt.shorthand, repoURLs)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParsePRShorthand(%q) = (%+v, %v), want (%+v, %v)", tt.shorthand, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParsePRReference(t *testing.T) {
	repoURLs := map[string]string{"alpha": "https://github.com/org/alpha"}

	if pr, ok := ParsePRReference("https://github.com/org/alpha/pull/42", nil); !ok || pr.Number != 42 {
		t.Errorf("URL reference = (%+v, %v)", pr, ok)
	}
	if pr, ok := ParsePRReference("alpha#42", repoURLs); !ok || pr.FullName() != "org/alpha" {
		t.Errorf("shorthand reference = (%+v, %v)", pr, ok)
	}
	if _, ok := ParsePRReference("just-a-branch", repoURLs); ok {
		t.Error("bare string parsed as PR reference")
	}
}

func TestParsedPRRef(t *testing.T) {
	pr := ParsedPR{Owner: "org", Repo: "alpha", Number: 42}
	if pr.Ref() != "org/alpha#42" {
		t.Errorf("Ref = %q", pr.Ref())
	}
}

func TestPRMetadata(t *testing.T) {
	var gotArgs []string
	run := func(args ...string) (string, error) {
		gotArgs = args
		return `{"number":42,"title":"Fix the thing","author":{"login":"octocat"},"headRefName":"fix-thing","url":"https://github.com/org/alpha/pull/42"}`, nil
	}

	meta, err := NewClientWithRunner(run).PRMetadata(ParsedPR{Owner: "org", Repo: "alpha", Number: 42})
	if err != nil {
		t.Fatalf("PRMetadata failed: %v", err)
	}

	want := Metadata{
		Number:  42,
		Title:   "Fix the thing",
		Author:  "octocat",
		HeadRef: "fix-thing",
		URL:     "https://github.com/org/alpha/pull/42",
	}
	if meta != want {
		t.Errorf("Metadata = %+v, want %+v", meta, want)
	}

	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "pr view 42 --repo org/alpha") {
		t.Errorf("gh invoked with %q", joined)
	}
}

func TestPRMetadataErrors(t *testing.T) {
	failing := func(args ...string) (string, error) {
		return "", errors.New("gh pr view: not found")
	}
	if _, err := NewClientWithRunner(failing).PRMetadata(ParsedPR{Owner: "o", Repo: "r", Number: 1}); err == nil {
		t.Error("expected error from failed gh invocation")
	}

	garbage := func(args ...string) (string, error) {
		return "not json", nil
	}
	if _, err := NewClientWithRunner(garbage).PRMetadata(ParsedPR{Owner: "o", Repo: "r", Number: 1}); err == nil {
		t.Error("expected error for unparseable payload")
	}
}

func TestCheckAuth(t *testing.T) {
	ok := NewClientWithRunner(func(args ...string) (string, error) { return "", nil }).CheckAuth()
	if !ok {
		t.Error("CheckAuth = false for successful auth status")
	}
	ok = NewClientWithRunner(func(args ...string) (string, error) { return "", errors.New("no auth") }).CheckAuth()
	if ok {
		t.Error("CheckAuth = true for failed auth status")
	}
}
