package provision

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"qdpi/internal/config"
	"qdpi/internal/logging"
	"qdpi/internal/registry"
)

func testEngine() *Engine {
	return NewEngine(logging.NopLogger())
}

func TestWhenSatisfied(t *testing.T) {
	present := map[string]bool{"alpha": true, "beta": true}

	tests := []struct {
		name string
		when []string
		want bool
	}{
		{"empty always applies", nil, true},
		{"single present", []string{"alpha"}, true},
		{"all present", []string{"alpha", "beta"}, true},
		{"one missing", []string{"alpha", "gamma"}, false},
		{"all missing", []string{"gamma"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WhenSatisfied(tt.when, present); got != tt.want {
				t.Errorf("WhenSatisfied(%v) = %v, want %v", tt.when, got, tt.want)
			}
		})
	}
}

func TestApplySymlinks(t *testing.T) {
	envPath := t.TempDir()
	if err := os.MkdirAll(filepath.Join(envPath, "alpha", "shared"), 0755); err != nil {
		t.Fatal(err)
	}

	rules := []config.SymlinkRule{
		{Source: "alpha/shared", Target: "beta/src/shared", When: []string{"alpha", "beta"}},
		{Source: "alpha/missing", Target: "dangling", When: []string{"alpha"}},
		{Source: "alpha/shared", Target: "skipped", When: []string{"gamma"}},
	}
	present := map[string]bool{"alpha": true, "beta": true}

	active, err := testEngine().ApplySymlinks(envPath, rules, present)
	if err != nil {
		t.Fatalf("ApplySymlinks failed: %v", err)
	}

	if len(active) != 1 || active[0] != (registry.SymlinkEntry{Source: "alpha/shared", Target: "beta/src/shared"}) {
		t.Errorf("active = %+v", active)
	}

	link := filepath.Join(envPath, "beta", "src", "shared")
	dest, err := os.Readlink(link)
	if err != nil {
		t.Fatalf("symlink not created: %v", err)
	}
	if dest != filepath.Join(envPath, "alpha", "shared") {
		t.Errorf("symlink points at %q", dest)
	}

	if _, err := os.Lstat(filepath.Join(envPath, "dangling")); !os.IsNotExist(err) {
		t.Error("rule with missing source was not skipped")
	}
	if _, err := os.Lstat(filepath.Join(envPath, "skipped")); !os.IsNotExist(err) {
		t.Error("rule with unsatisfied when was not skipped")
	}
}

func TestRenderTemplates(t *testing.T) {
	srcDir := t.TempDir()
	good := filepath.Join(srcDir, "agents.md.tmpl")
	content := "# {{.EnvName}}\ncreated {{.CreatedAt}}\n{{range .Repos}}- {{.Name}} @ {{.Branch}}\n{{end}}"
	if err := os.WriteFile(good, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(srcDir, "bad.tmpl")
	if err := os.WriteFile(bad, []byte("{{.Missing.Field}}"), 0644); err != nil {
		t.Fatal(err)
	}

	envPath := t.TempDir()
	ctx := Context{
		EnvName:   "dev1",
		EnvPath:   envPath,
		CreatedAt: "2026-01-15T10:00:00Z",
		Repos: []registry.RepoInstance{
			{Name: "alpha", Branch: "feature-x", WorktreePath: filepath.Join(envPath, "alpha")},
		},
	}

	rules := []config.TemplateRule{
		{Source: good, Destination: "AGENTS.md"},
		{Source: bad, Destination: "bad.txt"},
		{Source: filepath.Join(srcDir, "absent.tmpl"), Destination: "absent.txt"},
		{Source: good, Destination: "gated.md", When: []string{"beta"}},
	}

	generated := testEngine().RenderTemplates(envPath, rules, ctx)
	if len(generated) != 1 || generated[0] != "AGENTS.md" {
		t.Fatalf("generated = %v, want [AGENTS.md]", generated)
	}

	data, err := os.ReadFile(filepath.Join(envPath, "AGENTS.md"))
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, "# dev1") || !strings.Contains(out, "- alpha @ feature-x") {
		t.Errorf("rendered output:\n%s", out)
	}

	for _, name := range []string{"bad.txt", "absent.txt", "gated.md"} {
		if _, err := os.Stat(filepath.Join(envPath, name)); !os.IsNotExist(err) {
			t.Errorf("%s was written, want skipped", name)
		}
	}
}

func TestCopyFiles(t *testing.T) {
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, ".editorconfig")
	if err := os.WriteFile(src, []byte("root = true\n"), 0755); err != nil {
		t.Fatal(err)
	}

	envPath := t.TempDir()
	dest := filepath.Join(envPath, "nested", ".editorconfig")
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dest, []byte("stale\n"), 0644); err != nil {
		t.Fatal(err)
	}

	rules := []config.CopyRule{
		{Source: src, Destination: "nested/.editorconfig"},
		{Source: src, Destination: "fresh/.editorconfig"},
		{Source: filepath.Join(srcDir, "absent"), Destination: "absent"},
	}

	if err := testEngine().CopyFiles(envPath, rules, map[string]bool{}); err != nil {
		t.Fatalf("CopyFiles failed: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "root = true\n" {
		t.Errorf("destination not overwritten: %q", data)
	}

	// A freshly created destination carries the source's permission bits.
	info, err := os.Stat(filepath.Join(envPath, "fresh", ".editorconfig"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("permissions = %o, want source's 0755", info.Mode().Perm())
	}

	if _, err := os.Stat(filepath.Join(envPath, "absent")); !os.IsNotExist(err) {
		t.Error("missing source was not skipped")
	}
}

func TestContextRepoNames(t *testing.T) {
	ctx := Context{Repos: []registry.RepoInstance{{Name: "alpha"}, {Name: "beta"}}}
	names := ctx.RepoNames()
	if !names["alpha"] || !names["beta"] || len(names) != 2 {
		t.Errorf("RepoNames = %v", names)
	}
}
