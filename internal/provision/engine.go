// pattern: Functional Core

package provision

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/template"

	"qdpi/internal/config"
	"qdpi/internal/logging"
	"qdpi/internal/registry"
)

// Context holds the values available to templates. Only environment-level
// data is exposed; the engine has no knowledge of version control.
type Context struct {
	EnvName   string
	EnvPath   string
	CreatedAt string
	Repos     []registry.RepoInstance
	Symlinks  []registry.SymlinkEntry
}

// RepoNames returns the set of repository names in the context.
func (c Context) RepoNames() map[string]bool {
	names := make(map[string]bool, len(c.Repos))
	for _, r := range c.Repos {
		names[r.Name] = true
	}
	return names
}

// Engine applies template, copy, and symlink rules against a concrete
// environment directory.
type Engine struct {
	logger *logging.ScopedLogger
}

// NewEngine creates a provisioning engine.
func NewEngine(logger *logging.ScopedLogger) *Engine {
	return &Engine{logger: logger}
}

// WhenSatisfied reports whether every repository named in when is present.
// An empty when always applies.
func WhenSatisfied(when []string, present map[string]bool) bool {
	for _, name := range when {
		if !present[name] {
			return false
		}
	}
	return true
}

// ApplySymlinks materializes each symlink rule whose required repository
// set is present. A rule whose source path does not exist is skipped
// silently; any other failure is fatal to the caller's transaction.
func (e *Engine) ApplySymlinks(envPath string, rules []config.SymlinkRule, present map[string]bool) ([]registry.SymlinkEntry, error) {
	var active []registry.SymlinkEntry
	for _, rule := range rules {
		if !WhenSatisfied(rule.When, present) {
			continue
		}

		source := filepath.Join(envPath, rule.Source)
		target := filepath.Join(envPath, rule.Target)

		if _, err := os.Stat(source); err != nil {
			e.logger.Debug("symlink source missing, skipping", "source", rule.Source)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return active, fmt.Errorf("creating symlink parent for %s: %w", rule.Target, err)
		}
		if err := os.Symlink(source, target); err != nil {
			return active, fmt.Errorf("creating symlink %s -> %s: %w", rule.Target, rule.Source, err)
		}

		active = append(active, registry.SymlinkEntry{Source: rule.Source, Target: rule.Target})
	}
	return active, nil
}

// RenderTemplates renders every template rule whose predicate is
// satisfied and writes the results under envPath. A failure for one
// template is logged and skipped, never fatal. Returns the relative
// destinations of the files actually generated.
func (e *Engine) RenderTemplates(envPath string, rules []config.TemplateRule, ctx Context) []string {
	present := ctx.RepoNames()

	var generated []string
	for _, rule := range rules {
		if !WhenSatisfied(rule.When, present) {
			continue
		}

		content, err := renderFile(rule.Source, ctx)
		if err != nil {
			e.logger.Warn("template render failed", "source", rule.Source, "error", err)
			continue
		}

		dest := filepath.Join(envPath, rule.Destination)
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			e.logger.Warn("template destination unavailable", "destination", rule.Destination, "error", err)
			continue
		}
		if err := os.WriteFile(dest, []byte(content), 0644); err != nil {
			e.logger.Warn("template write failed", "destination", rule.Destination, "error", err)
			continue
		}

		generated = append(generated, rule.Destination)
	}
	return generated
}

// CopyFiles copies each static file rule whose predicate is satisfied and
// whose source exists, overwriting anything already at the destination.
func (e *Engine) CopyFiles(envPath string, rules []config.CopyRule, present map[string]bool) error {
	for _, rule := range rules {
		if !WhenSatisfied(rule.When, present) {
			continue
		}

		if _, err := os.Stat(rule.Source); err != nil {
			continue
		}

		dest := filepath.Join(envPath, rule.Destination)
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return fmt.Errorf("creating copy destination for %s: %w", rule.Destination, err)
		}
		if err := copyFile(rule.Source, dest); err != nil {
			return fmt.Errorf("copying %s: %w", rule.Source, err)
		}
	}
	return nil
}

// renderFile parses and executes a single template file with ctx.
func renderFile(source string, ctx Context) (string, error) {
	tmpl, err := template.New(filepath.Base(source)).ParseFiles(source)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// copyFile copies src to dst, preserving the source's permission bits.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
