package cli

import (
	catppuccin "github.com/catppuccin/go"
	"github.com/charmbracelet/lipgloss"
)

// Styles holds the lipgloss styles for human-readable command output.
type Styles struct {
	flavor catppuccin.Flavor
}

// NewStyles creates output styles for the given theme name.
func NewStyles(themeName string) *Styles {
	return &Styles{flavor: flavorFromName(themeName)}
}

func flavorFromName(name string) catppuccin.Flavor {
	switch name {
	case "latte":
		return catppuccin.Latte
	case "frappe":
		return catppuccin.Frappe
	case "macchiato":
		return catppuccin.Macchiato
	case "mocha":
		return catppuccin.Mocha
	default:
		return catppuccin.Mocha
	}
}

func (s *Styles) Title(text string) string {
	return lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.Color(s.flavor.Mauve().Hex)).Render(text)
}

func (s *Styles) Success(text string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.flavor.Green().Hex)).Render(text)
}

func (s *Styles) Warning(text string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.flavor.Yellow().Hex)).Render(text)
}

func (s *Styles) Error(text string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.flavor.Red().Hex)).Render(text)
}

func (s *Styles) Accent(text string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.flavor.Sky().Hex)).Render(text)
}

func (s *Styles) Dim(text string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.flavor.Overlay0().Hex)).Render(text)
}
