// pattern: Imperative Shell

package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// branchItem wraps a branch name for display in a list.
type branchItem string

// FilterValue returns the value to filter on.
func (i branchItem) FilterValue() string { return string(i) }

// branchDelegate renders branch names one per line.
type branchDelegate struct {
	styles *Styles
}

func (d branchDelegate) Height() int                             { return 1 }
func (d branchDelegate) Spacing() int                            { return 0 }
func (d branchDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d branchDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	bi, ok := item.(branchItem)
	if !ok {
		return
	}

	if index == m.Index() {
		fmt.Fprint(w, d.styles.SelectedStyle().Render("> "+string(bi)))
		return
	}
	fmt.Fprint(w, d.styles.NormalStyle().Render("  "+string(bi)))
}

// pickerModel is the branch-selection model. It resolves to either a
// chosen branch or an abort.
type pickerModel struct {
	list    list.Model
	styles  *Styles
	title   string
	choice  string
	aborted bool
}

func newPickerModel(styles *Styles, title string, branches []string, preselect string) pickerModel {
	items := make([]list.Item, len(branches))
	selected := 0
	for i, b := range branches {
		items[i] = branchItem(b)
		if b == preselect {
			selected = i
		}
	}

	l := list.New(items, branchDelegate{styles: styles}, 0, min(len(branches)+2, 12))
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowPagination(true)
	l.SetFilteringEnabled(true)
	l.Select(selected)

	return pickerModel{
		list:   l,
		styles: styles,
		title:  title,
	}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		// While filtering, keys belong to the filter input.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(branchItem); ok {
				m.choice = string(item)
			}
			return m, tea.Quit
		case "q", "esc", "ctrl+c":
			m.aborted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	return m.styles.TitleStyle().Render(m.title) + "\n" +
		m.list.View() + "\n" +
		m.styles.HelpStyle().Render("enter select · / filter · esc abort")
}

// Pick shows an interactive picker over the available branches and
// returns the selection, or ok=false when the user aborts or no branches
// are available. It is the terminal surface for both missing-branch
// resolution and plain branch selection.
func Pick(theme, title string, branches []string, preselect string) (string, bool) {
	if len(branches) == 0 {
		return "", false
	}

	styles := NewStyles(theme)

	program := tea.NewProgram(newPickerModel(styles, title, branches, preselect))
	final, err := program.Run()
	if err != nil {
		return "", false
	}

	model, ok := final.(pickerModel)
	if !ok || model.aborted || model.choice == "" {
		return "", false
	}
	return model.choice, true
}
