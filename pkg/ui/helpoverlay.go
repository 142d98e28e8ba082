package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HelpOverlayModel shows keyboard shortcuts help
type HelpOverlayModel struct {
	visible bool
	theme   Theme
}

// NewHelpOverlayModel creates a new help overlay
func NewHelpOverlayModel(theme Theme) HelpOverlayModel {
	return HelpOverlayModel{
		theme: theme,
	}
}

// Toggle toggles visibility
func (m *HelpOverlayModel) Toggle() {
	m.visible = !m.visible
}

// IsVisible returns true if overlay is showing
func (m HelpOverlayModel) IsVisible() bool {
	return m.visible
}

// Update handles input
func (m HelpOverlayModel) Update(msg tea.Msg) (HelpOverlayModel, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	switch msg.(type) {
	case tea.KeyMsg:
		// Any key closes help
		m.visible = false
	}

	return m, nil
}

type shortcut struct{ key, desc string }

var helpSections = []struct {
	title string
	keys  []shortcut
}{
	{"NAVIGATION", []shortcut{
		{"tab", "Switch panel focus"},
		{"j/↓", "Move down"},
		{"k/↑", "Move up"},
	}},
	{"SELECTION", []shortcut{
		{"space", "Toggle project (projects panel)"},
		{"a", "Select all projects"},
		{"l", "Choose labels"},
		{"u", "Toggle unlabeled issues"},
		{"c", "Cycle closed issues: titles, numbers, hide"},
	}},
	{"ACTIONS", []shortcut{
		{"y", "Copy issue URL"},
		{"r", "Reload snapshot"},
		{"?", "Toggle this help"},
		{"q", "Quit"},
	}},
}

// View renders the help overlay
func (m HelpOverlayModel) View() string {
	if !m.visible {
		return ""
	}

	var b strings.Builder

	titleStyle := m.theme.Renderer.NewStyle().
		Bold(true).
		Foreground(m.theme.Primary).
		MarginBottom(1)
	b.WriteString(titleStyle.Render("gliv Help"))
	b.WriteString("\n\n")

	sectionStyle := m.theme.Renderer.NewStyle().Bold(true).Foreground(m.theme.Secondary)
	keyStyle := m.theme.Renderer.NewStyle().Foreground(m.theme.Primary).Width(12)
	descStyle := m.theme.Renderer.NewStyle().Foreground(m.theme.Subtext)

	for i, section := range helpSections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(sectionStyle.Render(section.title) + "\n")
		for _, s := range section.keys {
			b.WriteString("  " + keyStyle.Render(s.key) + descStyle.Render(s.desc) + "\n")
		}
	}

	b.WriteString("\n")
	hintStyle := m.theme.Renderer.NewStyle().Faint(true).Italic(true)
	b.WriteString(hintStyle.Render("[Press any key to close]"))

	boxStyle := m.theme.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Border).
		Padding(1, 2)

	return boxStyle.Render(b.String())
}
