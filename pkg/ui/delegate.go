package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// IssueDelegate renders one issue per line.
type IssueDelegate struct {
	Theme Theme
	// Compact draws closed issues as their number only.
	Compact bool
}

func (d IssueDelegate) Height() int {
	return 1
}

func (d IssueDelegate) Spacing() int {
	return 0
}

func (d IssueDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

func (d IssueDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(IssueItem)
	if !ok {
		return
	}
	t := d.Theme
	selected := index == m.Index()

	prefix := "  "
	if selected {
		prefix = "▸ "
	}

	ref := fmt.Sprintf("%s#%d", i.Project, i.Issue.IID)
	ref = runewidth.FillRight(runewidth.Truncate(ref, 16, "…"), 16)
	status := RenderStatusBadge(i.Issue.Status, t)

	if d.Compact && i.Issue.Status.IsClosed() {
		fmt.Fprint(w, prefix+t.Renderer.NewStyle().Foreground(t.Closed).Render(ref)+" "+status)
		return
	}

	labels := ""
	if len(i.Issue.Labels) > 0 {
		labels = "[" + strings.Join(i.Issue.Labels, ",") + "]"
	}

	// Fixed widths: prefix(2) + ref(16) + gap + badge(4) + gap
	avail := m.Width() - 2 - 16 - 1 - 4 - 1
	if avail < 10 {
		avail = 10
	}
	title := i.Issue.Title
	if labels != "" {
		title += " " + labels
	}
	title = runewidth.Truncate(title, avail, "…")

	titleStyle := t.Base
	if selected {
		titleStyle = t.Renderer.NewStyle().Foreground(t.Primary).Bold(true)
	}

	row := lipgloss.JoinHorizontal(lipgloss.Left, prefix, ref, " ", status, " ", titleStyle.Render(title))
	fmt.Fprint(w, row)
}
