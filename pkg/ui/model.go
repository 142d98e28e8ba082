package ui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/gliv-dev/gliv/pkg/filter"
	"github.com/gliv-dev/gliv/pkg/graph"
	"github.com/gliv-dev/gliv/pkg/model"
)

type focus int

const (
	focusProjects focus = iota
	focusIssues
	focusEpics
)

// ReloadFunc loads a fresh snapshot.
type ReloadFunc func() (*graph.Snapshot, error)

// SnapshotMsg delivers a (re)loaded snapshot to the model.
type SnapshotMsg struct {
	Snapshot *graph.Snapshot
	Err      error
}

// Model is the interactive viewer: a project sidebar, the visible issue list
// and the epics referenced by it.
type Model struct {
	snapshot *graph.Snapshot
	criteria filter.Criteria
	view     *graph.View

	projects      []int
	projectCursor int
	epics         []*model.Epic
	epicCursor    int

	list  list.Model
	theme Theme
	focus focus

	labelSelector     LabelSelectorModel
	showLabelSelector bool
	help              HelpOverlayModel

	reload    ReloadFunc
	copyText  func(string) error
	statusMsg string

	width  int
	height int
}

// NewModel opens snap with criteria c.
func NewModel(snap *graph.Snapshot, c filter.Criteria, theme Theme) Model {
	delegate := IssueDelegate{Theme: theme}
	l := list.New(nil, delegate, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)

	m := Model{
		snapshot: snap,
		criteria: c.Clone(),
		list:     l,
		theme:    theme,
		focus:    focusIssues,
		help:     NewHelpOverlayModel(theme),
		copyText: clipboard.WriteAll,
		width:    120,
		height:   40,
	}
	m.projects = snap.ProjectIDs()
	m.layout()
	m.refresh()
	return m
}

// WithReload sets the function behind the reload key.
func (m Model) WithReload(fn ReloadFunc) Model {
	m.reload = fn
	return m
}

// Criteria returns the current selection.
func (m Model) Criteria() filter.Criteria {
	return m.criteria.Clone()
}

// GraphView returns the currently assembled graph view.
func (m Model) GraphView() *graph.View {
	return m.view
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if !panelsFor(m.width).shows(m.focus) {
			m.focus = focusIssues
		}
		m.layout()
		m.labelSelector.SetSize(m.width, m.height)
		return m, nil

	case SnapshotMsg:
		if msg.Err != nil {
			m.statusMsg = "reload failed: " + msg.Err.Error()
			return m, nil
		}
		m.snapshot = msg.Snapshot
		m.projects = msg.Snapshot.ProjectIDs()
		if m.projectCursor >= len(m.projects) {
			m.projectCursor = 0
		}
		m.refresh()
		m.statusMsg = "snapshot reloaded"
		return m, nil

	case tea.KeyMsg:
		if m.help.IsVisible() {
			m.help, _ = m.help.Update(msg)
			return m, nil
		}
		if m.showLabelSelector {
			return m.updateLabelSelector(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "?":
		m.help.Toggle()
		return m, nil
	case "tab":
		m.focus = panelsFor(m.width).cycleFocus(m.focus, 1)
		return m, nil
	case "shift+tab":
		m.focus = panelsFor(m.width).cycleFocus(m.focus, -1)
		return m, nil
	case "l":
		m.labelSelector = NewLabelSelectorModel(m.snapshot.Issues, m.snapshot.Blocking, m.criteria.Labels, m.theme)
		m.labelSelector.SetSize(m.width, m.height)
		m.showLabelSelector = true
		return m, nil
	case "u":
		m.criteria.ShowUnlabeled = !m.criteria.ShowUnlabeled
		m.refresh()
		return m, nil
	case "c":
		m.criteria.Closed = m.criteria.Closed.Next()
		m.refresh()
		m.statusMsg = "closed issues: " + string(m.criteria.Closed)
		return m, nil
	case "a":
		m.criteria = filter.NewCriteria(m.projects, m.criteria.SelectedLabels(), m.criteria.ShowUnlabeled, m.criteria.Closed)
		m.refresh()
		return m, nil
	case "y":
		m.copySelectedURL()
		return m, nil
	case "r":
		if m.reload == nil {
			m.statusMsg = "reload not available"
			return m, nil
		}
		reload := m.reload
		m.statusMsg = "reloading..."
		return m, func() tea.Msg {
			snap, err := reload()
			return SnapshotMsg{Snapshot: snap, Err: err}
		}
	}

	switch m.focus {
	case focusProjects:
		switch msg.String() {
		case "j", "down":
			if m.projectCursor < len(m.projects)-1 {
				m.projectCursor++
			}
		case "k", "up":
			if m.projectCursor > 0 {
				m.projectCursor--
			}
		case " ", "enter":
			m.toggleProject()
		}
	case focusEpics:
		switch msg.String() {
		case "j", "down":
			if m.epicCursor < len(m.epics)-1 {
				m.epicCursor++
			}
		case "k", "up":
			if m.epicCursor > 0 {
				m.epicCursor--
			}
		}
	default:
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateLabelSelector(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.labelSelector.Update(msg.String())
	switch {
	case m.labelSelector.IsConfirmed():
		m.criteria = filter.NewCriteria(m.criteria.SelectedProjects(), m.labelSelector.Selected(), m.criteria.ShowUnlabeled, m.criteria.Closed)
		m.showLabelSelector = false
		m.refresh()
	case m.labelSelector.IsCancelled():
		m.showLabelSelector = false
	}
	return m, nil
}

func (m *Model) toggleProject() {
	if len(m.projects) == 0 {
		return
	}
	id := m.projects[m.projectCursor]
	selected := make([]int, 0, len(m.projects))
	for _, p := range m.criteria.SelectedProjects() {
		if p != id {
			selected = append(selected, p)
		}
	}
	if !m.criteria.Projects[id] {
		selected = append(selected, id)
	}
	m.criteria = filter.NewCriteria(selected, m.criteria.SelectedLabels(), m.criteria.ShowUnlabeled, m.criteria.Closed)
	m.refresh()
}

func (m *Model) copySelectedURL() {
	item, ok := m.list.SelectedItem().(IssueItem)
	if !ok {
		m.statusMsg = "no issue selected"
		return
	}
	if err := m.copyText(item.Issue.URL); err != nil {
		m.statusMsg = "copy failed: " + err.Error()
		return
	}
	m.statusMsg = "copied " + item.Issue.URL
}

// refresh reassembles the view after the snapshot or criteria changed.
func (m *Model) refresh() {
	m.view = graph.Assemble(m.snapshot, m.criteria)

	issues := m.view.SortedIssues()
	items := make([]list.Item, len(issues))
	for i, issue := range issues {
		items[i] = IssueItem{Issue: issue, Project: m.snapshot.Projects[issue.ProjectID]}
	}
	m.list.SetItems(items)
	m.list.SetDelegate(IssueDelegate{Theme: m.theme, Compact: m.view.ExcludeClosedIssues})
	if m.list.Index() >= len(items) {
		m.list.Select(0)
	}

	m.epics = m.view.ReferencedEpics()
	if m.epicCursor >= len(m.epics) {
		m.epicCursor = 0
	}
}

func (m *Model) layout() {
	listWidth := panelsFor(m.width).listWidth(m.width)
	listHeight := m.height - 6
	if listHeight < 3 {
		listHeight = 3
	}
	m.list.SetSize(listWidth, listHeight)
}

func (m Model) View() string {
	if m.showLabelSelector {
		return m.labelSelector.View()
	}
	if m.help.IsVisible() {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.help.View())
	}

	t := m.theme
	header := t.Renderer.NewStyle().Foreground(t.Primary).Bold(true).Render("gliv") +
		"  " + t.Renderer.NewStyle().Foreground(t.Subtext).Render(m.view.Summary())

	panelHeight := m.height - 4
	if panelHeight < 5 {
		panelHeight = 5
	}
	show := panelsFor(m.width)
	var row []string
	if show.sidebar {
		row = append(row, t.PanelStyle(m.focus == focusProjects).
			Width(sidebarWidth).Height(panelHeight).
			Render(m.renderSidebar()))
	}
	row = append(row, t.PanelStyle(m.focus == focusIssues).
		Height(panelHeight).
		Render(m.list.View()))
	if show.epics {
		row = append(row, t.PanelStyle(m.focus == focusEpics).
			Width(epicsWidth).Height(panelHeight).
			Render(m.renderEpics()))
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, row...)

	footer := t.Renderer.NewStyle().Foreground(t.Subtext).
		Render("tab focus • space toggle • l labels • u unlabeled • c closed • y copy • r reload • ? help • q quit")
	if m.statusMsg != "" {
		footer = t.Renderer.NewStyle().Foreground(t.Warning).Render(m.statusMsg) + "  " + footer
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) renderSidebar() string {
	t := m.theme
	var b strings.Builder

	b.WriteString(t.Renderer.NewStyle().Foreground(t.Secondary).Bold(true).Render("PROJECTS"))
	b.WriteString("\n")
	for i, id := range m.projects {
		prefix := "  "
		if m.focus == focusProjects && i == m.projectCursor {
			prefix = "▸ "
		}
		box := "[ ] "
		if m.criteria.Projects[id] {
			box = "[x] "
		}
		name := runewidth.Truncate(prefix+box+m.snapshot.Projects[id], sidebarWidth-2, "…")
		style := t.Base
		if i == m.projectCursor && m.focus == focusProjects {
			style = t.Renderer.NewStyle().Foreground(t.Primary).Bold(true)
		}
		b.WriteString(style.Render(name) + "\n")
	}

	b.WriteString("\n" + RenderDivider(sidebarWidth-2, t) + "\n")
	label := t.Renderer.NewStyle().Foreground(t.Subtext)

	labels := m.criteria.SelectedLabels()
	labelText := "any"
	if len(labels) > 0 {
		labelText = fmt.Sprintf("%d of %d", len(labels), len(graph.KnownLabels(m.snapshot.Issues)))
	}
	b.WriteString(label.Render("labels:    ") + labelText + "\n")
	b.WriteString(label.Render("unlabeled: ") + onOff(m.criteria.ShowUnlabeled) + "\n")
	b.WriteString(label.Render("closed:    ") + string(m.criteria.Closed) + "\n")
	return b.String()
}

func (m Model) renderEpics() string {
	t := m.theme
	var b strings.Builder
	b.WriteString(t.Renderer.NewStyle().Foreground(t.Secondary).Bold(true).Render("EPICS"))
	b.WriteString("\n")

	if len(m.epics) == 0 {
		b.WriteString(t.Renderer.NewStyle().Foreground(t.Subtext).Italic(true).Render("  none referenced"))
		return b.String()
	}

	for i, e := range m.epics {
		prefix := "  "
		if m.focus == focusEpics && i == m.epicCursor {
			prefix = "▸ "
		}
		counts := fmt.Sprintf(" %d/%d", e.ClosedCount, e.TotalCount)
		title := runewidth.Truncate(fmt.Sprintf("%s&%d %s", prefix, e.IID, e.Title), epicsWidth-16, "…")
		title = runewidth.FillRight(title, epicsWidth-16)
		b.WriteString(title + RenderMiniBar(e.Progress(), 6, t) + counts + "\n")
	}

	if m.focus == focusEpics && m.epicCursor < len(m.epics) {
		b.WriteString("\n" + RenderDivider(epicsWidth-2, t) + "\n")
		b.WriteString(renderMarkdown(m.epics[m.epicCursor].Description, epicsWidth-4))
	}
	return b.String()
}

// renderMarkdown renders an epic description, falling back to the raw text.
func renderMarkdown(md string, width int) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}

func onOff(v bool) string {
	if v {
		return "shown"
	}
	return "hidden"
}
