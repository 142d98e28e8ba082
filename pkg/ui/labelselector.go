package ui

import (
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"github.com/gliv-dev/gliv/pkg/analysis"
	"github.com/gliv-dev/gliv/pkg/model"
)

// LabelItem is one selectable label.
type LabelItem struct {
	Name        string
	IssueCount  int
	ClosedCount int
	Blocked     int
	Checked     bool
}

// Progress is the closed share of the label's issues.
func (l LabelItem) Progress() float64 {
	if l.IssueCount == 0 {
		return 0
	}
	return float64(l.ClosedCount) / float64(l.IssueCount)
}

// LabelSelectorModel is the multi-select label overlay.
type LabelSelectorModel struct {
	allItems      []LabelItem
	filteredIdx   []int // indexes into allItems
	searchInput   textinput.Model
	selectedIndex int

	width  int
	height int
	theme  Theme

	confirmed bool
	cancelled bool
}

// NewLabelSelectorModel lists every label of issues, checking those in
// selected. blocking feeds the per-label blocked count.
func NewLabelSelectorModel(issues map[int]*model.Issue, blocking []model.Link, selected map[string]bool, theme Theme) LabelSelectorModel {
	ti := textinput.New()
	ti.Placeholder = "Search labels..."
	ti.Focus()
	ti.CharLimit = 64
	ti.Width = 40

	labels := analysis.ExtractLabels(issues, blocking)
	items := make([]LabelItem, 0, labels.LabelCount)
	for _, name := range labels.Labels {
		st := labels.Stats[name]
		items = append(items, LabelItem{
			Name:        name,
			IssueCount:  st.TotalCount,
			ClosedCount: st.ClosedCount,
			Blocked:     st.Blocked,
			Checked:     selected[name],
		})
	}

	m := LabelSelectorModel{
		allItems:    items,
		searchInput: ti,
		theme:       theme,
		width:       60,
		height:      20,
	}
	m.filterItems()
	return m
}

// SetSize updates the selector dimensions
func (m *LabelSelectorModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	inputWidth := width - 20
	if inputWidth < 20 {
		inputWidth = 20
	}
	if inputWidth > 50 {
		inputWidth = 50
	}
	m.searchInput.Width = inputWidth
}

// Update handles a key and reports whether it was consumed.
func (m *LabelSelectorModel) Update(key string) (handled bool) {
	switch key {
	case "up", "ctrl+k":
		if m.selectedIndex > 0 {
			m.selectedIndex--
		}
		return true
	case "down", "ctrl+j":
		if m.selectedIndex < len(m.filteredIdx)-1 {
			m.selectedIndex++
		}
		return true
	case " ", "space":
		if idx, ok := m.current(); ok {
			m.allItems[idx].Checked = !m.allItems[idx].Checked
		}
		return true
	case "ctrl+a":
		m.setAll(true)
		return true
	case "ctrl+n":
		m.setAll(false)
		return true
	case "enter":
		m.confirmed = true
		return true
	case "esc":
		m.cancelled = true
		return true
	case "backspace":
		if v := []rune(m.searchInput.Value()); len(v) > 0 {
			m.searchInput.SetValue(string(v[:len(v)-1]))
			m.filterItems()
		}
		return true
	default:
		if len([]rune(key)) == 1 {
			m.searchInput.SetValue(m.searchInput.Value() + key)
			m.filterItems()
			return true
		}
	}
	return false
}

func (m *LabelSelectorModel) current() (int, bool) {
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.filteredIdx) {
		return 0, false
	}
	return m.filteredIdx[m.selectedIndex], true
}

// setAll checks or clears the currently listed labels.
func (m *LabelSelectorModel) setAll(on bool) {
	for _, idx := range m.filteredIdx {
		m.allItems[idx].Checked = on
	}
}

func (m *LabelSelectorModel) filterItems() {
	m.selectedIndex = 0
	query := strings.TrimSpace(m.searchInput.Value())
	if query == "" {
		m.filteredIdx = make([]int, len(m.allItems))
		for i := range m.allItems {
			m.filteredIdx[i] = i
		}
		return
	}

	names := make([]string, len(m.allItems))
	for i, item := range m.allItems {
		names[i] = item.Name
	}
	matches := fuzzy.Find(query, names)
	m.filteredIdx = make([]int, 0, len(matches))
	for _, match := range matches {
		m.filteredIdx = append(m.filteredIdx, match.Index)
	}
}

// IsConfirmed returns true if user confirmed the selection
func (m *LabelSelectorModel) IsConfirmed() bool {
	return m.confirmed
}

// IsCancelled returns true if user cancelled the selector
func (m *LabelSelectorModel) IsCancelled() bool {
	return m.cancelled
}

// Selected returns the checked label names in order.
func (m *LabelSelectorModel) Selected() []string {
	var out []string
	for _, item := range m.allItems {
		if item.Checked {
			out = append(out, item.Name)
		}
	}
	sort.Strings(out)
	return out
}

// SearchValue returns the current search input value
func (m *LabelSelectorModel) SearchValue() string {
	return m.searchInput.Value()
}

// ItemCount returns the number of filtered items
func (m *LabelSelectorModel) ItemCount() int {
	return len(m.filteredIdx)
}

// View renders the label selector overlay
func (m *LabelSelectorModel) View() string {
	t := m.theme

	boxWidth := 55
	if m.width < 65 {
		boxWidth = m.width - 10
	}
	if boxWidth < 35 {
		boxWidth = 35
	}
	contentWidth := boxWidth - 4

	var lines []string

	titleStyle := t.Renderer.NewStyle().Foreground(t.Primary).Bold(true)
	lines = append(lines, titleStyle.Render("Select Labels"))
	lines = append(lines, "")

	inputStyle := t.Renderer.NewStyle().
		Foreground(t.Base.GetForeground()).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Secondary).
		Padding(0, 1).
		Width(contentWidth - 2)

	searchValue := m.searchInput.Value()
	if searchValue == "" {
		searchValue = t.Renderer.NewStyle().Foreground(t.Subtext).Render(m.searchInput.Placeholder)
	}
	lines = append(lines, inputStyle.Render(searchValue))
	lines = append(lines, "")

	maxVisible := m.height - 12
	if maxVisible < 5 {
		maxVisible = 5
	}
	if maxVisible > 15 {
		maxVisible = 15
	}

	if len(m.filteredIdx) == 0 {
		emptyStyle := t.Renderer.NewStyle().Foreground(t.Subtext).Italic(true)
		lines = append(lines, emptyStyle.Render("  No matching labels"))
	} else {
		start := 0
		if m.selectedIndex >= maxVisible {
			start = m.selectedIndex - maxVisible + 1
		}
		end := start + maxVisible
		if end > len(m.filteredIdx) {
			end = len(m.filteredIdx)
		}
		for i := start; i < end; i++ {
			lines = append(lines, m.renderItem(m.allItems[m.filteredIdx[i]], i == m.selectedIndex, contentWidth))
		}
		if rest := len(m.filteredIdx) - end; rest > 0 {
			moreStyle := t.Renderer.NewStyle().Foreground(t.Subtext).Italic(true)
			lines = append(lines, moreStyle.Render("  ... and "+strconv.Itoa(rest)+" more"))
		}
	}

	lines = append(lines, "")
	footerStyle := t.Renderer.NewStyle().Foreground(t.Subtext).Italic(true)
	lines = append(lines, footerStyle.Render("↑/↓: navigate • space: toggle • ctrl+a/ctrl+n: all/none • enter: apply • esc: cancel"))

	boxStyle := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Width(boxWidth)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, boxStyle.Render(strings.Join(lines, "\n")))
}

func (m *LabelSelectorModel) renderItem(item LabelItem, isSelected bool, maxWidth int) string {
	t := m.theme

	prefix := "  "
	if isSelected {
		prefix = "▸ "
	}
	box := "[ ] "
	if item.Checked {
		box = "[x] "
	}

	nameStyle := t.Base
	if isSelected {
		nameStyle = t.Renderer.NewStyle().Foreground(t.Primary).Bold(true)
	}

	progress := RenderMiniBar(item.Progress(), 8, t) +
		t.Renderer.NewStyle().Foreground(t.Subtext).Render(" "+strconv.Itoa(item.ClosedCount)+"/"+strconv.Itoa(item.IssueCount))
	if item.Blocked > 0 {
		progress = t.Renderer.NewStyle().Foreground(t.Warning).Render("⛔"+strconv.Itoa(item.Blocked)+" ") + progress
	}

	name := runewidth.Truncate(prefix+box+item.Name, maxWidth-20, "…")
	padding := maxWidth - runewidth.StringWidth(name) - lipgloss.Width(progress)
	if padding < 1 {
		padding = 1
	}
	return nameStyle.Render(name) + strings.Repeat(" ", padding) + progress
}
