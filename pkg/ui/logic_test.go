package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gliv-dev/gliv/pkg/filter"
	"github.com/gliv-dev/gliv/pkg/graph"
	"github.com/gliv-dev/gliv/pkg/model"
)

// keyMsg creates a tea.KeyMsg for testing
func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

func testTheme() Theme {
	return DefaultTheme(lipgloss.DefaultRenderer())
}

func testSnapshot() *graph.Snapshot {
	epicIID := 7
	return &graph.Snapshot{
		Projects: map[int]string{1: "api", 2: "web"},
		Issues: map[int]*model.Issue{
			1: {UID: 1, IID: 1, ProjectID: 1, Title: "Login fails", Status: model.StatusOpened,
				URL: "https://gitlab.example/api/-/issues/1", Labels: []string{"bug"}, EpicID: &epicIID},
			2: {UID: 2, IID: 2, ProjectID: 1, Title: "Old chore", Status: model.StatusClosed,
				URL: "https://gitlab.example/api/-/issues/2"},
			3: {UID: 3, IID: 1, ProjectID: 2, Title: "Dark mode", Status: model.StatusOpened,
				URL: "https://gitlab.example/web/-/issues/1", Labels: []string{"ux"}},
		},
		Epics: map[int]*model.Epic{
			70: {UID: 70, IID: 7, Status: model.StatusOpened, Title: "Auth", Description: "Rework login",
				ClosedCount: 1, TotalCount: 2},
		},
	}
}

func newTestModel() Model {
	snap := testSnapshot()
	return NewModel(snap, snap.DefaultCriteria(), testTheme())
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		m = next.(Model)
	}
	return m
}

func visibleUIDs(m Model) map[int]bool {
	out := make(map[int]bool)
	for uid := range m.GraphView().Issues {
		out[uid] = true
	}
	return out
}

func TestNewModel_DefaultSelection(t *testing.T) {
	m := newTestModel()

	got := visibleUIDs(m)
	if len(got) != 2 || !got[1] || !got[3] {
		t.Errorf("Expected issues 1 and 3 visible, got %v", got)
	}
	if len(m.list.Items()) != 2 {
		t.Errorf("Expected 2 list items, got %d", len(m.list.Items()))
	}
	if len(m.epics) != 1 || m.epics[0].IID != 7 {
		t.Errorf("Expected epic &7 to be referenced, got %v", m.epics)
	}
}

func TestClosedDisplayCycle(t *testing.T) {
	m := newTestModel()

	m = press(t, m, "c")
	if m.criteria.Closed != filter.ClosedTitles {
		t.Fatalf("Expected titles after hide, got %s", m.criteria.Closed)
	}
	if len(m.GraphView().Issues) != 3 {
		t.Errorf("Expected closed issue shown, got %d issues", len(m.GraphView().Issues))
	}

	m = press(t, m, "c")
	if m.criteria.Closed != filter.ClosedNumbers || !m.GraphView().ExcludeClosedIssues {
		t.Errorf("Expected numbers mode, got %s", m.criteria.Closed)
	}

	m = press(t, m, "c")
	if m.criteria.Closed != filter.ClosedHide {
		t.Errorf("Expected hide mode, got %s", m.criteria.Closed)
	}
}

func TestToggleUnlabeled(t *testing.T) {
	m := press(t, newTestModel(), "c")
	if !visibleUIDs(m)[2] {
		t.Fatal("Expected unlabeled closed issue visible")
	}

	m = press(t, m, "u")
	if m.criteria.ShowUnlabeled {
		t.Error("Expected ShowUnlabeled off")
	}
	if visibleUIDs(m)[2] {
		t.Error("Expected unlabeled issue hidden")
	}
}

func TestToggleProject(t *testing.T) {
	m := newTestModel()

	// issues -> epics -> projects
	m = press(t, m, "tab", "tab")
	if m.focus != focusProjects {
		t.Fatalf("Expected project focus, got %d", m.focus)
	}

	m = press(t, m, " ")
	got := visibleUIDs(m)
	if len(got) != 1 || !got[3] {
		t.Errorf("Expected only web issue after deselecting api, got %v", got)
	}
	if m.GraphView().Summary() != "Selected 1 issues from 1 projects." {
		t.Errorf("Summary = %q", m.GraphView().Summary())
	}

	m = press(t, m, "a")
	if len(m.criteria.SelectedProjects()) != 2 {
		t.Errorf("Expected all projects selected, got %v", m.criteria.SelectedProjects())
	}
}

func TestProjectCursorBounds(t *testing.T) {
	m := press(t, newTestModel(), "tab", "tab")

	m = press(t, m, "k")
	if m.projectCursor != 0 {
		t.Errorf("Expected cursor 0 at top, got %d", m.projectCursor)
	}
	m = press(t, m, "j", "j", "j")
	if m.projectCursor != 1 {
		t.Errorf("Expected cursor clamped to 1, got %d", m.projectCursor)
	}
}

func TestLabelSelection(t *testing.T) {
	m := press(t, newTestModel(), "l")
	if !m.showLabelSelector {
		t.Fatal("Expected label selector open")
	}

	// "bug" is the first label; uncheck it and apply
	m = press(t, m, " ", "enter")
	if m.showLabelSelector {
		t.Fatal("Expected label selector closed")
	}
	if labels := m.criteria.SelectedLabels(); len(labels) != 1 || labels[0] != "ux" {
		t.Errorf("Expected only ux selected, got %v", labels)
	}
	got := visibleUIDs(m)
	if len(got) != 1 || !got[3] {
		t.Errorf("Expected only issue 3, got %v", got)
	}
}

func TestLabelSelection_Cancel(t *testing.T) {
	m := press(t, newTestModel(), "l", " ", "esc")
	if m.showLabelSelector {
		t.Fatal("Expected label selector closed")
	}
	if len(m.criteria.SelectedLabels()) != 2 {
		t.Errorf("Cancel must keep the selection, got %v", m.criteria.SelectedLabels())
	}
}

func TestCopySelectedURL(t *testing.T) {
	m := newTestModel()
	var copied string
	m.copyText = func(s string) error {
		copied = s
		return nil
	}

	m = press(t, m, "y")
	if copied != "https://gitlab.example/api/-/issues/1" {
		t.Errorf("Expected first issue URL copied, got %q", copied)
	}
	if !strings.HasPrefix(m.statusMsg, "copied") {
		t.Errorf("Unexpected status %q", m.statusMsg)
	}

	m.copyText = func(string) error { return errors.New("no clipboard") }
	m = press(t, m, "y")
	if !strings.Contains(m.statusMsg, "no clipboard") {
		t.Errorf("Expected copy error in status, got %q", m.statusMsg)
	}
}

func TestReload(t *testing.T) {
	m := newTestModel()
	m = press(t, m, "r")
	if m.statusMsg != "reload not available" {
		t.Errorf("Unexpected status %q", m.statusMsg)
	}

	fresh := testSnapshot()
	delete(fresh.Issues, 3)
	m = m.WithReload(func() (*graph.Snapshot, error) { return fresh, nil })

	next, cmd := m.Update(keyMsg("r"))
	if cmd == nil {
		t.Fatal("Expected reload command")
	}
	next, _ = next.(Model).Update(cmd())
	m = next.(Model)
	if len(m.GraphView().Issues) != 1 {
		t.Errorf("Expected 1 issue after reload, got %d", len(m.GraphView().Issues))
	}

	next, _ = m.Update(SnapshotMsg{Err: errors.New("db locked")})
	m = next.(Model)
	if !strings.Contains(m.statusMsg, "db locked") {
		t.Errorf("Expected reload error in status, got %q", m.statusMsg)
	}
	if len(m.GraphView().Issues) != 1 {
		t.Error("Failed reload must keep the previous snapshot")
	}
}

func TestHelpOverlay(t *testing.T) {
	m := press(t, newTestModel(), "?")
	if !m.help.IsVisible() {
		t.Fatal("Expected help visible")
	}
	if !strings.Contains(m.View(), "Choose labels") {
		t.Error("Expected help content in view")
	}

	// any key closes help without acting on it
	m = press(t, m, "u")
	if m.help.IsVisible() {
		t.Error("Expected help closed")
	}
	if !m.criteria.ShowUnlabeled {
		t.Error("Key closing help must not toggle unlabeled")
	}
}

func TestQuit(t *testing.T) {
	_, cmd := newTestModel().Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
}

func TestView_Summary(t *testing.T) {
	next, _ := newTestModel().Update(tea.WindowSizeMsg{Width: 140, Height: 30})
	view := next.(Model).View()
	if !strings.Contains(view, "Selected 2 issues from 2 projects.") {
		t.Error("Expected summary line in view")
	}
	if !strings.Contains(view, "PROJECTS") || !strings.Contains(view, "EPICS") {
		t.Error("Expected sidebar and epics panels")
	}
}

func TestResponsiveLayout(t *testing.T) {
	tests := []struct {
		width          int
		sidebar, epics bool
	}{
		{60, false, false},
		{100, true, false},
		{140, true, true},
	}
	for _, tt := range tests {
		next, _ := newTestModel().Update(tea.WindowSizeMsg{Width: tt.width, Height: 30})
		view := next.(Model).View()
		if got := strings.Contains(view, "PROJECTS"); got != tt.sidebar {
			t.Errorf("width %d: sidebar shown = %v, want %v", tt.width, got, tt.sidebar)
		}
		if got := strings.Contains(view, "EPICS"); got != tt.epics {
			t.Errorf("width %d: epics shown = %v, want %v", tt.width, got, tt.epics)
		}
	}
}

func TestCycleFocusSkipsHiddenPanels(t *testing.T) {
	narrow := panelsFor(100)
	if got := narrow.cycleFocus(focusIssues, 1); got != focusProjects {
		t.Errorf("tab from issues = %v, want projects", got)
	}
	if got := narrow.cycleFocus(focusProjects, -1); got != focusIssues {
		t.Errorf("shift+tab from projects = %v, want issues", got)
	}
	if got := panelsFor(40).cycleFocus(focusIssues, 1); got != focusIssues {
		t.Errorf("only the list is shown, got %v", got)
	}
	if w := panelsFor(200).listWidth(200); w != 200-2-32-42 {
		t.Errorf("listWidth = %d", w)
	}
	if w := panelsFor(30).listWidth(30); w != MinListWidth {
		t.Errorf("listWidth floor = %d", w)
	}
}

func TestLabelSelectorModel(t *testing.T) {
	snap := testSnapshot()
	s := NewLabelSelectorModel(snap.Issues, snap.Blocking, map[string]bool{"ux": true}, testTheme())

	if s.ItemCount() != 2 {
		t.Fatalf("Expected 2 labels, got %d", s.ItemCount())
	}
	if got := s.Selected(); len(got) != 1 || got[0] != "ux" {
		t.Errorf("Expected ux preselected, got %v", got)
	}

	s.Update("b")
	if s.ItemCount() != 1 || s.SearchValue() != "b" {
		t.Errorf("Expected fuzzy match on bug, got %d items for %q", s.ItemCount(), s.SearchValue())
	}
	s.Update("backspace")
	if s.ItemCount() != 2 {
		t.Errorf("Expected all labels after clearing search, got %d", s.ItemCount())
	}

	s.Update("ctrl+a")
	if len(s.Selected()) != 2 {
		t.Errorf("Expected all selected, got %v", s.Selected())
	}
	s.Update("ctrl+n")
	if len(s.Selected()) != 0 {
		t.Errorf("Expected none selected, got %v", s.Selected())
	}
}

func TestLabelItemProgress(t *testing.T) {
	if p := (LabelItem{IssueCount: 4, ClosedCount: 1}).Progress(); p != 0.25 {
		t.Errorf("Progress = %v", p)
	}
	if p := (LabelItem{}).Progress(); p != 0 {
		t.Errorf("empty Progress = %v", p)
	}
}

func TestRenderMiniBar(t *testing.T) {
	theme := testTheme()
	bar := RenderMiniBar(0.5, 4, theme)
	if strings.Count(bar, "█") != 2 || strings.Count(bar, "░") != 2 {
		t.Errorf("Unexpected bar %q", bar)
	}
	if RenderMiniBar(0.5, 0, theme) != "" {
		t.Error("Expected empty bar for zero width")
	}
	if strings.Count(RenderMiniBar(2, 3, theme), "█") != 3 {
		t.Error("Expected value clamped to 1")
	}
}

func TestRenderMarkdown(t *testing.T) {
	if renderMarkdown("  ", 40) != "" {
		t.Error("Expected blank description to render empty")
	}
	if !strings.Contains(renderMarkdown("Rework login", 40), "Rework") {
		t.Error("Expected description text in rendered markdown")
	}
}
