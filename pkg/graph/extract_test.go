package graph

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/gliv-dev/gliv/pkg/filter"
	"github.com/gliv-dev/gliv/pkg/model"
)

func TestExtract(t *testing.T) {
	parent := 1
	child := mkIssue(2, raw(3, model.RawRelatesTo))
	child.Parent = &parent
	child.Labels = []string{"bug"}
	closed := mkIssue(3, raw(2, model.RawBlocks))
	closed.Status = model.StatusClosed
	closed.ProjectID = 200

	issues := index(mkIssue(1), child, closed)
	epics := []EpicRecord{{UID: 9, IID: 1, State: "opened", Members: []MemberRecord{{UID: 3, State: "closed"}}}}

	x := NewExtractor(ExtractOptions{}, nil)
	x.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	snap, err := x.Extract(&Records{Issues: issues, Epics: epics, Projects: map[int]string{100: "api"}})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(snap.Related) != 1 || len(snap.Blocking) != 1 || len(snap.Parent) != 1 {
		t.Errorf("unexpected edge counts: %d/%d/%d", len(snap.Related), len(snap.Blocking), len(snap.Parent))
	}
	if snap.Epics[9].ClosedCount != 1 {
		t.Errorf("epic not aggregated: %+v", snap.Epics[9])
	}
	if snap.Projects[100] != "api" || snap.Projects[200] != "project 200" {
		t.Errorf("projects = %v", snap.Projects)
	}
	if !snap.CreatedAt.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("CreatedAt = %v", snap.CreatedAt)
	}
	if !reflect.DeepEqual(snap.ProjectIDs(), []int{100, 200}) {
		t.Errorf("ProjectIDs = %v", snap.ProjectIDs())
	}
}

func TestExtract_ConsumesRawLinks(t *testing.T) {
	src := mkIssue(1, raw(2, model.RawBlocks))
	rec := &Records{Issues: index(src, mkIssue(2))}

	snap, err := NewExtractor(ExtractOptions{}, nil).Extract(rec)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for uid, issue := range snap.Issues {
		if issue.RawLinks != nil {
			t.Errorf("issue %d kept raw links %v", uid, issue.RawLinks)
		}
	}
	if len(snap.Blocking) != 1 || snap.Blocking[0].Source != snap.Issues[1] || snap.Blocking[0].Target != snap.Issues[2] {
		t.Errorf("edges must reference the snapshot's issues: %v", snap.Blocking)
	}
	if len(src.RawLinks) != 1 {
		t.Error("Extract modified the input records")
	}
}

func TestExtract_RejectsUnknownStatus(t *testing.T) {
	bad := mkIssue(1)
	bad.Status = "reopened"
	_, err := NewExtractor(ExtractOptions{}, nil).Extract(&Records{Issues: index(bad)})
	if !errors.Is(err, model.ErrUnknownStatus) {
		t.Errorf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestExtract_RejectsMismatchedKey(t *testing.T) {
	issues := map[int]*model.Issue{5: mkIssue(6)}
	if _, err := NewExtractor(ExtractOptions{}, nil).Extract(&Records{Issues: issues}); err == nil {
		t.Error("expected error for index key not matching uid")
	}
}

func TestAssemble(t *testing.T) {
	a := mkIssue(1, raw(2, model.RawBlocks))
	a.Labels = []string{"bug"}
	b := mkIssue(2)
	b.Status = model.StatusClosed
	snap, err := NewExtractor(ExtractOptions{}, nil).Extract(&Records{Issues: index(a, b)})
	if err != nil {
		t.Fatal(err)
	}

	view := Assemble(snap, filter.NewCriteria([]int{100}, []string{"bug"}, true, filter.ClosedHide))
	if len(view.Issues) != 1 || view.Issues[1] != a {
		t.Errorf("visible issues = %v", view.Issues)
	}
	if len(view.Blocking) != 1 {
		t.Error("edges must not be filtered by the core")
	}
	if len(view.VisibleEdges(view.Blocking)) != 0 {
		t.Error("edge to hidden issue reported as visible")
	}
	if view.ExcludeClosedIssues {
		t.Error("hide mode must not set ExcludeClosedIssues")
	}
	if view.Summary() != "Selected 1 issues from 1 projects." {
		t.Errorf("Summary() = %q", view.Summary())
	}

	numbers := Assemble(snap, filter.NewCriteria([]int{100}, nil, true, filter.ClosedNumbers))
	if !numbers.ExcludeClosedIssues || len(numbers.Issues) != 2 {
		t.Errorf("numbers mode: exclude=%v visible=%d", numbers.ExcludeClosedIssues, len(numbers.Issues))
	}
	if len(numbers.VisibleEdges(numbers.Blocking)) != 1 {
		t.Error("expected the blocking edge to be visible")
	}
}

func TestDefaultCriteria(t *testing.T) {
	a := mkIssue(1)
	a.Labels = []string{"x", "y"}
	b := mkIssue(2)
	b.ProjectID = 7
	b.Labels = []string{"y"}
	snap, err := NewExtractor(ExtractOptions{}, nil).Extract(&Records{Issues: index(a, b)})
	if err != nil {
		t.Fatal(err)
	}
	c := snap.DefaultCriteria()
	if !reflect.DeepEqual(c.SelectedProjects(), []int{7, 100}) {
		t.Errorf("projects = %v", c.SelectedProjects())
	}
	if !reflect.DeepEqual(c.SelectedLabels(), []string{"x", "y"}) {
		t.Errorf("labels = %v", c.SelectedLabels())
	}
	if !c.ShowUnlabeled || c.Closed != filter.ClosedHide {
		t.Errorf("unexpected defaults %+v", c)
	}
}

func TestSortedIssuesAndKnownLabels(t *testing.T) {
	a := &model.Issue{UID: 3, IID: 2, ProjectID: 1, Status: model.StatusClosed, Labels: []string{"bug"}}
	b := &model.Issue{UID: 1, IID: 5, ProjectID: 1, Status: model.StatusOpened, Labels: []string{"bug", "ux"}}
	c := &model.Issue{UID: 2, IID: 1, ProjectID: 2, Status: model.StatusOpened}
	view := &View{Issues: index(a, b, c)}

	var got []int
	for _, i := range view.SortedIssues() {
		got = append(got, i.UID)
	}
	if !reflect.DeepEqual(got, []int{3, 1, 2}) {
		t.Errorf("SortedIssues = %v", got)
	}

	if !reflect.DeepEqual(KnownLabels(view.Issues), []string{"bug", "ux"}) {
		t.Errorf("KnownLabels = %v", KnownLabels(view.Issues))
	}
}

func TestRecordsAddIssue(t *testing.T) {
	rec := NewRecords()
	if err := rec.AddIssue(mkIssue(1)); err != nil {
		t.Fatal(err)
	}
	if err := rec.AddIssue(mkIssue(1)); err == nil {
		t.Error("expected error for duplicate uid")
	}
	if len(rec.Issues) != 1 {
		t.Errorf("expected 1 indexed issue, got %d", len(rec.Issues))
	}
}

func TestReferencedEpics(t *testing.T) {
	two, five := 2, 5
	a := mkIssue(1)
	a.EpicID = &two
	b := mkIssue(2)
	b.EpicID = &five
	view := &View{
		Issues: index(a, b),
		Epics: map[int]*model.Epic{
			20: {UID: 20, IID: 2, Status: model.StatusOpened},
			30: {UID: 30, IID: 3, Status: model.StatusOpened},
		},
	}
	got := view.ReferencedEpics()
	if len(got) != 1 || got[0].UID != 20 {
		t.Errorf("ReferencedEpics = %v", got)
	}
}
