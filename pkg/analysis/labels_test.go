package analysis

import (
	"reflect"
	"testing"

	"github.com/gliv-dev/gliv/pkg/model"
)

func issueMap(issues ...*model.Issue) map[int]*model.Issue {
	m := make(map[int]*model.Issue, len(issues))
	for _, i := range issues {
		m[i.UID] = i
	}
	return m
}

func blocks(src, dst *model.Issue) model.Link {
	return model.Link{Source: src, Target: dst, Type: model.LinkBlocks}
}

func TestExtractLabelsEmpty(t *testing.T) {
	result := ExtractLabels(nil, nil)

	if result.LabelCount != 0 {
		t.Errorf("Expected 0 labels for empty input, got %d", result.LabelCount)
	}
	if result.IssueCount != 0 {
		t.Errorf("Expected 0 issues for empty input, got %d", result.IssueCount)
	}
	if len(result.Stats) != 0 {
		t.Errorf("Expected empty stats map, got %d entries", len(result.Stats))
	}
}

func TestExtractLabelsBasic(t *testing.T) {
	a := &model.Issue{UID: 1, Labels: []string{"api", "bug"}, Status: model.StatusOpened}
	b := &model.Issue{UID: 2, Labels: []string{"api", "feature"}, Status: model.StatusClosed}
	c := &model.Issue{UID: 3, Labels: []string{"ui"}, Status: model.StatusOpened}
	d := &model.Issue{UID: 4, Status: model.StatusOpened} // No labels

	result := ExtractLabels(issueMap(a, b, c, d), []model.Link{blocks(c, a)})

	if result.IssueCount != 4 {
		t.Errorf("Expected 4 issues, got %d", result.IssueCount)
	}
	if result.UnlabeledCount != 1 {
		t.Errorf("Expected 1 unlabeled issue, got %d", result.UnlabeledCount)
	}
	if !reflect.DeepEqual(result.Labels, []string{"api", "bug", "feature", "ui"}) {
		t.Errorf("Labels = %v", result.Labels)
	}
	if result.TopLabels[0] != "api" {
		t.Errorf("Expected api first in TopLabels, got %v", result.TopLabels)
	}

	api := result.Stats["api"]
	if api == nil {
		t.Fatal("api label stats missing")
	}
	if api.TotalCount != 2 || api.OpenCount != 1 || api.ClosedCount != 1 {
		t.Errorf("api counts = %+v", api)
	}
	if api.Blocked != 1 {
		t.Errorf("api: expected 1 blocked, got %d", api.Blocked)
	}
	if !reflect.DeepEqual(api.IssueUIDs, []int{1, 2}) {
		t.Errorf("api: IssueUIDs = %v", api.IssueUIDs)
	}
	if api.Progress() != 0.5 {
		t.Errorf("api: Progress = %v", api.Progress())
	}
	if result.Stats["ui"].Blocked != 0 {
		t.Error("ui: blocker must not count as blocked")
	}
}

func TestExtractLabelsDuplicateLabelsOnIssue(t *testing.T) {
	a := &model.Issue{UID: 1, Labels: []string{"api", "api", ""}, Status: model.StatusOpened}

	result := ExtractLabels(issueMap(a), nil)
	if result.Stats["api"].TotalCount != 1 {
		t.Errorf("Expected duplicate label counted once, got %d", result.Stats["api"].TotalCount)
	}
	if result.LabelCount != 1 {
		t.Errorf("Expected empty label skipped, got %v", result.Labels)
	}
}

func TestBlockedUIDs(t *testing.T) {
	open1 := &model.Issue{UID: 1, Status: model.StatusOpened}
	open2 := &model.Issue{UID: 2, Status: model.StatusOpened}
	closed := &model.Issue{UID: 3, Status: model.StatusClosed}
	open4 := &model.Issue{UID: 4, Status: model.StatusOpened}
	hidden := &model.Issue{UID: 5, Status: model.StatusOpened}

	issues := issueMap(open1, open2, closed, open4)
	links := []model.Link{
		blocks(open1, open2),  // counts
		blocks(closed, open4), // closed blocker does not count
		blocks(hidden, open1), // blocker outside the set does not count
		{Source: open4, Type: model.LinkBlocks},
	}

	got := BlockedUIDs(issues, links)
	if !reflect.DeepEqual(got, map[int]bool{2: true}) {
		t.Errorf("BlockedUIDs = %v", got)
	}
}

func TestGetLabelCooccurrence(t *testing.T) {
	issues := issueMap(
		&model.Issue{UID: 1, Labels: []string{"api", "bug"}},
		&model.Issue{UID: 2, Labels: []string{"api", "bug", "ui"}},
		&model.Issue{UID: 3, Labels: []string{"api"}},
	)

	cooc := GetLabelCooccurrence(issues)
	if cooc["api"]["bug"] != 2 || cooc["bug"]["api"] != 2 {
		t.Errorf("api/bug co-occurrence = %d/%d", cooc["api"]["bug"], cooc["bug"]["api"])
	}
	if cooc["api"]["ui"] != 1 {
		t.Errorf("api/ui co-occurrence = %d", cooc["api"]["ui"])
	}

	if got := RelatedLabels(cooc, "api", 1); !reflect.DeepEqual(got, []string{"bug"}) {
		t.Errorf("RelatedLabels = %v", got)
	}
	if got := RelatedLabels(cooc, "api", 0); !reflect.DeepEqual(got, []string{"bug", "ui"}) {
		t.Errorf("RelatedLabels without limit = %v", got)
	}
}

func TestSortLabelsByCount(t *testing.T) {
	stats := map[string]*LabelStats{
		"b": {TotalCount: 2},
		"a": {TotalCount: 2},
		"c": {TotalCount: 5},
	}
	if got := sortLabelsByCount(stats); !reflect.DeepEqual(got, []string{"c", "a", "b"}) {
		t.Errorf("sortLabelsByCount = %v", got)
	}
}
