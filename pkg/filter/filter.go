// Package filter selects the visible issues of a snapshot from the user's
// project, label and closed-issue choices.
package filter

import (
	"fmt"
	"sort"

	"github.com/gliv-dev/gliv/pkg/model"
)

// ClosedDisplay controls how closed issues are shown.
type ClosedDisplay string

const (
	ClosedTitles  ClosedDisplay = "titles"
	ClosedNumbers ClosedDisplay = "numbers"
	ClosedHide    ClosedDisplay = "hide"
)

// ClosedDisplayModes lists the modes in the order the UI cycles through them.
var ClosedDisplayModes = []ClosedDisplay{ClosedTitles, ClosedNumbers, ClosedHide}

// ParseClosedDisplay maps a mode name onto a ClosedDisplay.
func ParseClosedDisplay(s string) (ClosedDisplay, error) {
	switch d := ClosedDisplay(s); d {
	case ClosedTitles, ClosedNumbers, ClosedHide:
		return d, nil
	}
	return "", fmt.Errorf("unknown closed display mode %q (want titles, numbers or hide)", s)
}

// Next returns the mode following d in ClosedDisplayModes.
func (d ClosedDisplay) Next() ClosedDisplay {
	for i, m := range ClosedDisplayModes {
		if m == d {
			return ClosedDisplayModes[(i+1)%len(ClosedDisplayModes)]
		}
	}
	return ClosedDisplayModes[0]
}

// Criteria is the user's selection. An empty Labels set applies no label
// constraint.
type Criteria struct {
	Projects      map[int]bool
	Labels        map[string]bool
	ShowUnlabeled bool
	Closed        ClosedDisplay
}

// NewCriteria builds criteria from slices.
func NewCriteria(projects []int, labels []string, showUnlabeled bool, closed ClosedDisplay) Criteria {
	c := Criteria{
		Projects:      make(map[int]bool, len(projects)),
		Labels:        make(map[string]bool, len(labels)),
		ShowUnlabeled: showUnlabeled,
		Closed:        closed,
	}
	for _, p := range projects {
		c.Projects[p] = true
	}
	for _, l := range labels {
		c.Labels[l] = true
	}
	return c
}

// Match reports whether issue is visible. The checks run in a fixed order:
// the closed-hide rule first, then the label rule (with its unlabeled
// bypass), then project membership.
func (c Criteria) Match(issue *model.Issue) bool {
	if issue.Status == model.StatusClosed && c.Closed == ClosedHide {
		return false
	}
	if len(c.Labels) > 0 {
		if len(issue.Labels) == 0 && c.ShowUnlabeled {
			return c.Projects[issue.ProjectID]
		}
		if !c.anyLabel(issue.Labels) {
			return false
		}
	}
	return c.Projects[issue.ProjectID]
}

func (c Criteria) anyLabel(labels []string) bool {
	for _, l := range labels {
		if c.Labels[l] {
			return true
		}
	}
	return false
}

// Apply returns the visible subset of issues. The returned map references the
// same issue values.
func (c Criteria) Apply(issues map[int]*model.Issue) map[int]*model.Issue {
	out := make(map[int]*model.Issue)
	for uid, issue := range issues {
		if c.Match(issue) {
			out[uid] = issue
		}
	}
	return out
}

// ExcludeClosedIssues reports whether the renderer should draw closed issues
// as bare numbers.
func (c Criteria) ExcludeClosedIssues() bool {
	return c.Closed == ClosedNumbers
}

// SelectedProjects returns the selected project IDs in ascending order.
func (c Criteria) SelectedProjects() []int {
	out := make([]int, 0, len(c.Projects))
	for p, on := range c.Projects {
		if on {
			out = append(out, p)
		}
	}
	sort.Ints(out)
	return out
}

// SelectedLabels returns the selected labels in ascending order.
func (c Criteria) SelectedLabels() []string {
	out := make([]string, 0, len(c.Labels))
	for l, on := range c.Labels {
		if on {
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return out
}

// Clone returns a copy whose sets can be modified independently.
func (c Criteria) Clone() Criteria {
	return NewCriteria(c.SelectedProjects(), c.SelectedLabels(), c.ShowUnlabeled, c.Closed)
}
