package graph

import (
	"fmt"
	"sort"

	"github.com/gliv-dev/gliv/pkg/model"
)

// IssueTree contains an issue and all its descendants plus external blockers
type IssueTree struct {
	Root        *model.Issue   // The root issue
	Descendants []*model.Issue // All children recursively via is-child-of links
	Blockers    []*model.Issue // Issues outside the tree that block items in it
}

// BuildIssueTree collects the tree below rootUID from the snapshot's parent
// links, then the issues outside the tree that block any member of it.
func BuildIssueTree(s *Snapshot, rootUID int) (*IssueTree, error) {
	root, ok := s.Issues[rootUID]
	if !ok {
		return nil, fmt.Errorf("issue not found: %d", rootUID)
	}

	children := make(map[int][]int)
	for _, l := range s.Parent {
		children[l.Target.UID] = append(children[l.Target.UID], l.Source.UID)
	}

	inTree := map[int]bool{rootUID: true}
	var descendants []*model.Issue
	queue := []int{rootUID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, childUID := range children[current] {
			if inTree[childUID] {
				continue
			}
			inTree[childUID] = true
			if child, ok := s.Issues[childUID]; ok {
				descendants = append(descendants, child)
				queue = append(queue, childUID)
			}
		}
	}

	var blockers []*model.Issue
	seen := make(map[int]bool)
	for _, l := range s.Blocking {
		if !inTree[l.Target.UID] || inTree[l.Source.UID] || seen[l.Source.UID] {
			continue
		}
		seen[l.Source.UID] = true
		blockers = append(blockers, l.Source)
	}
	sort.Slice(blockers, func(i, j int) bool { return blockers[i].UID < blockers[j].UID })

	return &IssueTree{Root: root, Descendants: descendants, Blockers: blockers}, nil
}

// AllIssues returns root + all descendants as a flat slice
func (t *IssueTree) AllIssues() []*model.Issue {
	result := make([]*model.Issue, 0, 1+len(t.Descendants))
	result = append(result, t.Root)
	result = append(result, t.Descendants...)
	return result
}

// TotalCount returns the total number of issues in the tree (root + descendants)
func (t *IssueTree) TotalCount() int {
	return 1 + len(t.Descendants)
}

// Restrict narrows a view to the tree and its blockers.
func (t *IssueTree) Restrict(v *View) *View {
	keep := make(map[int]bool, t.TotalCount()+len(t.Blockers))
	for _, i := range t.AllIssues() {
		keep[i.UID] = true
	}
	for _, i := range t.Blockers {
		keep[i.UID] = true
	}

	out := *v
	out.Issues = make(map[int]*model.Issue)
	for uid, issue := range v.Issues {
		if keep[uid] {
			out.Issues[uid] = issue
		}
	}
	return &out
}
