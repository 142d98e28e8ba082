// Package analysis derives label statistics from a snapshot's issues and
// blocking edges.
package analysis

import (
	"sort"

	"github.com/gliv-dev/gliv/pkg/model"
)

// LabelStats provides basic statistics about a label
type LabelStats struct {
	Label       string `json:"label"`
	TotalCount  int    `json:"total_count"`
	OpenCount   int    `json:"open_count"`
	ClosedCount int    `json:"closed_count"`
	Blocked     int    `json:"blocked"` // open issues with an open blocker
	IssueUIDs   []int  `json:"issue_uids"`
}

// Progress returns the closed share of the label's issues.
func (s *LabelStats) Progress() float64 {
	if s.TotalCount == 0 {
		return 0
	}
	return float64(s.ClosedCount) / float64(s.TotalCount)
}

// LabelExtractionResult contains all extracted label data
type LabelExtractionResult struct {
	Labels         []string               `json:"labels"` // sorted
	LabelCount     int                    `json:"label_count"`
	Stats          map[string]*LabelStats `json:"stats"`
	IssueCount     int                    `json:"issue_count"`
	UnlabeledCount int                    `json:"unlabeled_count"`
	TopLabels      []string               `json:"top_labels"` // by issue count
}

// ExtractLabels collects per-label statistics. blocking is used to count
// blocked issues and may be nil.
func ExtractLabels(issues map[int]*model.Issue, blocking []model.Link) LabelExtractionResult {
	result := LabelExtractionResult{
		Stats:     make(map[string]*LabelStats),
		Labels:    []string{},
		TopLabels: []string{},
	}
	if len(issues) == 0 {
		return result
	}

	blocked := BlockedUIDs(issues, blocking)
	result.IssueCount = len(issues)

	// Ascending UID keeps IssueUIDs ordered.
	uids := make([]int, 0, len(issues))
	for uid := range issues {
		uids = append(uids, uid)
	}
	sort.Ints(uids)

	for _, uid := range uids {
		issue := issues[uid]
		if len(issue.Labels) == 0 {
			result.UnlabeledCount++
		}

		seen := make(map[string]bool, len(issue.Labels))
		for _, label := range issue.Labels {
			if label == "" || seen[label] {
				continue
			}
			seen[label] = true

			stats, ok := result.Stats[label]
			if !ok {
				stats = &LabelStats{Label: label}
				result.Stats[label] = stats
			}
			stats.TotalCount++
			stats.IssueUIDs = append(stats.IssueUIDs, uid)
			if issue.Status.IsClosed() {
				stats.ClosedCount++
			} else {
				stats.OpenCount++
			}
			if blocked[uid] {
				stats.Blocked++
			}
		}
	}

	for label := range result.Stats {
		result.Labels = append(result.Labels, label)
	}
	sort.Strings(result.Labels)
	result.LabelCount = len(result.Labels)
	result.TopLabels = sortLabelsByCount(result.Stats)

	return result
}

// sortLabelsByCount returns labels sorted by total issue count (descending)
func sortLabelsByCount(stats map[string]*LabelStats) []string {
	type labelCount struct {
		label string
		count int
	}

	var lc []labelCount
	for label, s := range stats {
		lc = append(lc, labelCount{label: label, count: s.TotalCount})
	}

	sort.Slice(lc, func(i, j int) bool {
		if lc[i].count != lc[j].count {
			return lc[i].count > lc[j].count
		}
		return lc[i].label < lc[j].label // Alphabetical for ties
	})

	result := make([]string, len(lc))
	for i, l := range lc {
		result[i] = l.label
	}
	return result
}

// BlockedUIDs returns the open issues that have at least one open blocker
// among issues.
func BlockedUIDs(issues map[int]*model.Issue, blocking []model.Link) map[int]bool {
	blocked := make(map[int]bool)
	for _, l := range blocking {
		if l.Target == nil {
			continue
		}
		src, ok := issues[l.Source.UID]
		if !ok || src.Status.IsClosed() {
			continue
		}
		dst, ok := issues[l.Target.UID]
		if !ok || dst.Status.IsClosed() {
			continue
		}
		blocked[dst.UID] = true
	}
	return blocked
}

// GetLabelCooccurrence builds a co-occurrence matrix showing which labels appear together
func GetLabelCooccurrence(issues map[int]*model.Issue) map[string]map[string]int {
	cooc := make(map[string]map[string]int)

	for _, issue := range issues {
		labels := issue.Labels
		// For each pair of labels on the same issue
		for i := 0; i < len(labels); i++ {
			for j := i + 1; j < len(labels); j++ {
				l1, l2 := labels[i], labels[j]
				if l1 == l2 {
					continue
				}
				if cooc[l1] == nil {
					cooc[l1] = make(map[string]int)
				}
				if cooc[l2] == nil {
					cooc[l2] = make(map[string]int)
				}
				cooc[l1][l2]++
				cooc[l2][l1]++
			}
		}
	}

	return cooc
}

// RelatedLabels returns the labels most often seen together with label, most
// frequent first, at most limit of them.
func RelatedLabels(cooc map[string]map[string]int, label string, limit int) []string {
	var out []string
	for other := range cooc[label] {
		out = append(out, other)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := cooc[label][out[i]], cooc[label][out[j]]
		if ci != cj {
			return ci > cj
		}
		return out[i] < out[j]
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
