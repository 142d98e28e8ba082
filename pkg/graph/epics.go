package graph

import (
	"fmt"
	"sort"

	"github.com/gliv-dev/gliv/pkg/model"
)

// EpicRecord is an epic as delivered by the download stage, with the raw
// records of its member issues.
type EpicRecord struct {
	UID         int            `json:"uid"`
	IID         int            `json:"iid"`
	State       string         `json:"state"`
	Title       string         `json:"title"`
	Labels      []string       `json:"labels,omitempty"`
	Description string         `json:"description,omitempty"`
	Members     []MemberRecord `json:"members,omitempty"`
}

// MemberRecord is the part of a member issue the aggregator needs.
type MemberRecord struct {
	UID   int    `json:"uid"`
	State string `json:"state"`
}

// EpicOptions tunes epic aggregation.
type EpicOptions struct {
	// AlwaysTrackMembers records MemberUIDs even when no member is closed.
	AlwaysTrackMembers bool
}

// AggregateEpics computes completion counts per epic, keyed by epic UID.
// Member UIDs are recorded only once at least one member is closed, unless
// opts.AlwaysTrackMembers is set.
func AggregateEpics(records []EpicRecord, opts EpicOptions) (map[int]*model.Epic, error) {
	epics := make(map[int]*model.Epic, len(records))

	for _, rec := range records {
		status, err := model.ParseStatus(rec.State)
		if err != nil {
			return nil, fmt.Errorf("epic %d (%q): %w", rec.IID, rec.Title, err)
		}

		closed := 0
		for _, m := range rec.Members {
			ms, err := model.ParseStatus(m.State)
			if err != nil {
				return nil, fmt.Errorf("epic %d member %d: %w", rec.IID, m.UID, err)
			}
			if ms.IsClosed() {
				closed++
			}
		}

		epic := &model.Epic{
			UID:         rec.UID,
			IID:         rec.IID,
			Status:      status,
			Title:       rec.Title,
			Labels:      model.NormalizeLabels(rec.Labels),
			Description: rec.Description,
			ClosedCount: closed,
			TotalCount:  len(rec.Members),
		}
		if closed > 0 || opts.AlwaysTrackMembers {
			epic.MemberUIDs = memberUIDs(rec.Members)
		}
		epics[rec.UID] = epic
	}

	return epics, nil
}

// memberUIDs returns the distinct member UIDs, sorted. Never nil.
func memberUIDs(members []MemberRecord) []int {
	seen := make(map[int]bool, len(members))
	uids := make([]int, 0, len(members))
	for _, m := range members {
		if seen[m.UID] {
			continue
		}
		seen[m.UID] = true
		uids = append(uids, m.UID)
	}
	sort.Ints(uids)
	return uids
}

// SortedEpics returns epics ordered by progress (incomplete first), then title.
func SortedEpics(epics map[int]*model.Epic) []*model.Epic {
	out := make([]*model.Epic, 0, len(epics))
	for _, e := range epics {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := out[i].Progress(), out[j].Progress()
		if pi == pj {
			if out[i].Title == out[j].Title {
				return out[i].UID < out[j].UID
			}
			return out[i].Title < out[j].Title
		}
		return pi < pj
	})
	return out
}
