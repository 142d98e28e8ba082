package model

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownStatus is returned when a tracker state has no Status mapping.
var ErrUnknownStatus = errors.New("unknown status")

// ErrUnknownLinkType is returned when a tracker link type has no mapping.
var ErrUnknownLinkType = errors.New("unknown link type")

// Issue represents a trackable work item
type Issue struct {
	UID          int       `json:"uid"`
	IID          int       `json:"iid"`
	ProjectID    int       `json:"project_id"`
	Title        string    `json:"title"`
	Status       Status    `json:"status"`
	URL          string    `json:"url"`
	Labels       []string  `json:"labels,omitempty"`
	HasIteration bool      `json:"has_iteration,omitempty"`
	EpicID       *int      `json:"epic_id,omitempty"`
	Parent       *int      `json:"parent,omitempty"`
	RawLinks     []RawLink `json:"-"`
}

// RawLink is an unresolved outgoing link as reported by the tracker.
// It only lives until the resolver has consumed it.
type RawLink struct {
	TargetUID int     `json:"target_uid"`
	Type      RawType `json:"link_type"`
}

// Clone creates a deep copy of the issue
func (i Issue) Clone() Issue {
	clone := i

	if i.EpicID != nil {
		v := *i.EpicID
		clone.EpicID = &v
	}
	if i.Parent != nil {
		v := *i.Parent
		clone.Parent = &v
	}
	if i.Labels != nil {
		clone.Labels = make([]string, len(i.Labels))
		copy(clone.Labels, i.Labels)
	}
	if i.RawLinks != nil {
		clone.RawLinks = make([]RawLink, len(i.RawLinks))
		copy(clone.RawLinks, i.RawLinks)
	}

	return clone
}

// Validate checks if the issue data is logically valid
func (i *Issue) Validate() error {
	if i.UID <= 0 {
		return fmt.Errorf("issue uid must be positive, got %d", i.UID)
	}
	if !i.Status.IsValid() {
		return fmt.Errorf("issue %d: %w: %q", i.UID, ErrUnknownStatus, i.Status)
	}
	for _, l := range i.RawLinks {
		if !l.Type.IsValid() {
			return fmt.Errorf("issue %d: %w: %q", i.UID, ErrUnknownLinkType, l.Type)
		}
	}
	return nil
}

// HasLabel reports whether the issue carries the given label.
func (i *Issue) HasLabel(label string) bool {
	for _, l := range i.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Ref is the short "project/iid" form used in log messages.
func (i *Issue) Ref() string {
	return fmt.Sprintf("%d/%d", i.ProjectID, i.IID)
}

// Status represents the current state of an issue or epic
type Status string

const (
	StatusOpened Status = "opened"
	StatusClosed Status = "closed"
)

// ParseStatus maps a tracker state onto a Status. The mapping is total only
// over the known states; anything else is an error.
func ParseStatus(state string) (Status, error) {
	switch s := Status(state); s {
	case StatusOpened, StatusClosed:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, state)
}

// IsValid returns true if the status is a recognized value
func (s Status) IsValid() bool {
	switch s {
	case StatusOpened, StatusClosed:
		return true
	}
	return false
}

// IsClosed returns true if the status represents a closed state
func (s Status) IsClosed() bool {
	return s == StatusClosed
}

// RawType is the link type as the tracker reports it on one endpoint.
type RawType string

const (
	RawBlocks      RawType = "blocks"
	RawIsBlockedBy RawType = "is_blocked_by"
	RawRelatesTo   RawType = "relates_to"
)

// ParseRawType maps a tracker link type onto a RawType.
func ParseRawType(linkType string) (RawType, error) {
	switch t := RawType(linkType); t {
	case RawBlocks, RawIsBlockedBy, RawRelatesTo:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLinkType, linkType)
}

// IsValid returns true if the raw link type is a recognized value
func (t RawType) IsValid() bool {
	switch t {
	case RawBlocks, RawIsBlockedBy, RawRelatesTo:
		return true
	}
	return false
}

// LinkType categorizes a resolved relationship
type LinkType string

const (
	LinkBlocks    LinkType = "blocks"
	LinkRelatesTo LinkType = "relates_to"
	LinkIsChildOf LinkType = "is_child_of"
)

// ParseLinkType maps a stored link type back onto a LinkType.
func ParseLinkType(linkType string) (LinkType, error) {
	switch t := LinkType(linkType); t {
	case LinkBlocks, LinkRelatesTo, LinkIsChildOf:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLinkType, linkType)
}

// IsValid returns true if the link type is a recognized value
func (t LinkType) IsValid() bool {
	switch t {
	case LinkBlocks, LinkRelatesTo, LinkIsChildOf:
		return true
	}
	return false
}

// Link is a typed, directed edge between two issues. A nil Target marks an
// attempted link to an issue outside the known collection.
type Link struct {
	Source *Issue
	Target *Issue
	Type   LinkType
}

func (l Link) String() string {
	target := "<missing>"
	if l.Target != nil {
		target = l.Target.Ref()
	}
	return fmt.Sprintf("%s -%s-> %s", l.Source.Ref(), l.Type, target)
}

// Epic groups child issues and carries their completion counts.
type Epic struct {
	UID         int      `json:"uid"`
	IID         int      `json:"iid"`
	Status      Status   `json:"status"`
	Title       string   `json:"title"`
	Labels      []string `json:"labels,omitempty"`
	Description string   `json:"description,omitempty"`
	ClosedCount int      `json:"closed_count"`
	TotalCount  int      `json:"total_count"`
	// MemberUIDs is nil unless membership is tracked for this epic.
	MemberUIDs []int `json:"member_uids,omitempty"`
}

// Progress returns the closed fraction of the epic's issues.
func (e *Epic) Progress() float64 {
	if e.TotalCount == 0 {
		return 0
	}
	return float64(e.ClosedCount) / float64(e.TotalCount)
}

// Validate checks the count invariants of the epic
func (e *Epic) Validate() error {
	if !e.Status.IsValid() {
		return fmt.Errorf("epic %d: %w: %q", e.UID, ErrUnknownStatus, e.Status)
	}
	if e.ClosedCount < 0 || e.TotalCount < 0 {
		return fmt.Errorf("epic %d: negative counts %d/%d", e.UID, e.ClosedCount, e.TotalCount)
	}
	if e.ClosedCount > e.TotalCount {
		return fmt.Errorf("epic %d: closed count %d exceeds total %d", e.UID, e.ClosedCount, e.TotalCount)
	}
	return nil
}

// Project names a tracker project.
type Project struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// NormalizeLabels returns labels sorted with duplicates and empty entries removed.
func NormalizeLabels(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
