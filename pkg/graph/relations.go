package graph

import (
	"fmt"

	"github.com/gliv-dev/gliv/pkg/model"
)

// RelationPolicy decides whether a candidate "relates to" edge is admitted
// given the edges admitted so far.
type RelationPolicy interface {
	Admit(admitted []model.Link, candidate model.Link) bool
	Name() string
}

// Policy names accepted by RelationPolicyByName.
const (
	PolicyLiteral   = "literal"
	PolicySymmetric = "symmetric"
)

// LiteralRelationPolicy drops a candidate when any admitted edge has no
// target, or when any admitted edge points at the candidate's source.
// The comparison is asymmetric and depends on admission order.
type LiteralRelationPolicy struct{}

func (LiteralRelationPolicy) Name() string { return PolicyLiteral }

func (LiteralRelationPolicy) Admit(admitted []model.Link, candidate model.Link) bool {
	for _, l := range admitted {
		if l.Target == nil {
			return false
		}
		if l.Target.UID == candidate.Source.UID {
			return false
		}
	}
	return true
}

// SymmetricRelationPolicy treats relations as unordered pairs and drops a
// candidate only if the same pair was already admitted in either direction.
type SymmetricRelationPolicy struct{}

func (SymmetricRelationPolicy) Name() string { return PolicySymmetric }

func (SymmetricRelationPolicy) Admit(admitted []model.Link, candidate model.Link) bool {
	if candidate.Target == nil {
		return false
	}
	a, b := candidate.Source.UID, candidate.Target.UID
	for _, l := range admitted {
		if l.Target == nil {
			continue
		}
		x, y := l.Source.UID, l.Target.UID
		if (x == a && y == b) || (x == b && y == a) {
			return false
		}
	}
	return true
}

// RelationPolicyByName returns the policy registered under name. An empty
// name selects the literal policy.
func RelationPolicyByName(name string) (RelationPolicy, error) {
	switch name {
	case "", PolicyLiteral:
		return LiteralRelationPolicy{}, nil
	case PolicySymmetric:
		return SymmetricRelationPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown relation dedup policy %q (want %q or %q)", name, PolicyLiteral, PolicySymmetric)
}

// RelationSet accumulates admitted "relates to" edges in admission order.
type RelationSet struct {
	policy RelationPolicy
	links  []model.Link
}

// NewRelationSet creates an empty set governed by policy (literal if nil).
func NewRelationSet(policy RelationPolicy) *RelationSet {
	if policy == nil {
		policy = LiteralRelationPolicy{}
	}
	return &RelationSet{policy: policy}
}

// Add offers a candidate edge and reports whether it was admitted.
func (s *RelationSet) Add(candidate model.Link) bool {
	if !s.policy.Admit(s.links, candidate) {
		return false
	}
	s.links = append(s.links, candidate)
	return true
}

// Links returns the admitted edges.
func (s *RelationSet) Links() []model.Link {
	out := make([]model.Link, len(s.links))
	copy(out, s.links)
	return out
}

// Len returns the number of admitted edges.
func (s *RelationSet) Len() int {
	return len(s.links)
}
