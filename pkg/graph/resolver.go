// Package graph turns raw tracker records into the typed issue graph:
// link resolution, "relates to" deduplication, epic aggregation and the
// assembly of filtered views.
package graph

import (
	"sort"

	"go.uber.org/zap"

	"github.com/gliv-dev/gliv/pkg/model"
)

// Links holds the resolved edge collections in resolution order.
type Links struct {
	Related  []model.Link
	Blocking []model.Link
	Parent   []model.Link
}

// Total returns the number of edges over all collections.
func (l Links) Total() int {
	return len(l.Related) + len(l.Blocking) + len(l.Parent)
}

// Resolver converts each issue's raw link stubs into typed edges against the
// full issue index. Dangling references are logged and dropped.
type Resolver struct {
	logger *zap.Logger
	policy RelationPolicy
}

// NewResolver creates a resolver. A nil logger discards warnings and a nil
// policy selects LiteralRelationPolicy.
func NewResolver(logger *zap.Logger, policy RelationPolicy) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == nil {
		policy = LiteralRelationPolicy{}
	}
	return &Resolver{logger: logger, policy: policy}
}

// Resolve walks issues in ascending UID order. The index must already hold
// every known issue; resolution never fails as a whole.
func (r *Resolver) Resolve(issues map[int]*model.Issue) Links {
	var out Links
	related := NewRelationSet(r.policy)

	for _, uid := range SortedUIDs(issues) {
		src := issues[uid]
		for _, raw := range src.RawLinks {
			dst, ok := issues[raw.TargetUID]
			if !ok {
				r.warnDangling(src, raw.TargetUID, "link")
				continue
			}

			switch raw.Type {
			case model.RawIsBlockedBy:
				// The mirrored "blocks" stub on the other endpoint carries this edge.
				continue
			case model.RawBlocks:
				out.Blocking = append(out.Blocking, model.Link{Source: src, Target: dst, Type: model.LinkBlocks})
			case model.RawRelatesTo:
				related.Add(model.Link{Source: src, Target: dst, Type: model.LinkRelatesTo})
			default:
				r.logger.Warn("ignoring link of unknown type",
					zap.Int("project_id", src.ProjectID),
					zap.Int("iid", src.IID),
					zap.String("link_type", string(raw.Type)))
			}
		}

		if src.Parent == nil {
			continue
		}
		parent, ok := issues[*src.Parent]
		if !ok {
			r.warnDangling(src, *src.Parent, "parent")
			continue
		}
		out.Parent = append(out.Parent, model.Link{Source: src, Target: parent, Type: model.LinkIsChildOf})
	}

	out.Related = related.Links()
	r.logger.Info("resolved issue links",
		zap.Int("related", len(out.Related)),
		zap.Int("blocking", len(out.Blocking)),
		zap.Int("parent", len(out.Parent)))
	return out
}

func (r *Resolver) warnDangling(src *model.Issue, target int, kind string) {
	r.logger.Warn("cannot find target of "+kind,
		zap.Int("target_uid", target),
		zap.Int("project_id", src.ProjectID),
		zap.Int("iid", src.IID),
		zap.String("title", src.Title))
}

// SortedUIDs returns the keys of issues in ascending order.
func SortedUIDs(issues map[int]*model.Issue) []int {
	uids := make([]int, 0, len(issues))
	for uid := range issues {
		uids = append(uids, uid)
	}
	sort.Ints(uids)
	return uids
}
