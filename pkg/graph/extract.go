package graph

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/gliv-dev/gliv/pkg/filter"
	"github.com/gliv-dev/gliv/pkg/model"
)

// Snapshot is the consistent result of one extraction run. Nothing in it is
// modified after Extract returns.
type Snapshot struct {
	CreatedAt time.Time
	Projects  map[int]string
	Issues    map[int]*model.Issue
	Related   []model.Link
	Blocking  []model.Link
	Parent    []model.Link
	Epics     map[int]*model.Epic
}

// Records is the raw input of an extraction run: the complete issue index,
// the epics with their member records, and project names.
type Records struct {
	Projects map[int]string
	Issues   map[int]*model.Issue
	Epics    []EpicRecord
}

// NewRecords returns an empty record set.
func NewRecords() *Records {
	return &Records{
		Projects: make(map[int]string),
		Issues:   make(map[int]*model.Issue),
	}
}

// AddIssue indexes issue by UID. UIDs must be unique across all projects.
func (r *Records) AddIssue(issue *model.Issue) error {
	if prev, ok := r.Issues[issue.UID]; ok {
		return fmt.Errorf("duplicate issue uid %d (%s and %s)", issue.UID, prev.Ref(), issue.Ref())
	}
	r.Issues[issue.UID] = issue
	return nil
}

// ExtractOptions configures an Extractor.
type ExtractOptions struct {
	RelationPolicy RelationPolicy
	Epics          EpicOptions
}

// Extractor runs resolution and aggregation over a downloaded record set.
type Extractor struct {
	logger   *zap.Logger
	resolver *Resolver
	epicOpts EpicOptions
	now      func() time.Time
}

// NewExtractor creates an extractor.
func NewExtractor(opts ExtractOptions, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		logger:   logger,
		resolver: NewResolver(logger, opts.RelationPolicy),
		epicOpts: opts.Epics,
		now:      time.Now,
	}
}

// Extract validates the issues, resolves links and aggregates epics. The
// issue map must be complete; UIDs are its keys and must match each issue.
// The snapshot holds copies of the issues with their raw links consumed;
// rec is left unchanged.
func (e *Extractor) Extract(rec *Records) (*Snapshot, error) {
	epics, projects := rec.Epics, rec.Projects
	issues := make(map[int]*model.Issue, len(rec.Issues))
	for uid, issue := range rec.Issues {
		if issue.UID != uid {
			return nil, fmt.Errorf("issue index key %d does not match issue uid %d", uid, issue.UID)
		}
		if err := issue.Validate(); err != nil {
			return nil, err
		}
		c := issue.Clone()
		issues[uid] = &c
	}

	links := e.resolver.Resolve(issues)
	for _, issue := range issues {
		issue.RawLinks = nil
	}

	aggregated, err := AggregateEpics(epics, e.epicOpts)
	if err != nil {
		return nil, fmt.Errorf("aggregate epics: %w", err)
	}
	e.logger.Info("aggregated epics", zap.Int("epics", len(aggregated)))

	layering := LayerByBlocking(issues, links.Blocking)
	for _, cycle := range layering.Cycles {
		e.logger.Warn("blocking cycle detected", zap.Ints("uids", cycle))
	}

	names := make(map[int]string, len(projects))
	for id, name := range projects {
		names[id] = name
	}
	for _, issue := range issues {
		if _, ok := names[issue.ProjectID]; !ok {
			names[issue.ProjectID] = fmt.Sprintf("project %d", issue.ProjectID)
		}
	}

	return &Snapshot{
		CreatedAt: e.now().UTC(),
		Projects:  names,
		Issues:    issues,
		Related:   links.Related,
		Blocking:  links.Blocking,
		Parent:    links.Parent,
		Epics:     aggregated,
	}, nil
}

// ProjectIDs returns the snapshot's project IDs in ascending order.
func (s *Snapshot) ProjectIDs() []int {
	ids := make([]int, 0, len(s.Projects))
	for id := range s.Projects {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// DefaultCriteria selects every project and every known label, the way the
// viewer opens: unlabeled issues shown, closed issues hidden.
func (s *Snapshot) DefaultCriteria() filter.Criteria {
	return filter.NewCriteria(s.ProjectIDs(), KnownLabels(s.Issues), true, filter.ClosedHide)
}

// View is what the renderer receives: the visible issues and the full edge
// collections. Edges whose endpoints are not visible are left to the renderer.
type View struct {
	Projects            map[int]string
	Issues              map[int]*model.Issue
	Related             []model.Link
	Blocking            []model.Link
	Parent              []model.Link
	Epics               map[int]*model.Epic
	ExcludeClosedIssues bool
	SelectedProjects    int
}

// Assemble applies criteria to the snapshot.
func Assemble(s *Snapshot, c filter.Criteria) *View {
	return &View{
		Projects:            s.Projects,
		Issues:              c.Apply(s.Issues),
		Related:             s.Related,
		Blocking:            s.Blocking,
		Parent:              s.Parent,
		Epics:               s.Epics,
		ExcludeClosedIssues: c.ExcludeClosedIssues(),
		SelectedProjects:    len(c.SelectedProjects()),
	}
}

// Summary is the one-line description of the selection.
func (v *View) Summary() string {
	return fmt.Sprintf("Selected %d issues from %d projects.", len(v.Issues), v.SelectedProjects)
}

// SortedIssues returns the visible issues by project, then iid.
func (v *View) SortedIssues() []*model.Issue {
	out := make([]*model.Issue, 0, len(v.Issues))
	for _, issue := range v.Issues {
		out = append(out, issue)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProjectID != out[j].ProjectID {
			return out[i].ProjectID < out[j].ProjectID
		}
		if out[i].IID != out[j].IID {
			return out[i].IID < out[j].IID
		}
		return out[i].UID < out[j].UID
	})
	return out
}

// VisibleEdges returns the edges of links whose endpoints are both visible.
func (v *View) VisibleEdges(links []model.Link) []model.Link {
	var out []model.Link
	for _, l := range links {
		if l.Target == nil {
			continue
		}
		if _, ok := v.Issues[l.Source.UID]; !ok {
			continue
		}
		if _, ok := v.Issues[l.Target.UID]; !ok {
			continue
		}
		out = append(out, l)
	}
	return out
}

// KnownLabels returns every label used by any issue, sorted.
func KnownLabels(issues map[int]*model.Issue) []string {
	seen := make(map[string]bool)
	for _, issue := range issues {
		for _, l := range issue.Labels {
			seen[l] = true
		}
	}
	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// ReferencedEpics returns the epics that visible issues belong to, in
// SortedEpics order. Issues reference epics by IID.
func (v *View) ReferencedEpics() []*model.Epic {
	referenced := make(map[int]bool)
	for _, issue := range v.Issues {
		if issue.EpicID != nil {
			referenced[*issue.EpicID] = true
		}
	}
	var out []*model.Epic
	for _, e := range SortedEpics(v.Epics) {
		if referenced[e.IID] {
			out = append(out, e)
		}
	}
	return out
}
