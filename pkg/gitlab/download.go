package gitlab

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	gl "gitlab.com/gitlab-org/api/client-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gliv-dev/gliv/pkg/graph"
	"github.com/gliv-dev/gliv/pkg/model"
)

// DownloadOptions selects what to fetch.
type DownloadOptions struct {
	Group string
	// Projects restricts the download; empty means every group project.
	Projects    []model.Project
	Concurrency int
}

// Downloader assembles the raw records of a group.
type Downloader struct {
	client *Client
	opts   DownloadOptions
	logger *zap.Logger
}

// NewDownloader creates a downloader.
func NewDownloader(client *Client, opts DownloadOptions, logger *zap.Logger) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Downloader{client: client, opts: opts, logger: logger}
}

// Download fetches projects, issues with their links and parents, and epics
// with their member states.
func (d *Downloader) Download(ctx context.Context) (*graph.Records, error) {
	groupProjects, err := d.client.ListGroupProjects(ctx, d.opts.Group)
	if err != nil {
		return nil, err
	}
	d.logger.Info("projects in group", zap.String("group", d.opts.Group), zap.Int("count", len(groupProjects)))

	rec := graph.NewRecords()
	names := make(map[int]string, len(groupProjects))
	for _, p := range groupProjects {
		names[p.ID] = p.Name
	}
	take := d.opts.Projects
	if len(take) == 0 {
		for _, p := range groupProjects {
			take = append(take, model.Project{ID: p.ID, Name: p.Name})
		}
	}
	for _, p := range take {
		name := p.Name
		if name == "" {
			name = names[p.ID]
		}
		rec.Projects[p.ID] = name
	}

	issues, err := d.downloadIssues(ctx, take)
	if err != nil {
		return nil, err
	}
	for _, issue := range issues {
		if err := rec.AddIssue(issue); err != nil {
			return nil, err
		}
	}

	epics, err := d.downloadEpics(ctx)
	if err != nil {
		return nil, err
	}
	rec.Epics = epics

	d.logger.Info("download complete",
		zap.Int("projects", len(rec.Projects)),
		zap.Int("issues", len(rec.Issues)),
		zap.Int("epics", len(rec.Epics)))
	return rec, nil
}

func (d *Downloader) downloadIssues(ctx context.Context, projects []model.Project) ([]*model.Issue, error) {
	var mu sync.Mutex
	var raw []*gl.Issue

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Concurrency)
	for _, p := range projects {
		g.Go(func() error {
			issues, err := d.client.ListProjectIssues(gctx, p.ID)
			if err != nil {
				return err
			}
			d.logger.Debug("issues in project", zap.Int("project_id", p.ID), zap.Int("count", len(issues)))
			mu.Lock()
			raw = append(raw, issues...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*model.Issue, len(raw))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Concurrency)
	for i, ri := range raw {
		g.Go(func() error {
			issue, err := d.convertIssue(gctx, ri)
			if err != nil {
				return err
			}
			out[i] = issue
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (d *Downloader) convertIssue(ctx context.Context, ri *gl.Issue) (*model.Issue, error) {
	status, err := model.ParseStatus(ri.State)
	if err != nil {
		return nil, fmt.Errorf("issue %d/%d: %w", ri.ProjectID, ri.IID, err)
	}

	links, err := d.client.ListIssueLinks(ctx, ri.ProjectID, ri.IID)
	if err != nil {
		return nil, err
	}
	parent, err := d.client.IssueParent(ctx, ri.ID)
	if err != nil {
		return nil, err
	}

	issue := &model.Issue{
		UID:          ri.ID,
		IID:          ri.IID,
		ProjectID:    ri.ProjectID,
		Title:        ri.Title,
		Status:       status,
		URL:          ri.WebURL,
		Labels:       model.NormalizeLabels([]string(ri.Labels)),
		HasIteration: ri.Iteration != nil,
		Parent:       parent,
	}
	if ri.Epic != nil {
		epicIID := ri.Epic.IID
		issue.EpicID = &epicIID
	}
	for _, l := range links {
		t, err := model.ParseRawType(l.LinkType)
		if err != nil {
			return nil, fmt.Errorf("issue %d/%d link to %d: %w", ri.ProjectID, ri.IID, l.ID, err)
		}
		issue.RawLinks = append(issue.RawLinks, model.RawLink{TargetUID: l.ID, Type: t})
	}
	return issue, issue.Validate()
}

func (d *Downloader) downloadEpics(ctx context.Context) ([]graph.EpicRecord, error) {
	epics, err := d.client.ListGroupEpics(ctx, d.opts.Group)
	if errors.Is(err, ErrEpicsUnavailable) {
		d.logger.Info("epics not available for group, continuing without", zap.String("group", d.opts.Group), zap.Error(err))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]graph.EpicRecord, len(epics))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Concurrency)
	for i, e := range epics {
		g.Go(func() error {
			issues, err := d.client.ListEpicIssues(gctx, d.opts.Group, e.IID)
			if err != nil {
				return err
			}
			members := make([]graph.MemberRecord, len(issues))
			for j, is := range issues {
				members[j] = graph.MemberRecord{UID: is.ID, State: is.State}
			}
			out[i] = graph.EpicRecord{
				UID:         e.ID,
				IID:         e.IID,
				State:       e.State,
				Title:       e.Title,
				Labels:      []string(e.Labels),
				Description: e.Description,
				Members:     members,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
