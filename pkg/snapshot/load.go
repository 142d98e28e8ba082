package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gliv-dev/gliv/pkg/graph"
	"github.com/gliv-dev/gliv/pkg/model"
)

// Load reads the stored snapshot. Links reference the loaded issue values.
func (d *DB) Load(ctx context.Context) (*graph.Snapshot, error) {
	var created string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, metaCreatedAt).Scan(&created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w in %s", ErrNoSnapshot, d.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot time: %w", err)
	}

	s := &graph.Snapshot{CreatedAt: createdAt}

	if s.Projects, err = d.loadProjects(ctx); err != nil {
		return nil, err
	}
	if s.Issues, err = d.loadIssues(ctx); err != nil {
		return nil, err
	}
	if err := d.loadLinks(ctx, s); err != nil {
		return nil, err
	}
	if s.Epics, err = d.loadEpics(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ModifiedAt returns the creation time of the stored snapshot.
func (d *DB) ModifiedAt(ctx context.Context) (time.Time, error) {
	var created string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, metaCreatedAt).Scan(&created)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNoSnapshot
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, created)
}

func (d *DB) loadProjects(ctx context.Context) (map[int]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, name FROM projects`)
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	defer rows.Close()

	projects := make(map[int]string)
	for rows.Next() {
		var id int
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		projects[id] = name
	}
	return projects, rows.Err()
}

func (d *DB) loadIssues(ctx context.Context) (map[int]*model.Issue, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT uid, iid, project_id, title, status, url, has_iteration, epic_id, parent
		FROM issues
	`)
	if err != nil {
		return nil, fmt.Errorf("load issues: %w", err)
	}
	defer rows.Close()

	issues := make(map[int]*model.Issue)
	for rows.Next() {
		var i model.Issue
		var status string
		var epicID, parent sql.NullInt64
		if err := rows.Scan(&i.UID, &i.IID, &i.ProjectID, &i.Title, &status, &i.URL, &i.HasIteration, &epicID, &parent); err != nil {
			return nil, err
		}
		if i.Status, err = model.ParseStatus(status); err != nil {
			return nil, fmt.Errorf("issue %d: %w", i.UID, err)
		}
		i.EpicID = intPtr(epicID)
		i.Parent = intPtr(parent)
		issues[i.UID] = &i
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lrows, err := d.db.QueryContext(ctx, `SELECT issue_uid, label FROM issue_labels ORDER BY issue_uid, label`)
	if err != nil {
		return nil, fmt.Errorf("load issue labels: %w", err)
	}
	defer lrows.Close()
	for lrows.Next() {
		var uid int
		var label string
		if err := lrows.Scan(&uid, &label); err != nil {
			return nil, err
		}
		if i, ok := issues[uid]; ok {
			i.Labels = append(i.Labels, label)
		}
	}
	return issues, lrows.Err()
}

func (d *DB) loadLinks(ctx context.Context, s *graph.Snapshot) error {
	rows, err := d.db.QueryContext(ctx, `
		SELECT link_type, source_uid, target_uid FROM links ORDER BY link_type, ordinal
	`)
	if err != nil {
		return fmt.Errorf("load links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var typ string
		var src, dst int
		if err := rows.Scan(&typ, &src, &dst); err != nil {
			return err
		}
		lt, err := model.ParseLinkType(typ)
		if err != nil {
			return err
		}
		source, target := s.Issues[src], s.Issues[dst]
		if source == nil || target == nil {
			return fmt.Errorf("stored %s link %d -> %d references an unknown issue", lt, src, dst)
		}
		link := model.Link{Source: source, Target: target, Type: lt}
		switch lt {
		case model.LinkRelatesTo:
			s.Related = append(s.Related, link)
		case model.LinkBlocks:
			s.Blocking = append(s.Blocking, link)
		case model.LinkIsChildOf:
			s.Parent = append(s.Parent, link)
		}
	}
	return rows.Err()
}

func (d *DB) loadEpics(ctx context.Context) (map[int]*model.Epic, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT uid, iid, status, title, description, closed_count, total_count, tracks_members FROM epics
	`)
	if err != nil {
		return nil, fmt.Errorf("load epics: %w", err)
	}
	defer rows.Close()

	epics := make(map[int]*model.Epic)
	for rows.Next() {
		var e model.Epic
		var status string
		var tracks bool
		if err := rows.Scan(&e.UID, &e.IID, &status, &e.Title, &e.Description, &e.ClosedCount, &e.TotalCount, &tracks); err != nil {
			return nil, err
		}
		if e.Status, err = model.ParseStatus(status); err != nil {
			return nil, fmt.Errorf("epic %d: %w", e.UID, err)
		}
		if tracks {
			e.MemberUIDs = []int{}
		}
		epics[e.UID] = &e
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lrows, err := d.db.QueryContext(ctx, `SELECT epic_uid, label FROM epic_labels ORDER BY epic_uid, label`)
	if err != nil {
		return nil, fmt.Errorf("load epic labels: %w", err)
	}
	defer lrows.Close()
	for lrows.Next() {
		var uid int
		var label string
		if err := lrows.Scan(&uid, &label); err != nil {
			return nil, err
		}
		if e, ok := epics[uid]; ok {
			e.Labels = append(e.Labels, label)
		}
	}
	if err := lrows.Err(); err != nil {
		return nil, err
	}

	mrows, err := d.db.QueryContext(ctx, `SELECT epic_uid, issue_uid FROM epic_members ORDER BY epic_uid, issue_uid`)
	if err != nil {
		return nil, fmt.Errorf("load epic members: %w", err)
	}
	defer mrows.Close()
	for mrows.Next() {
		var epicUID, issueUID int
		if err := mrows.Scan(&epicUID, &issueUID); err != nil {
			return nil, err
		}
		if e, ok := epics[epicUID]; ok && e.MemberUIDs != nil {
			e.MemberUIDs = append(e.MemberUIDs, issueUID)
		}
	}
	return epics, mrows.Err()
}
