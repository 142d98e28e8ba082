// Package snapshot persists extraction results in a SQLite database so the
// render stages can run without contacting the tracker.
package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gliv-dev/gliv/pkg/graph"
	"github.com/gliv-dev/gliv/pkg/model"
)

// ErrNoSnapshot is returned when the database holds no extraction result.
var ErrNoSnapshot = errors.New("no snapshot found")

// DB handles snapshot persistence
type DB struct {
	db   *sql.DB
	path string
}

// OpenDB opens or creates the snapshot database at the given path
func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sdb := &DB{db: db, path: dbPath}
	if err := sdb.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return sdb, nil
}

// OpenExisting opens a database that must already exist.
func OpenExisting(dbPath string) (*DB, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w at %s", ErrNoSnapshot, dbPath)
	}
	return OpenDB(dbPath)
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS issues (
		uid INTEGER PRIMARY KEY,
		iid INTEGER NOT NULL,
		project_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		status TEXT NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		has_iteration INTEGER NOT NULL DEFAULT 0,
		epic_id INTEGER,
		parent INTEGER
	);

	CREATE TABLE IF NOT EXISTS issue_labels (
		issue_uid INTEGER NOT NULL REFERENCES issues(uid) ON DELETE CASCADE,
		label TEXT NOT NULL,
		PRIMARY KEY (issue_uid, label)
	);

	CREATE TABLE IF NOT EXISTS links (
		ordinal INTEGER NOT NULL,
		link_type TEXT NOT NULL,
		source_uid INTEGER NOT NULL REFERENCES issues(uid) ON DELETE CASCADE,
		target_uid INTEGER NOT NULL REFERENCES issues(uid) ON DELETE CASCADE,
		PRIMARY KEY (link_type, ordinal)
	);

	CREATE TABLE IF NOT EXISTS epics (
		uid INTEGER PRIMARY KEY,
		iid INTEGER NOT NULL,
		status TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		closed_count INTEGER NOT NULL,
		total_count INTEGER NOT NULL,
		tracks_members INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS epic_labels (
		epic_uid INTEGER NOT NULL REFERENCES epics(uid) ON DELETE CASCADE,
		label TEXT NOT NULL,
		PRIMARY KEY (epic_uid, label)
	);

	CREATE TABLE IF NOT EXISTS epic_members (
		epic_uid INTEGER NOT NULL REFERENCES epics(uid) ON DELETE CASCADE,
		issue_uid INTEGER NOT NULL,
		PRIMARY KEY (epic_uid, issue_uid)
	);

	CREATE INDEX IF NOT EXISTS idx_issues_project ON issues(project_id);
	`

	_, err := d.db.Exec(schema)
	return err
}

const metaCreatedAt = "created_at"

// Save replaces the stored snapshot with s in a single transaction.
func (d *DB) Save(ctx context.Context, s *graph.Snapshot) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"epic_members", "epic_labels", "epics", "links", "issue_labels", "issues", "projects", "meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`,
		metaCreatedAt, s.CreatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	for id, name := range s.Projects {
		if _, err := tx.ExecContext(ctx, `INSERT INTO projects (id, name) VALUES (?, ?)`, id, name); err != nil {
			return fmt.Errorf("save project %d: %w", id, err)
		}
	}

	if err := saveIssues(ctx, tx, s.Issues); err != nil {
		return err
	}

	for _, coll := range [][]model.Link{s.Related, s.Blocking, s.Parent} {
		if err := saveLinks(ctx, tx, coll); err != nil {
			return err
		}
	}

	if err := saveEpics(ctx, tx, s.Epics); err != nil {
		return err
	}

	return tx.Commit()
}

func saveIssues(ctx context.Context, tx *sql.Tx, issues map[int]*model.Issue) error {
	issueStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO issues (uid, iid, project_id, title, status, url, has_iteration, epic_id, parent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer issueStmt.Close()

	labelStmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO issue_labels (issue_uid, label) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer labelStmt.Close()

	for _, uid := range graph.SortedUIDs(issues) {
		i := issues[uid]
		if _, err := issueStmt.ExecContext(ctx, i.UID, i.IID, i.ProjectID, i.Title, string(i.Status), i.URL,
			i.HasIteration, nullInt(i.EpicID), nullInt(i.Parent)); err != nil {
			return fmt.Errorf("save issue %d: %w", i.UID, err)
		}
		for _, l := range i.Labels {
			if _, err := labelStmt.ExecContext(ctx, i.UID, l); err != nil {
				return fmt.Errorf("save label of issue %d: %w", i.UID, err)
			}
		}
	}
	return nil
}

func saveLinks(ctx context.Context, tx *sql.Tx, links []model.Link) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO links (ordinal, link_type, source_uid, target_uid) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for ord, l := range links {
		if l.Target == nil {
			return fmt.Errorf("refusing to save %s link from %d without target", l.Type, l.Source.UID)
		}
		if _, err := stmt.ExecContext(ctx, ord, string(l.Type), l.Source.UID, l.Target.UID); err != nil {
			return fmt.Errorf("save link %s: %w", l, err)
		}
	}
	return nil
}

func saveEpics(ctx context.Context, tx *sql.Tx, epics map[int]*model.Epic) error {
	for uid, e := range epics {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO epics (uid, iid, status, title, description, closed_count, total_count, tracks_members)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, uid, e.IID, string(e.Status), e.Title, e.Description, e.ClosedCount, e.TotalCount, e.MemberUIDs != nil); err != nil {
			return fmt.Errorf("save epic %d: %w", uid, err)
		}
		for _, l := range e.Labels {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO epic_labels (epic_uid, label) VALUES (?, ?)`, uid, l); err != nil {
				return fmt.Errorf("save label of epic %d: %w", uid, err)
			}
		}
		for _, m := range e.MemberUIDs {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO epic_members (epic_uid, issue_uid) VALUES (?, ?)`, uid, m); err != nil {
				return fmt.Errorf("save member of epic %d: %w", uid, err)
			}
		}
	}
	return nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
