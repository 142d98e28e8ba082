package loader

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/gliv-dev/gliv/pkg/graph"
	"github.com/gliv-dev/gliv/pkg/model"
)

// Record kinds accepted in a JSONL export.
const (
	KindProject = "project"
	KindIssue   = "issue"
	KindEpic    = "epic"
)

// record is one JSONL line. Fields are shaped like the tracker's REST
// payloads so exports from other tools can be fed in unchanged.
type record struct {
	Kind string `json:"kind"`

	// project
	ID   int    `json:"id"`
	Name string `json:"name"`

	// issue and epic
	UID         int      `json:"uid"`
	IID         int      `json:"iid"`
	ProjectID   int      `json:"project_id"`
	Title       string   `json:"title"`
	State       string   `json:"state"`
	WebURL      string   `json:"web_url"`
	Labels      []string `json:"labels"`
	Iteration   bool     `json:"iteration"`
	EpicIID     *int     `json:"epic_iid"`
	Parent      *int     `json:"parent"`
	Links       []link   `json:"links"`
	Description string   `json:"description"`

	Members []graph.MemberRecord `json:"members"`
}

type link struct {
	ID       int    `json:"id"`
	LinkType string `json:"link_type"`
}

// LoadRecordsFromFile reads records directly from a specific JSONL file path.
func LoadRecordsFromFile(path string, logger *zap.Logger) (*graph.Records, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no records found at %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open records file: %w", err)
	}
	defer file.Close()

	return LoadRecords(file, logger)
}

// LoadRecords parses JSONL records from r. Malformed lines are skipped with a
// warning; records with an unknown state or link type abort the load.
func LoadRecords(r io.Reader, logger *zap.Logger) (*graph.Records, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rec := graph.NewRecords()

	scanner := bufio.NewScanner(r)
	// Increase buffer size for large lines (descriptions can be large)
	const maxCapacity = 1024 * 1024 * 10 // 10MB
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var raw record
		if err := json.Unmarshal(line, &raw); err != nil {
			logger.Warn("skipping malformed record", zap.Int("line", lineNum), zap.Error(err))
			continue
		}

		switch raw.Kind {
		case KindProject:
			rec.Projects[raw.ID] = raw.Name
		case KindIssue:
			issue, err := raw.toIssue()
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			if err := rec.AddIssue(issue); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
		case KindEpic:
			rec.Epics = append(rec.Epics, graph.EpicRecord{
				UID:         raw.UID,
				IID:         raw.IID,
				State:       raw.State,
				Title:       raw.Title,
				Labels:      raw.Labels,
				Description: raw.Description,
				Members:     raw.Members,
			})
		default:
			logger.Warn("skipping record of unknown kind", zap.Int("line", lineNum), zap.String("kind", raw.Kind))
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading records: %w", err)
	}

	return rec, nil
}

func (r record) toIssue() (*model.Issue, error) {
	status, err := model.ParseStatus(r.State)
	if err != nil {
		return nil, fmt.Errorf("issue %d: %w", r.UID, err)
	}

	issue := &model.Issue{
		UID:          r.UID,
		IID:          r.IID,
		ProjectID:    r.ProjectID,
		Title:        r.Title,
		Status:       status,
		URL:          r.WebURL,
		Labels:       model.NormalizeLabels(r.Labels),
		HasIteration: r.Iteration,
		EpicID:       r.EpicIID,
		Parent:       r.Parent,
	}
	for _, l := range r.Links {
		t, err := model.ParseRawType(l.LinkType)
		if err != nil {
			return nil, fmt.Errorf("issue %d link to %d: %w", r.UID, l.ID, err)
		}
		issue.RawLinks = append(issue.RawLinks, model.RawLink{TargetUID: l.ID, Type: t})
	}
	return issue, issue.Validate()
}
