// Package config loads gliv's settings from a YAML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gliv-dev/gliv/pkg/filter"
	"github.com/gliv-dev/gliv/pkg/graph"
	"github.com/gliv-dev/gliv/pkg/model"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "gliv.yaml"

// Config holds application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Projects  []model.Project `yaml:"projects"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Relations RelationsConfig `yaml:"relations"`
	Epics     EpicsConfig     `yaml:"epics"`
	View      ViewConfig      `yaml:"view"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig describes the GitLab instance and group to read.
type ServerConfig struct {
	URL               string        `yaml:"url"`
	Token             string        `yaml:"token"`
	Group             string        `yaml:"group"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Concurrency       int           `yaml:"concurrency"`
}

// SnapshotConfig locates the snapshot database.
type SnapshotConfig struct {
	Path string `yaml:"path"`
}

// RelationsConfig selects the "relates to" dedup policy.
type RelationsConfig struct {
	Dedup string `yaml:"dedup"`
}

// EpicsConfig tunes epic aggregation.
type EpicsConfig struct {
	AlwaysTrackMembers bool `yaml:"always_track_members"`
}

// ViewConfig holds the default selection used by render, serve and watch.
// Empty project and label lists select everything in the snapshot.
type ViewConfig struct {
	Projects      []int    `yaml:"projects"`
	Labels        []string `yaml:"labels"`
	ShowUnlabeled bool     `yaml:"show_unlabeled"`
	Closed        string   `yaml:"closed"`
	Zoom          float64  `yaml:"zoom"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			URL:               "https://gitlab.com",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 10,
			Concurrency:       4,
		},
		Snapshot:  SnapshotConfig{Path: ".gliv/snapshot.db"},
		Relations: RelationsConfig{Dedup: graph.PolicyLiteral},
		View: ViewConfig{
			ShowUnlabeled: true,
			Closed:        string(filter.ClosedHide),
			Zoom:          1.0,
		},
		Log: LogConfig{Level: "info", Format: "auto"},
	}
}

// Load reads the file at path over the defaults, then applies environment
// overrides. A missing file is not an error when path is the default.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.URL = getEnvOrDefault("GLIV_GITLAB_URL", c.Server.URL)
	c.Server.Token = getEnvOrDefault("GLIV_GITLAB_TOKEN", c.Server.Token)
	c.Server.Group = getEnvOrDefault("GLIV_GROUP", c.Server.Group)
	c.Snapshot.Path = getEnvOrDefault("GLIV_DB", c.Snapshot.Path)
	c.Log.Level = getEnvOrDefault("GLIV_LOG_LEVEL", c.Log.Level)
	if v := os.Getenv("GLIV_PROJECTS"); v != "" {
		c.Projects = ParseProjects(v)
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if _, err := graph.RelationPolicyByName(c.Relations.Dedup); err != nil {
		return fmt.Errorf("relations.dedup: %w", err)
	}
	if _, err := filter.ParseClosedDisplay(c.View.Closed); err != nil {
		return fmt.Errorf("view.closed: %w", err)
	}
	if c.View.Zoom < 1 || c.View.Zoom > 3 {
		return fmt.Errorf("view.zoom must be between 1 and 3, got %v", c.View.Zoom)
	}
	if c.Server.RequestsPerSecond < 0 {
		return fmt.Errorf("server.requests_per_second must not be negative")
	}
	if c.Server.Concurrency < 1 {
		return fmt.Errorf("server.concurrency must be at least 1")
	}
	if c.Snapshot.Path == "" {
		return fmt.Errorf("snapshot.path must be set")
	}
	return nil
}

// ValidateServer checks the settings needed to contact GitLab.
func (c *Config) ValidateServer() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server.url must be set")
	}
	if c.Server.Token == "" {
		return fmt.Errorf("server.token must be set (or GLIV_GITLAB_TOKEN)")
	}
	if c.Server.Group == "" {
		return fmt.Errorf("server.group must be set (or GLIV_GROUP)")
	}
	return nil
}

// ExtractOptions converts the relation and epic settings.
func (c *Config) ExtractOptions() (graph.ExtractOptions, error) {
	policy, err := graph.RelationPolicyByName(c.Relations.Dedup)
	if err != nil {
		return graph.ExtractOptions{}, err
	}
	return graph.ExtractOptions{
		RelationPolicy: policy,
		Epics:          graph.EpicOptions{AlwaysTrackMembers: c.Epics.AlwaysTrackMembers},
	}, nil
}

// Criteria builds the default selection for a snapshot.
func (c *Config) Criteria(s *graph.Snapshot) (filter.Criteria, error) {
	closed, err := filter.ParseClosedDisplay(c.View.Closed)
	if err != nil {
		return filter.Criteria{}, err
	}
	projects := c.View.Projects
	if len(projects) == 0 {
		projects = s.ProjectIDs()
	}
	labels := c.View.Labels
	if len(labels) == 0 {
		labels = graph.KnownLabels(s.Issues)
	}
	return filter.NewCriteria(projects, labels, c.View.ShowUnlabeled, closed), nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// ParseProjects reads "12,34:web" style lists; names are optional and
// entries without a numeric id are skipped.
func ParseProjects(v string) []model.Project {
	var out []model.Project
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idStr, name, _ := strings.Cut(part, ":")
		id, err := strconv.Atoi(idStr)
		if err != nil {
			continue
		}
		out = append(out, model.Project{ID: id, Name: name})
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
