package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/gliv-dev/gliv/pkg/filter"
	"github.com/gliv-dev/gliv/pkg/graph"
	"github.com/gliv-dev/gliv/pkg/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gliv.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  url: https://gitlab.example.com
  token: secret
  group: shop
  timeout: 5s
projects:
  - id: 10
    name: backend
relations:
  dedup: symmetric
epics:
  always_track_members: true
view:
  closed: numbers
  zoom: 2
  labels: [bug]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Server.URL != "https://gitlab.example.com" || cfg.Server.Token != "secret" || cfg.Server.Group != "shop" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", cfg.Server.Timeout)
	}
	if cfg.Server.Concurrency != 4 {
		t.Errorf("defaults not kept for unset fields: concurrency = %d", cfg.Server.Concurrency)
	}
	if !reflect.DeepEqual(cfg.Projects, []model.Project{{ID: 10, Name: "backend"}}) {
		t.Errorf("projects = %v", cfg.Projects)
	}
	if cfg.View.Closed != "numbers" || cfg.View.Zoom != 2 || !cfg.View.ShowUnlabeled {
		t.Errorf("view = %+v", cfg.View)
	}
	if err := cfg.ValidateServer(); err != nil {
		t.Errorf("ValidateServer: %v", err)
	}

	opts, err := cfg.ExtractOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.RelationPolicy.Name() != graph.PolicySymmetric || !opts.Epics.AlwaysTrackMembers {
		t.Errorf("extract options = %+v", opts)
	}
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected defaults without a config file, got %v", err)
	}
	if cfg.Snapshot.Path != ".gliv/snapshot.db" || cfg.View.Closed != string(filter.ClosedHide) {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GLIV_GITLAB_TOKEN", "from-env")
	t.Setenv("GLIV_GROUP", "42")
	t.Setenv("GLIV_DB", "/tmp/x.db")
	t.Setenv("GLIV_PROJECTS", "12, 34:web, bad")

	cfg, err := Load(writeConfig(t, "server:\n  token: from-file\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Token != "from-env" || cfg.Server.Group != "42" || cfg.Snapshot.Path != "/tmp/x.db" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	want := []model.Project{{ID: 12}, {ID: 34, Name: "web"}}
	if !reflect.DeepEqual(cfg.Projects, want) {
		t.Errorf("projects = %v, want %v", cfg.Projects, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad dedup", func(c *Config) { c.Relations.Dedup = "pairs" }},
		{"bad closed", func(c *Config) { c.View.Closed = "fold" }},
		{"zoom too small", func(c *Config) { c.View.Zoom = 0.5 }},
		{"zoom too large", func(c *Config) { c.View.Zoom = 3.5 }},
		{"no concurrency", func(c *Config) { c.Server.Concurrency = 0 }},
		{"negative rate", func(c *Config) { c.Server.RequestsPerSecond = -1 }},
		{"no snapshot path", func(c *Config) { c.Snapshot.Path = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestValidateServer(t *testing.T) {
	cfg := Default()
	if err := cfg.ValidateServer(); err == nil {
		t.Error("expected error without token and group")
	}
}

func TestCriteria(t *testing.T) {
	snap := &graph.Snapshot{
		Projects: map[int]string{1: "a", 2: "b"},
		Issues: map[int]*model.Issue{
			1: {UID: 1, ProjectID: 1, Status: model.StatusOpened, Labels: []string{"bug"}},
			2: {UID: 2, ProjectID: 2, Status: model.StatusOpened, Labels: []string{"ux"}},
		},
	}

	cfg := Default()
	c, err := cfg.Criteria(snap)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c.SelectedProjects(), []int{1, 2}) || !reflect.DeepEqual(c.SelectedLabels(), []string{"bug", "ux"}) {
		t.Errorf("empty view lists should select everything: %v %v", c.SelectedProjects(), c.SelectedLabels())
	}

	cfg.View.Projects = []int{2}
	cfg.View.Labels = []string{"ux"}
	cfg.View.Closed = "titles"
	c, err = cfg.Criteria(snap)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c.SelectedProjects(), []int{2}) || c.Closed != filter.ClosedTitles {
		t.Errorf("criteria = %+v", c)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Server.Group = "shop"
	cfg.Projects = []model.Project{{ID: 3, Name: "web"}}
	cfg.View.Projects = []int{3}
	cfg.View.Labels = []string{"bug"}
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded, cfg) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}
