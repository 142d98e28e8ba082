package main_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Error scenarios: every failure exits non-zero with a message that says
// what to fix.

func TestError_RenderWithoutSnapshot(t *testing.T) {
	gliv := buildGlivBinary(t)

	_, stderr, err := runGliv(t, gliv, t.TempDir(), "render")
	if err == nil {
		t.Fatal("expected render to fail without a snapshot")
	}
	if !strings.Contains(stderr, "no snapshot found") || !strings.Contains(stderr, "gliv fetch") {
		t.Errorf("error message not helpful: %s", stderr)
	}
}

func TestError_InvalidSelectionFlags(t *testing.T) {
	gliv := buildGlivBinary(t)
	dir := extractFixture(t, gliv)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"closed_mode", []string{"render", "--closed", "sometimes"}, "view.closed"},
		{"zoom_range", []string{"render", "--zoom", "5"}, "view.zoom"},
		{"format", []string{"render", "--out", "graph.gif"}, "unsupported graph format"},
		{"unknown_root", []string{"render", "--root", "4242"}, "issue not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := runGliv(t, gliv, dir, tt.args...)
			if err == nil {
				t.Fatal("expected failure")
			}
			if !strings.Contains(stderr, tt.want) {
				t.Errorf("stderr %q does not mention %q", stderr, tt.want)
			}
		})
	}
}

func TestError_FetchWithoutToken(t *testing.T) {
	gliv := buildGlivBinary(t)

	_, stderr, err := runGliv(t, gliv, t.TempDir(), "fetch")
	if err == nil {
		t.Fatal("expected fetch to fail without a token")
	}
	if !strings.Contains(stderr, "server.token") {
		t.Errorf("error message not helpful: %s", stderr)
	}
}

func TestError_ExtractMissingInput(t *testing.T) {
	gliv := buildGlivBinary(t)
	dir := t.TempDir()

	if _, _, err := runGliv(t, gliv, dir, "extract"); err == nil {
		t.Error("expected failure without --input")
	}
	if _, _, err := runGliv(t, gliv, dir, "extract", "--input", "missing.jsonl"); err == nil {
		t.Error("expected failure for a missing file")
	}
}

func TestError_MalformedRecordLinesAreSkipped(t *testing.T) {
	gliv := buildGlivBinary(t)
	dir := t.TempDir()

	records := `{"kind":"project","id":1,"name":"api"}
{"kind":"issue","uid":1,"iid":1,"project_id":1,"title":"Valid","state":"opened"}
{"kind":"issue","uid":2,"iid":2,"project_id":1,"title":"Missing brace"
{"kind":"issue","uid":3,"iid":3,"project_id":1,"title":"After corruption","state":"closed"}
`
	path := filepath.Join(dir, "records.jsonl")
	if err := os.WriteFile(path, []byte(records), 0644); err != nil {
		t.Fatalf("write records: %v", err)
	}

	out, stderr, err := runGliv(t, gliv, dir, "extract", "--input", path)
	if err != nil {
		t.Fatalf("extract failed: %v\n%s", err, stderr)
	}
	if !strings.Contains(out, "Saved snapshot with 2 issues") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestError_UnknownIssueStateAborts(t *testing.T) {
	gliv := buildGlivBinary(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "records.jsonl")
	bad := `{"kind":"issue","uid":1,"iid":1,"project_id":1,"title":"Odd","state":"reopened"}` + "\n"
	if err := os.WriteFile(path, []byte(bad), 0644); err != nil {
		t.Fatalf("write records: %v", err)
	}

	_, stderr, err := runGliv(t, gliv, dir, "extract", "--input", path)
	if err == nil {
		t.Fatal("expected extract to fail on an unknown state")
	}
	if !strings.Contains(stderr, "unknown status") {
		t.Errorf("error message not helpful: %s", stderr)
	}
}

func TestError_InvalidConfigFile(t *testing.T) {
	gliv := buildGlivBinary(t)
	dir := t.TempDir()

	cfg := "relations:\n  dedup: sometimes\n"
	if err := os.WriteFile(filepath.Join(dir, "gliv.yaml"), []byte(cfg), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, stderr, err := runGliv(t, gliv, dir, "render")
	if err == nil {
		t.Fatal("expected invalid config to fail")
	}
	if !strings.Contains(stderr, "relations.dedup") {
		t.Errorf("error message not helpful: %s", stderr)
	}

	if _, _, err := runGliv(t, gliv, dir, "render", "--config", "nope.yaml"); err == nil {
		t.Error("expected a missing explicit config file to fail")
	}
}
