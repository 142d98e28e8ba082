package main_test

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

var (
	buildOnce sync.Once
	glivPath  string
	buildErr  error
	buildOut  []byte
)

// buildGlivBinary compiles cmd/gliv once per test run.
func buildGlivBinary(t *testing.T) string {
	t.Helper()
	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "gliv-e2e-")
		if err != nil {
			buildErr = err
			return
		}
		glivPath = filepath.Join(dir, "gliv")
		if runtime.GOOS == "windows" {
			glivPath += ".exe"
		}
		cmd := exec.Command("go", "build", "-o", glivPath, "./cmd/gliv")
		cmd.Dir = filepath.Join("..", "..")
		buildOut, buildErr = cmd.CombinedOutput()
	})
	if buildErr != nil {
		t.Fatalf("build gliv: %v\n%s", buildErr, buildOut)
	}
	return glivPath
}

// recordsPath is the absolute path of the shared JSONL fixture.
func recordsPath(t *testing.T) string {
	t.Helper()
	p, err := filepath.Abs(filepath.Join("..", "testdata", "records.jsonl"))
	if err != nil {
		t.Fatalf("abs: %v", err)
	}
	return p
}

// runGliv runs the binary in dir without any GitLab credentials from the
// caller's environment.
func runGliv(t *testing.T, bin, dir string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GLIV_GITLAB_TOKEN=",
		"GLIV_GROUP=",
		"GLIV_DB=",
		"GLIV_PROJECTS=",
		"GLIV_LOG_LEVEL=warn",
	)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	err = cmd.Run()
	return out.String(), errBuf.String(), err
}

// extractFixture builds a snapshot from the fixture in a fresh directory.
func extractFixture(t *testing.T, bin string) string {
	t.Helper()
	dir := t.TempDir()
	out, stderr, err := runGliv(t, bin, dir, "extract", "--input", recordsPath(t))
	if err != nil {
		t.Fatalf("extract failed: %v\nstdout=%s\nstderr=%s", err, out, stderr)
	}
	return dir
}
