package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func runWatcher(t *testing.T, path string, opts ...Option) (<-chan struct{}, context.CancelFunc) {
	t.Helper()
	changed := make(chan struct{}, 10)
	w := New(path, func() { changed <- struct{}{} }, append(opts, WithDebounce(20*time.Millisecond))...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Run(ctx); err != nil {
			t.Errorf("Run: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// let the watcher register before writing
	time.Sleep(50 * time.Millisecond)
	return changed, cancel
}

func waitChange(t *testing.T, changed <-chan struct{}) {
	t.Helper()
	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatcher_Notify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.db")
	if err := os.WriteFile(path, []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	changed, _ := runWatcher(t, path)

	if err := os.WriteFile(path, []byte("ab"), 0644); err != nil {
		t.Fatal(err)
	}
	waitChange(t, changed)
}

func TestWatcher_Poll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.db")
	changed, _ := runWatcher(t, path, WithPolling(), WithPollInterval(10*time.Millisecond))

	if err := os.WriteFile(path, []byte("created"), 0644); err != nil {
		t.Fatal(err)
	}
	waitChange(t, changed)
}

func TestWatcher_Relevant(t *testing.T) {
	w := New("/data/snapshot.db", nil)
	tests := []struct {
		ev   fsnotify.Event
		want bool
	}{
		{fsnotify.Event{Name: "/data/snapshot.db", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/data/snapshot.db-journal", Op: fsnotify.Remove}, true},
		{fsnotify.Event{Name: "/data/snapshot.db", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/data/other.db", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		if got := w.relevant(tt.ev); got != tt.want {
			t.Errorf("relevant(%v) = %v, want %v", tt.ev, got, tt.want)
		}
	}
}
