package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultPollInterval is used when file system notifications are unavailable.
const DefaultPollInterval = 2 * time.Second

// Watcher calls onChange after the watched file (or its SQLite journal)
// changes.
type Watcher struct {
	path         string
	onChange     func()
	debounce     time.Duration
	pollInterval time.Duration
	forcePoll    bool
	logger       *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before onChange runs.
func WithDebounce(d time.Duration) Option { return func(w *Watcher) { w.debounce = d } }

// WithPollInterval sets the polling fallback interval.
func WithPollInterval(d time.Duration) Option { return func(w *Watcher) { w.pollInterval = d } }

// WithPolling disables fsnotify.
func WithPolling() Option { return func(w *Watcher) { w.forcePoll = true } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(w *Watcher) { w.logger = l } }

// New creates a watcher for path.
func New(path string, onChange func(), opts ...Option) *Watcher {
	w := &Watcher{
		path:         path,
		onChange:     onChange,
		pollInterval: DefaultPollInterval,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is done. It falls back to polling when the file
// system watcher cannot be set up.
func (w *Watcher) Run(ctx context.Context) error {
	deb := NewDebouncer(w.debounce, w.onChange)
	defer deb.Cancel()

	if !w.forcePoll {
		fw, err := fsnotify.NewWatcher()
		if err == nil {
			if err = fw.Add(filepath.Dir(w.path)); err == nil {
				defer fw.Close()
				return w.runNotify(ctx, fw, deb)
			}
			fw.Close()
		}
		w.logger.Warn("file notifications unavailable, polling instead", zap.String("path", w.path), zap.Error(err))
	}
	return w.runPoll(ctx, deb)
}

func (w *Watcher) runNotify(ctx context.Context, fw *fsnotify.Watcher, deb *Debouncer) error {
	w.logger.Debug("watching", zap.String("path", w.path))
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			if w.relevant(ev) {
				deb.Trigger()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// relevant matches the file itself and its -journal / -wal siblings.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !strings.HasPrefix(filepath.Base(ev.Name), filepath.Base(w.path)) {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove)
}

type fileState struct {
	exists  bool
	size    int64
	modTime time.Time
}

func (s fileState) differs(o fileState) bool {
	return s.exists != o.exists || s.size != o.size || !s.modTime.Equal(o.modTime)
}

func stat(path string) fileState {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}
	}
	return fileState{exists: true, size: info.Size(), modTime: info.ModTime()}
}

func (w *Watcher) runPoll(ctx context.Context, deb *Debouncer) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	last := stat(w.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cur := stat(w.path)
			if cur.differs(last) {
				last = cur
				deb.Trigger()
			}
		}
	}
}
