// Package watcher reports changes to the snapshot database, coalescing the
// bursts of writes a single save produces.
package watcher

import (
	"sync"
	"time"
)

// DefaultDebounceDuration is the default debounce window.
const DefaultDebounceDuration = 250 * time.Millisecond

// Debouncer runs its action once a burst of triggers has been quiet for the
// debounce duration.
type Debouncer struct {
	duration time.Duration
	action   func()
	timer    *time.Timer
	mu       sync.Mutex
	seq      uint64
}

// NewDebouncer creates a Debouncer running action. If duration is 0,
// DefaultDebounceDuration is used.
func NewDebouncer(duration time.Duration, action func()) *Debouncer {
	if duration == 0 {
		duration = DefaultDebounceDuration
	}
	return &Debouncer{
		duration: duration,
		action:   action,
	}
}

// Trigger (re)starts the quiet period.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	seq := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, func() {
		if d.claim(seq) {
			d.action()
		}
	})
}

// claim reports whether seq is still the latest trigger. A timer that fired
// while a newer Trigger was stopping it must not run.
func (d *Debouncer) claim(seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if seq != d.seq {
		return false
	}
	d.timer = nil
	return true
}

// Pending reports whether an action is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Cancel drops any pending action.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Duration returns the debounce duration.
func (d *Debouncer) Duration() time.Duration {
	return d.duration
}
