package watcher

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_CoalescesBurst(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func() { calls.Add(1) })

	for i := 0; i < 5; i++ {
		d.Trigger()
		time.Sleep(5 * time.Millisecond)
	}
	if !d.Pending() {
		t.Error("expected a pending action during the burst")
	}
	time.Sleep(100 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("action ran %d times, want 1", got)
	}
	if d.Pending() {
		t.Error("nothing should be pending after the action ran")
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func() { calls.Add(1) })

	d.Trigger()
	d.Cancel()
	time.Sleep(60 * time.Millisecond)

	if got := calls.Load(); got != 0 {
		t.Errorf("cancelled action ran %d times", got)
	}
}

func TestDebouncer_DefaultDuration(t *testing.T) {
	d := NewDebouncer(0, func() {})
	if d.Duration() != DefaultDebounceDuration {
		t.Errorf("Duration = %v, want %v", d.Duration(), DefaultDebounceDuration)
	}
}
