package session

import (
	"sync"
	"time"
)

// CancelableTimer is a one-shot timer whose Arm always replaces the previous
// shot. At most one callback per timer can be pending, so rearming can never
// leak an earlier schedule.
type CancelableTimer struct {
	mu    sync.Mutex
	timer *time.Timer
}

func NewCancelableTimer() *CancelableTimer {
	return &CancelableTimer{}
}

// Arm schedules fn after delay, cancelling any previously armed shot first.
// A non-positive delay fires immediately, still on the timer goroutine.
func (t *CancelableTimer) Arm(delay time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	if delay < 0 {
		delay = 0
	}
	t.timer = time.AfterFunc(delay, fn)
}

// Cancel stops any pending shot. A callback that has already started may
// still run to completion; cancelling an idle timer is a no-op.
func (t *CancelableTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
