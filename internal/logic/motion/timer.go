// Package motion provides the single-shot delayed action each shade uses to
// finish a motor run.
package motion

import (
	"sync"
	"time"
)

// Timer schedules at most one pending action. It shares its owner's lock:
// Arm, Cancel and Pending must be called with that lock held, and a firing
// action runs with the lock held too.
//
// Every Arm or Cancel bumps a generation counter. A callback that was
// already running on the clock's goroutine when it got superseded sees a
// stale generation once it gets the lock and does nothing.
type Timer struct {
	clock   Clock
	lock    sync.Locker
	stop    Stopper
	gen     uint64
	pending bool
	due     time.Time
}

// NewTimer returns a timer driven by clock whose actions run under lock.
func NewTimer(clock Clock, lock sync.Locker) *Timer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Timer{clock: clock, lock: lock}
}

// Arm cancels any pending action and schedules action to run once after d.
func (t *Timer) Arm(d time.Duration, action func()) {
	t.Cancel()
	gen := t.gen
	t.pending = true
	t.due = t.clock.Now().Add(d)
	t.stop = t.clock.AfterFunc(d, func() { t.fire(gen, action) })
}

// Cancel drops the pending action, if any. Safe to call repeatedly.
func (t *Timer) Cancel() {
	t.gen++
	t.pending = false
	if t.stop != nil {
		t.stop.Stop()
		t.stop = nil
	}
}

// Pending reports whether an action is scheduled.
func (t *Timer) Pending() bool {
	return t.pending
}

// Due returns when the pending action will run. Zero if nothing is pending.
func (t *Timer) Due() time.Time {
	if !t.pending {
		return time.Time{}
	}
	return t.due
}

func (t *Timer) fire(gen uint64, action func()) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if gen != t.gen || !t.pending {
		return
	}
	t.pending = false
	t.stop = nil
	action()
}
