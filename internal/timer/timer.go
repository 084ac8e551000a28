package timer

import (
	"sync"
	"time"
)

// AlarmTimer holds at most one pending one-shot callback.
//
// Scheduling replaces the pending callback. A generation counter makes sure a
// callback whose underlying timer already fired but lost the race against
// Cancel or Schedule never runs, so onFire executes at most once per Schedule.
type AlarmTimer struct {
	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
}

// New creates an idle timer.
func New() *AlarmTimer {
	return &AlarmTimer{}
}

// Schedule arranges for onFire to run once after d on its own goroutine,
// cancelling any pending callback first.
func (t *AlarmTimer) Schedule(d time.Duration, onFire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()

	t.generation++
	gen := t.generation

	t.timer = time.AfterFunc(d, func() {
		if !t.consume(gen) {
			return
		}

		onFire()
	})
}

// Cancel drops the pending callback. It reports whether one was pending.
func (t *AlarmTimer) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	pending := t.timer != nil
	t.stopLocked()
	t.generation++

	return pending
}

// Pending reports whether a callback is scheduled and has not started.
func (t *AlarmTimer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.timer != nil
}

// consume marks the timer of generation gen as fired.
// It returns false when that generation was cancelled or replaced.
func (t *AlarmTimer) consume(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.generation || t.timer == nil {
		return false
	}

	t.timer = nil

	return true
}

func (t *AlarmTimer) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
