package testutil

import (
	"sort"
	"sync"
	"time"
)

// ManualClock is a fake time source whose timers fire only when the test
// advances it.
//
// Unlike time.AfterFunc, timers run synchronously inside Advance, in due
// order, on the test goroutine. This makes debounce behavior deterministic.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
// Timer callbacks run without the mutex held, so they may arm new timers.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Duration
	nextID int
	timers []*ManualTimer
}

// ManualTimer is a timer armed on a ManualClock.
type ManualTimer struct {
	clock *ManualClock
	id    int
	due   time.Duration
	fn    func()
	done  bool
}

// NewManualClock creates a clock at offset 0.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// AfterFunc arms a timer that runs fn once the clock has advanced by d.
func (c *ManualClock) AfterFunc(d time.Duration, fn func()) *ManualTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	t := &ManualTimer{clock: c, id: c.nextID, due: c.now + d, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// Stop cancels the timer. Returns false if it already fired or was stopped.
func (t *ManualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Advance moves the clock forward by d and runs every timer that became
// due, earliest first (ties in arming order).
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	now := c.now
	var due []*ManualTimer
	pending := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case t.done:
		case t.due <= now:
			t.done = true
			due = append(due, t)
		default:
			pending = append(pending, t)
		}
	}
	c.timers = pending
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].id < due[j].id
	})
	for _, t := range due {
		t.fn()
	}
}

// Now returns the total time advanced.
func (c *ManualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Pending returns the number of armed, unfired timers.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.done {
			n++
		}
	}
	return n
}
