// Package clock abstracts the timers the card runtime uses for debounced
// commits. Use Real in production and Mock in tests.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock is the subset of the time package the runtime depends on
type Clock interface {
	Now() time.Time

	// AfterFunc calls f in its own goroutine once d has elapsed. The
	// returned Timer cancels or reschedules the call.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call
type Timer interface {
	// Stop cancels the call. It reports whether the timer was still pending.
	Stop() bool

	// Reset reschedules the call to d from now. It reports whether the
	// timer was still pending.
	Reset(d time.Duration) bool
}

// Real implements Clock with the time package
type Real struct{}

// Now returns time.Now
func (Real) Now() time.Time {
	return time.Now()
}

// AfterFunc wraps time.AfterFunc
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Mock is a manually advanced Clock. Timers fire synchronously inside
// Advance, in deadline order.
type Mock struct {
	mu      sync.Mutex
	current time.Time
	timers  map[*mockTimer]struct{}
}

type mockTimer struct {
	clock    *Mock
	deadline time.Time
	f        func()
}

// NewMock creates a Mock starting at start
func NewMock(start time.Time) *Mock {
	return &Mock{
		current: start,
		timers:  make(map[*mockTimer]struct{}),
	}
}

// Now returns the mock's current time
func (c *Mock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// AfterFunc schedules f for d after the mock's current time
func (c *Mock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &mockTimer{clock: c, deadline: c.current.Add(d), f: f}
	c.timers[t] = struct{}{}
	return t
}

// Pending returns the number of timers that have not fired or been stopped
func (c *Mock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Advance moves the clock forward by d and runs every timer that is due
func (c *Mock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)

	var due []*mockTimer
	for t := range c.timers {
		if !t.deadline.After(c.current) {
			due = append(due, t)
			delete(c.timers, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		return due[i].deadline.Before(due[j].deadline)
	})
	// Outside the lock so callbacks may schedule new timers
	for _, t := range due {
		t.f()
	}
}

func (t *mockTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	_, pending := t.clock.timers[t]
	delete(t.clock.timers, t)
	return pending
}

func (t *mockTimer) Reset(d time.Duration) bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	_, pending := t.clock.timers[t]
	t.deadline = t.clock.current.Add(d)
	t.clock.timers[t] = struct{}{}
	return pending
}
