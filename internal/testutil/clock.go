package testutil

import (
	"sync"
	"time"
)

// Clock is a controllable time source for tests that assert on the
// timestamps services assign, such as print log entries.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock starting at the given time, defaulting to
// 2025-01-01 10:00:00 UTC — the same instant the fixture order carries,
// so receipt times and log timestamps line up in tests.
func NewClock(start ...time.Time) *Clock {
	t := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	if len(start) > 0 {
		t = start[0]
	}
	return &Clock{now: t}
}

// Now returns the clock's current time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set jumps the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
