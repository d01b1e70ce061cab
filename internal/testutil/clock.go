// Package testutil holds shared test helpers.
package testutil

import (
	"sync"
	"time"
)

// Clock is a deterministic stepping clock for tests.
//
// Each call to Now returns the previous time advanced by one step, so code
// that samples a start and end time sees a positive duration without
// sleeping. Thread-safe.
type Clock struct {
	mu    sync.Mutex
	start time.Time
	now   time.Time
	step  time.Duration
}

// NewClock creates a clock whose first Now call returns start. Steps are
// one second.
func NewClock(start time.Time) *Clock {
	return &Clock{start: start, now: start, step: time.Second}
}

// Now returns the current time and advances the clock by one step.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Start returns the time the first Now call returned (or will return).
func (c *Clock) Start() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start
}
