package clock

import "time"

// FakeClock is a manually advanced Clock for tests. It normalizes to
// UTC so closing-date bucketing stays deterministic.
type FakeClock struct {
	now time.Time
}

// NewFakeClock pins the clock at t.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

// Now returns the pinned instant.
func (c *FakeClock) Now() time.Time {
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
