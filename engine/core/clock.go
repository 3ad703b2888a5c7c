package core

import "time"

// Clock measures wall time between two consecutive ticks.
type Clock struct {
	now  func() time.Time
	last time.Time
}

func NewClock() *Clock {
	return NewClockWithSource(time.Now)
}

// NewClockWithSource builds a clock reading time from now. Used by tests to
// script elapsed time.
func NewClockWithSource(now func() time.Time) *Clock {
	return &Clock{
		now:  now,
		last: now(),
	}
}

// Start resets the reference point to the current time.
func (c *Clock) Start() {
	c.last = c.now()
}

// Tick returns the seconds elapsed since the previous tick (or Start) and
// moves the reference point forward. Never negative.
func (c *Clock) Tick() float64 {
	current := c.now()
	elapsed := current.Sub(c.last).Seconds()
	c.last = current
	if elapsed < 0 {
		return 0
	}
	return elapsed
}
