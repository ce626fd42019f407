package app

import "time"

// Clock measures elapsed time for the frame loop.
type Clock struct {
	now      func() time.Time
	start    time.Time
	previous float64
}

// NewClock starts a clock on the wall clock.
func NewClock() *Clock {
	return NewClockWith(time.Now)
}

// NewClockWith starts a clock reading time from now.
func NewClockWith(now func() time.Time) *Clock {
	return &Clock{now: now, start: now()}
}

// Elapsed returns seconds since the clock started.
func (c *Clock) Elapsed() float64 {
	return c.now().Sub(c.start).Seconds()
}

// Tick returns the elapsed time and the time since the previous Tick, both
// in seconds. The first Tick measures from the start.
func (c *Clock) Tick() (elapsed, delta float64) {
	elapsed = c.Elapsed()
	delta = elapsed - c.previous
	c.previous = elapsed
	return elapsed, delta
}
