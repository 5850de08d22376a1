package blink

import "time"

// Cooldown suppresses clicks that follow the previous click too closely.
// A zero interval lets every click through.
type Cooldown struct {
	interval time.Duration
	now      func() time.Time
	last     time.Time
	fired    bool
}

// NewCooldown creates a gate using the wall clock
func NewCooldown(interval time.Duration) *Cooldown {
	return NewCooldownWithClock(interval, time.Now)
}

// NewCooldownWithClock creates a gate reading time from now
func NewCooldownWithClock(interval time.Duration, now func() time.Time) *Cooldown {
	return &Cooldown{interval: interval, now: now}
}

// Allow reports whether a click may fire now and records it if so
func (c *Cooldown) Allow() bool {
	t := c.now()
	if c.interval > 0 && c.fired && t.Sub(c.last) < c.interval {
		return false
	}
	c.last = t
	c.fired = true
	return true
}

// SetInterval changes the minimum spacing between clicks
func (c *Cooldown) SetInterval(d time.Duration) {
	c.interval = d
}
