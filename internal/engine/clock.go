package engine

import (
	"sync"
	"time"
)

// Clock supplies the timestamp, in unix seconds, of each operation.
type Clock interface {
	Now() uint64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current unix time.
func (SystemClock) Now() uint64 { return uint64(time.Now().Unix()) }

// ManualClock is a clock moved by hand, for tests and replays.
type ManualClock struct {
	mu  sync.Mutex
	now uint64
}

// NewManualClock returns a clock stopped at now.
func NewManualClock(now uint64) *ManualClock {
	return &ManualClock{now: now}
}

// Now returns the clock's current time.
func (c *ManualClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by seconds.
func (c *ManualClock) Advance(seconds uint64) {
	c.mu.Lock()
	c.now += seconds
	c.mu.Unlock()
}

// Set moves the clock to now. Moving backwards is ignored.
func (c *ManualClock) Set(now uint64) {
	c.mu.Lock()
	if now > c.now {
		c.now = now
	}
	c.mu.Unlock()
}
