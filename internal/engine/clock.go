package engine

import (
	"math"
	"sync"
	"time"
)

// TickFunc receives the elapsed simulated seconds for one tick and the
// wall-clock time it fired at.
type TickFunc func(dtSec float64, now time.Time)

// Clock drives the simulation at a fixed wall-clock cadence. The speed
// multiplier scales simulated time per tick without changing the cadence.
// It owns no business state; Start and Stop are idempotent.
type Clock struct {
	interval time.Duration
	fn       TickFunc

	mu      sync.Mutex
	speed   float64
	stopCh  chan struct{}
	running bool
}

// NewClock creates a clock that calls fn every interval.
func NewClock(interval time.Duration, fn TickFunc) *Clock {
	return &Clock{interval: interval, fn: fn, speed: 1}
}

// SetSpeed sets the simulated-time multiplier, floored at 0.1.
func (c *Clock) SetSpeed(mult float64) {
	c.mu.Lock()
	c.speed = math.Max(0.1, mult)
	c.mu.Unlock()
}

// Speed returns the current multiplier.
func (c *Clock) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// Running reports whether the clock is ticking.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Start begins ticking. Calling Start on a running clock is a no-op.
func (c *Clock) Start() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	stop := c.stopCh
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				c.fn(c.interval.Seconds()*c.Speed(), now)
			}
		}
	}()
}

// Stop halts ticking. Calling Stop on a stopped clock is a no-op.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	close(c.stopCh)
}
