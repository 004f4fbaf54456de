// Package clock implements the simulation's virtual clock (spec.md §4.1): a
// monotonically increasing sim-ms counter advanced by the tick driver from
// real wall-clock deltas, scaled by a speed multiplier.
package clock

import (
	"sync"

	"github.com/elevatorsim/dispatch/internal/domain"
)

// Clock converts real elapsed time into simulated elapsed time. It holds no
// wall-clock reference itself — the tick driver measures real deltas and
// calls Advance — which keeps the clock trivially testable and keeps
// "speed" a pure multiplier rather than something tied to time.Now().
type Clock struct {
	mu    sync.Mutex
	nowMs int64
	speed float64
}

// New creates a clock starting at sim-ms 0 running at 1x speed.
func New() *Clock {
	return &Clock{speed: 1.0}
}

// Advance moves the clock forward by realDt scaled by the current speed and
// returns the simulated delta in milliseconds (simDt), floored at 0.
func (c *Clock) Advance(realDtMs int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	simDt := int64(float64(realDtMs) * c.speed)
	if simDt < 0 {
		simDt = 0
	}
	c.nowMs += simDt
	return simDt
}

// Now returns the current simulated time in milliseconds.
func (c *Clock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nowMs
}

// SetSpeed sets the clock's multiplier. Per spec.md §9's resolved open
// question, non-positive speeds are rejected outright rather than treated
// as "pause" — pausing is a distinct command (stop).
func (c *Clock) SetSpeed(speed float64) error {
	if speed <= 0 {
		return domain.ErrInvalidSpeed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speed = speed
	return nil
}

// Speed returns the current multiplier.
func (c *Clock) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// Reset returns the clock to sim-ms 0 at 1x speed.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nowMs = 0
	c.speed = 1.0
}
