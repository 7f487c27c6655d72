package testutil

import (
	"sync"
	"time"
)

// DefaultEpoch is the first timestamp returned by NewStepClock.
var DefaultEpoch = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

// StepClock is a deterministic clock for tests.
//
// Each call to Now returns the previous value plus Step, so stamped rows get
// distinct, predictable timestamps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	calls int64
}

// NewStepClock creates a clock whose first Now() is DefaultEpoch and which
// advances one minute per call.
func NewStepClock() *StepClock {
	return NewStepClockAt(DefaultEpoch, time.Minute)
}

// NewStepClockAt creates a clock starting at start and advancing by step.
func NewStepClockAt(start time.Time, step time.Duration) *StepClock {
	return &StepClock{start: start, step: step}
}

// Now returns the next timestamp.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.calls) * c.step)
	c.calls++
	return t
}

// Calls returns how many times Now has been called.
func (c *StepClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Reset rewinds the clock so the next Now() returns the start time again.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}
