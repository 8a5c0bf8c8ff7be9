// Package clock provides the replaceable time source used by every time-based
// lease decision.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current instant. Production code uses System; tests inject
// Fixed or a Manual clock they can advance.
type Clock func() time.Time

// System returns wall-clock time in UTC.
func System() Clock {
	return func() time.Time { return time.Now().UTC() }
}

// Fixed always returns t.
func Fixed(t time.Time) Clock {
	return func() time.Time { return t }
}

// Manual is a test clock that only moves when told to.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d and returns the new time.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}

func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Clock adapts the manual clock to the Clock function type.
func (m *Manual) Clock() Clock {
	return m.Now
}
