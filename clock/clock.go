// Package clock provides the time source for the frame driver.
//
// Real() wraps time.Now, so samples carry the monotonic reading and
// differences between them never go backwards. Tests and headless runs
// use NewFake for deterministic frame timing.
package clock

import (
	"sync"
	"time"
)

// Clock provides time operations that can be real or simulated.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// Real returns the clock backed by the standard time package.
func Real() Clock {
	return realClock{}
}

// Fake is a test clock that only moves when told to.
type Fake struct {
	mu      sync.Mutex
	current time.Time
}

func NewFake(start time.Time) *Fake {
	return &Fake{current: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Advance moves the clock forward by d. A negative d moves it back, which
// is how tests simulate a misbehaving host clock.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.current = f.current.Add(d)
	f.mu.Unlock()
}

func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.current = t
	f.mu.Unlock()
}
