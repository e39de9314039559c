package helpers

import (
	"sync"
	"time"

	"github.com/temoto/atomic_clock"
)

// Clock is the only time source of the wake cycle.
// Deadline loops compare Now() against "start + budget" on every iteration.
type Clock interface {
	Now() time.Time
	Sleep(time.Duration)
}

type SystemClock struct{}

func (SystemClock) Now() time.Time        { return time.Now() }
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }

// FakeClock only moves on Sleep or Advance.
// Safe to share between test goroutine and code under test.
type FakeClock struct {
	mu    sync.Mutex // serializes Sleep and Advance
	c     atomic_clock.Clock
	slept atomic_clock.Clock // total duration passed to Sleep, stored as nanoseconds
}

var zeroClock atomic_clock.Clock

func NewFakeClock(start time.Time) *FakeClock {
	f := &FakeClock{}
	f.c.Set(start.UnixNano())
	return f
}

func (f *FakeClock) Now() time.Time { return time.Unix(0, int64(f.c.Sub(&zeroClock))) }

func (f *FakeClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slept.Set(int64(f.slept.Sub(&zeroClock) + d))
	f.c.Set(int64(f.c.Sub(&zeroClock) + d))
}

func (f *FakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.Set(int64(f.c.Sub(&zeroClock) + d))
}

// Slept returns sum of all Sleep() durations.
func (f *FakeClock) Slept() time.Duration { return f.slept.Sub(&zeroClock) }
