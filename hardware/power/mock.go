package power

import (
	"sync"
	"time"
)

type Mock struct {
	mu      sync.Mutex
	Err     error
	Calls   []time.Duration
	NoRFCal []bool
}

func (self *Mock) DeepSleep(d time.Duration, noRFCal bool) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.Calls = append(self.Calls, d)
	self.NoRFCal = append(self.NoRFCal, noRFCal)
	return self.Err
}

// Last returns duration of the latest call, zero when never called.
func (self *Mock) Last() time.Duration {
	self.mu.Lock()
	defer self.mu.Unlock()
	if len(self.Calls) == 0 {
		return 0
	}
	return self.Calls[len(self.Calls)-1]
}

var _ Sleeper = &Mock{}
var _ Sleeper = &RTC{}
var _ Sleeper = &Exec{}
