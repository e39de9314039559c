package cycle

import (
	"context"
	"fmt"
	"time"

	"github.com/temoto/wakepost/internal/sensor"
)

// Report summarizes one wake cycle. Built before sleeping, then discarded.
type Report struct {
	Wake     time.Time
	Joined   bool
	Sample   sensor.Sample
	Sampled  bool
	Ack      uint32
	Attempts int
	Posted   bool
	Sleep    time.Duration
	Elapsed  time.Duration
	Err      string
}

func (r *Report) String() string {
	s := fmt.Sprintf("joined=%t posted=%t ack=%d attempts=%d sleep=%s elapsed=%s",
		r.Joined, r.Posted, r.Ack, r.Attempts, r.Sleep, r.Elapsed)
	if r.Sampled {
		s += " " + r.Sample.String()
	}
	if r.Err != "" {
		s += " err=" + r.Err
	}
	return s
}

type Reporter interface {
	Report(context.Context, *Report) error
}
