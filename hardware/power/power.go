// Package power arms the wake timer and powers the board down.
// Wake after DeepSleep is a cold boot, the process starts over from main.
package power

import (
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/wakepost/helpers"
	"github.com/temoto/wakepost/log2"
)

type Sleeper interface {
	// DeepSleep returns only on failure.
	DeepSleep(d time.Duration, noRFCal bool) error
}

type Config struct {
	Driver  string `hcl:"driver"` // rtc | exec | mock
	RTC     string `hcl:"rtc"`
	NoRFCal bool   `hcl:"no_rf_cal"`
}

func New(c Config, clock helpers.Clock, log *log2.Log) (Sleeper, error) {
	switch strings.ToLower(c.Driver) {
	case "rtc", "":
		return NewRTC(c.RTC, log), nil
	case "exec":
		return NewExec(clock, log), nil
	case "mock":
		return &Mock{}, nil
	}
	return nil, errors.NotValidf("sleep driver=%s valid: rtc, exec, mock", c.Driver)
}

// whole seconds rounded up, never zero
func alarmSeconds(d time.Duration) int64 {
	secs := int64((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
