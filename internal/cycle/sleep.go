package cycle

import (
	"time"

	"github.com/temoto/wakepost/helpers"
)

const (
	DefaultPostPeriod = 900 * time.Second
	DefaultPostError  = 150 * time.Second
)

type SleepConfig struct {
	PostPeriodSec int `hcl:"post_period_sec"`
	PostErrorSec  int `hcl:"post_error_sec"`
}

// SleepDuration picks long period after delivered sample, short otherwise.
func SleepDuration(ok bool, c SleepConfig) time.Duration {
	if ok {
		return helpers.IntSecondDefault(c.PostPeriodSec, DefaultPostPeriod)
	}
	return helpers.IntSecondDefault(c.PostErrorSec, DefaultPostError)
}
