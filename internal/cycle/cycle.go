// Package cycle runs one wake: join network, sample, post, sleep.
// Every path that is not interrupted by operator ends in DeepSleep.
package cycle

import (
	"context"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/wakepost/hardware/pin"
	"github.com/temoto/wakepost/hardware/power"
	"github.com/temoto/wakepost/hardware/vcc"
	"github.com/temoto/wakepost/hardware/wifi"
	"github.com/temoto/wakepost/helpers"
	"github.com/temoto/wakepost/internal/sensor"
	"github.com/temoto/wakepost/internal/tele"
	"github.com/temoto/wakepost/log2"
)

type Config struct {
	Wifi         wifi.Config
	Tele         tele.Config
	Sleep        SleepConfig
	LEDActiveLow bool
	NoRFCal      bool
}

type Poster interface {
	Post(ctx context.Context, request string) tele.Result
}

type Cycle struct {
	Config   Config
	Link     wifi.Link
	Input    pin.Input
	Vcc      vcc.Source
	LED      pin.Output // optional
	Poster   Poster
	Sleeper  power.Sleeper
	Reporter Reporter // optional
	Clock    helpers.Clock
	Log      *log2.Log
	Wake     time.Time
}

// Run returns only when DeepSleep failed or ctx was cancelled before sleeping.
func (self *Cycle) Run(ctx context.Context) (*Report, error) {
	r := &Report{Wake: self.Wake}

	static, err := self.Config.Wifi.StaticFor(self.Config.Tele.Sensor())
	if err != nil {
		self.Log.Error(errors.Annotate(err, "static address, falling back to configured"))
	}
	r.Joined = wifi.Join(ctx, self.Link, self.Config.Wifi, static, self.Clock, self.Wake, self.Log)
	if err = ctx.Err(); err != nil {
		return r, err
	}

	sample, err := sensor.Read(self.Input, self.Vcc)
	if err != nil {
		self.Log.Error(err)
		r.Err = err.Error()
	} else {
		r.Sample, r.Sampled = sample, true
		self.Log.Infof("sample %s", sample.String())
	}

	switch {
	case !r.Sampled:
	case !r.Joined && self.Config.Wifi.Required:
		self.Log.Infof("post skipped, network required")
		r.Err = "network join failed"
	default:
		self.led(true)
		result := self.Poster.Post(ctx, tele.FormatRequest(&self.Config.Tele, sample))
		self.led(false)
		r.Posted, r.Ack, r.Attempts = result.OK, result.Ack, result.Attempts
		if !result.OK && r.Err == "" {
			r.Err = "post failed"
		}
	}
	if err = ctx.Err(); err != nil {
		return r, err
	}

	r.Sleep = SleepDuration(r.Posted, self.Config.Sleep)
	r.Elapsed = self.Clock.Now().Sub(self.Wake)
	self.Log.Infof("cycle %s", r.String())
	if self.Reporter != nil {
		if err = self.Reporter.Report(ctx, r); err != nil {
			self.Log.Error(errors.Annotate(err, "report"))
		}
	}

	err = self.Sleeper.DeepSleep(r.Sleep, self.Config.NoRFCal)
	return r, errors.Annotatef(err, "deep sleep duration=%s", r.Sleep)
}

func (self *Cycle) led(on bool) {
	if self.LED == nil {
		return
	}
	if err := self.LED.Set(on != self.Config.LEDActiveLow); err != nil {
		self.Log.Debugf("led set err=%v", err)
	}
}
