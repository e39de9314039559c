package state

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/juju/errors"
	"github.com/temoto/wakepost/hardware/pin"
	"github.com/temoto/wakepost/hardware/power"
	"github.com/temoto/wakepost/hardware/vcc"
	"github.com/temoto/wakepost/hardware/wifi"
	"github.com/temoto/wakepost/helpers"
	"github.com/temoto/wakepost/internal/cycle"
	"github.com/temoto/wakepost/internal/report"
	"github.com/temoto/wakepost/internal/tele"
	"github.com/temoto/wakepost/log2"
)

type hardware struct {
	input struct {
		once
		p pin.Input
	}
	led struct {
		once
		p pin.Output
	}
	vcc struct {
		once
		s vcc.Source
	}
	link struct {
		once
		l wifi.Link
	}
	sleeper struct {
		once
		s power.Sleeper
	}
}

func (g *Global) Input() (pin.Input, error) {
	x := &g.Hardware.input // short alias
	_ = x.do(func() error {
		cfg := g.Config.Hardware.Input
		x.p, x.err = pin.OpenInput(cfg)
		return errors.Annotatef(x.err, "config: hardware.input=%s", cfg.String())
	})
	return x.p, x.err
}

// LED returns nil,nil when disabled.
func (g *Global) LED() (pin.Output, error) {
	x := &g.Hardware.led
	_ = x.do(func() error {
		cfg := &g.Config.Hardware.LED
		if cfg.Disable {
			g.Log.Infof("status led is disabled")
			return nil
		}
		x.p, x.err = pin.OpenOutput(cfg.Pin())
		if x.err != nil {
			x.err = errors.Annotatef(x.err, "config: hardware.led=%s", cfg.Pin().String())
			return x.err
		}
		// off until post
		x.err = errors.Annotate(x.p.Set(!cfg.ActiveHigh), "led off")
		return x.err
	})
	return x.p, x.err
}

func (g *Global) Vcc() (vcc.Source, error) {
	x := &g.Hardware.vcc
	_ = x.do(func() error {
		x.s, x.err = vcc.New(g.Config.Hardware.Vcc)
		return errors.Annotatef(x.err, "config: hardware.vcc")
	})
	return x.s, x.err
}

func (g *Global) Link() (wifi.Link, error) {
	x := &g.Hardware.link
	_ = x.do(func() error {
		x.l, x.err = wifi.Open(g.Config.Wifi)
		return errors.Annotatef(x.err, "config: wifi")
	})
	return x.l, x.err
}

func (g *Global) Sleeper() (power.Sleeper, error) {
	x := &g.Hardware.sleeper
	_ = x.do(func() error {
		x.s, x.err = power.New(g.Config.Hardware.Sleep, g.Clock, g.Log)
		return errors.Annotatef(x.err, "config: hardware.sleep")
	})
	return x.s, x.err
}

func (g *Global) Poster() *tele.Poster {
	return tele.NewPoster(&g.Config.Tele, g.Clock, g.Log)
}

// Reporter returns nil when report.mqtt_broker is not set.
func (g *Global) Reporter() cycle.Reporter {
	if !g.Config.Report.Enabled() {
		return nil
	}
	return report.NewMQTT(g.Config.Report, g.Log.Clone(log2.LError))
}

// Cycle opens all hardware and assembles the wake cycle.
func (g *Global) Cycle() (*cycle.Cycle, error) {
	c := &cycle.Cycle{
		Config: cycle.Config{
			Wifi:         g.Config.Wifi,
			Tele:         g.Config.Tele,
			Sleep:        g.Config.Sleep,
			LEDActiveLow: !g.Config.Hardware.LED.ActiveHigh,
			NoRFCal:      g.Config.Hardware.Sleep.NoRFCal,
		},
		Poster: g.Poster(),
		Clock:  g.Clock,
		Log:    g.Log,
		Wake:   g.Wake,
	}
	c.Reporter = g.Reporter()
	errs := make([]error, 0, 5)
	var err error
	if c.Link, err = g.Link(); err != nil {
		errs = append(errs, err)
	}
	if c.Input, err = g.Input(); err != nil {
		errs = append(errs, err)
	}
	if c.Vcc, err = g.Vcc(); err != nil {
		errs = append(errs, err)
	}
	if c.Sleeper, err = g.Sleeper(); err != nil {
		errs = append(errs, err)
	}
	if led, err := g.LED(); err != nil {
		// LED is cosmetic
		g.Error(err)
	} else if led != nil {
		c.LED = led
	}
	if len(errs) != 0 {
		return nil, helpers.FoldErrors(errs)
	}
	return c, nil
}

func (g *Global) CloseHardware() {
	h := &g.Hardware
	closers := make([]io.Closer, 0, 3)
	if h.link.opened() {
		closers = append(closers, h.link.l)
	}
	if h.input.opened() {
		closers = append(closers, h.input.p)
	}
	if h.led.opened() && h.led.p != nil {
		closers = append(closers, h.led.p)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			g.Log.Debugf("close hardware err=%v", err)
		}
	}
}

type once struct {
	sync.Mutex
	called uint32 // atomic bool
	err    error
}

func (o *once) done() bool {
	return atomic.LoadUint32(&o.called) == 1
}

func (o *once) do(f func() error) error {
	if o.done() { // fast path
		return o.err
	}
	o.Lock()
	defer o.Unlock()
	if o.done() {
		return o.err
	}
	o.err = f()
	atomic.StoreUint32(&o.called, 1)
	return o.err
}

func (o *once) opened() bool {
	o.Lock()
	defer o.Unlock()
	return o.done() && o.err == nil
}
