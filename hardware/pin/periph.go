package pin

import (
	"github.com/juju/errors"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

// periph.io pin, can request pull-up on hosts that support it (bcm283x, allwinner).
type Periph struct {
	p gpio.PinIO
}

func lookupPeriph(name string) (gpio.PinIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Annotate(err, "periph/init")
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, errors.NotFoundf("periph pin name=%s", name)
	}
	return p, nil
}

func OpenPeriphInput(name string) (*Periph, error) {
	p, err := lookupPeriph(name)
	if err != nil {
		return nil, err
	}
	if err = p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, errors.Annotatef(err, "periph pin=%s In(PullUp)", name)
	}
	return &Periph{p: p}, nil
}

func OpenPeriphOutput(name string) (*Periph, error) {
	p, err := lookupPeriph(name)
	if err != nil {
		return nil, err
	}
	// start high: active-low LED off
	if err = p.Out(gpio.High); err != nil {
		return nil, errors.Annotatef(err, "periph pin=%s Out", name)
	}
	return &Periph{p: p}, nil
}

func (self *Periph) Read() (bool, error) { return self.p.Read() == gpio.High, nil }

func (self *Periph) Set(high bool) error {
	return errors.Annotatef(self.p.Out(gpio.Level(high)), "periph pin=%s", self.p.Name())
}

func (self *Periph) Close() error { return nil }
