// Package sensor takes the once-per-wake reading.
package sensor

import (
	"fmt"

	"github.com/juju/errors"
	"github.com/temoto/wakepost/hardware/pin"
	"github.com/temoto/wakepost/hardware/vcc"
)

// Sample is immutable after Read and lives for one cycle.
type Sample struct {
	// Logical state. Input is wired active-low with pull-up, so Pin = !raw.
	Pin     bool    `json:"pin"`
	Voltage float64 `json:"voltage"`
}

func (s Sample) String() string {
	return fmt.Sprintf("pin=%d vcc=%.2f", s.PinInt(), s.Voltage)
}

func (s Sample) PinInt() uint {
	if s.Pin {
		return 1
	}
	return 0
}

func Read(in pin.Input, src vcc.Source) (Sample, error) {
	raw, err := in.Read()
	if err != nil {
		return Sample{}, errors.Annotate(err, "sensor read pin")
	}
	v, err := src.Read()
	if err != nil {
		return Sample{}, errors.Annotate(err, "sensor read vcc")
	}
	return Sample{Pin: !raw, Voltage: v}, nil
}
