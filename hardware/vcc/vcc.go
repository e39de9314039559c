// Package vcc reads supply voltage in volts.
package vcc

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

type Source interface {
	Read() (float64, error)
}

type Config struct {
	Source     string  `hcl:"source"`     // iio | power_supply | adc | fixed
	Path       string  `hcl:"path"`       // iio device dir, power_supply dir or raw adc file
	Channel    int     `hcl:"channel"`    // iio: in_voltageN_*
	Multiplier float64 `hcl:"multiplier"` // external divider ratio, 0 = 1
	Divisor    float64 `hcl:"divisor"`    // adc: counts per volt, 0 = 1024
	Value      float64 `hcl:"value"`      // fixed
}

const DefaultDivisor = 1024

func New(c Config) (Source, error) {
	mul := c.Multiplier
	if mul == 0 {
		mul = 1
	}
	switch strings.ToLower(c.Source) {
	case "iio":
		return &IIO{Dir: c.Path, Channel: c.Channel, Multiplier: mul}, nil
	case "power_supply":
		return &PowerSupply{Dir: c.Path, Multiplier: mul}, nil
	case "adc":
		div := c.Divisor
		if div == 0 {
			div = DefaultDivisor
		}
		return &ADC{Path: c.Path, Divisor: div, Multiplier: mul}, nil
	case "fixed", "mock":
		return Fixed(c.Value), nil
	}
	return nil, errors.NotValidf("vcc source=%s valid: iio, power_supply, adc, fixed", c.Source)
}

// Industrial I/O ADC channel: volts = raw * scale(mV) / 1000.
type IIO struct {
	Dir        string
	Channel    int
	Multiplier float64
}

func (self *IIO) Read() (float64, error) {
	prefix := fmt.Sprintf("in_voltage%d_", self.Channel)
	raw, err := readFloat(filepath.Join(self.Dir, prefix+"raw"))
	if err != nil {
		return 0, err
	}
	scale, err := readFloat(filepath.Join(self.Dir, prefix+"scale"))
	if err != nil {
		// some drivers only expose shared scale
		scale, err = readFloat(filepath.Join(self.Dir, "in_voltage_scale"))
		if err != nil {
			return 0, err
		}
	}
	return raw * scale / 1000 * self.Multiplier, nil
}

// power_supply class, voltage_now is in microvolts.
type PowerSupply struct {
	Dir        string
	Multiplier float64
}

func (self *PowerSupply) Read() (float64, error) {
	uv, err := readFloat(filepath.Join(self.Dir, "voltage_now"))
	if err != nil {
		return 0, err
	}
	return uv / 1e6 * self.Multiplier, nil
}

// Raw counts file, volts = counts / Divisor.
type ADC struct {
	Path       string
	Divisor    float64
	Multiplier float64
}

func (self *ADC) Read() (float64, error) {
	raw, err := readFloat(self.Path)
	if err != nil {
		return 0, err
	}
	return raw / self.Divisor * self.Multiplier, nil
}

type Fixed float64

func (self Fixed) Read() (float64, error) { return float64(self), nil }

func readFloat(path string) (float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Annotate(err, "vcc read")
	}
	s := strings.TrimSpace(string(b))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Annotatef(err, "vcc parse path=%s", path)
	}
	return f, nil
}
