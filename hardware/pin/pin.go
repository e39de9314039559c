// Package pin reads one digital input line and drives one output line.
// Levels are raw electrical: true = high. Inversion for active-low
// wiring belongs to callers.
package pin

import (
	"fmt"
	"io"
	"strings"

	"github.com/juju/errors"
)

type Input interface {
	io.Closer
	Read() (bool, error)
}

type Output interface {
	io.Closer
	Set(high bool) error
}

type Config struct {
	Driver string `hcl:"driver"` // cdev | periph | mock
	Chip   string `hcl:"chip"`   // cdev: /dev/gpiochipN
	Line   int    `hcl:"line"`   // cdev: line offset
	Name   string `hcl:"name"`   // periph: gpioreg name, e.g. GPIO4
}

func (c Config) String() string {
	switch c.Driver {
	case "periph":
		return fmt.Sprintf("periph:%s", c.Name)
	case "cdev":
		return fmt.Sprintf("cdev:%s:%d", c.Chip, c.Line)
	}
	return c.Driver
}

const consumerLabel = "wakepost"

func OpenInput(c Config) (Input, error) {
	switch strings.ToLower(c.Driver) {
	case "cdev", "":
		return OpenCdevInput(c.Chip, uint32(c.Line))
	case "periph":
		return OpenPeriphInput(c.Name)
	case "mock":
		return &Mock{}, nil
	}
	return nil, errors.NotValidf("pin driver=%s valid: cdev, periph, mock", c.Driver)
}

func OpenOutput(c Config) (Output, error) {
	switch strings.ToLower(c.Driver) {
	case "cdev", "":
		return OpenCdevOutput(c.Chip, uint32(c.Line))
	case "periph":
		return OpenPeriphOutput(c.Name)
	case "mock":
		return &Mock{}, nil
	}
	return nil, errors.NotValidf("pin driver=%s valid: cdev, periph, mock", c.Driver)
}
