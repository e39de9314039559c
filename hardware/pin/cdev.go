package pin

import (
	"github.com/juju/errors"
	gpio "github.com/temoto/gpio-cdev-go"
)

// Linux GPIO character device line.
// Pull-up bias is not part of this ABI, set it in device tree.
type Cdev struct {
	chip  gpio.Chiper // nil when chip is owned by caller
	lines gpio.Lineser
	set   gpio.LineSetFunc
}

func OpenCdevInput(chipPath string, line uint32) (*Cdev, error) {
	chip, err := gpio.Open(chipPath, consumerLabel)
	if err != nil {
		return nil, errors.Annotatef(err, "gpio open chip=%s", chipPath)
	}
	c, err := NewCdevInput(chip, line)
	if err != nil {
		chip.Close()
		return nil, err
	}
	c.chip = chip
	return c, nil
}

func NewCdevInput(chip gpio.Chiper, line uint32) (*Cdev, error) {
	lines, err := chip.OpenLines(gpio.GPIOHANDLE_REQUEST_INPUT, consumerLabel, line)
	if err != nil {
		return nil, errors.Annotatef(err, "gpio input line=%d", line)
	}
	return &Cdev{lines: lines}, nil
}

func OpenCdevOutput(chipPath string, line uint32) (*Cdev, error) {
	chip, err := gpio.Open(chipPath, consumerLabel)
	if err != nil {
		return nil, errors.Annotatef(err, "gpio open chip=%s", chipPath)
	}
	c, err := NewCdevOutput(chip, line)
	if err != nil {
		chip.Close()
		return nil, err
	}
	c.chip = chip
	return c, nil
}

func NewCdevOutput(chip gpio.Chiper, line uint32) (*Cdev, error) {
	lines, err := chip.OpenLines(gpio.GPIOHANDLE_REQUEST_OUTPUT, consumerLabel, line)
	if err != nil {
		return nil, errors.Annotatef(err, "gpio output line=%d", line)
	}
	return &Cdev{lines: lines, set: lines.SetFunc(line)}, nil
}

func (self *Cdev) Read() (bool, error) {
	data, err := self.lines.Read()
	if err != nil {
		return false, errors.Annotate(err, "gpio read")
	}
	return data.Values[0] != 0, nil
}

func (self *Cdev) Set(high bool) error {
	if self.set == nil {
		return errors.Errorf("code error gpio Set on input line")
	}
	var v byte
	if high {
		v = 1
	}
	self.set(v)
	return errors.Annotate(self.lines.Flush(), "gpio flush")
}

func (self *Cdev) Close() error {
	err := self.lines.Close()
	if self.chip != nil {
		if err2 := self.chip.Close(); err == nil {
			err = err2
		}
	}
	return err
}
