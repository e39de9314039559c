package state

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/hcl"
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

const (
	DefaultGpioChip   = "/dev/gpiochip0"
	DefaultInputLine  = 4
	DefaultLEDLine    = 2
	DefaultVccSource  = "iio"
	DefaultVccPath    = "/sys/bus/iio/devices/iio:device0"
	DefaultSerialBaud = 74880
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	Wifi     wifi.Config `hcl:"wifi"`
	Hardware struct {
		Input pin.Config   `hcl:"input"`
		LED   LEDConfig    `hcl:"led"`
		Vcc   vcc.Config   `hcl:"vcc"`
		Sleep power.Config `hcl:"sleep"`
	} `hcl:"hardware"`
	Tele  tele.Config       `hcl:"tele"`
	Sleep cycle.SleepConfig `hcl:"sleep"`
	Diag  struct {
		LogDebug   bool   `hcl:"log_debug"`
		SerialPort string `hcl:"serial_port"`
		SerialBaud int    `hcl:"serial_baud"`
	} `hcl:"diag"`
	Report report.Config `hcl:"report"`

	_copy_guard sync.Mutex //nolint:unused
}

// Status LED lit during post. Zero value is the stock board: enabled, active-low, line 2.
type LEDConfig struct {
	Disable    bool   `hcl:"disable"`
	ActiveHigh bool   `hcl:"active_high"`
	Driver     string `hcl:"driver"`
	Chip       string `hcl:"chip"`
	Line       int    `hcl:"line"`
	Name       string `hcl:"name"`
}

func (c *LEDConfig) Pin() pin.Config {
	return pin.Config{Driver: c.Driver, Chip: c.Chip, Line: c.Line, Name: c.Name}
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		*errs = append(*errs, errors.Errorf("config duplicate source=%s", source.Name))
		return
	}
	log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
		}
		return
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		// content is not logged, it carries psk and api key
		err = errors.Annotatef(err, "config unmarshal source=%s", source.Name)
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

// applyDefaults fills hardware that was not configured with the stock board wiring.
func (c *Config) applyDefaults() {
	in := &c.Hardware.Input
	if in.Chip == "" && in.Name == "" && in.Line == 0 {
		in.Line = DefaultInputLine
	}
	if in.Chip == "" {
		in.Chip = DefaultGpioChip
	}
	if in.Name == "" {
		in.Name = "GPIO4"
	}
	led := &c.Hardware.LED
	if led.Chip == "" && led.Name == "" && led.Line == 0 {
		led.Line = DefaultLEDLine
	}
	if led.Chip == "" {
		led.Chip = DefaultGpioChip
	}
	if led.Name == "" {
		led.Name = "GPIO2"
	}
	v := &c.Hardware.Vcc
	if v.Source == "" {
		v.Source = DefaultVccSource
	}
	if v.Path == "" && strings.EqualFold(v.Source, DefaultVccSource) {
		v.Path = DefaultVccPath
	}
	if c.Diag.SerialBaud == 0 {
		c.Diag.SerialBaud = DefaultSerialBaud
	}
}

func (c *Config) Validate() error {
	errs := make([]error, 0, 8)
	if c.Wifi.SSID == "" && !strings.EqualFold(c.Wifi.Driver, "mock") {
		errs = append(errs, errors.NotValidf("config wifi.ssid=empty"))
	}
	if err := c.Wifi.Static.Validate(); err != nil {
		errs = append(errs, errors.Annotate(err, "config wifi"))
	}
	if _, err := c.Wifi.StaticFor(c.Tele.Sensor()); err != nil {
		errs = append(errs, errors.Annotate(err, "config wifi.static.add_sensor_index"))
	}
	if err := c.Tele.Validate(); err != nil {
		errs = append(errs, errors.Annotate(err, "config"))
	}
	if c.Sleep.PostPeriodSec < 0 || c.Sleep.PostErrorSec < 0 {
		errs = append(errs, errors.NotValidf("config sleep negative post_period_sec=%d post_error_sec=%d",
			c.Sleep.PostPeriodSec, c.Sleep.PostErrorSec))
	}
	return helpers.FoldErrors(errs)
}

func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		log.Fatal("code error [Must]ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		if err := osfs.SetBase(dir); err != nil {
			return nil, err
		}
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	c.applyDefaults()
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
