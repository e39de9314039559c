package tele

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/wakepost/helpers"
)

const (
	DefaultHost           = "api.thingspeak.com"
	DefaultPort           = 80
	DefaultSensorIndex    = 1
	DefaultStatusField    = 2
	DefaultMaxAttempts    = 2
	DefaultConnectTimeout = 5 * time.Second
	DefaultHttpTimeout    = 1 * time.Second
	DefaultRetryDelay     = 2 * time.Second
)

type Config struct { //nolint:maligned
	APIKey           string `hcl:"api_key"` // secret
	Host             string `hcl:"host"`
	Port             int    `hcl:"port"`
	SensorIndex      int    `hcl:"sensor_index"`
	StatusField      int    `hcl:"status_field"`
	MaxAttempts      int    `hcl:"max_attempts"`
	ConnectTimeoutMs int    `hcl:"connect_timeout_ms"`
	HttpTimeoutMs    int    `hcl:"http_timeout_ms"`
	RetryDelayMs     int    `hcl:"retry_delay_ms"`
}

func (c *Config) Addr() string {
	host := c.Host
	if host == "" {
		host = DefaultHost
	}
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (c *Config) Sensor() int { return intDefault(c.SensorIndex, DefaultSensorIndex) }
func (c *Config) Status() int { return intDefault(c.StatusField, DefaultStatusField) }
func (c *Config) Attempts() int {
	return intDefault(c.MaxAttempts, DefaultMaxAttempts)
}
func (c *Config) ConnectTimeout() time.Duration {
	return helpers.IntMillisecondDefault(c.ConnectTimeoutMs, DefaultConnectTimeout)
}
func (c *Config) HttpTimeout() time.Duration {
	return helpers.IntMillisecondDefault(c.HttpTimeoutMs, DefaultHttpTimeout)
}
func (c *Config) RetryDelay() time.Duration {
	return helpers.IntMillisecondDefault(c.RetryDelayMs, DefaultRetryDelay)
}

func (c *Config) Validate() error {
	errs := make([]error, 0, 4)
	if c.APIKey == "" {
		errs = append(errs, errors.NotValidf("tele api_key=empty"))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, errors.NotValidf("tele port=%d", c.Port))
	}
	if c.SensorIndex < 0 || c.StatusField < 0 || c.MaxAttempts < 0 {
		errs = append(errs, errors.NotValidf("tele negative sensor_index=%d status_field=%d max_attempts=%d",
			c.SensorIndex, c.StatusField, c.MaxAttempts))
	}
	if c.Sensor() == c.Status() {
		errs = append(errs, errors.NotValidf("tele sensor_index=status_field=%d", c.Sensor()))
	}
	return helpers.FoldErrors(errs)
}

func (c *Config) String() string {
	return fmt.Sprintf("addr=%s field%d=pin field%d=vcc attempts=%d", c.Addr(), c.Sensor(), c.Status(), c.Attempts())
}

func intDefault(x, def int) int {
	if x == 0 {
		return def
	}
	return x
}
