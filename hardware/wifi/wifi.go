// Package wifi joins the wireless network under a time budget.
package wifi

import (
	"context"
	"io"
	"net"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/wakepost/helpers"
	"github.com/temoto/wakepost/log2"
)

const (
	DefaultJoinTimeout  = 10 * time.Second
	DefaultPollInterval = 50 * time.Millisecond
)

type Config struct { //nolint:maligned
	Driver         string `hcl:"driver"` // wpa | mock
	SSID           string `hcl:"ssid"`
	PSK            string `hcl:"psk"` // secret
	Interface      string `hcl:"interface"`
	CtrlPath       string `hcl:"ctrl_path"`
	ResolvConf     string `hcl:"resolv_conf"`
	JoinTimeoutSec int    `hcl:"join_timeout_sec"`
	PollIntervalMs int    `hcl:"poll_interval_ms"`
	// Skip the post when join failed. Default false keeps trying the post anyway.
	Required bool   `hcl:"required"`
	Static   Static `hcl:"static"`
}

func (c *Config) JoinTimeout() time.Duration {
	return helpers.IntSecondDefault(c.JoinTimeoutSec, DefaultJoinTimeout)
}
func (c *Config) PollInterval() time.Duration {
	return helpers.IntMillisecondDefault(c.PollIntervalMs, DefaultPollInterval)
}

// Static addressing skips DHCP latency. Empty Address means DHCP.
type Static struct {
	Address        string `hcl:"address"`
	Netmask        string `hcl:"netmask"`
	Gateway        string `hcl:"gateway"`
	DNS            string `hcl:"dns"`
	AddSensorIndex bool   `hcl:"add_sensor_index"`
}

func (s Static) Enabled() bool { return s.Address != "" }

// StaticFor applies AddSensorIndex. On error the unmodified Static is returned too.
func (c *Config) StaticFor(sensorIndex int) (Static, error) {
	if !c.Static.AddSensorIndex {
		return c.Static, nil
	}
	s, err := c.Static.WithOffset(sensorIndex)
	if err != nil {
		return c.Static, err
	}
	return s, nil
}

// WithOffset returns copy with last octet of Address incremented by n.
func (s Static) WithOffset(n int) (Static, error) {
	if !s.Enabled() || n == 0 {
		return s, nil
	}
	ip := net.ParseIP(s.Address).To4()
	if ip == nil {
		return s, errors.NotValidf("static address=%s", s.Address)
	}
	last := int(ip[3]) + n
	if last <= 0 || last >= 255 {
		return s, errors.NotValidf("static address=%s + offset=%d", s.Address, n)
	}
	next := make(net.IP, 4)
	copy(next, ip)
	next[3] = byte(last)
	s.Address = next.String()
	return s, nil
}

func (s Static) PrefixLen() (int, error) {
	mask := net.ParseIP(s.Netmask).To4()
	if mask == nil {
		return 0, errors.NotValidf("static netmask=%s", s.Netmask)
	}
	ones, bits := net.IPMask(mask).Size()
	if bits == 0 {
		return 0, errors.NotValidf("static netmask=%s non-canonical", s.Netmask)
	}
	return ones, nil
}

func (s Static) Validate() error {
	if !s.Enabled() {
		return nil
	}
	errs := make([]error, 0, 4)
	if net.ParseIP(s.Address).To4() == nil {
		errs = append(errs, errors.NotValidf("static address=%s", s.Address))
	}
	if _, err := s.PrefixLen(); err != nil {
		errs = append(errs, err)
	}
	for _, x := range []string{s.Gateway, s.DNS} {
		if x != "" && net.ParseIP(x) == nil {
			errs = append(errs, errors.NotValidf("static ip=%s", x))
		}
	}
	return helpers.FoldErrors(errs)
}

type Link interface {
	io.Closer
	Configure(Static) error
	Begin(ssid, psk string) error
	Connected() (bool, error)
	// SetDeadline bounds every following control request, zero time removes the bound.
	SetDeadline(time.Time)
}

func Open(c Config) (Link, error) {
	switch strings.ToLower(c.Driver) {
	case "wpa", "":
		return NewWpaLink(c), nil
	case "mock":
		return &MockLink{}, nil
	}
	return nil, errors.NotValidf("wifi driver=%s valid: wpa, mock", c.Driver)
}

// Join associates with access point and polls link status until connected
// or until wake+JoinTimeout. There is no internal retry.
func Join(ctx context.Context, link Link, c Config, static Static, clock helpers.Clock, wake time.Time, log *log2.Log) bool {
	deadline := wake.Add(c.JoinTimeout())
	interval := c.PollInterval()
	log.Infof("wifi connecting ssid=%s", c.SSID)

	// control socket deadlines are wall clock
	link.SetDeadline(time.Now().Add(deadline.Sub(clock.Now())))
	defer link.SetDeadline(time.Time{})

	if static.Enabled() {
		if err := link.Configure(static); err != nil {
			log.Error(errors.Annotate(err, "wifi static config"))
		}
	}
	if err := link.Begin(c.SSID, c.PSK); err != nil {
		log.Error(errors.Annotate(err, "wifi begin"))
		return false
	}

	polls := 0
	for {
		polls++
		ok, err := link.Connected()
		if err != nil {
			log.Debugf("wifi status err=%v", err)
		}
		if ok {
			log.Infof("wifi connected polls=%d since_wake=%s", polls, clock.Now().Sub(wake))
			return true
		}
		log.Debugf("wifi .")
		if ctx.Err() != nil {
			log.Infof("wifi join interrupted")
			return false
		}
		remaining := deadline.Sub(clock.Now())
		if remaining <= 0 {
			log.Errorf("wifi join timeout=%s polls=%d", c.JoinTimeout(), polls)
			return false
		}
		if remaining > interval {
			remaining = interval
		}
		clock.Sleep(remaining)
	}
}
