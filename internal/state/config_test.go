package state

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/alive/v2"
	"github.com/temoto/wakepost/hardware/pin"
	"github.com/temoto/wakepost/hardware/power"
	"github.com/temoto/wakepost/hardware/wifi"
	"github.com/temoto/wakepost/helpers"
	"github.com/temoto/wakepost/log2"
)

const mockHardware = `
wifi { driver = "mock" ssid = "home" }
hardware {
	input { driver = "mock" }
	led { driver = "mock" }
	vcc { source = "fixed" value = 3.3 }
	sleep { driver = "mock" }
}
tele { api_key = "K" }
`

func TestReadConfig(t *testing.T) {
	t.Parallel()

	type Case struct {
		name      string
		input     string
		check     func(testing.TB, context.Context)
		expectErr string
	}
	cases := []Case{
		{"defaults", `wifi { ssid = "yourssidhere" } tele { api_key = "API_WRITE_KEY_HERE" }`,
			func(t testing.TB, ctx context.Context) {
				c := GetGlobal(ctx).Config
				assert.Equal(t, 10*time.Second, c.Wifi.JoinTimeout())
				assert.Equal(t, 50*time.Millisecond, c.Wifi.PollInterval())
				assert.False(t, c.Wifi.Required)
				assert.Equal(t, "api.thingspeak.com:80", c.Tele.Addr())
				assert.Equal(t, 1, c.Tele.Sensor())
				assert.Equal(t, 2, c.Tele.Status())
				assert.Equal(t, 2, c.Tele.Attempts())
				assert.Equal(t, time.Second, c.Tele.HttpTimeout())
				assert.Equal(t, 2*time.Second, c.Tele.RetryDelay())
				assert.Equal(t, pin.Config{Chip: DefaultGpioChip, Line: 4, Name: "GPIO4"}, c.Hardware.Input)
				assert.Equal(t, 2, c.Hardware.LED.Line)
				assert.False(t, c.Hardware.LED.Disable)
				assert.False(t, c.Hardware.LED.ActiveHigh)
				assert.Equal(t, "iio", c.Hardware.Vcc.Source)
				assert.Equal(t, DefaultVccPath, c.Hardware.Vcc.Path)
				assert.Equal(t, 74880, c.Diag.SerialBaud)
				assert.False(t, c.Report.Enabled())
			}, ""},

		{"full", `
wifi {
	ssid = "home" psk = "secret" join_timeout_sec = 7 poll_interval_ms = 20 required = true
	static { address = "10.1.1.200" netmask = "255.255.255.0" gateway = "10.1.1.1" dns = "1.1.1.1" add_sensor_index = true }
}
hardware {
	input { driver = "periph" name = "GPIO17" }
	led { disable = true }
	vcc { source = "adc" path = "/tmp/adc" divisor = 1000 }
	sleep { driver = "exec" no_rf_cal = true }
}
tele { api_key = "K" host = "127.0.0.1" port = 8080 sensor_index = 3 status_field = 4 max_attempts = 5 http_timeout_ms = 300 }
sleep { post_period_sec = 60 post_error_sec = 10 }
diag { log_debug = true serial_port = "/dev/ttyS0" }
report { mqtt_broker = "tcp://localhost:1883" topic_prefix = "farm" }
`,
			func(t testing.TB, ctx context.Context) {
				g := GetGlobal(ctx)
				c := g.Config
				assert.Equal(t, 7*time.Second, c.Wifi.JoinTimeout())
				assert.Equal(t, 20*time.Millisecond, c.Wifi.PollInterval())
				assert.True(t, c.Wifi.Required)
				assert.Equal(t, "10.1.1.1", c.Wifi.Static.Gateway)
				assert.True(t, c.Wifi.Static.AddSensorIndex)
				assert.Equal(t, "GPIO17", c.Hardware.Input.Name)
				assert.True(t, c.Hardware.LED.Disable)
				assert.Equal(t, 1000.0, c.Hardware.Vcc.Divisor)
				assert.Equal(t, "exec", c.Hardware.Sleep.Driver)
				assert.True(t, c.Hardware.Sleep.NoRFCal)
				assert.Equal(t, "127.0.0.1:8080", c.Tele.Addr())
				assert.Equal(t, 5, c.Tele.Attempts())
				assert.Equal(t, 60, c.Sleep.PostPeriodSec)
				assert.Equal(t, "/dev/ttyS0", c.Diag.SerialPort)
				assert.True(t, g.Log.Enabled(log2.LDebug))
				assert.Equal(t, "farm/report", c.Report.Topic())
				assert.NotNil(t, g.Reporter())
			}, ""},

		{"include-optional", `
include "tele-key" {}
include "non-exist" { optional = true }
wifi { ssid = "home" }`,
			func(t testing.TB, ctx context.Context) {
				assert.Equal(t, "INCLUDED", GetGlobal(ctx).Config.Tele.APIKey)
			}, ""},

		{"include-overwrites", `
wifi { ssid = "home" }
tele { api_key = "K" }
include "tele-key" {}`,
			func(t testing.TB, ctx context.Context) {
				assert.Equal(t, "INCLUDED", GetGlobal(ctx).Config.Tele.APIKey)
			}, ""},

		{"include-normalize", `
wifi { ssid = "home" } tele { api_key = "K" }
include "./empty" {}`,
			nil, ""},

		{"error-syntax", `hello`, nil, "key 'hello' expected start of object"},
		{"error-include-loop", `include "include-loop" {}`, nil, "config include loop: from=include-loop include=include-loop"},
		{"error-include-missing", `include "absent" {}`, nil, "config required name=absent"},
		{"error-ssid", `tele { api_key = "K" }`, nil, "config wifi.ssid=empty not valid"},
		{"error-api-key", `wifi { ssid = "home" }`, nil, "tele api_key=empty not valid"},
		{"error-static", `wifi { ssid = "home" static { address = "10.1.1.254" netmask = "255.255.255.0" add_sensor_index = true } } tele { api_key = "K" }`,
			nil, "config wifi.static.add_sensor_index"},
		{"error-sleep", `wifi { ssid = "home" } tele { api_key = "K" } sleep { post_error_sec = -1 }`,
			nil, "config sleep negative"},
	}
	mkCheck := func(c Case) func(*testing.T) {
		return func(t *testing.T) {
			log := log2.NewTest(t, log2.LInfo)

			g := &Global{
				Alive: alive.NewAlive(),
				Clock: helpers.NewFakeClock(time.Now()),
				Log:   log,
			}
			ctx := context.Background()
			ctx = context.WithValue(ctx, log2.ContextKey, log)
			ctx = context.WithValue(ctx, ContextKey, g)

			fs := NewMockFullReader(map[string]string{
				"test-inline":  c.input,
				"empty":        "",
				"tele-key":     `tele { api_key = "INCLUDED" }`,
				"include-loop": `include "include-loop" {}`,
			})
			cfg, err := ReadConfig(log, fs, "test-inline")
			if err == nil {
				err = g.Init(ctx, cfg)
			}
			if c.expectErr == "" {
				if err != nil {
					t.Fatalf("error expected=nil actual='%v'", errors.ErrorStack(err))
				}
				if c.check != nil {
					c.check(t, ctx)
				}
			} else {
				require.Error(t, err)
				if !strings.Contains(err.Error(), c.expectErr) {
					t.Fatalf("error expected='%s' actual='%v'", c.expectErr, err)
				}
			}
		}
	}
	for _, c := range cases {
		t.Run(c.name, mkCheck(c))
	}
}

func TestOsFullReader(t *testing.T) {
	t.Parallel()

	log := log2.NewTest(t, log2.LDebug)
	_, err := ReadConfig(log, NewOsFullReader(), t.TempDir()+"/absent.hcl")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(errors.Cause(err)) || strings.Contains(err.Error(), "not found"), err.Error())
}

func TestGlobalHardware(t *testing.T) {
	t.Parallel()

	log := log2.NewTest(t, log2.LDebug)
	fs := NewMockFullReader(map[string]string{"c": mockHardware})
	g := &Global{Alive: alive.NewAlive(), Log: log}
	ctx := context.WithValue(context.Background(), ContextKey, g)
	g.MustInit(ctx, MustReadConfig(log, fs, "c"))
	assert.False(t, g.Wake.IsZero())

	c, err := g.Cycle()
	require.NoError(t, err)
	assert.IsType(t, &wifi.MockLink{}, c.Link)
	assert.IsType(t, &pin.Mock{}, c.Input)
	assert.IsType(t, &power.Mock{}, c.Sleeper)
	assert.Nil(t, c.Reporter)
	assert.True(t, c.Config.LEDActiveLow)
	led := c.LED.(*pin.Mock)
	// stock led is active-low, starts dark
	assert.Equal(t, []bool{true}, led.Writes)

	in1, err := g.Input()
	require.NoError(t, err)
	assert.True(t, in1 == c.Input, "lazy init must return same instance")

	g.CloseHardware()
	assert.True(t, c.Link.(*wifi.MockLink).Closed)
	assert.True(t, c.Input.(*pin.Mock).Closed)
	assert.True(t, led.Closed)
}

func TestGlobalHardwareError(t *testing.T) {
	t.Parallel()

	log := log2.NewTest(t, log2.LDebug)
	fs := NewMockFullReader(map[string]string{
		"c":        mockHardware,
		"override": `hardware { input { driver = "gpio9000" } sleep { driver = "hibernate" } led { disable = true } }`,
	})
	g := &Global{Alive: alive.NewAlive(), Log: log}
	ctx := context.WithValue(context.Background(), ContextKey, g)
	g.MustInit(ctx, MustReadConfig(log, fs, "c", "override"))

	_, err := g.Cycle()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hardware.input")
	assert.Contains(t, err.Error(), "hardware.sleep")
	// once keeps the annotated error for later callers
	_, err = g.Input()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: hardware.input=")
	led, err := g.LED()
	assert.NoError(t, err)
	assert.Nil(t, led)
	g.CloseHardware()
}

func TestGlobalContext(t *testing.T) {
	t.Parallel()

	g := &Global{Alive: alive.NewAlive(), Log: log2.NewTest(t, log2.LDebug)}
	ctx, cancel := g.Context(context.Background())
	defer cancel()
	assert.NoError(t, ctx.Err())
	g.Alive.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context must be cancelled on alive stop")
	}
}
