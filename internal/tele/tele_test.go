package tele

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/wakepost/helpers"
	"github.com/temoto/wakepost/internal/sensor"
	"github.com/temoto/wakepost/log2"
)

func TestFormatRequest(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		cfg    Config
		sample sensor.Sample
		expect string
	}{
		{"defaults", Config{APIKey: "XYZ"}, sensor.Sample{Pin: true, Voltage: 3.3},
			"GET /update?api_key=XYZ&field1=1&field2=3.30"},
		{"pin-off", Config{APIKey: "XYZ"}, sensor.Sample{Pin: false, Voltage: 2.949},
			"GET /update?api_key=XYZ&field1=0&field2=2.95"},
		{"fields", Config{APIKey: "K", SensorIndex: 3, StatusField: 7}, sensor.Sample{Pin: true, Voltage: 0},
			"GET /update?api_key=K&field3=1&field7=0.00"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expect, FormatRequest(&c.cfg, c.sample))
		})
	}
	assert.Equal(t, "GET /update?api_key=***&field1=1", redact("GET /update?api_key=XYZ&field1=1", "XYZ"))
}

func TestParseAck(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input  string
		expect uint32
	}{
		{"1", 1},
		{"  42\r\n", 42},
		{"+7", 7},
		{"abc", 0},
		{"", 0},
		{"0", 0},
		{"12abc", 12},
		{"-5", 0},
		{"\t\v\f99 100", 99},
		{"4294967295", 4294967295},
		{"99999999999999999999", 4294967295},
		{"+", 0},
	}
	for _, c := range cases {
		c := c
		t.Run(strconv.Quote(c.input), func(t *testing.T) {
			assert.Equal(t, c.expect, ParseAck([]byte(c.input)))
		})
	}
}

func TestConfig(t *testing.T) {
	t.Parallel()

	c := Config{}
	assert.Equal(t, "api.thingspeak.com:80", c.Addr())
	assert.Equal(t, 2, c.Attempts())
	assert.Equal(t, 5*time.Second, c.ConnectTimeout())
	assert.Equal(t, time.Second, c.HttpTimeout())
	assert.Equal(t, 2*time.Second, c.RetryDelay())
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key=empty")

	c = Config{APIKey: "k", SensorIndex: 2}
	err = c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sensor_index=status_field=2")

	c = Config{APIKey: "k", Host: "::1", Port: 8080}
	require.NoError(t, c.Validate())
	assert.Equal(t, "[::1]:8080", c.Addr())
}

type server struct {
	sync.Mutex
	ln       net.Listener
	requests []string
	accepted int
}

// handler gets connection after request line was read
func newServer(t testing.TB, handler func(n int, conn net.Conn)) *server {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &server{ln: ln}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.Lock()
			s.accepted++
			n := s.accepted
			s.Unlock()
			go func() {
				defer conn.Close()
				line, err := bufio.NewReader(conn).ReadString('\n')
				if err != nil {
					return
				}
				s.Lock()
				s.requests = append(s.requests, line)
				s.Unlock()
				handler(n, conn)
			}()
		}
	}()
	return s
}

func (s *server) config() *Config {
	addr := s.ln.Addr().(*net.TCPAddr)
	return &Config{
		APIKey:           "XYZ",
		Host:             "127.0.0.1",
		Port:             addr.Port,
		ConnectTimeoutMs: 1000,
		HttpTimeoutMs:    200,
	}
}

func (s *server) Requests() []string {
	s.Lock()
	defer s.Unlock()
	return append([]string(nil), s.requests...)
}

func TestPost(t *testing.T) {
	t.Parallel()

	const request = "GET /update?api_key=XYZ&field1=1&field2=3.30"
	reply := func(s string) func(int, net.Conn) {
		return func(_ int, conn net.Conn) { fmt.Fprint(conn, s) }
	}
	cases := []struct {
		name         string
		handler      func(int, net.Conn)
		expect       Result
		expectSlept  time.Duration
		expectServed int
	}{
		{"success", reply("12345\r\n"), Result{OK: true, Ack: 12345, Attempts: 1}, 0, 1},
		{"zero", reply("0"), Result{Attempts: 2}, DefaultRetryDelay, 2},
		{"garbage", reply("error\n"), Result{Attempts: 2}, DefaultRetryDelay, 2},
		{"close-empty", func(int, net.Conn) {}, Result{Attempts: 2}, DefaultRetryDelay, 2},
		{"silent", func(int, net.Conn) { time.Sleep(time.Second) }, Result{Attempts: 2}, DefaultRetryDelay, 2},
		{"second-attempt", func(n int, conn net.Conn) {
			if n == 2 {
				fmt.Fprint(conn, "77")
			}
		}, Result{OK: true, Ack: 77, Attempts: 2}, DefaultRetryDelay, 2},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			srv := newServer(t, c.handler)
			clock := helpers.NewFakeClock(time.Now())
			p := NewPoster(srv.config(), clock, log2.NewTest(t, log2.LDebug))
			r := p.Post(context.Background(), request)
			assert.Equal(t, c.expect, r)
			assert.Equal(t, c.expectSlept, clock.Slept())
			reqs := srv.Requests()
			assert.Len(t, reqs, c.expectServed)
			for _, req := range reqs {
				assert.Equal(t, request+"\r\n", req)
			}
		})
	}
}

func TestPostTimeoutBounded(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(int, net.Conn) { time.Sleep(2 * time.Second) })
	cfg := srv.config()
	cfg.MaxAttempts = 1
	p := NewPoster(cfg, helpers.NewFakeClock(time.Now()), log2.NewTest(t, log2.LDebug))
	start := time.Now()
	r := p.Post(context.Background(), "GET /update")
	elapsed := time.Since(start)
	assert.False(t, r.OK)
	assert.True(t, elapsed >= cfg.HttpTimeout(), "elapsed=%s", elapsed)
	assert.True(t, elapsed < cfg.HttpTimeout()+time.Second, "elapsed=%s", elapsed)
}

type failDialer struct{ calls int }

func (self *failDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	self.calls++
	return nil, fmt.Errorf("dial %s %s: connection refused", network, address)
}

func TestPostDialFailure(t *testing.T) {
	t.Parallel()

	d := &failDialer{}
	clock := helpers.NewFakeClock(time.Now())
	p := NewPoster(&Config{APIKey: "k", MaxAttempts: 3}, clock, log2.NewTest(t, log2.LDebug))
	p.Dialer = d
	r := p.Post(context.Background(), "GET /update")
	assert.Equal(t, Result{Attempts: 3}, r)
	assert.Equal(t, 3, d.calls)
	assert.Equal(t, 2*DefaultRetryDelay, clock.Slept())
}

func TestPostCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := &failDialer{}
	clock := helpers.NewFakeClock(time.Now())
	p := NewPoster(&Config{APIKey: "k"}, clock, log2.NewTest(t, log2.LDebug))
	p.Dialer = d
	r := p.Post(ctx, "GET /update")
	assert.Equal(t, 1, r.Attempts)
	assert.False(t, r.OK)
	assert.Equal(t, time.Duration(0), clock.Slept())
}
