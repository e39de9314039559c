// Package tele delivers one sample to the telemetry endpoint.
//
// Wire format is one text line over plain TCP:
// GET /update?api_key=<KEY>&field<N>=<0|1>&field<M>=<V.VV>\r\n
// Reply is a bare decimal entry id, 0 means rejected.
package tele

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/wakepost/helpers"
	"github.com/temoto/wakepost/log2"
)

const (
	readPoll   = 50 * time.Millisecond
	replyLimit = 64
)

type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type Result struct {
	OK       bool
	Ack      uint32
	Attempts int
}

type Poster struct {
	Config *Config
	Dialer Dialer
	Clock  helpers.Clock
	Log    *log2.Log
}

func NewPoster(c *Config, clock helpers.Clock, log *log2.Log) *Poster {
	return &Poster{
		Config: c,
		Dialer: &net.Dialer{Timeout: c.ConnectTimeout()},
		Clock:  clock,
		Log:    log,
	}
}

// Post tries up to MaxAttempts times, sleeping RetryDelay between attempts.
// Returns on first nonzero acknowledgement.
func (self *Poster) Post(ctx context.Context, request string) Result {
	limit := self.Config.Attempts()
	r := Result{}
	for r.Attempts < limit {
		r.Attempts++
		self.Log.Infof("tele connecting addr=%s attempt=%d/%d", self.Config.Addr(), r.Attempts, limit)
		ack, err := self.attempt(ctx, request)
		if err == nil {
			self.Log.Infof("tele response ack=%d", ack)
			r.OK, r.Ack = true, ack
			return r
		}
		self.Log.Errorf("tele connection or response attempt=%d err=%v", r.Attempts, err)
		if ctx.Err() != nil {
			return r
		}
		if r.Attempts < limit {
			self.Clock.Sleep(self.Config.RetryDelay())
		}
	}
	return r
}

func (self *Poster) attempt(ctx context.Context, request string) (uint32, error) {
	dctx, cancel := context.WithTimeout(ctx, self.Config.ConnectTimeout())
	defer cancel()
	conn, err := self.Dialer.DialContext(dctx, "tcp", self.Config.Addr())
	if err != nil {
		return 0, errors.Annotatef(err, "connect addr=%s", self.Config.Addr())
	}
	defer conn.Close()

	self.Log.Debugf("tele send %s", redact(request, self.Config.APIKey))
	if err = conn.SetWriteDeadline(time.Now().Add(self.Config.ConnectTimeout())); err != nil {
		return 0, errors.Annotate(err, "write deadline")
	}
	if _, err = io.WriteString(conn, request+"\r\n"); err != nil {
		return 0, errors.Annotate(err, "send")
	}

	reply, err := self.readReply(ctx, conn)
	if err != nil {
		return 0, err
	}
	ack := ParseAck(reply)
	if ack == 0 {
		return 0, errors.Errorf("reply=%q ack=0", reply)
	}
	return ack, nil
}

// readReply polls for the first non-empty chunk until HttpTimeout passes.
// Net deadlines are wall clock, so this loop is too.
func (self *Poster) readReply(ctx context.Context, conn net.Conn) ([]byte, error) {
	timeout := self.Config.HttpTimeout()
	deadline := time.Now().Add(timeout)
	buf := make([]byte, replyLimit)
	for {
		next := time.Now().Add(readPoll)
		if next.After(deadline) {
			next = deadline
		}
		if err := conn.SetReadDeadline(next); err != nil {
			return nil, errors.Annotate(err, "read deadline")
		}
		n, err := conn.Read(buf)
		if n > 0 {
			return buf[:n], nil
		}
		if err != nil && !isTimeout(err) {
			return nil, errors.Annotate(err, "read")
		}
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		if !time.Now().Before(deadline) {
			return nil, errors.Errorf("response timeout=%s", timeout)
		}
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
