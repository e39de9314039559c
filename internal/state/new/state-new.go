package state_new

import (
	"context"
	"testing"
	"time"

	"github.com/temoto/alive/v2"
	"github.com/temoto/wakepost/helpers"
	"github.com/temoto/wakepost/internal/state"
	"github.com/temoto/wakepost/log2"
)

func NewContext(log *log2.Log, clock helpers.Clock) (context.Context, *state.Global) {
	if log == nil {
		panic("code error NewContext() log=nil")
	}
	if clock == nil {
		clock = helpers.SystemClock{}
	}

	g := &state.Global{
		Alive: alive.NewAlive(),
		Clock: clock,
		Log:   log,
		Wake:  clock.Now(),
	}
	ctx := context.Background()
	ctx = context.WithValue(ctx, log2.ContextKey, log)
	ctx = context.WithValue(ctx, state.ContextKey, g)

	return ctx, g
}

// NewTestContext builds Global over mock hardware and fake clock.
// confString is appended to mock drivers config and may override any of it.
func NewTestContext(t testing.TB, confString string) (context.Context, *state.Global, *helpers.FakeClock) {
	fs := state.NewMockFullReader(map[string]string{
		"test-base":   testBaseConfig,
		"test-inline": confString,
	})

	log := log2.NewTest(t, log2.LDebug)
	// log := log2.NewStderr(log2.LDebug) // useful with panics
	clock := helpers.NewFakeClock(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx, g := NewContext(log, clock)
	g.BuildVersion = "test"
	g.MustInit(ctx, state.MustReadConfig(log, fs, "test-base", "test-inline"))
	return ctx, g, clock
}

const testBaseConfig = `
wifi { driver = "mock" ssid = "test" }
hardware {
	input { driver = "mock" }
	led { driver = "mock" }
	vcc { source = "fixed" value = 3.3 }
	sleep { driver = "mock" }
}
tele { api_key = "TESTKEY" }
`
