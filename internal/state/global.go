package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/wakepost/helpers"
	"github.com/temoto/wakepost/log2"
)

type Global struct {
	Alive        *alive.Alive
	BuildVersion string
	Clock        helpers.Clock
	Config       *Config
	Hardware     hardware // hardware.go
	Log          *log2.Log
	// Process start, equals wake time under cold boot model.
	Wake time.Time

	_copy_guard sync.Mutex //nolint:unused
}

const ContextKey = "run/state-global"

func GetGlobal(ctx context.Context) *Global {
	v := ctx.Value(ContextKey)
	if v == nil {
		panic(fmt.Sprintf("context['%s'] is nil", ContextKey))
	}
	if g, ok := v.(*Global); ok {
		return g
	}
	panic(fmt.Sprintf("context['%s'] expected type *Global actual=%#v", ContextKey, v))
}

// If `Init` fails, consider `Global` is in broken state.
func (g *Global) Init(ctx context.Context, cfg *Config) error {
	g.Config = cfg
	g.Log.Infof("build version=%s", g.BuildVersion)
	if g.Config.Diag.LogDebug {
		g.Log.SetLevel(log2.LDebug)
	}
	if g.Clock == nil {
		g.Clock = helpers.SystemClock{}
	}
	if g.Wake.IsZero() {
		g.Wake = g.Clock.Now()
	}
	return g.Config.Validate()
}

func (g *Global) MustInit(ctx context.Context, cfg *Config) {
	err := g.Init(ctx, cfg)
	if err != nil {
		g.Fatal(err)
	}
}

func (g *Global) Error(err error, args ...interface{}) {
	if err != nil {
		if len(args) != 0 {
			msg := args[0].(string)
			args = args[1:]
			err = errors.Annotatef(err, msg, args...)
		}
		g.Log.Error(err)
	}
}

func (g *Global) Fatal(err error, args ...interface{}) {
	if err != nil {
		if len(args) != 0 {
			msg := args[0].(string)
			args = args[1:]
			err = errors.Annotatef(err, msg, args...)
		}
		g.CloseHardware()
		g.Log.Fatal(errors.ErrorStack(err))
	}
}

// Context is cancelled when Alive is stopped, for example by signal.
func (g *Global) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-g.Alive.StopChan():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
