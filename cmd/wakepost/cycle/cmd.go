// Default mode: one wake cycle, ends in deep sleep.
package cycle

import (
	"context"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/temoto/wakepost/cmd/wakepost/subcmd"
	"github.com/temoto/wakepost/internal/state"
)

var Mod = subcmd.Mod{Name: "cycle", Desc: "join, sample, post, deep sleep", Main: Main}

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)

	c, err := g.Cycle()
	if err != nil {
		return errors.Annotate(err, "hardware init")
	}
	subcmd.SdNotify(daemon.SdNotifyReady)
	g.Log.Debugf("cycle init complete since_wake=%s", g.Clock.Now().Sub(g.Wake))

	_, err = c.Run(ctx)
	if ctx.Err() != nil {
		g.Log.Infof("cycle stopped before sleep")
		return nil
	}
	// only reached when deep sleep primitive failed, exit code lets supervisor restart
	return err
}
