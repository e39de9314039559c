// Arm wake timer and power down. Optional argument: ok (default) or error
// selects long or short period.
package sleep

import (
	"context"
	"flag"

	"github.com/juju/errors"
	"github.com/temoto/wakepost/cmd/wakepost/subcmd"
	"github.com/temoto/wakepost/internal/cycle"
	"github.com/temoto/wakepost/internal/state"
)

var Mod = subcmd.Mod{Name: "sleep", Desc: "deep sleep now: sleep [ok|error]", Main: Main}

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)

	var ok bool
	switch arg := flag.Arg(1); arg {
	case "", "ok":
		ok = true
	case "error":
	default:
		return errors.NotValidf("sleep argument=%s valid: ok, error", arg)
	}
	sleeper, err := g.Sleeper()
	if err != nil {
		return err
	}
	d := cycle.SleepDuration(ok, g.Config.Sleep)
	return errors.Annotate(sleeper.DeepSleep(d, g.Config.Hardware.Sleep.NoRFCal), "deep sleep")
}
