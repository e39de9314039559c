// Join, sample and post like cycle, but stay awake. Bench and install check.
package post

import (
	"context"
	"fmt"

	"github.com/juju/errors"
	"github.com/temoto/wakepost/cmd/wakepost/subcmd"
	"github.com/temoto/wakepost/hardware/wifi"
	"github.com/temoto/wakepost/internal/sensor"
	"github.com/temoto/wakepost/internal/state"
	"github.com/temoto/wakepost/internal/tele"
)

var Mod = subcmd.Mod{Name: "post", Desc: "join, sample, post once without sleep", Main: Main}

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)

	link, err := g.Link()
	if err != nil {
		return err
	}
	static, err := g.Config.Wifi.StaticFor(g.Config.Tele.Sensor())
	if err != nil {
		return err
	}
	joined := wifi.Join(ctx, link, g.Config.Wifi, static, g.Clock, g.Wake, g.Log)
	if !joined && g.Config.Wifi.Required {
		return errors.Errorf("network join failed")
	}

	in, err := g.Input()
	if err != nil {
		return err
	}
	src, err := g.Vcc()
	if err != nil {
		return err
	}
	s, err := sensor.Read(in, src)
	if err != nil {
		return errors.Annotate(err, "sample")
	}
	r := g.Poster().Post(ctx, tele.FormatRequest(&g.Config.Tele, s))
	fmt.Printf("joined=%t %s ok=%t ack=%d attempts=%d\n", joined, s.String(), r.OK, r.Ack, r.Attempts)
	if !r.OK {
		return errors.Errorf("post failed attempts=%d", r.Attempts)
	}
	return nil
}
