// Read input and supply voltage once, print request line. No network, no sleep.
package sample

import (
	"context"
	"fmt"

	"github.com/juju/errors"
	"github.com/temoto/wakepost/cmd/wakepost/subcmd"
	"github.com/temoto/wakepost/internal/sensor"
	"github.com/temoto/wakepost/internal/state"
	"github.com/temoto/wakepost/internal/tele"
)

var Mod = subcmd.Mod{Name: "sample", Desc: "read sensor once and print", Main: Main}

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)

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
	tc := g.Config.Tele
	tc.APIKey = "***"
	fmt.Printf("%s\n%s\n", s.String(), tele.FormatRequest(&tc, s))
	return nil
}
