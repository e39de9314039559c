package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/errors"
	"github.com/mattn/go-isatty"
	"github.com/temoto/wakepost/cmd/wakepost/cycle"
	"github.com/temoto/wakepost/cmd/wakepost/post"
	"github.com/temoto/wakepost/cmd/wakepost/sample"
	"github.com/temoto/wakepost/cmd/wakepost/sleep"
	"github.com/temoto/wakepost/cmd/wakepost/subcmd"
	"github.com/temoto/wakepost/helpers"
	"github.com/temoto/wakepost/internal/state"
	state_new "github.com/temoto/wakepost/internal/state/new"
	"github.com/temoto/wakepost/log2"
	"go.bug.st/serial"
)

var BuildVersion string = "unknown" // set by ldflags -X

var modules = []subcmd.Mod{
	cycle.Mod,
	sample.Mod,
	post.Mod,
	sleep.Mod,
}

func main() {
	wake := time.Now()
	logFlags := log2.LInteractiveFlags
	log := log2.NewStderr(log2.LInfo)
	log.SetFlags(logFlags)

	flagConfig := flag.String("config", "wakepost.hcl", "")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [option...] [command]\n\nCommands:\n", os.Args[0])
		for _, m := range modules {
			fmt.Fprintf(flag.CommandLine.Output(), "  %-8s %s\n", m.Name, m.Desc)
		}
		fmt.Fprintf(flag.CommandLine.Output(), "\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = cycle.Mod.Name
	}
	mod, err := subcmd.Parse(command, modules)
	if err != nil {
		flag.Usage()
		log.Fatal(err)
	}

	if subcmd.SdNotify("start") || !isatty.IsTerminal(os.Stderr.Fd()) {
		// journal or serial capture adds its own timestamps
		logFlags = log2.LServiceFlags
		log.SetFlags(logFlags)
	}
	log.Debugf("starting command=%s", mod.Name)

	config := state.MustReadConfig(log, state.NewOsFullReader(), *flagConfig)
	if config.Diag.SerialPort != "" {
		port, err := serial.Open(config.Diag.SerialPort, &serial.Mode{BaudRate: config.Diag.SerialBaud})
		if err != nil {
			log.Error(errors.Annotatef(err, "diag serial=%s baud=%d", config.Diag.SerialPort, config.Diag.SerialBaud))
		} else {
			defer port.Close()
			log = log2.NewWriter(io.MultiWriter(os.Stderr, port), log2.LInfo)
			log.SetFlags(logFlags)
		}
	}

	ctx, g := state_new.NewContext(log, helpers.SystemClock{})
	g.BuildVersion = BuildVersion
	g.Wake = wake

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Infof("signal=%v stopping", sig)
		g.Alive.Stop()
	}()
	ctx, cancel := g.Context(ctx)
	defer cancel()

	if err := mod.Main(ctx, config); err != nil {
		g.Fatal(err)
	}
	g.CloseHardware()
}
