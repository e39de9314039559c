package power

import (
	"os"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/wakepost/helpers"
	"github.com/temoto/wakepost/log2"
	"golang.org/x/sys/unix"
)

// Exec is for boards without RTC alarm: wait in process, then replace
// the process image with a fresh copy of itself.
type Exec struct {
	Clock helpers.Clock
	Log   *log2.Log
	Argv  []string

	executable func() (string, error)
	exec       func(argv0 string, argv []string, envv []string) error
}

func NewExec(clock helpers.Clock, log *log2.Log) *Exec {
	return &Exec{
		Clock:      clock,
		Log:        log,
		Argv:       os.Args,
		executable: os.Executable,
		exec:       unix.Exec,
	}
}

func (self *Exec) DeepSleep(d time.Duration, noRFCal bool) error {
	path, err := self.executable()
	if err != nil {
		return errors.Annotate(err, "sleep exec: resolve own binary")
	}
	self.Log.Infof("deep sleep duration=%s then exec %s", d, path)
	self.Clock.Sleep(d)
	return errors.Annotatef(self.exec(path, self.Argv, os.Environ()), "sleep exec path=%s", path)
}
