package power

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/wakepost/log2"
	"golang.org/x/sys/unix"
)

const (
	DefaultRTC     = "rtc0"
	DefaultRTCRoot = "/sys/class/rtc"
)

// RTC programs wakealarm of a Linux RTC then powers off.
type RTC struct {
	Path string
	Log  *log2.Log

	writeFile func(path string, b []byte) error
	sync      func()
	powerOff  func() error
}

func NewRTC(name string, log *log2.Log) *RTC {
	if name == "" {
		name = DefaultRTC
	}
	return &RTC{
		Path: filepath.Join(DefaultRTCRoot, name, "wakealarm"),
		Log:  log,
		writeFile: func(path string, b []byte) error {
			return os.WriteFile(path, b, 0644)
		},
		sync: unix.Sync,
		powerOff: func() error {
			return unix.Reboot(unix.LINUX_REBOOT_CMD_POWER_OFF)
		},
	}
}

func (self *RTC) DeepSleep(d time.Duration, noRFCal bool) error {
	secs := alarmSeconds(d)
	if noRFCal {
		self.Log.Debugf("sleep no_rf_cal has no effect with rtc driver")
	}
	// kernel rejects new alarm with EBUSY while previous is armed
	if err := self.writeFile(self.Path, []byte("0")); err != nil {
		return errors.Annotatef(err, "rtc clear alarm path=%s", self.Path)
	}
	if err := self.writeFile(self.Path, []byte("+"+strconv.FormatInt(secs, 10))); err != nil {
		return errors.Annotatef(err, "rtc set alarm path=%s", self.Path)
	}
	self.Log.Infof("deep sleep duration=%s alarm=%s", time.Duration(secs)*time.Second, self.Path)
	self.sync()
	return errors.Annotate(self.powerOff(), "power off")
}
