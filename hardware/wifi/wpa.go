package wifi

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
)

const (
	DefaultInterface  = "wlan0"
	DefaultCtrlDir    = "/var/run/wpa_supplicant"
	DefaultResolvConf = "/etc/resolv.conf"
	wpaTimeout        = 2 * time.Second
	wpaStateCompleted = "COMPLETED"
)

// Runner executes external command, used for `ip`.
type Runner func(name string, args ...string) error

func ExecRunner(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return errors.Annotatef(err, "%s %s output=%s", name, strings.Join(args, " "), strings.TrimSpace(string(out)))
	}
	return nil
}

// WpaLink drives wpa_supplicant through its control socket.
type WpaLink struct {
	Interface  string
	CtrlPath   string
	ResolvConf string
	Timeout    time.Duration
	Run        Runner

	ctrl     *wpaCtrl
	deadline time.Time
}

func NewWpaLink(c Config) *WpaLink {
	self := &WpaLink{
		Interface:  c.Interface,
		CtrlPath:   c.CtrlPath,
		ResolvConf: c.ResolvConf,
		Timeout:    wpaTimeout,
		Run:        ExecRunner,
	}
	if self.Interface == "" {
		self.Interface = DefaultInterface
	}
	if self.CtrlPath == "" {
		self.CtrlPath = filepath.Join(DefaultCtrlDir, self.Interface)
	}
	if self.ResolvConf == "" {
		self.ResolvConf = DefaultResolvConf
	}
	return self
}

func (self *WpaLink) Configure(s Static) error {
	plen, err := s.PrefixLen()
	if err != nil {
		return err
	}
	if err = self.Run("ip", "link", "set", self.Interface, "up"); err != nil {
		return err
	}
	if err = self.Run("ip", "addr", "replace", fmt.Sprintf("%s/%d", s.Address, plen), "dev", self.Interface); err != nil {
		return err
	}
	if s.Gateway != "" {
		if err = self.Run("ip", "route", "replace", "default", "via", s.Gateway, "dev", self.Interface); err != nil {
			return err
		}
	}
	if s.DNS != "" {
		content := fmt.Sprintf("# generated by wakepost\nnameserver %s\n", s.DNS)
		if err = os.WriteFile(self.ResolvConf, []byte(content), 0644); err != nil {
			return errors.Annotate(err, "resolv.conf")
		}
	}
	return nil
}

func (self *WpaLink) Begin(ssid, psk string) error {
	if self.ctrl == nil {
		ctrl, err := dialWpa(self.CtrlPath, self.Timeout)
		if err != nil {
			return err
		}
		ctrl.deadline = self.deadline
		self.ctrl = ctrl
	}
	if err := self.ctrl.expectOK("REMOVE_NETWORK all"); err != nil {
		return err
	}
	reply, err := self.ctrl.request("ADD_NETWORK")
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil {
		return errors.Errorf("wpa ADD_NETWORK unexpected reply=%q", reply)
	}
	// hex ssid needs no quoting
	cmds := []string{fmt.Sprintf("SET_NETWORK %d ssid %x", id, ssid)}
	if psk == "" {
		cmds = append(cmds, fmt.Sprintf("SET_NETWORK %d key_mgmt NONE", id))
	} else {
		if strings.ContainsAny(psk, "\"\n") {
			return errors.NotValidf("wifi psk with quote or newline")
		}
		cmds = append(cmds, fmt.Sprintf("SET_NETWORK %d psk \"%s\"", id, psk))
	}
	cmds = append(cmds, fmt.Sprintf("SELECT_NETWORK %d", id))
	for _, cmd := range cmds {
		if err := self.ctrl.expectOK(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (self *WpaLink) Connected() (bool, error) {
	if self.ctrl == nil {
		return false, errors.Errorf("wpa not connected, call Begin")
	}
	reply, err := self.ctrl.request("STATUS")
	if err != nil {
		return false, err
	}
	return ParseStatus(reply)["wpa_state"] == wpaStateCompleted, nil
}

func (self *WpaLink) SetDeadline(t time.Time) {
	self.deadline = t
	if self.ctrl != nil {
		self.ctrl.deadline = t
	}
}

func (self *WpaLink) Close() error {
	if self.ctrl == nil {
		return nil
	}
	err := self.ctrl.Close()
	self.ctrl = nil
	return err
}

// ParseStatus parses key=value lines of STATUS reply.
func ParseStatus(s string) map[string]string {
	m := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(s))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '='); i > 0 {
			m[line[:i]] = line[i+1:]
		}
	}
	return m
}

var wpaLocalSeq uint32

type wpaCtrl struct {
	conn     *net.UnixConn
	local    string
	timeout  time.Duration
	deadline time.Time // caps timeout when set
	buf      [4096]byte
}

func dialWpa(path string, timeout time.Duration) (*wpaCtrl, error) {
	// wpa_supplicant replies to sender address, client socket must be bound
	local := filepath.Join(os.TempDir(),
		fmt.Sprintf("wakepost-wpa-%d-%d", os.Getpid(), atomic.AddUint32(&wpaLocalSeq, 1)))
	_ = os.Remove(local)
	conn, err := net.DialUnix("unixgram",
		&net.UnixAddr{Name: local, Net: "unixgram"},
		&net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		return nil, errors.Annotatef(err, "wpa ctrl=%s", path)
	}
	return &wpaCtrl{conn: conn, local: local, timeout: timeout}, nil
}

func (self *wpaCtrl) request(cmd string) (string, error) {
	d := time.Now().Add(self.timeout)
	if !self.deadline.IsZero() && self.deadline.Before(d) {
		d = self.deadline
	}
	if err := self.conn.SetDeadline(d); err != nil {
		return "", errors.Annotate(err, "wpa deadline")
	}
	if _, err := self.conn.Write([]byte(cmd)); err != nil {
		return "", errors.Annotatef(err, "wpa send %s", verb(cmd))
	}
	for {
		n, err := self.conn.Read(self.buf[:])
		if err != nil {
			return "", errors.Annotatef(err, "wpa recv %s", verb(cmd))
		}
		reply := string(self.buf[:n])
		// unsolicited event, only seen when attached
		if strings.HasPrefix(reply, "<") {
			continue
		}
		return reply, nil
	}
}

func (self *wpaCtrl) expectOK(cmd string) error {
	reply, err := self.request(cmd)
	if err != nil {
		return err
	}
	if strings.TrimSpace(reply) != "OK" {
		return errors.Errorf("wpa %s reply=%q", verb(cmd), strings.TrimSpace(reply))
	}
	return nil
}

func (self *wpaCtrl) Close() error {
	err := self.conn.Close()
	_ = os.Remove(self.local)
	return err
}

// command name without arguments, keeps psk out of logs
func verb(cmd string) string {
	if i := strings.IndexByte(cmd, ' '); i > 0 {
		return cmd[:i]
	}
	return cmd
}
