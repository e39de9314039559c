package wifi

import (
	"sync"
	"time"
)

// MockLink reports connected after ConnectAfter polls. ConnectAfter<0 never connects.
type MockLink struct {
	mu           sync.Mutex
	ConnectAfter int
	ConfigureErr error
	BeginErr     error
	StatusErr    error
	Static       *Static
	SSID         string
	Polls        int
	Deadlines    []time.Time
	Closed       bool
}

func (self *MockLink) Configure(s Static) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.Static = &s
	return self.ConfigureErr
}

func (self *MockLink) Begin(ssid, psk string) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.SSID = ssid
	return self.BeginErr
}

func (self *MockLink) Connected() (bool, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.Polls++
	if self.StatusErr != nil {
		return false, self.StatusErr
	}
	return self.ConnectAfter >= 0 && self.Polls > self.ConnectAfter, nil
}

func (self *MockLink) SetDeadline(t time.Time) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.Deadlines = append(self.Deadlines, t)
}

func (self *MockLink) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.Closed = true
	return nil
}
