package pin

import "sync"

// Mock is both Input and Output.
type Mock struct {
	mu     sync.Mutex
	Level  bool
	Err    error
	Reads  int
	Writes []bool
	Closed bool
}

func (self *Mock) Read() (bool, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.Reads++
	return self.Level, self.Err
}

func (self *Mock) Set(high bool) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.Writes = append(self.Writes, high)
	self.Level = high
	return self.Err
}

func (self *Mock) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.Closed = true
	return nil
}

var _ Input = &Mock{}
var _ Output = &Mock{}
var _ Input = &Cdev{}
var _ Output = &Cdev{}
var _ Input = &Periph{}
var _ Output = &Periph{}
