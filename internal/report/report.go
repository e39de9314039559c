// Package report publishes the cycle summary over MQTT before sleep.
// Delivery is best effort, a failure never changes the sleep decision.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
	"github.com/temoto/wakepost/helpers"
	"github.com/temoto/wakepost/internal/cycle"
	"github.com/temoto/wakepost/log2"
)

const (
	DefaultClientID    = "wakepost"
	DefaultTopicPrefix = "wakepost"
	DefaultTimeout     = 3 * time.Second
	quiesceMs          = 100
)

type Config struct {
	MqttBroker  string `hcl:"mqtt_broker"` // tcp://host:1883
	ClientID    string `hcl:"client_id"`
	Username    string `hcl:"username"`
	Password    string `hcl:"password"` // secret
	TopicPrefix string `hcl:"topic_prefix"`
	TimeoutMs   int    `hcl:"timeout_ms"`
}

func (c *Config) Enabled() bool { return c.MqttBroker != "" }

func (c *Config) Topic() string {
	prefix := c.TopicPrefix
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return fmt.Sprintf("%s/report", prefix)
}

type payload struct {
	Wake      int64   `json:"wake"`
	Joined    bool    `json:"joined"`
	Sampled   bool    `json:"sampled"`
	Pin       uint    `json:"pin"`
	Voltage   float64 `json:"voltage"`
	Posted    bool    `json:"posted"`
	Ack       uint32  `json:"ack"`
	Attempts  int     `json:"attempts"`
	SleepSec  int64   `json:"sleep_sec"`
	ElapsedMs int64   `json:"elapsed_ms"`
	Error     string  `json:"error,omitempty"`
}

func Payload(r *cycle.Report) ([]byte, error) {
	p := payload{
		Wake:      r.Wake.Unix(),
		Joined:    r.Joined,
		Sampled:   r.Sampled,
		Pin:       r.Sample.PinInt(),
		Voltage:   r.Sample.Voltage,
		Posted:    r.Posted,
		Ack:       r.Ack,
		Attempts:  r.Attempts,
		SleepSec:  int64(r.Sleep / time.Second),
		ElapsedMs: int64(r.Elapsed / time.Millisecond),
		Error:     r.Err,
	}
	b, err := json.Marshal(p)
	return b, errors.Annotate(err, "report payload")
}

// subset of mqtt.Client used here
type client interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type MQTT struct {
	config    Config
	log       *log2.Log
	newClient func(*mqtt.ClientOptions) client
}

func NewMQTT(c Config, log *log2.Log) *MQTT {
	mqtt.ERROR = log
	mqtt.CRITICAL = log
	mqtt.WARN = log
	return &MQTT{
		config:    c,
		log:       log,
		newClient: func(o *mqtt.ClientOptions) client { return mqtt.NewClient(o) },
	}
}

func (self *MQTT) Report(ctx context.Context, r *cycle.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := Payload(r)
	if err != nil {
		return err
	}
	timeout := helpers.IntMillisecondDefault(self.config.TimeoutMs, DefaultTimeout)
	clientID := self.config.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}
	opt := mqtt.NewClientOptions().
		AddBroker(self.config.MqttBroker).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectTimeout(timeout)
	if self.config.Username != "" {
		opt.SetUsername(self.config.Username).SetPassword(self.config.Password)
	}

	m := self.newClient(opt)
	if err = wait(m.Connect(), timeout); err != nil {
		return errors.Annotatef(err, "mqtt connect broker=%s", self.config.MqttBroker)
	}
	defer m.Disconnect(quiesceMs)

	topic := self.config.Topic()
	if err = wait(m.Publish(topic, 1, false, b), timeout); err != nil {
		return errors.Annotatef(err, "mqtt publish topic=%s", topic)
	}
	self.log.Debugf("report published topic=%s payload=%s", topic, b)
	return nil
}

func wait(t mqtt.Token, timeout time.Duration) error {
	if !t.WaitTimeout(timeout) {
		return errors.Timeoutf("mqtt %s", timeout)
	}
	return t.Error()
}
