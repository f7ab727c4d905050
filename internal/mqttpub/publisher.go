// Package mqttpub publishes detection notifications to an MQTT broker so that
// dashboards and alerting systems can follow recordings as they happen.
package mqttpub

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/kimlab-seismo/detectQuake/internal/monitoring"
)

// DefaultTopicPrefix is used when Options.TopicPrefix is empty.
const DefaultTopicPrefix = "detectquake"

// Options configures the broker connection.
type Options struct {
	// Broker is the broker URL, e.g. tcp://localhost:1883.
	Broker   string
	ClientID string
	// TopicPrefix is the first topic level; notifications go to
	// <prefix>/<device_id>/events.
	TopicPrefix string
	QoS         byte
	// Timeout bounds connecting and waiting for publish acknowledgements.
	Timeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.ClientID == "" {
		o.ClientID = fmt.Sprintf("quaked-%d", time.Now().Unix())
	}
	if o.TopicPrefix == "" {
		o.TopicPrefix = DefaultTopicPrefix
	}
	if o.QoS > 2 {
		o.QoS = 1
	}
	if o.Timeout <= 0 {
		o.Timeout = 2 * time.Second
	}
	return o
}

// Publisher implements monitoring.Notifier over MQTT.
type Publisher struct {
	client  mqtt.Client
	prefix  string
	qos     byte
	timeout time.Duration
	logf    func(format string, v ...interface{})
}

// Connect dials the broker and returns a Publisher. The client reconnects on
// its own after a lost connection.
func Connect(opts Options) (*Publisher, error) {
	opts = opts.withDefaults()
	logf := monitoring.Prefixed("[mqtt] ")

	co := mqtt.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetClientID(opts.ClientID)
	co.SetAutoReconnect(true)
	co.SetConnectTimeout(opts.Timeout)
	co.OnConnect = func(mqtt.Client) {
		logf("connected to %s", opts.Broker)
	}
	co.OnConnectionLost = func(_ mqtt.Client, err error) {
		logf("connection lost: %v", err)
	}

	client := mqtt.NewClient(co)
	token := client.Connect()
	if !token.WaitTimeout(opts.Timeout) {
		return nil, fmt.Errorf("timed out connecting to %s", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", opts.Broker, err)
	}
	return &Publisher{
		client:  client,
		prefix:  opts.TopicPrefix,
		qos:     opts.QoS,
		timeout: opts.Timeout,
		logf:    logf,
	}, nil
}

// Topic returns the event topic of a device.
func (p *Publisher) Topic(deviceID int) string {
	return fmt.Sprintf("%s/%d/events", p.prefix, deviceID)
}

// Publish sends n and waits for the broker to acknowledge it.
func (p *Publisher) Publish(n monitoring.Notification) error {
	token, err := p.send(n)
	if err != nil {
		return err
	}
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("timed out publishing %s", n.Kind)
	}
	return token.Error()
}

// Notify publishes n without blocking the caller. Failures are logged.
func (p *Publisher) Notify(n monitoring.Notification) {
	token, err := p.send(n)
	if err != nil {
		p.logf("failed to publish %s: %v", n.Kind, err)
		return
	}
	go func() {
		if !token.WaitTimeout(p.timeout) {
			p.logf("timed out publishing %s", n.Kind)
			return
		}
		if err := token.Error(); err != nil {
			p.logf("failed to publish %s: %v", n.Kind, err)
		}
	}()
}

func (p *Publisher) send(n monitoring.Notification) (mqtt.Token, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification: %w", err)
	}
	return p.client.Publish(p.Topic(n.DeviceID), p.qos, false, payload), nil
}

// Close disconnects from the broker, allowing in-flight messages a short
// grace period.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
