// Package mqttbridge exposes the RTC over MQTT: alarms can be armed and
// cancelled remotely, console commands run from a topic, and wake events are
// published as they are serviced.
//
// Topics, under the configured prefix:
//
//	<prefix>/alarm/set     payload: unix seconds, RFC 3339 or +seconds
//	<prefix>/alarm/cancel  payload ignored
//	<prefix>/cmd           payload: one console command line
//	<prefix>/reply         command output or "error: ..."
//	<prefix>/wake          "alarm", "timer" or "alarm timer" per serviced wake
package mqttbridge

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ajanata/hym8563/hym8563"
	"github.com/ajanata/hym8563/internal/config"
	"github.com/ajanata/hym8563/internal/console"
)

const (
	topicAlarmSet    = "/alarm/set"
	topicAlarmCancel = "/alarm/cancel"
	topicCmd         = "/cmd"
	topicReply       = "/reply"
	topicWake        = "/wake"

	publishTimeout = 5 * time.Second
)

type Bridge struct {
	dev    console.Driver
	prefix string
	qos    byte

	client mqtt.Client
	// publish is swapped out in tests
	publish func(topic string, payload []byte) error
}

// New creates a bridge for dev. Nothing is connected until Connect.
func New(dev console.Driver, cfg config.MQTTConfig) *Bridge {
	b := &Bridge{
		dev:    dev,
		prefix: cfg.TopicPrefix,
		qos:    cfg.QoS,
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetOnConnectHandler(b.subscribe).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})
	b.client = mqtt.NewClient(opts)
	b.publish = b.clientPublish
	return b
}

// Connect connects to the broker; subscriptions are (re)made on every connect.
func (b *Bridge) Connect() error {
	if t := b.client.Connect(); t.Wait() && t.Error() != nil {
		return fmt.Errorf("mqtt: connect: %w", t.Error())
	}
	return nil
}

func (b *Bridge) Close() {
	b.client.Disconnect(250)
}

func (b *Bridge) subscribe(c mqtt.Client) {
	for _, suffix := range []string{topicAlarmSet, topicAlarmCancel, topicCmd} {
		topic := b.prefix + suffix
		if t := c.Subscribe(topic, b.qos, b.onMessage); t.Wait() && t.Error() != nil {
			log.Printf("mqtt: subscribe %s: %v", topic, t.Error())
			continue
		}
		log.Printf("mqtt: subscribed to %s", topic)
	}
}

func (b *Bridge) onMessage(_ mqtt.Client, m mqtt.Message) {
	out, err := b.Handle(m.Topic(), m.Payload())
	if err != nil {
		log.Printf("mqtt: %s: %v", m.Topic(), err)
		out = "error: " + err.Error()
	}
	if err := b.publish(b.prefix+topicReply, []byte(out)); err != nil {
		log.Printf("mqtt: reply: %v", err)
	}
}

// Handle runs the request carried by one message and returns the console
// output for it.
func (b *Bridge) Handle(topic string, payload []byte) (string, error) {
	var line string
	switch strings.TrimPrefix(topic, b.prefix) {
	case topicAlarmSet:
		arg := strings.TrimSpace(string(payload))
		if arg == "" || strings.ContainsAny(arg, " \t\n'\"\\#") {
			return "", fmt.Errorf("alarm payload %q: %w", payload, hym8563.ErrInvalidEncoding)
		}
		line = "alarm set " + arg
	case topicAlarmCancel:
		line = "alarm cancel"
	case topicCmd:
		line = string(payload)
	default:
		return "", fmt.Errorf("unexpected topic %q", topic)
	}

	var out bytes.Buffer
	err := console.New(b.dev, &out).Exec(line)
	if errors.Is(err, console.ErrQuit) {
		err = fmt.Errorf("%q is not available over mqtt", line)
	}
	return strings.TrimSuffix(out.String(), "\n"), err
}

// PublishWake reports a serviced wake. Events that failed or carried no flag
// are logged only.
func (b *Bridge) PublishWake(ev hym8563.WakeEvent) {
	payload := WakePayload(ev)
	if payload == "" {
		if ev.Err != nil {
			log.Printf("mqtt: wake not published: %v", ev.Err)
		} else {
			log.Printf("mqtt: wake not published: no flag in %s", ev.Flags)
		}
		return
	}
	if err := b.publish(b.prefix+topicWake, []byte(payload)); err != nil {
		log.Printf("mqtt: wake: %v", err)
	}
}

// WakePayload names the flags that caused ev, or returns "" when none did.
func WakePayload(ev hym8563.WakeEvent) string {
	if ev.Err != nil {
		return ""
	}
	var parts []string
	if ev.Alarm() {
		parts = append(parts, "alarm")
	}
	if ev.Timer() {
		parts = append(parts, "timer")
	}
	return strings.Join(parts, " ")
}

func (b *Bridge) clientPublish(topic string, payload []byte) error {
	t := b.client.Publish(topic, b.qos, false, payload)
	if !t.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timed out", topic)
	}
	return t.Error()
}
