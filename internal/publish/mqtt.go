package publish

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/abhinaya/internal/logging"
)

const publishTimeout = 2 * time.Second

// MQTTOptions configures NewMQTT.
type MQTTOptions struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string
	Prefix   string // topic prefix, e.g. "abhinaya"
}

// client is the subset of mqtt.Client used here.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes events as JSON to <prefix>/events/<kind> and the session
// status, retained, to <prefix>/status.
type MQTT struct {
	client client
	prefix string
	log    logrus.FieldLogger
}

// NewMQTT connects to the broker.
func NewMQTT(opts MQTTOptions, log logrus.FieldLogger) (*MQTT, error) {
	co := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second).
		SetOnConnectHandler(func(mqtt.Client) {
			log.WithField("broker", opts.Broker).Info("MQTT connected")
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})

	c := mqtt.NewClient(co)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", opts.Broker, token.Error())
	}
	return newMQTT(c, opts.Prefix, log), nil
}

func newMQTT(c client, prefix string, log logrus.FieldLogger) *MQTT {
	return &MQTT{
		client: c,
		prefix: strings.TrimSuffix(prefix, "/"),
		log:    logging.Component(log, "mqtt"),
	}
}

// Publish sends e without waiting for the broker. Delivery failures are
// logged.
func (m *MQTT) Publish(e Event) error {
	return m.send(m.prefix+"/events/"+e.Kind, false, e)
}

// Status replaces the retained status message.
func (m *MQTT) Status(v any) error {
	return m.send(m.prefix+"/status", true, v)
}

func (m *MQTT) send(topic string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", topic, err)
	}
	token := m.client.Publish(topic, 0, retained, payload)
	go func() {
		if !token.WaitTimeout(publishTimeout) {
			m.log.WithField("topic", topic).Warn("MQTT publish timed out")
			return
		}
		if err := token.Error(); err != nil {
			m.log.WithError(err).WithField("topic", topic).Warn("MQTT publish failed")
		}
	}()
	return nil
}

// Close disconnects, giving in-flight messages a short time to drain.
func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
