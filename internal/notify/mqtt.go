package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/vibration-alarm/internal/domain/alarm"
)

// MQTTName is the destination name of the broker.
const MQTTName = "mqtt"

const (
	qosAtMostOnce  byte = 0
	qosAtLeastOnce byte = 1

	mqttRetryInterval = 5 * time.Second
	mqttQuiesce       = 250 // milliseconds
)

var errPublishTimeout = errors.New("publish not acknowledged")

// publisher is the part of paho.Client the destination uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload any) paho.Token
	Disconnect(quiesce uint)
}

// MQTTDestination publishes every message kind to a broker topic.
type MQTTDestination struct {
	client publisher
	topic  string
}

// MQTTOptions configures the broker connection.
type MQTTOptions struct {
	Broker   string
	ClientID string
	Topic    string
	Username string
	Password string
}

type mqttPayload struct {
	Kind      string  `json:"kind"`
	Text      string  `json:"text"`
	Value     float64 `json:"value"`
	Timestamp string  `json:"timestamp"`
}

// NewMQTTDestination starts connecting to the broker in the background.
// The connection is retried by the client, so an unreachable broker only
// fails individual sends.
func NewMQTTDestination(opts MQTTOptions) *MQTTDestination {
	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(mqttRetryInterval)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username).SetPassword(opts.Password)
	}

	client := paho.NewClient(clientOpts)
	client.Connect()

	return newMQTTDestination(client, opts.Topic)
}

func newMQTTDestination(client publisher, topic string) *MQTTDestination {
	return &MQTTDestination{client: client, topic: topic}
}

// Name implements Destination.
func (m *MQTTDestination) Name() string {
	return MQTTName
}

// Accepts implements Destination.
func (m *MQTTDestination) Accepts(alarm.Kind) bool {
	return true
}

// Send implements Destination. Critical messages use QoS 1.
func (m *MQTTDestination) Send(ctx context.Context, msg alarm.Message) (*Ack, error) {
	payload, err := json.Marshal(mqttPayload{
		Kind:      msg.Kind.String(),
		Text:      msg.Text(),
		Value:     msg.Value,
		Timestamp: msg.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal mqtt payload: %w", err)
	}

	qos := qosAtMostOnce
	if msg.Critical() {
		qos = qosAtLeastOnce
	}

	token := m.client.Publish(m.topic, qos, false, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return nil, &Error{Destination: MQTTName, Kind: msg.Kind, Reason: ReasonTimeout, Err: errPublishTimeout}
	}

	if err = token.Error(); err != nil {
		return nil, transportError(MQTTName, msg.Kind, err)
	}

	return newAck(MQTTName, m.topic), nil
}

// Close disconnects from the broker.
func (m *MQTTDestination) Close() {
	m.client.Disconnect(mqttQuiesce)
}
