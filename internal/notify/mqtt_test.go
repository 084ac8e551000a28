package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/vibration-alarm/internal/domain/alarm"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func (f *fakeToken) Wait() bool {
	<-f.done
	return true
}

func (f *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-f.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (f *fakeToken) Done() <-chan struct{} {
	return f.done
}

func (f *fakeToken) Error() error {
	return f.err
}

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakePublisher struct {
	mu           sync.Mutex
	messages     []published
	err          error
	hang         bool
	disconnected bool
}

func (f *fakePublisher) Publish(topic string, qos byte, _ bool, payload any) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, _ := payload.([]byte)
	f.messages = append(f.messages, published{topic: topic, qos: qos, payload: data})

	token := &fakeToken{done: make(chan struct{}), err: f.err}
	if !f.hang {
		close(token.done)
	}

	return token
}

func (f *fakePublisher) Disconnect(uint) {
	f.mu.Lock()
	f.disconnected = true
	f.mu.Unlock()
}

// TestMQTTSend checks payload, topic and QoS selection.
func TestMQTTSend(t *testing.T) {
	t.Parallel()

	pub := new(fakePublisher)
	dest := newMQTTDestination(pub, "alarm/events")
	require.Equal(t, MQTTName, dest.Name())
	require.True(t, dest.Accepts(alarm.KindTelemetrySample))

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	_, err := dest.Send(t.Context(), alarm.NewMessage(alarm.KindVibrationAlarm, at))
	require.NoError(t, err)

	_, err = dest.Send(t.Context(), alarm.NewTelemetry(2, at))
	require.NoError(t, err)

	require.Len(t, pub.messages, 2)
	require.Equal(t, "alarm/events", pub.messages[0].topic)
	require.Equal(t, qosAtLeastOnce, pub.messages[0].qos)
	require.Equal(t, qosAtMostOnce, pub.messages[1].qos)

	var payload mqttPayload
	require.NoError(t, json.Unmarshal(pub.messages[0].payload, &payload))
	require.Equal(t, "VibrationAlarm", payload.Kind)
	require.Equal(t, "Vibration detected! Alarm sounding", payload.Text)
	require.Equal(t, "2026-01-02T03:04:05Z", payload.Timestamp)

	dest.Close()
	require.True(t, pub.disconnected)
}

// TestMQTTSendFailures covers broker errors and unacknowledged publishes.
func TestMQTTSendFailures(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{err: errors.New("not connected")}
	dest := newMQTTDestination(pub, "t")

	_, err := dest.Send(t.Context(), alarm.NewMessage(alarm.KindArmed, time.Now()))
	require.ErrorIs(t, err, ErrNetworkUnreachable)

	pub = &fakePublisher{hang: true}
	dest = newMQTTDestination(pub, "t")

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	_, err = dest.Send(ctx, alarm.NewMessage(alarm.KindArmed, time.Now()))
	require.ErrorIs(t, err, ErrTimeout)
}
