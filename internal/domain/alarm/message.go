package alarm

import (
	"strconv"
	"time"
)

// Kind identifies what a notification reports.
type Kind int

const (
	// KindArmed reports that the system was armed.
	KindArmed Kind = iota + 1
	// KindDisarmed reports that the system was disarmed.
	KindDisarmed
	// KindVibrationAlarm reports that a vibration started the alarm.
	KindVibrationAlarm
	// KindTelemetrySample carries a periodic sensor-derived value.
	KindTelemetrySample
)

// String returns the kind name used in logs, metrics and payloads.
func (k Kind) String() string {
	switch k {
	case KindArmed:
		return "Armed"
	case KindDisarmed:
		return "Disarmed"
	case KindVibrationAlarm:
		return "VibrationAlarm"
	case KindTelemetrySample:
		return "TelemetrySample"
	default:
		return "Unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// Message is an immutable notification produced by the controller.
type Message struct {
	// Kind is what happened.
	Kind Kind
	// Timestamp is when it happened.
	Timestamp time.Time
	// Value is the telemetry value; zero for other kinds.
	Value float64
}

// NewMessage builds a message of the given kind.
func NewMessage(kind Kind, at time.Time) Message {
	return Message{Kind: kind, Timestamp: at}
}

// NewTelemetry builds a telemetry sample message.
func NewTelemetry(value float64, at time.Time) Message {
	return Message{Kind: KindTelemetrySample, Timestamp: at, Value: value}
}

// Critical reports whether the message must bypass rate limiting.
func (m Message) Critical() bool {
	return m.Kind != KindTelemetrySample
}

// Text renders the operator-facing message text.
func (m Message) Text() string {
	switch m.Kind {
	case KindArmed:
		return "System armed"
	case KindDisarmed:
		return "System disarmed"
	case KindVibrationAlarm:
		return "Vibration detected! Alarm sounding"
	case KindTelemetrySample:
		return "Telemetry sample: " + strconv.FormatFloat(m.Value, 'f', -1, 64)
	default:
		return m.Kind.String()
	}
}
