package notify

import (
	"context"

	"github.com/oshokin/vibration-alarm/internal/domain/alarm"
	"github.com/oshokin/vibration-alarm/internal/logger"
)

// LogName is the name of the log destination.
const LogName = "log"

// LogDestination writes messages to the daemon log. It stands in for remote
// destinations when none is configured.
type LogDestination struct{}

// NewLogDestination creates a LogDestination.
func NewLogDestination() *LogDestination {
	return &LogDestination{}
}

// Name implements Destination.
func (*LogDestination) Name() string {
	return LogName
}

// Accepts implements Destination.
func (*LogDestination) Accepts(alarm.Kind) bool {
	return true
}

// Send implements Destination.
func (*LogDestination) Send(ctx context.Context, msg alarm.Message) (*Ack, error) {
	if msg.Kind == alarm.KindTelemetrySample {
		logger.InfoKV(ctx, "Telemetry sample", "value", msg.Value, "at", msg.Timestamp)
	} else {
		logger.InfoKV(ctx, "Alarm notification", "kind", msg.Kind, "at", msg.Timestamp)
	}

	return newAck(LogName, msg.Kind.String()), nil
}
