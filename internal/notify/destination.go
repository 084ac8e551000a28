package notify

import (
	"context"
	"time"

	"github.com/oshokin/vibration-alarm/internal/domain/alarm"
)

// Destination is a remote endpoint that receives alarm messages.
type Destination interface {
	// Name identifies the destination in logs and metrics.
	Name() string
	// Accepts reports whether messages of the kind are routed here.
	Accepts(kind alarm.Kind) bool
	// Send delivers one message. It must honour ctx cancellation.
	Send(ctx context.Context, msg alarm.Message) (*Ack, error)
}

// Ack confirms a delivered message.
type Ack struct {
	// Destination is the name of the destination that accepted the message.
	Destination string
	// At is when the acknowledgement was received.
	At time.Time
	// Detail is an optional remote identifier or status.
	Detail string
}

func newAck(destination, detail string) *Ack {
	return &Ack{Destination: destination, At: time.Now(), Detail: detail}
}
