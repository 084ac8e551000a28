package debounce

import (
	"time"

	"github.com/oshokin/vibration-alarm/internal/gpio"
)

// DefaultWindow is the minimum spacing between two accepted events.
const DefaultWindow = 100 * time.Millisecond

// Event is an accepted vibration.
type Event struct {
	Timestamp time.Time
}

// Debouncer accepts at most one detection per window.
// Not safe for concurrent use; the controller calls it under its lock.
type Debouncer struct {
	window       time.Duration
	lastAccepted time.Time
}

// New creates a Debouncer. A non-positive window falls back to DefaultWindow.
func New(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}

	return &Debouncer{window: window}
}

// Accept processes one sensor reading taken at now. The sensor is active-low:
// only gpio.Low is a detection. A detection is accepted when strictly more than
// the window has elapsed since the previous accepted one.
func (d *Debouncer) Accept(level gpio.Level, now time.Time) (Event, bool) {
	if level != gpio.Low {
		return Event{}, false
	}

	if !d.lastAccepted.IsZero() && now.Sub(d.lastAccepted) <= d.window {
		return Event{}, false
	}

	d.lastAccepted = now

	return Event{Timestamp: now}, true
}

// Reset forgets the last accepted detection.
func (d *Debouncer) Reset() {
	d.lastAccepted = time.Time{}
}

// Window returns the configured window.
func (d *Debouncer) Window() time.Duration {
	return d.window
}
