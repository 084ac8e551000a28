package notify

import (
	"context"
	"slices"
	"sync"

	"github.com/oshokin/vibration-alarm/internal/domain/alarm"
)

// FakeDestination records messages in memory for tests.
type FakeDestination struct {
	name  string
	kinds []alarm.Kind

	mu   sync.Mutex
	sent []alarm.Message
	err  error
	gate chan struct{}
}

// NewFakeDestination creates a fake accepting the given kinds, or every kind when none are given.
func NewFakeDestination(name string, kinds ...alarm.Kind) *FakeDestination {
	return &FakeDestination{name: name, kinds: kinds}
}

// Name implements Destination.
func (f *FakeDestination) Name() string {
	return f.name
}

// Accepts implements Destination.
func (f *FakeDestination) Accepts(kind alarm.Kind) bool {
	return len(f.kinds) == 0 || slices.Contains(f.kinds, kind)
}

// Send implements Destination. Messages are recorded even when an error is injected.
func (f *FakeDestination) Send(ctx context.Context, msg alarm.Message) (*Ack, error) {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, transportError(f.name, msg.Kind, ctx.Err())
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, msg)

	if f.err != nil {
		return nil, f.err
	}

	return newAck(f.name, ""), nil
}

// SetError makes subsequent sends fail with err.
func (f *FakeDestination) SetError(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// Hold makes subsequent sends block until Release is called.
func (f *FakeDestination) Hold() {
	f.mu.Lock()
	f.gate = make(chan struct{})
	f.mu.Unlock()
}

// Release unblocks held sends.
func (f *FakeDestination) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

// Sent returns a copy of the recorded messages.
func (f *FakeDestination) Sent() []alarm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.sent)
}

// Kinds returns the kinds of the recorded messages in order.
func (f *FakeDestination) Kinds() []alarm.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()

	kinds := make([]alarm.Kind, 0, len(f.sent))
	for _, msg := range f.sent {
		kinds = append(kinds, msg.Kind)
	}

	return kinds
}
