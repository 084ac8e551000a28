package gpio

import (
	"errors"
	"sync"
)

// errNoLevels is returned by FakeInput.Read when nothing was scripted.
var errNoLevels = errors.New("no levels configured")

// FakeInput is a test double returning scripted levels.
// Each Read consumes the next level; the last one repeats once exhausted.
type FakeInput struct {
	mu     sync.Mutex
	levels []Level
	index  int
	reads  int
	err    error
	closed bool
}

// NewFakeInput creates a FakeInput with the given levels.
func NewFakeInput(levels ...Level) *FakeInput {
	return &FakeInput{levels: levels}
}

// Read returns the next scripted level.
func (f *FakeInput) Read() (Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads++

	if f.err != nil {
		return High, f.err
	}

	if len(f.levels) == 0 {
		return High, errNoLevels
	}

	level := f.levels[f.index]
	if f.index < len(f.levels)-1 {
		f.index++
	}

	return level, nil
}

// Script replaces the remaining levels.
func (f *FakeInput) Script(levels ...Level) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.levels = levels
	f.index = 0
}

// SetError makes subsequent reads fail with err; nil clears it.
func (f *FakeInput) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.err = err
}

// Reads returns how many times Read was called.
func (f *FakeInput) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.reads
}

// Close marks the input as closed.
func (f *FakeInput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	return nil
}

// Closed reports whether Close was called.
func (f *FakeInput) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}

// FakeOutput records every write.
type FakeOutput struct {
	mu      sync.Mutex
	on      bool
	history []bool
	err     error
	closed  bool
}

// NewFakeOutput creates an output that starts low.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// Set records the write; with an injected error the level is left unchanged.
func (f *FakeOutput) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	f.on = on
	f.history = append(f.history, on)

	return nil
}

// On returns the current level.
func (f *FakeOutput) On() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.on
}

// History returns a copy of all successful writes.
func (f *FakeOutput) History() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]bool(nil), f.history...)
}

// SetError makes subsequent writes fail with err; nil clears it.
func (f *FakeOutput) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.err = err
}

// Close marks the output as closed.
func (f *FakeOutput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	return nil
}

// Closed reports whether Close was called.
func (f *FakeOutput) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}

// NewFakeBoard returns a board backed by fakes. The sensor starts quiet.
func NewFakeBoard() *Board {
	return &Board{
		Sensor:      NewFakeInput(High),
		Piezo:       NewFakeOutput(),
		ArmedLED:    NewFakeOutput(),
		DisarmedLED: NewFakeOutput(),
	}
}
