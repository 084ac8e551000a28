package gpio

import (
	"errors"
	"fmt"
)

// Level is a raw digital input level.
type Level int

const (
	// Low is logical 0. For the active-low vibration sensor it means "detected".
	Low Level = iota
	// High is logical 1. For the vibration sensor it means "quiet".
	High
)

// String returns "LOW" or "HIGH".
func (l Level) String() string {
	if l == Low {
		return "LOW"
	}

	return "HIGH"
}

// Input reads a digital input.
type Input interface {
	// Read returns the current raw level.
	Read() (Level, error)
	// Close releases the line.
	Close() error
}

// Output drives a digital output.
type Output interface {
	// Set drives the line high (on) or low (off).
	Set(on bool) error
	// Close releases the line.
	Close() error
}

// Driver names accepted by Open.
const (
	DriverGPIOCDev = "gpiocdev"
	DriverPeriph   = "periph"
	DriverFake     = "fake"
)

// Pin definitions (BCM numbering) used when the config leaves them out.
const (
	DefaultChip        = "gpiochip0"
	DefaultSensorPin   = 17
	DefaultPiezoPin    = 18
	DefaultArmedPin    = 23
	DefaultDisarmedPin = 24
)

// Pins selects the lines used by the controller.
type Pins struct {
	// Chip is the character device name, used by the gpiocdev driver only.
	Chip string
	// Sensor is the active-low vibration sensor input.
	Sensor int
	// Piezo is the audible alarm output.
	Piezo int
	// ArmedLED is lit while armed.
	ArmedLED int
	// DisarmedLED is lit while disarmed.
	DisarmedLED int
}

// ErrUnknownDriver is returned by Open for unsupported driver names.
var ErrUnknownDriver = errors.New("unknown gpio driver")

// Board groups the sensor input and the three outputs.
type Board struct {
	Sensor      Input
	Piezo       Output
	ArmedLED    Output
	DisarmedLED Output

	// release frees driver-level resources after the lines are closed.
	release func() error
}

// Open requests the configured lines from the named driver.
func Open(driver string, pins Pins) (*Board, error) {
	switch driver {
	case DriverGPIOCDev:
		return openChardev(pins)
	case DriverPeriph:
		return openPeriph(pins)
	case DriverFake, "":
		return NewFakeBoard(), nil
	default:
		return nil, fmt.Errorf("%q: %w", driver, ErrUnknownDriver)
	}
}

// Outputs returns the outputs in a fixed order: piezo, armed LED, disarmed LED.
func (b *Board) Outputs() []Output {
	return []Output{b.Piezo, b.ArmedLED, b.DisarmedLED}
}

// Off drives every output low.
func (b *Board) Off() error {
	var errs []error

	for _, out := range b.Outputs() {
		if out == nil {
			continue
		}

		if err := out.Set(false); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Close drives every output low and releases all lines.
func (b *Board) Close() error {
	errs := []error{b.Off()}

	if b.Sensor != nil {
		if err := b.Sensor.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sensor: %w", err))
		}
	}

	for _, out := range b.Outputs() {
		if out == nil {
			continue
		}

		if err := out.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close output: %w", err))
		}
	}

	if b.release != nil {
		if err := b.release(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
