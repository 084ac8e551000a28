package gpio

import (
	"errors"
	"fmt"
	"strconv"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// errPinNotFound is returned when periph has no pin registered under the BCM name.
var errPinNotFound = errors.New("pin not found")

// periphInput reads a pin through periph.io.
type periphInput struct {
	pin pgpio.PinIO
}

func (i *periphInput) Read() (Level, error) {
	if i.pin.Read() == pgpio.Low {
		return Low, nil
	}

	return High, nil
}

func (i *periphInput) Close() error {
	return i.pin.Halt()
}

// periphOutput drives a pin through periph.io.
type periphOutput struct {
	pin pgpio.PinIO
}

func (o *periphOutput) Set(on bool) error {
	level := pgpio.Low
	if on {
		level = pgpio.High
	}

	if err := o.pin.Out(level); err != nil {
		return fmt.Errorf("set %s: %w", o.pin.Name(), err)
	}

	return nil
}

func (o *periphOutput) Close() error {
	return o.pin.Halt()
}

// lookupPin resolves a BCM number to a periph pin ("GPIO17").
func lookupPin(bcm int) (pgpio.PinIO, error) {
	name := "GPIO" + strconv.Itoa(bcm)

	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%s: %w", name, errPinNotFound)
	}

	return p, nil
}

// openPeriph initialises the periph host drivers and configures the board pins.
func openPeriph(pins Pins) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}

	sensor, err := lookupPin(pins.Sensor)
	if err != nil {
		return nil, err
	}

	if err = sensor.In(pgpio.PullUp, pgpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configure sensor %s: %w", sensor.Name(), err)
	}

	board := &Board{Sensor: &periphInput{pin: sensor}}

	outputs := []struct {
		pin int
		dst *Output
	}{
		{pins.Piezo, &board.Piezo},
		{pins.ArmedLED, &board.ArmedLED},
		{pins.DisarmedLED, &board.DisarmedLED},
	}

	for _, o := range outputs {
		p, err := lookupPin(o.pin)
		if err != nil {
			_ = board.Close()
			return nil, err
		}

		if err = p.Out(pgpio.Low); err != nil {
			_ = board.Close()
			return nil, fmt.Errorf("configure %s: %w", p.Name(), err)
		}

		*o.dst = &periphOutput{pin: p}
	}

	return board, nil
}
