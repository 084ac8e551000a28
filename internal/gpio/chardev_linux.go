//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// chardevInput reads a line through the GPIO character device.
type chardevInput struct {
	line *gpiocdev.Line
}

func (i *chardevInput) Read() (Level, error) {
	v, err := i.line.Value()
	if err != nil {
		return High, fmt.Errorf("read line %d: %w", i.line.Offset(), err)
	}

	if v == 0 {
		return Low, nil
	}

	return High, nil
}

// Close reconfigures the line as a plain input before releasing it so the pin
// is left in the boot default state.
func (i *chardevInput) Close() error {
	return errors.Join(
		i.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown),
		i.line.Close(),
	)
}

// chardevOutput drives a line through the GPIO character device.
type chardevOutput struct {
	line *gpiocdev.Line
}

func (o *chardevOutput) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}

	if err := o.line.SetValue(v); err != nil {
		return fmt.Errorf("set line %d: %w", o.line.Offset(), err)
	}

	return nil
}

func (o *chardevOutput) Close() error {
	return o.line.Close()
}

// openChardev requests the board lines from a Linux GPIO chip.
func openChardev(pins Pins) (*Board, error) {
	name := pins.Chip
	if name == "" {
		name = DefaultChip
	}

	chip, err := gpiocdev.NewChip(name, gpiocdev.WithConsumer("vibration-alarm"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", name, err)
	}

	board := &Board{release: chip.Close}

	// The sensor module pulls the line low on vibration; keep it high when idle.
	sensor, err := chip.RequestLine(pins.Sensor, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		_ = board.Close()
		return nil, fmt.Errorf("request sensor pin %d: %w", pins.Sensor, err)
	}

	board.Sensor = &chardevInput{line: sensor}

	outputs := []struct {
		pin  int
		name string
		dst  *Output
	}{
		{pins.Piezo, "piezo", &board.Piezo},
		{pins.ArmedLED, "armed led", &board.ArmedLED},
		{pins.DisarmedLED, "disarmed led", &board.DisarmedLED},
	}

	for _, o := range outputs {
		line, err := chip.RequestLine(o.pin, gpiocdev.AsOutput(0))
		if err != nil {
			_ = board.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", o.name, o.pin, err)
		}

		*o.dst = &chardevOutput{line: line}
	}

	return board, nil
}
