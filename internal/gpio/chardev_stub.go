//go:build !linux

package gpio

import "errors"

// errChardevUnsupported is returned on platforms without the GPIO character device.
var errChardevUnsupported = errors.New("gpio: gpiocdev driver requires Linux")

func openChardev(Pins) (*Board, error) {
	return nil, errChardevUnsupported
}
