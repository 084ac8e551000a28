// Package gpio provides the digital input/output capabilities the controller
// consumes, with hardware abstraction.
//
// Two hardware drivers are available: the Linux GPIO character device
// (go-gpiocdev) and periph.io. The fake driver keeps everything in memory and
// lets the daemon and its tests run without hardware.
package gpio
