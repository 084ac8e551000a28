// Package daemon wires the vibration-alarm controller to its board, command
// input, notification destinations and network servers, and runs it until the
// context is cancelled.
package daemon
