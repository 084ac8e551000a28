// Package controller implements the arming and alarm state machine and the
// control loop that feeds it.
//
// Controller owns the state, the auto-silence timer, the debouncer and the
// output pins behind a single mutex. The timer callback, operator commands
// and sensor samples all go through that mutex, so a late timer can never
// undo a disarm. Runner drives the controller from sensor, command and
// telemetry tickers without letting a slow source delay the others.
package controller
