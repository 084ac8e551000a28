// Package debounce turns the raw, chattering vibration sensor readings into
// clean vibration events.
package debounce
