// Package timer schedules the single auto-silence action of an alarm cycle.
package timer
