package alarm

import "time"

// Phase is the state-machine position derived from State.
type Phase string

const (
	// PhaseDisarmed means sensor monitoring is off.
	PhaseDisarmed Phase = "DISARMED"
	// PhaseArmedQuiet means monitoring is on and the piezo is silent.
	PhaseArmedQuiet Phase = "ARMED"
	// PhaseArmedSounding means monitoring is on and the piezo is driven.
	PhaseArmedSounding Phase = "SOUNDING"
)

// State is the arming/alarm state. AlarmSounding implies Armed.
type State struct {
	// Armed indicates whether sensor monitoring is active.
	Armed bool
	// AlarmSounding indicates whether the piezo output is currently driven high.
	AlarmSounding bool
	// LastVibration is the time of the last accepted (post-debounce) vibration event.
	LastVibration time.Time
	// LastCommand is the time of the last processed operator command.
	LastCommand time.Time
}

// Phase maps the flags to a state-machine position.
func (s State) Phase() Phase {
	switch {
	case !s.Armed:
		return PhaseDisarmed
	case s.AlarmSounding:
		return PhaseArmedSounding
	default:
		return PhaseArmedQuiet
	}
}

// Valid reports whether the AlarmSounding ⇒ Armed invariant holds.
func (s State) Valid() bool {
	return s.Armed || !s.AlarmSounding
}

// Snapshot is a point-in-time view of the controller.
// It is a value type, safe to use after the controller lock is released.
type Snapshot struct {
	State

	// PendingTimer reports whether an auto-silence timer is scheduled.
	PendingTimer bool
	// VibrationEvents counts accepted vibration events since start.
	VibrationEvents uint64
	// StartedAt is when the controller was created.
	StartedAt time.Time
	// Now is when the snapshot was taken.
	Now time.Time
}

// Uptime returns the duration since the controller started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartedAt)
}

// Clone returns a copy for use outside the controller lock.
func (s State) Clone() State {
	return s
}
