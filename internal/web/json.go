package web

import (
	"encoding/json"
	"time"

	"github.com/oshokin/vibration-alarm/internal/domain/alarm"
	"github.com/oshokin/vibration-alarm/internal/version"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Phase           string   `json:"phase"`
	Armed           bool     `json:"armed"`
	AlarmSounding   bool     `json:"alarm_sounding"`
	PendingTimer    bool     `json:"pending_timer"`
	VibrationEvents uint64   `json:"vibration_events"`
	LastVibration   string   `json:"last_vibration,omitempty"`
	LastCommand     string   `json:"last_command,omitempty"`
	UptimeSeconds   int64    `json:"uptime_seconds"`
	StartTime       string   `json:"start_time"`
	Timestamp       string   `json:"timestamp"`
	Version         string   `json:"version"`
	Destinations    []string `json:"destinations"`
}

// FormatJSON renders a snapshot for the status endpoint.
func FormatJSON(snap alarm.Snapshot, destinations []string) []byte {
	if destinations == nil {
		destinations = []string{}
	}

	inner := StatusInner{
		Phase:           string(snap.Phase()),
		Armed:           snap.Armed,
		AlarmSounding:   snap.AlarmSounding,
		PendingTimer:    snap.PendingTimer,
		VibrationEvents: snap.VibrationEvents,
		LastVibration:   formatTime(snap.LastVibration),
		LastCommand:     formatTime(snap.LastCommand),
		UptimeSeconds:   int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:       formatTime(snap.StartedAt),
		Timestamp:       formatTime(snap.Now),
		Version:         version.Short(),
		Destinations:    destinations,
	}

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")

	return data
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339)
}
