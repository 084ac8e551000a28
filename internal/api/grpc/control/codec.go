package control

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/vibration-alarm/internal/domain/alarm"
)

// Struct field names.
const (
	FieldArmed           = "armed"
	FieldAlarmSounding   = "alarm_sounding"
	FieldPhase           = "phase"
	FieldPendingTimer    = "pending_timer"
	FieldVibrationEvents = "vibration_events"
	FieldLastVibration   = "last_vibration"
	FieldLastCommand     = "last_command"
	FieldStartedAt       = "started_at"
	FieldChanged         = "changed"
)

// EncodeSnapshot converts a snapshot into the wire Struct.
func EncodeSnapshot(snap domain.Snapshot) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldArmed:           structpb.NewBoolValue(snap.Armed),
			FieldAlarmSounding:   structpb.NewBoolValue(snap.AlarmSounding),
			FieldPhase:           structpb.NewStringValue(string(snap.Phase())),
			FieldPendingTimer:    structpb.NewBoolValue(snap.PendingTimer),
			FieldVibrationEvents: structpb.NewNumberValue(float64(snap.VibrationEvents)),
			FieldLastVibration:   structpb.NewStringValue(formatTime(snap.LastVibration)),
			FieldLastCommand:     structpb.NewStringValue(formatTime(snap.LastCommand)),
			FieldStartedAt:       structpb.NewStringValue(formatTime(snap.StartedAt)),
		},
	}
}

// DecodeSnapshot converts the wire Struct back into a snapshot.
// Missing fields keep their zero values.
func DecodeSnapshot(st *structpb.Struct) (domain.Snapshot, error) {
	var snap domain.Snapshot

	fields := st.GetFields()

	snap.Armed = fields[FieldArmed].GetBoolValue()
	snap.AlarmSounding = fields[FieldAlarmSounding].GetBoolValue()
	snap.PendingTimer = fields[FieldPendingTimer].GetBoolValue()
	snap.VibrationEvents = uint64(fields[FieldVibrationEvents].GetNumberValue())

	var err error

	if snap.LastVibration, err = parseTime(fields[FieldLastVibration].GetStringValue()); err != nil {
		return snap, fmt.Errorf("%s: %w", FieldLastVibration, err)
	}

	if snap.LastCommand, err = parseTime(fields[FieldLastCommand].GetStringValue()); err != nil {
		return snap, fmt.Errorf("%s: %w", FieldLastCommand, err)
	}

	if snap.StartedAt, err = parseTime(fields[FieldStartedAt].GetStringValue()); err != nil {
		return snap, fmt.Errorf("%s: %w", FieldStartedAt, err)
	}

	snap.Now = time.Now()

	return snap, nil
}

// Changed reports the changed flag of a SendCommand answer.
func Changed(st *structpb.Struct) bool {
	return st.GetFields()[FieldChanged].GetBoolValue()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	return time.Parse(time.RFC3339Nano, s)
}
