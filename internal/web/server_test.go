package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/vibration-alarm/internal/domain/alarm"
	"github.com/oshokin/vibration-alarm/internal/metrics"
)

type staticSource struct {
	snap alarm.Snapshot
}

func (s staticSource) Snapshot() alarm.Snapshot {
	return s.snap
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))

	return rec
}

// TestStatusJSON checks the status document.
func TestStatusJSON(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	src := staticSource{snap: alarm.Snapshot{
		State: alarm.State{
			Armed:         true,
			AlarmSounding: true,
			LastVibration: start.Add(time.Hour),
		},
		PendingTimer:    true,
		VibrationEvents: 5,
		StartedAt:       start,
		Now:             start.Add(90*time.Minute + 500*time.Millisecond),
	}}

	srv := New(":0", src, nil, []string{"bot", "mqtt"})
	rec := get(t, srv.Handler(), "/status.json")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var doc StatusJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Equal(t, "SOUNDING", doc.Status.Phase)
	require.True(t, doc.Status.PendingTimer)
	require.Equal(t, uint64(5), doc.Status.VibrationEvents)
	require.Equal(t, "2026-01-01T01:00:00Z", doc.Status.LastVibration)
	require.Empty(t, doc.Status.LastCommand)
	require.Equal(t, int64(5400), doc.Status.UptimeSeconds)
	require.Equal(t, []string{"bot", "mqtt"}, doc.Status.Destinations)
}

// TestHealthAndMetrics checks the auxiliary endpoints.
func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.Vibration()

	srv := New(":0", staticSource{}, m.Handler(), nil)

	rec := get(t, srv.Handler(), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok\n", rec.Body.String())

	rec = get(t, srv.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "alarm_vibration_events_total 1"))

	rec = get(t, srv.Handler(), "/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

// TestMetricsDisabled checks /metrics is absent without a handler.
func TestMetricsDisabled(t *testing.T) {
	t.Parallel()

	srv := New(":0", staticSource{}, nil, nil)
	require.Equal(t, http.StatusNotFound, get(t, srv.Handler(), "/metrics").Code)

	var doc StatusJSON
	require.NoError(t, json.Unmarshal(get(t, srv.Handler(), "/status.json").Body.Bytes(), &doc))
	require.Equal(t, "DISARMED", doc.Status.Phase)
	require.Empty(t, doc.Status.Destinations)
}
