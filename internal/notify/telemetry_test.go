package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/vibration-alarm/internal/domain/alarm"
)

// TestTelemetrySend checks the Ubidots-style request and acknowledgement.
func TestTelemetrySend(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1.6/devices/front-door/", r.URL.Path)
		require.Equal(t, "BBUS-token", r.Header.Get("X-Auth-Token"))

		var body map[string]float64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.InDelta(t, 4, body["vibrations"], 0)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"vibrations":[{"status_code":201}]}`))
	}))
	t.Cleanup(srv.Close)

	dest := NewTelemetryDestination(srv.Client(), srv.URL, "BBUS-token", "front-door", "vibrations")
	require.Equal(t, TelemetryName, dest.Name())
	require.True(t, dest.Accepts(alarm.KindTelemetrySample))
	require.False(t, dest.Accepts(alarm.KindVibrationAlarm))

	ack, err := dest.Send(t.Context(), alarm.NewTelemetry(4, time.Now()))
	require.NoError(t, err)
	require.Equal(t, "Created", ack.Detail)
}

// TestTelemetrySendFailures maps remote answers to failure reasons.
func TestTelemetrySendFailures(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		status int
		body   string
		want   error
	}{
		"rejected":  {status: http.StatusForbidden, body: `{"code":403}`, want: ErrRemoteRejected},
		"not json":  {status: http.StatusOK, body: `ok`, want: ErrMalformedResponse},
		"null body": {status: http.StatusOK, body: `null`, want: ErrMalformedResponse},
		"array":     {status: http.StatusOK, body: `[]`, want: ErrMalformedResponse},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			t.Cleanup(srv.Close)

			dest := NewTelemetryDestination(srv.Client(), srv.URL, "t", "d", "v")

			_, err := dest.Send(t.Context(), alarm.NewTelemetry(1, time.Now()))
			require.ErrorIs(t, err, tc.want)
		})
	}
}

// TestTelemetrySendTimeout checks a slow remote is reported as a timeout.
func TestTelemetrySendTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	dest := NewTelemetryDestination(srv.Client(), srv.URL, "t", "d", "v")

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	_, err := dest.Send(ctx, alarm.NewTelemetry(1, time.Now()))
	require.ErrorIs(t, err, ErrTimeout)
}
