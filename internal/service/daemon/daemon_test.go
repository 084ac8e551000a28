package daemon

import (
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/vibration-alarm/internal/config"
	"github.com/oshokin/vibration-alarm/internal/gpio"
	"github.com/oshokin/vibration-alarm/internal/notify"
	"github.com/oshokin/vibration-alarm/internal/service/common"
)

const (
	waitFor = 5 * time.Second
	tick    = 10 * time.Millisecond
)

// testConfig returns validated defaults tuned for fast tests.
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := new(config.Config)
	require.NoError(t, config.Validate(cfg))

	cfg.Sensor.PollInterval = 5 * time.Millisecond
	cfg.Sensor.Debounce = 20 * time.Millisecond
	cfg.Alarm.AutoSilence = time.Minute
	cfg.Alarm.TelemetryInterval = -1

	return cfg
}

func localListener(t *testing.T) net.Listener {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	return l
}

// TestDaemonEndToEnd drives a daemon on a fake board through stdin, the control API and the status server.
func TestDaemonEndToEnd(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	board := gpio.NewFakeBoard()
	sensor, ok := board.Sensor.(*gpio.FakeInput)
	require.True(t, ok)

	d, err := newDaemon(ctx, testConfig(t), board)
	require.NoError(t, err)

	grpcListener := localListener(t)
	httpListener := localListener(t)

	stdin, input := io.Pipe()
	defer input.Close()

	done := make(chan error, 1)

	go func() {
		done <- d.run(ctx, stdin, grpcListener, httpListener)
	}()

	client, err := common.Dial(ctx, grpcListener.Addr().String())
	require.NoError(t, err)

	defer client.Close()

	// Arm from the console input.
	_, err = io.WriteString(input, "arm\n")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap, err := client.GetState(ctx)
		return err == nil && snap.Armed
	}, waitFor, tick)

	// A vibration starts the alarm.
	sensor.Script(gpio.Low, gpio.High)

	require.Eventually(t, func() bool {
		snap, err := client.GetState(ctx)
		return err == nil && snap.AlarmSounding && snap.VibrationEvents == 1
	}, waitFor, tick)

	piezo, ok := board.Piezo.(*gpio.FakeOutput)
	require.True(t, ok)
	require.True(t, piezo.On())

	// Disarm remotely; the piezo stops at once.
	result, err := client.SendCommand(ctx, "disarm")
	require.NoError(t, err)
	require.True(t, result.Changed)
	require.False(t, result.Snapshot.Armed)
	require.False(t, result.Snapshot.AlarmSounding)
	require.False(t, piezo.On())

	base := "http://" + httpListener.Addr().String()

	for _, path := range []string{"/status.json", "/healthz", "/metrics"} {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, http.NoBody)
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		require.NoError(t, resp.Body.Close())
	}

	require.Equal(t, []string{notify.LogName}, d.dispatcher.Destinations())

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("daemon did not stop")
	}

	for _, out := range board.Outputs() {
		fake, ok := out.(*gpio.FakeOutput)
		require.True(t, ok)
		require.False(t, fake.On())
		require.True(t, fake.Closed())
	}

	require.True(t, sensor.Closed())
}

// TestRunStopsOnCancel ensures the public entry point starts from a config file and exits cleanly.
func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "vibration-alarm.yaml")
	cfg := testConfig(t)
	cfg.Control.ListenAddress = "127.0.0.1:0"
	require.NoError(t, config.Save(path, cfg))

	ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
	defer cancel()

	stdin, input := io.Pipe()
	defer input.Close()

	err := Run(ctx, &Options{ConfigPath: path, Stdin: stdin, SkipGuard: true})
	require.NoError(t, err)
}

// TestRunRejectsBadOverrides ensures command line overrides are validated like the file.
func TestRunRejectsBadOverrides(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "missing.yaml")

	err := Run(t.Context(), &Options{ConfigPath: missing, Driver: "relay-board", SkipGuard: true})
	require.ErrorIs(t, err, gpio.ErrUnknownDriver)

	err = Run(t.Context(), &Options{ConfigPath: missing, HTTPAddress: "no-port", SkipGuard: true})
	require.Error(t, err)
}

// TestRunFailsOnBusyPort ensures a taken port is reported before the loop starts.
func TestRunFailsOnBusyPort(t *testing.T) {
	t.Parallel()

	busy := localListener(t)
	defer busy.Close()

	err := Run(t.Context(), &Options{
		ConfigPath:  filepath.Join(t.TempDir(), "missing.yaml"),
		HTTPAddress: busy.Addr().String(),
		SkipGuard:   true,
	})
	require.ErrorContains(t, err, "listen on")
}

// TestBuildRoutes ensures enabled destinations become routes and the log fallback applies otherwise.
func TestBuildRoutes(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)

	routes, broker := buildRoutes(t.Context(), &cfg.Notify, http.DefaultClient)
	require.Nil(t, broker)
	require.Len(t, routes, 1)
	require.Equal(t, notify.LogName, routes[0].Destination.Name())

	cfg.Notify.Bot = config.Bot{Enabled: true, BaseURL: "http://127.0.0.1:1", Token: "t", ChatID: "1"}
	cfg.Notify.Telemetry = config.Telemetry{
		Enabled: true, BaseURL: "http://127.0.0.1:1", Token: "t", Device: "d", Variable: "v",
		MinInterval: 2 * time.Second,
	}

	routes, broker = buildRoutes(t.Context(), &cfg.Notify, http.DefaultClient)
	require.Nil(t, broker)
	require.Len(t, routes, 2)
	require.Equal(t, notify.BotName, routes[0].Destination.Name())
	require.Equal(t, notify.TelemetryName, routes[1].Destination.Name())
	require.Equal(t, 2*time.Second, routes[1].MinInterval)
}
