package controller

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/vibration-alarm/internal/domain/alarm"
	"github.com/oshokin/vibration-alarm/internal/gpio"
	"github.com/oshokin/vibration-alarm/internal/metrics"
)

// scriptedSource hands out queued lines and otherwise waits for the full timeout.
type scriptedSource struct {
	mu        sync.Mutex
	lines     []string
	polls     int
	exhausted bool
}

func (s *scriptedSource) Receive(ctx context.Context, timeout time.Duration) (string, bool) {
	s.mu.Lock()
	s.polls++

	if len(s.lines) > 0 {
		line := s.lines[0]
		s.lines = s.lines[1:]
		s.mu.Unlock()

		return line, true
	}
	s.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}

	return "", false
}

func (s *scriptedSource) Exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.exhausted && len(s.lines) == 0
}

func (s *scriptedSource) pollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.polls
}

func startRunner(t *testing.T, r *Runner) (stop func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)

	go func() {
		done <- r.Run(ctx)
	}()

	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}

// TestRunnerSamplesDespiteCommandTimeouts checks slow command polls never delay sampling.
func TestRunnerSamplesDespiteCommandTimeouts(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, Options{})
		f.ctrl.HandleCommand(t.Context(), "arm")

		sensor := gpio.NewFakeInput(gpio.High)
		source := new(scriptedSource)

		stop := startRunner(t, NewRunner(f.ctrl, RunnerOptions{
			Sensor:         sensor,
			Commands:       source,
			PollInterval:   10 * time.Millisecond,
			CommandTimeout: 7 * time.Second,
		}))

		time.Sleep(time.Second)
		synctest.Wait()
		require.Equal(t, 100, sensor.Reads())

		time.Sleep(19 * time.Second)
		synctest.Wait()
		require.Equal(t, 2000, sensor.Reads())
		require.Equal(t, 3, source.pollCount(), "polls at 0s, 7s and 14s; the fourth is still waiting")

		stop()
	})
}

// TestRunnerEndToEnd arms through the command source and trips the alarm through the sensor.
func TestRunnerEndToEnd(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, Options{})

		sensor := gpio.NewFakeInput(gpio.High)
		source := &scriptedSource{lines: []string{"arm"}}

		stop := startRunner(t, NewRunner(f.ctrl, RunnerOptions{
			Sensor:            sensor,
			Commands:          source,
			TelemetryInterval: 5 * time.Second,
		}))

		synctest.Wait()
		require.Equal(t, alarm.PhaseArmedQuiet, f.ctrl.State().Phase())

		sensor.Script(gpio.Low, gpio.Low, gpio.High)
		time.Sleep(50 * time.Millisecond)
		synctest.Wait()

		require.Equal(t, alarm.PhaseArmedSounding, f.ctrl.State().Phase())
		require.Equal(t, uint64(1), f.ctrl.Snapshot().VibrationEvents, "chatter is debounced")

		time.Sleep(time.Second)
		synctest.Wait()
		require.Equal(t, alarm.PhaseArmedQuiet, f.ctrl.State().Phase())

		time.Sleep(4 * time.Second)
		synctest.Wait()
		require.Equal(t,
			[]alarm.Kind{alarm.KindArmed, alarm.KindVibrationAlarm, alarm.KindTelemetrySample},
			f.notes.kinds())

		stop()
	})
}

// TestRunnerIdleWhileDisarmed checks the sensor is not read while disarmed.
func TestRunnerIdleWhileDisarmed(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, Options{})
		sensor := gpio.NewFakeInput(gpio.Low)

		stop := startRunner(t, NewRunner(f.ctrl, RunnerOptions{Sensor: sensor, TelemetryInterval: time.Second}))

		time.Sleep(3 * time.Second)
		synctest.Wait()

		require.Zero(t, sensor.Reads())
		require.Empty(t, f.notes.kinds())

		stop()
	})
}

// TestRunnerToleratesSensorErrors checks read failures leave the state alone.
func TestRunnerToleratesSensorErrors(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, Options{})
		f.ctrl.HandleCommand(t.Context(), "arm")

		sensor := gpio.NewFakeInput(gpio.Low)
		sensor.SetError(errors.New("line released"))

		stop := startRunner(t, NewRunner(f.ctrl, RunnerOptions{Sensor: sensor}))

		time.Sleep(100 * time.Millisecond)
		synctest.Wait()
		require.Equal(t, alarm.PhaseArmedQuiet, f.ctrl.State().Phase())

		sensor.SetError(nil)
		time.Sleep(10 * time.Millisecond)
		synctest.Wait()
		require.Equal(t, alarm.PhaseArmedSounding, f.ctrl.State().Phase())

		stop()
		f.ctrl.Shutdown(t.Context())
	})
}

// TestRunnerStopsPollingExhaustedSource checks a closed input is not polled forever.
func TestRunnerStopsPollingExhaustedSource(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, Options{})
		source := &scriptedSource{lines: []string{"arm"}, exhausted: true}

		stop := startRunner(t, NewRunner(f.ctrl, RunnerOptions{
			Sensor:   gpio.NewFakeInput(gpio.High),
			Commands: source,
		}))

		time.Sleep(time.Minute)
		synctest.Wait()

		require.Equal(t, 1, source.pollCount())
		require.True(t, f.ctrl.Armed())

		stop()
	})
}

// TestRunnerCountsEmptyLineAsIgnored checks a blank line is not mistaken for a poll timeout.
func TestRunnerCountsEmptyLineAsIgnored(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, Options{})
		m := metrics.New()
		source := &scriptedSource{lines: []string{"", "arm"}}

		stop := startRunner(t, NewRunner(f.ctrl, RunnerOptions{
			Sensor:   gpio.NewFakeInput(gpio.High),
			Commands: source,
			Metrics:  m,
		}))

		synctest.Wait()
		require.True(t, f.ctrl.Armed())

		expected := `
# HELP alarm_command_polls_total Command source polls by result.
# TYPE alarm_command_polls_total counter
alarm_command_polls_total{result="command"} 1
alarm_command_polls_total{result="ignored"} 1
`
		require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
			"alarm_command_polls_total"))

		stop()
	})
}

// TestRunnerTelemetryCountsFromArm checks the first sample comes one interval after arming.
func TestRunnerTelemetryCountsFromArm(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, Options{})

		stop := startRunner(t, NewRunner(f.ctrl, RunnerOptions{
			Sensor:            gpio.NewFakeInput(gpio.High),
			TelemetryInterval: 5 * time.Second,
		}))

		time.Sleep(3 * time.Second)
		f.ctrl.HandleCommand(t.Context(), "arm")

		time.Sleep(2500 * time.Millisecond)
		synctest.Wait()
		require.Equal(t, []alarm.Kind{alarm.KindArmed}, f.notes.kinds(), "no sample at 5s")

		time.Sleep(2600 * time.Millisecond)
		synctest.Wait()
		require.Equal(t, []alarm.Kind{alarm.KindArmed, alarm.KindTelemetrySample}, f.notes.kinds())

		stop()
	})
}
