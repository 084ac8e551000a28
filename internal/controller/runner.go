package controller

import (
	"context"
	"sync"
	"time"

	"github.com/oshokin/vibration-alarm/internal/domain/alarm"
	"github.com/oshokin/vibration-alarm/internal/gpio"
	"github.com/oshokin/vibration-alarm/internal/logger"
	"github.com/oshokin/vibration-alarm/internal/metrics"
)

const (
	// DefaultPollInterval is the sensor sampling cadence while armed.
	DefaultPollInterval = 10 * time.Millisecond
	// DefaultCommandTimeout bounds one command poll.
	DefaultCommandTimeout = 7 * time.Second
	// DefaultTelemetryInterval is the telemetry cadence while armed.
	DefaultTelemetryInterval = 300 * time.Second
)

// CommandSource yields operator command lines with a bounded wait.
type CommandSource interface {
	// Receive waits up to timeout for a line. received is false on timeout;
	// an empty line is received with text "".
	Receive(ctx context.Context, timeout time.Duration) (text string, received bool)
	// Exhausted reports that no more lines will ever arrive.
	Exhausted() bool
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	// Sensor is the vibration input.
	Sensor gpio.Input
	// Commands is optional; without it only external callers change the arming.
	Commands CommandSource
	// PollInterval is the sensor cadence.
	PollInterval time.Duration
	// CommandTimeout bounds one command poll.
	CommandTimeout time.Duration
	// TelemetryInterval is the telemetry cadence; negative disables telemetry.
	TelemetryInterval time.Duration
	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Runner is the control loop of the daemon.
type Runner struct {
	controller *Controller
	opts       RunnerOptions
}

// NewRunner creates a loop driving controller.
func NewRunner(controller *Controller, opts RunnerOptions) *Runner {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = DefaultCommandTimeout
	}

	if opts.TelemetryInterval == 0 {
		opts.TelemetryInterval = DefaultTelemetryInterval
	}

	return &Runner{controller: controller, opts: opts}
}

// Run samples the sensor, applies commands and emits telemetry until ctx is done.
// Commands are polled on their own goroutine so a waiting poll never delays sampling.
func (r *Runner) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "runner")

	sensorTicker := time.NewTicker(r.opts.PollInterval)
	defer sensorTicker.Stop()

	var (
		telemetryTicker *time.Ticker
		telemetry       <-chan time.Time
	)

	if r.opts.TelemetryInterval > 0 {
		telemetryTicker = time.NewTicker(r.opts.TelemetryInterval)
		defer telemetryTicker.Stop()

		telemetry = telemetryTicker.C
	}

	// The telemetry period restarts on every arm, wherever the command came from.
	arms := r.controller.Arms()
	restartTelemetryOnArm := func() {
		if n := r.controller.Arms(); n != arms {
			arms = n

			if telemetryTicker != nil {
				telemetryTicker.Reset(r.opts.TelemetryInterval)
			}
		}
	}

	var (
		commands <-chan string
		wg       sync.WaitGroup
	)

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer func() {
		stopPolling()
		wg.Wait()
	}()

	if r.opts.Commands != nil {
		ch := make(chan string)
		commands = ch

		wg.Go(func() {
			defer close(ch)
			r.pollCommands(pollCtx, ch)
		})
	}

	logger.InfoKV(ctx, "Control loop started",
		"poll_interval", r.opts.PollInterval,
		"telemetry_interval", r.opts.TelemetryInterval)

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Control loop stopped")
			return nil
		case now := <-sensorTicker.C:
			restartTelemetryOnArm()
			r.sample(ctx, now)
		case text, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}

			r.controller.HandleCommand(ctx, text)
			restartTelemetryOnArm()
		case <-telemetry:
			r.controller.EmitTelemetry(ctx)
		}
	}
}

func (r *Runner) sample(ctx context.Context, now time.Time) {
	if r.opts.Sensor == nil || !r.controller.Armed() {
		return
	}

	level, err := r.opts.Sensor.Read()
	if err != nil {
		logger.DebugKV(ctx, "Sensor read failed, keeping last state", "error", err)
		return
	}

	r.controller.HandleSample(ctx, level, now)
}

func (r *Runner) pollCommands(ctx context.Context, out chan<- string) {
	for ctx.Err() == nil {
		if r.opts.Commands.Exhausted() {
			logger.Info(ctx, "Command input closed")
			return
		}

		text, received := r.opts.Commands.Receive(ctx, r.opts.CommandTimeout)
		if !received {
			r.opts.Metrics.CommandPoll(metrics.PollTimeout)
			continue
		}

		if text == "" {
			r.opts.Metrics.CommandPoll(metrics.PollIgnored)
			continue
		}

		if _, known := alarm.ParseCommand(text); known {
			r.opts.Metrics.CommandPoll(metrics.PollCommand)
		} else {
			r.opts.Metrics.CommandPoll(metrics.PollIgnored)
		}

		select {
		case out <- text:
		case <-ctx.Done():
			return
		}
	}
}
