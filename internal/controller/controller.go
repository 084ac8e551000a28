package controller

import (
	"context"
	"sync"
	"time"

	"github.com/oshokin/vibration-alarm/internal/debounce"
	"github.com/oshokin/vibration-alarm/internal/domain/alarm"
	"github.com/oshokin/vibration-alarm/internal/gpio"
	"github.com/oshokin/vibration-alarm/internal/logger"
	"github.com/oshokin/vibration-alarm/internal/metrics"
	"github.com/oshokin/vibration-alarm/internal/timer"
)

// DefaultAutoSilence is how long the piezo sounds after a vibration.
const DefaultAutoSilence = time.Second

// Notifier accepts messages without blocking.
type Notifier interface {
	Notify(msg alarm.Message)
}

// Options configures a Controller.
type Options struct {
	// Piezo, ArmedLED and DisarmedLED are the outputs driven by the state machine.
	Piezo       gpio.Output
	ArmedLED    gpio.Output
	DisarmedLED gpio.Output
	// Notifier receives every message; nil discards them.
	Notifier Notifier
	// Metrics is optional.
	Metrics *metrics.Metrics
	// Debounce is the debounce window.
	Debounce time.Duration
	// AutoSilence is the alarm duration.
	AutoSilence time.Duration
	// ResetOnRetrigger restarts the auto-silence timer on a vibration while sounding.
	ResetOnRetrigger bool
}

// Controller is the alarm state machine.
type Controller struct {
	// logCtx carries the logger used from timer callbacks.
	logCtx context.Context //nolint:containedctx // Timer callbacks have no caller context.

	mu        sync.Mutex
	state     alarm.State
	timer     *timer.AlarmTimer
	debouncer *debounce.Debouncer

	// cycle identifies the current alarm cycle; a timer only acts on the cycle it was scheduled for.
	cycle uint64
	// arms counts disarmed to armed transitions.
	arms uint64
	// vibrations counts accepted events since start, sinceSample since the last telemetry sample.
	vibrations  uint64
	sinceSample uint64
	startedAt   time.Time

	piezo       gpio.Output
	armedLED    gpio.Output
	disarmedLED gpio.Output

	notifier         Notifier
	metrics          *metrics.Metrics
	autoSilence      time.Duration
	resetOnRetrigger bool
}

type discard struct{}

func (discard) Notify(alarm.Message) {}

// New creates a disarmed controller. Call Start to drive the initial outputs.
func New(ctx context.Context, opts Options) *Controller {
	if opts.Notifier == nil {
		opts.Notifier = discard{}
	}

	if opts.AutoSilence <= 0 {
		opts.AutoSilence = DefaultAutoSilence
	}

	return &Controller{
		logCtx:           logger.WithName(context.WithoutCancel(ctx), "controller"),
		timer:            timer.New(),
		debouncer:        debounce.New(opts.Debounce),
		startedAt:        time.Now(),
		piezo:            opts.Piezo,
		armedLED:         opts.ArmedLED,
		disarmedLED:      opts.DisarmedLED,
		notifier:         opts.Notifier,
		metrics:          opts.Metrics,
		autoSilence:      opts.AutoSilence,
		resetOnRetrigger: opts.ResetOnRetrigger,
	}
}

// NewForBoard is New with the outputs taken from board.
func NewForBoard(ctx context.Context, board *gpio.Board, opts Options) *Controller {
	opts.Piezo = board.Piezo
	opts.ArmedLED = board.ArmedLED
	opts.DisarmedLED = board.DisarmedLED

	return New(ctx, opts)
}

// Start drives the outputs to the disarmed pattern.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setPin(ctx, c.piezo, "piezo", false)
	c.showArmed(ctx, c.state.Armed)

	logger.InfoKV(ctx, "Controller started", "phase", c.state.Phase())
}

// HandleCommand applies an operator command. It reports whether the state changed.
// Unrecognized text and repeated commands are ignored.
func (c *Controller) HandleCommand(ctx context.Context, text string) bool {
	cmd, ok := alarm.ParseCommand(text)
	if !ok {
		logger.DebugKV(ctx, "Ignoring unrecognized command", "text", text)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch cmd {
	case alarm.CommandArm:
		return c.armLocked(ctx)
	case alarm.CommandDisarm:
		return c.disarmLocked(ctx)
	default:
		return false
	}
}

func (c *Controller) armLocked(ctx context.Context) bool {
	if c.state.Armed {
		logger.Debug(ctx, "Already armed")
		return false
	}

	from := c.state.Phase()
	now := time.Now()

	c.state.Armed = true
	c.state.LastCommand = now
	c.arms++
	c.debouncer.Reset()
	c.sinceSample = 0

	c.showArmed(ctx, true)
	c.notifier.Notify(alarm.NewMessage(alarm.KindArmed, now))
	c.transitionedLocked(ctx, from)

	return true
}

func (c *Controller) disarmLocked(ctx context.Context) bool {
	if !c.state.Armed {
		logger.Debug(ctx, "Already disarmed")
		return false
	}

	from := c.state.Phase()
	now := time.Now()

	c.setPin(ctx, c.piezo, "piezo", false)
	c.timer.Cancel()
	c.cycle++

	c.state.Armed = false
	c.state.AlarmSounding = false
	c.state.LastCommand = now

	c.showArmed(ctx, false)
	c.notifier.Notify(alarm.NewMessage(alarm.KindDisarmed, now))
	c.transitionedLocked(ctx, from)

	return true
}

// HandleSample feeds one sensor reading taken at now. Readings are ignored
// while disarmed. It reports whether a vibration event was accepted.
func (c *Controller) HandleSample(ctx context.Context, level gpio.Level, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Armed {
		return false
	}

	event, ok := c.debouncer.Accept(level, now)
	if !ok {
		return false
	}

	c.vibrationLocked(ctx, event.Timestamp)

	return true
}

// HandleVibration applies a debounced vibration event, bypassing the debouncer.
func (c *Controller) HandleVibration(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Armed {
		logger.Debug(ctx, "Vibration ignored while disarmed")
		return
	}

	c.vibrationLocked(ctx, time.Now())
}

func (c *Controller) vibrationLocked(ctx context.Context, at time.Time) {
	c.state.LastVibration = at
	c.vibrations++
	c.sinceSample++
	c.metrics.Vibration()

	if c.state.AlarmSounding {
		if c.resetOnRetrigger {
			logger.Debug(ctx, "Vibration while sounding, restarting auto-silence")
			c.scheduleSilenceLocked()
		} else {
			logger.Debug(ctx, "Vibration while sounding ignored")
		}

		return
	}

	from := c.state.Phase()

	c.state.AlarmSounding = true
	c.cycle++

	c.setPin(ctx, c.piezo, "piezo", true)
	c.notifier.Notify(alarm.NewMessage(alarm.KindVibrationAlarm, at))
	c.scheduleSilenceLocked()
	c.transitionedLocked(ctx, from)
}

func (c *Controller) scheduleSilenceLocked() {
	cycle := c.cycle
	c.timer.Schedule(c.autoSilence, func() {
		c.silence(cycle)
	})
}

// silence is the auto-silence timer callback.
func (c *Controller) silence(cycle uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx := c.logCtx

	if cycle != c.cycle || c.state.Phase() != alarm.PhaseArmedSounding {
		logger.DebugKV(ctx, "Stale auto-silence timer ignored", "cycle", cycle, "current", c.cycle)
		return
	}

	from := c.state.Phase()

	c.state.AlarmSounding = false
	c.setPin(ctx, c.piezo, "piezo", false)
	c.transitionedLocked(ctx, from)
}

// EmitTelemetry sends the number of vibrations accepted since the previous
// sample. It does nothing while disarmed.
func (c *Controller) EmitTelemetry(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Armed {
		return false
	}

	value := float64(c.sinceSample)
	c.sinceSample = 0

	c.notifier.Notify(alarm.NewTelemetry(value, time.Now()))
	logger.DebugKV(ctx, "Telemetry sample emitted", "value", value)

	return true
}

// Armed reports whether the system is armed.
func (c *Controller) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state.Armed
}

// Arms returns how many times the system has been armed since start.
func (c *Controller) Arms() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.arms
}

// State returns a copy of the current state.
func (c *Controller) State() alarm.State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state.Clone()
}

// Snapshot returns the state together with counters and timer status.
func (c *Controller) Snapshot() alarm.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return alarm.Snapshot{
		State:           c.state.Clone(),
		PendingTimer:    c.timer.Pending(),
		VibrationEvents: c.vibrations,
		StartedAt:       c.startedAt,
		Now:             time.Now(),
	}
}

// Shutdown cancels the timer and drives every output off. The state is left
// as is so a final snapshot still reflects it.
func (c *Controller) Shutdown(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.timer.Cancel()
	c.cycle++

	c.setPin(ctx, c.piezo, "piezo", false)
	c.setPin(ctx, c.armedLED, "armed_led", false)
	c.setPin(ctx, c.disarmedLED, "disarmed_led", false)

	logger.InfoKV(ctx, "Controller stopped, outputs off", "phase", c.state.Phase())
}

func (c *Controller) showArmed(ctx context.Context, armed bool) {
	c.setPin(ctx, c.armedLED, "armed_led", armed)
	c.setPin(ctx, c.disarmedLED, "disarmed_led", !armed)
}

// setPin writes an output. Failures are logged and never change the transition.
func (c *Controller) setPin(ctx context.Context, out gpio.Output, name string, on bool) {
	if out == nil {
		return
	}

	if err := out.Set(on); err != nil {
		logger.WarnKV(ctx, "Output write failed", "pin", name, "on", on, "error", err)
	}
}

func (c *Controller) transitionedLocked(ctx context.Context, from alarm.Phase) {
	to := c.state.Phase()

	logger.InfoKV(ctx, "State changed", "from", from, "to", to)
	c.metrics.Transition(string(from), string(to), c.state.Armed, c.state.AlarmSounding)
}
