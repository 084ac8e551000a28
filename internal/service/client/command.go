package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/vibration-alarm/internal/config"
	domain "github.com/oshokin/vibration-alarm/internal/domain/alarm"
	"github.com/oshokin/vibration-alarm/internal/logger"
	"github.com/oshokin/vibration-alarm/internal/service/common"
)

// Options configures alarm-ctl operations.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides the daemon address from config when specified.
	ServerAddress string

	// Command is the operator command to push: arm or disarm.
	Command string

	// clientOptions are extra client options, used by tests.
	clientOptions []common.Option
}

// defaultPushInterval defines retry delay when pushing a command to the daemon.
const defaultPushInterval = 1 * time.Second

// errUnknownCommand is returned for anything but arm and disarm.
var errUnknownCommand = errors.New("unknown command, expected arm or disarm")

// Run pushes the command with retry logic until the daemon confirms it or ctx ends.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-ctl")

	// Only arm and disarm have a desired state to wait for.
	command, ok := domain.ParseCommand(opts.Command)
	if !ok {
		return fmt.Errorf("%q: %w", opts.Command, errUnknownCommand)
	}

	client, address, err := connect(ctx, opts)
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	logger.InfoKV(ctx, "Pushing command", "server_address", address, "command", command)

	return push(ctx, client, command, defaultPushInterval)
}

// Status logs the daemon state once.
func Status(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "alarm-ctl")

	client, _, err := connect(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	snap, err := client.GetState(ctx)
	if err != nil {
		return err
	}

	logger.Infof(ctx, "Alarm state: %s", FormatSnapshot(snap))

	return nil
}

// connect loads the settings and dials the daemon.
func connect(ctx context.Context, opts *Options) (*common.Client, string, error) {
	// Load settings; a missing file means defaults.
	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return nil, "", err
	}

	// Use server address from options if provided, otherwise use config.
	address := cfg.Control.ServerAddress
	if opts.ServerAddress != "" {
		address = opts.ServerAddress
	}

	// Identify current user and hostname for the daemon's log.
	actor, err := common.DetectActor()
	if err != nil {
		logger.WarnKV(ctx, "Unable to detect actor", "error", err)
	}

	clientOptions := append([]common.Option{
		common.WithCallTimeout(cfg.Control.Timeout),
		common.WithActor(actor),
	}, opts.clientOptions...)

	client, err := common.Dial(ctx, address, clientOptions...)
	if err != nil {
		return nil, "", err
	}

	return client, address, nil
}

// push sends command until the returned state matches it.
func push(ctx context.Context, client *common.Client, command domain.Command, interval time.Duration) error {
	desired := command == domain.CommandArm

	// attempt tries once to apply the command, returns whether it is confirmed.
	attempt := func() bool {
		result, err := client.SendCommand(ctx, string(command))
		if err != nil {
			// Log error but continue retrying for transient failures.
			logger.ErrorKV(ctx, "SendCommand failed", "error", err)
			return false
		}

		if result.Snapshot.Armed != desired {
			return false
		}

		if result.Changed {
			logger.Infof(ctx, "Alarm updated: %s", FormatSnapshot(result.Snapshot))
		} else {
			logger.Infof(ctx, "Alarm already in the requested state: %s", FormatSnapshot(result.Snapshot))
		}

		return true
	}

	// Attempt immediately before starting retry loop.
	if attempt() {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Retry loop until success or cancellation.
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if attempt() {
				return nil
			}
		}
	}
}

// FormatSnapshot converts a snapshot to a readable log message.
func FormatSnapshot(snap domain.Snapshot) string {
	lastCommand := "<never>"
	if !snap.LastCommand.IsZero() {
		lastCommand = snap.LastCommand.Local().Format(time.RFC3339)
	}

	lastVibration := "<never>"
	if !snap.LastVibration.IsZero() {
		lastVibration = snap.LastVibration.Local().Format(time.RFC3339)
	}

	return fmt.Sprintf("%s, %d vibrations, last command %s, last vibration %s",
		snap.Phase(), snap.VibrationEvents, lastCommand, lastVibration)
}
