package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/vibration-alarm/internal/config"
	domain "github.com/oshokin/vibration-alarm/internal/domain/alarm"
	"github.com/oshokin/vibration-alarm/internal/logger"
	"github.com/oshokin/vibration-alarm/internal/service/client"
	"github.com/oshokin/vibration-alarm/internal/service/common"
)

// Options controls the watcher polling behavior and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress provides an optional gRPC server address override.
	ServerAddress string
	// PollInterval defines the interval between state checks.
	PollInterval time.Duration
}

// DefaultPollInterval defines the default polling interval for state checks.
const DefaultPollInterval = 5 * time.Second

// StateGetter fetches the daemon state.
type StateGetter interface {
	GetState(ctx context.Context) (domain.Snapshot, error)
}

// Run polls the daemon state and logs phase changes until ctx is cancelled.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-watch")

	// Load settings; a missing file means defaults.
	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	// Determine server address: command line argument overrides config.
	serverAddress := cfg.Control.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	c, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Control.Timeout))
	if err != nil {
		return fmt.Errorf("dial daemon: %w", err)
	}

	// Ensure connection cleanup on function exit.
	defer func() {
		_ = c.Close()
	}()

	logger.InfoKV(ctx, "Watching alarm state", "server_address", serverAddress, "interval", opts.PollInterval.String())

	Watch(ctx, c, opts.PollInterval, func(from, to domain.Phase, snap domain.Snapshot) {
		logger.InfoKV(ctx, "Phase changed", "from", from, "to", to, "state", client.FormatSnapshot(snap))
	})

	logger.Info(ctx, "Context canceled, exiting")

	return nil
}

// Watch polls getter every interval and calls onChange for each observed phase
// change, starting with the first successful poll. It returns when ctx is done.
func Watch(
	ctx context.Context,
	getter StateGetter,
	interval time.Duration,
	onChange func(from, to domain.Phase, snap domain.Snapshot),
) {
	var (
		last  domain.Phase
		known bool
	)

	check := func() {
		snap, err := getter.GetState(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.ErrorKV(ctx, "Check state failed", "error", err)
			}

			return
		}

		phase := snap.Phase()
		if known && phase == last {
			return
		}

		onChange(last, phase, snap)

		last = phase
		known = true
	}

	check()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
