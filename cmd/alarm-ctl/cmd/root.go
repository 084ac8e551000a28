package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/vibration-alarm/internal/config"
	domain "github.com/oshokin/vibration-alarm/internal/domain/alarm"
	"github.com/oshokin/vibration-alarm/internal/logger"
	"github.com/oshokin/vibration-alarm/internal/service/client"
	"github.com/oshokin/vibration-alarm/internal/service/watcher"
	"github.com/oshokin/vibration-alarm/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// serverAddress overrides control.server_address.
	serverAddress string
	// pollInterval is the watch cadence.
	pollInterval time.Duration

	// rootCmd is the operator console.
	rootCmd = &cobra.Command{
		Use:   "alarm-ctl",
		Short: "Control a running vibration-alarm daemon.",
		Long: `Sends arm and disarm commands to the daemon's control API and reports its state.

The daemon address comes from --server or control.server_address in the configuration file.`,
	}

	armCmd = &cobra.Command{
		Use:   "arm",
		Short: "Arm the alarm and wait until the daemon confirms.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return push(domain.CommandArm)
		},
	}

	disarmCmd = &cobra.Command{
		Use:   "disarm",
		Short: "Disarm the alarm and wait until the daemon confirms.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return push(domain.CommandDisarm)
		},
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Print the daemon state once.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return client.Status(ctx, &client.Options{ConfigPath: configPath, ServerAddress: serverAddress})
		},
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Log every phase change until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return watcher.Run(ctx, &watcher.Options{
				ConfigPath:    configPath,
				ServerAddress: serverAddress,
				PollInterval:  pollInterval,
			})
		},
	}
)

func push(command domain.Command) error {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	options := &client.Options{
		ConfigPath:    configPath,
		ServerAddress: serverAddress,
		Command:       string(command),
	}

	return client.Run(ctx, options)
}

// Execute runs the alarm-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	err := rootCmd.Execute()

	// Flush buffered log entries; os.Exit skips deferred calls.
	logger.Sync()

	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&serverAddress, "server", "s", "", "daemon control API address")

	watchCmd.Flags().
		DurationVarP(&pollInterval, "interval", "i", watcher.DefaultPollInterval, "interval between state checks")

	rootCmd.AddCommand(armCmd, disarmCmd, statusCmd, watchCmd)
}
