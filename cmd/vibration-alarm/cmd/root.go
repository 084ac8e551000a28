package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/vibration-alarm/internal/config"
	"github.com/oshokin/vibration-alarm/internal/logger"
	"github.com/oshokin/vibration-alarm/internal/service/daemon"
	"github.com/oshokin/vibration-alarm/internal/service/updater"
	"github.com/oshokin/vibration-alarm/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// driver overrides the GPIO driver from the config.
	driver string
	// listenAddress overrides the control API address.
	listenAddress string
	// httpAddress overrides the status server address.
	httpAddress string

	// updateURL, updateChecksum and force configure the update subcommand.
	updateURL      string
	updateChecksum string
	force          bool

	// rootCmd runs the daemon.
	rootCmd = &cobra.Command{
		Use:   "vibration-alarm",
		Short: "Run the vibration-sensor intrusion alarm.",
		Long: `Runs the alarm controller on the configured GPIO board.

Type "arm" or "disarm" on standard input, or use alarm-ctl against the control API.
While armed, a vibration sounds the piezo for the auto-silence duration and every
enabled destination (bot, telemetry, MQTT) is notified.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runDaemon()
		},
	}

	// runCmd is an explicit alias for the default action.
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the alarm daemon (default).",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runDaemon()
		},
	}

	// updateCmd replaces this binary with a new release.
	updateCmd = &cobra.Command{
		Use:   "update",
		Short: "Download, verify and apply a new binary.",
		Long: `Downloads the binary from --url (or update.url), checks its base64 SHA-512
against --checksum (or update.checksum) and replaces the running executable.
A running daemon blocks the update unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return updater.Run(ctx, &updater.Options{
				ConfigPath: configPath,
				URL:        updateURL,
				Checksum:   updateChecksum,
				Force:      force,
			})
		},
	}

	// checksumCmd prints the checksum the updater expects for a file.
	checksumCmd = &cobra.Command{
		Use:   "checksum FILE",
		Short: "Print the base64 SHA-512 of a release binary.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := updater.FileChecksum(args[0])
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), sum)

			return err
		},
	}
)

func runDaemon() error {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	options := &daemon.Options{
		ConfigPath:    configPath,
		Driver:        driver,
		ListenAddress: listenAddress,
		HTTPAddress:   httpAddress,
	}

	return daemon.Run(ctx, options)
}

// Execute runs the vibration-alarm CLI and exits with non-zero status on error.
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

	for _, c := range []*cobra.Command{rootCmd, runCmd} {
		c.Flags().StringVarP(&driver, "driver", "d", "", "GPIO driver: gpiocdev, periph or fake")
		c.Flags().StringVarP(&listenAddress, "listen", "l", "", "control API listen address")
		c.Flags().StringVar(&httpAddress, "http", "", "status server listen address")
	}

	updateCmd.Flags().StringVarP(&updateURL, "url", "u", "", "where to download the new binary")
	updateCmd.Flags().StringVarP(&updateChecksum, "checksum", "s", "", "expected base64 SHA-512 of the binary")
	updateCmd.Flags().BoolVarP(&force, "force", "f", false, "terminate a running daemon first")

	rootCmd.AddCommand(runCmd, updateCmd, checksumCmd)
}
