package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"google.golang.org/grpc"

	"github.com/oshokin/vibration-alarm/internal/api/grpc/control"
	"github.com/oshokin/vibration-alarm/internal/command"
	"github.com/oshokin/vibration-alarm/internal/config"
	"github.com/oshokin/vibration-alarm/internal/controller"
	"github.com/oshokin/vibration-alarm/internal/gpio"
	"github.com/oshokin/vibration-alarm/internal/logger"
	"github.com/oshokin/vibration-alarm/internal/metrics"
	"github.com/oshokin/vibration-alarm/internal/notify"
	"github.com/oshokin/vibration-alarm/internal/service/instance"
	"github.com/oshokin/vibration-alarm/internal/transport"
	"github.com/oshokin/vibration-alarm/internal/web"
)

// shutdownTimeout bounds the notification drain and the server shutdown.
const shutdownTimeout = 10 * time.Second

// Options controls the daemon process.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// Driver overrides gpio.driver.
	Driver string
	// ListenAddress overrides control.listen_address.
	ListenAddress string
	// HTTPAddress overrides http.listen_address.
	HTTPAddress string
	// Stdin is the command input; os.Stdin when nil.
	Stdin io.Reader
	// SkipGuard disables the single-instance check.
	SkipGuard bool
}

// daemon owns every component built from the configuration.
type daemon struct {
	cfg        *config.Config
	board      *gpio.Board
	metrics    *metrics.Metrics
	dispatcher *notify.Dispatcher
	broker     *notify.MQTTDestination
	controller *controller.Controller
	grpcServer *grpc.Server
	webServer  *web.Server
}

// Run loads the settings, opens the board and runs the control loop until ctx is cancelled.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "vibration-alarm")

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	if !opts.SkipGuard {
		if err = instance.Guard(instance.ExecutableName()); err != nil {
			return err
		}
	}

	board, err := gpio.Open(cfg.GPIO.Driver, cfg.GPIO.Pins())
	if err != nil {
		return fmt.Errorf("open gpio: %w", err)
	}

	grpcListener, httpListener, err := listen(ctx, cfg)
	if err != nil {
		_ = board.Close()
		return err
	}

	d, err := newDaemon(ctx, cfg, board)
	if err != nil {
		closeListeners(grpcListener, httpListener)
		_ = board.Close()

		return err
	}

	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}

	return d.run(ctx, stdin, grpcListener, httpListener)
}

func loadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.Driver != "" {
		cfg.GPIO.Driver = opts.Driver
	}

	if opts.ListenAddress != "" {
		cfg.Control.ListenAddress = opts.ListenAddress
	}

	if opts.HTTPAddress != "" {
		cfg.HTTP.ListenAddress = opts.HTTPAddress
	}

	// Overrides go through the same checks as the file.
	if err = config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	return cfg, nil
}

// listen opens the optional server sockets before any output is touched, so a
// busy port fails fast.
func listen(ctx context.Context, cfg *config.Config) (net.Listener, net.Listener, error) {
	var (
		lc           net.ListenConfig
		grpcListener net.Listener
		httpListener net.Listener
		err          error
	)

	if cfg.Control.ListenAddress != "" {
		grpcListener, err = lc.Listen(ctx, "tcp", cfg.Control.ListenAddress)
		if err != nil {
			return nil, nil, fmt.Errorf("listen on %s: %w", cfg.Control.ListenAddress, err)
		}
	}

	if cfg.HTTP.ListenAddress != "" {
		httpListener, err = lc.Listen(ctx, "tcp", cfg.HTTP.ListenAddress)
		if err != nil {
			closeListeners(grpcListener)
			return nil, nil, fmt.Errorf("listen on %s: %w", cfg.HTTP.ListenAddress, err)
		}
	}

	return grpcListener, httpListener, nil
}

func closeListeners(listeners ...net.Listener) {
	for _, l := range listeners {
		if l != nil {
			_ = l.Close()
		}
	}
}

// newDaemon builds the metrics, the notification pipeline and the controller.
func newDaemon(ctx context.Context, cfg *config.Config, board *gpio.Board) (*daemon, error) {
	m := metrics.New()

	client, err := transport.NewHTTPClient(cfg.Notify.TLS, cfg.Notify.Timeout)
	if err != nil {
		return nil, fmt.Errorf("build http client: %w", err)
	}

	routes, broker := buildRoutes(ctx, &cfg.Notify, client)

	dispatcher := notify.NewDispatcher(ctx, routes,
		notify.WithTimeout(cfg.Notify.Timeout),
		notify.WithQueueSize(cfg.Notify.QueueSize),
		notify.WithMetrics(m))

	ctrl := controller.NewForBoard(ctx, board, controller.Options{
		Notifier:         dispatcher,
		Metrics:          m,
		Debounce:         cfg.Sensor.Debounce,
		AutoSilence:      cfg.Alarm.AutoSilence,
		ResetOnRetrigger: cfg.Alarm.Retrigger == config.RetriggerReset,
	})

	logger.InfoKV(ctx, "Daemon configured",
		"driver", cfg.GPIO.Driver,
		"destinations", dispatcher.Destinations(),
		"retrigger", cfg.Alarm.Retrigger,
		"auto_silence", cfg.Alarm.AutoSilence)

	return &daemon{
		cfg:        cfg,
		board:      board,
		metrics:    m,
		dispatcher: dispatcher,
		broker:     broker,
		controller: ctrl,
	}, nil
}

// run starts the servers on the given listeners (either may be nil) and blocks
// in the control loop. Everything is released before it returns.
func (d *daemon) run(ctx context.Context, stdin io.Reader, grpcListener, httpListener net.Listener) error {
	defer d.close(ctx)

	d.controller.Start(ctx)

	serveErrors := make(chan error, 2)

	if grpcListener != nil {
		d.grpcServer = grpc.NewServer()
		control.RegisterControlServer(d.grpcServer, control.NewServer(d.controller))

		logger.InfoKV(ctx, "Control API listening", "listen_address", grpcListener.Addr().String())

		go func() {
			if err := d.grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				serveErrors <- fmt.Errorf("serve gRPC: %w", err)
			}
		}()
	}

	if httpListener != nil {
		d.webServer = web.New(httpListener.Addr().String(), d.controller, d.metrics.Handler(), d.dispatcher.Destinations())

		logger.InfoKV(ctx, "Status server listening", "listen_address", httpListener.Addr().String())

		go func() {
			if err := d.webServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErrors <- fmt.Errorf("serve HTTP: %w", err)
			}
		}()
	}

	runnerOpts := controller.RunnerOptions{
		Sensor:            d.board.Sensor,
		PollInterval:      d.cfg.Sensor.PollInterval,
		CommandTimeout:    d.cfg.Commands.PollTimeout,
		TelemetryInterval: d.cfg.Alarm.TelemetryInterval,
		Metrics:           d.metrics,
	}

	if d.cfg.Commands.StdinEnabled() {
		runnerOpts.Commands = command.NewSource(stdin)
	}

	loopCtx, stop := context.WithCancel(ctx)
	defer stop()

	loopDone := make(chan error, 1)

	go func() {
		loopDone <- controller.NewRunner(d.controller, runnerOpts).Run(loopCtx)
	}()

	select {
	case err := <-loopDone:
		return err
	case err := <-serveErrors:
		stop()
		<-loopDone

		return err
	}
}

// close stops the servers, silences the outputs, drains notifications and
// releases the board, in that order.
func (d *daemon) close(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if d.grpcServer != nil {
		d.grpcServer.GracefulStop()
	}

	if d.webServer != nil {
		if err := d.webServer.Shutdown(shutdownCtx); err != nil {
			logger.WarnKV(ctx, "Status server shutdown failed", "error", err)
		}
	}

	d.controller.Shutdown(ctx)

	if err := d.dispatcher.Close(shutdownCtx); err != nil {
		logger.WarnKV(ctx, "Pending notifications abandoned", "error", err)
	}

	if d.broker != nil {
		d.broker.Close()
	}

	if err := d.board.Close(); err != nil {
		logger.WarnKV(ctx, "Releasing GPIO lines failed", "error", err)
	}

	logger.Info(ctx, "Daemon stopped")
}
