package updater

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/vibration-alarm/internal/config"
	"github.com/oshokin/vibration-alarm/internal/logger"
	"github.com/oshokin/vibration-alarm/internal/service/instance"
	"github.com/oshokin/vibration-alarm/internal/transport"
	"github.com/oshokin/vibration-alarm/internal/version"
)

var (
	errNoURL            = errors.New("update URL is not configured")
	errNoChecksum       = errors.New("update checksum is not configured")
	errBadHTTPStatus    = errors.New("unexpected http status")
	errChecksumMismatch = errors.New("checksum mismatch")
	errDaemonRunning    = errors.New("the daemon is running, stop it or use --force")
)

const (
	// downloadTimeout bounds the whole download.
	downloadTimeout = 5 * time.Minute
	// maxBinarySize caps the downloaded body.
	maxBinarySize = 256 << 20
)

// Options are inputs accepted by the updater entry point.
type Options struct {
	// ConfigPath is the optional path to settings YAML file.
	ConfigPath string
	// URL overrides update.url.
	URL string
	// Checksum overrides update.checksum (base64 SHA-512).
	Checksum string
	// TargetPath is the binary to replace; defaults to the running executable.
	TargetPath string
	// Force stops a running daemon before applying.
	Force bool
}

// runner holds the state of a single update execution.
type runner struct {
	cfg      *config.Config // Settings loaded from YAML.
	url      string         // Where the new binary is downloaded from.
	checksum []byte         // Expected checksum of the new binary.
	target   string         // Binary being replaced.
	force    bool           // Whether a running daemon may be killed.
}

// Run executes the updater lifecycle and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "updater")

	up, err := newRunner(opts)
	if err != nil {
		return err
	}

	if err = up.run(ctx); err != nil {
		logger.ErrorKV(ctx, "Updater run failed", "error", err)
		return err
	}

	logger.InfoKV(ctx, "Updater completed", "target", up.target)

	return nil
}

// newRunner resolves settings and command line overrides.
func newRunner(opts *Options) (*runner, error) {
	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	u := &runner{
		cfg:    cfg,
		url:    cfg.Update.URL,
		target: opts.TargetPath,
		force:  opts.Force,
	}

	if opts.URL != "" {
		u.url = opts.URL
	}

	if u.url == "" {
		return nil, errNoURL
	}

	checksum := cfg.Update.Checksum
	if opts.Checksum != "" {
		checksum = opts.Checksum
	}

	if checksum == "" {
		return nil, errNoChecksum
	}

	u.checksum, err = base64.StdEncoding.DecodeString(checksum)
	if err != nil {
		return nil, fmt.Errorf("decode checksum: %w", err)
	}

	if u.target == "" {
		if u.target, err = os.Executable(); err != nil {
			return nil, fmt.Errorf("locate executable: %w", err)
		}
	}

	return u, nil
}

// run executes the workflow:
// 1) Make sure no daemon holds the binary.
// 2) Download the new binary.
// 3) Verify its checksum.
// 4) Apply it in place.
func (u *runner) run(ctx context.Context) error {
	if err := u.stopDaemon(ctx); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Downloading update", "url", u.url)

	data, err := u.download(ctx)
	if err != nil {
		return fmt.Errorf("download update: %w", err)
	}

	logger.Info(ctx, "Verifying the checksum")

	sum, err := Checksum(data)
	if err != nil {
		return err
	}

	if !bytes.Equal(sum, u.checksum) {
		return errChecksumMismatch
	}

	logger.Info(ctx, "Applying update")

	options := goupdate.Options{
		TargetPath: u.target,
		TargetMode: DefaultFileMode,
		Checksum:   u.checksum,
		Hash:       DefaultChecksumFunction,
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return fmt.Errorf("apply update: %w", err)
	}

	oldFileName := filepath.Join(filepath.Dir(u.target), "."+filepath.Base(u.target)+".old")
	if _, err = os.Stat(oldFileName); err == nil {
		_ = os.Remove(oldFileName)
	}

	return nil
}

// stopDaemon refuses to continue while a daemon runs, unless forced.
func (u *runner) stopDaemon(ctx context.Context) error {
	name := filepath.Base(u.target)

	pids, err := instance.Others(name)
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	if len(pids) == 0 {
		return nil
	}

	if !u.force {
		return errDaemonRunning
	}

	logger.InfoKV(ctx, "Terminating running daemon", "pids", pids)

	if _, err = instance.Terminate(name); err != nil {
		return fmt.Errorf("terminate daemon: %w", err)
	}

	return nil
}

// download fetches the new binary into memory.
func (u *runner) download(ctx context.Context) ([]byte, error) {
	client, err := transport.NewHTTPClient(u.cfg.Notify.TLS, downloadTimeout)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.url, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", version.UserAgent())

	response, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w", response.Status, errBadHTTPStatus)
	}

	return io.ReadAll(io.LimitReader(response.Body, maxBinarySize))
}
