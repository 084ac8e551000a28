package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/vibration-alarm/internal/gpio"
	"github.com/oshokin/vibration-alarm/internal/logger"
)

// Config holds every setting of the daemon and the operator console.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// GPIO selects the driver and pins.
	GPIO GPIO `yaml:"gpio"`
	// Sensor controls sampling and debouncing.
	Sensor Sensor `yaml:"sensor"`
	// Alarm controls the auto-silence timer and telemetry cadence.
	Alarm Alarm `yaml:"alarm"`
	// Commands controls the line-oriented command input.
	Commands Commands `yaml:"commands"`
	// Control configures the gRPC control API.
	Control Control `yaml:"control"`
	// HTTP configures the status and metrics server.
	HTTP HTTP `yaml:"http"`
	// Notify configures notification destinations.
	Notify Notify `yaml:"notify"`
	// Update configures the self-updater.
	Update Update `yaml:"update"`
}

// GPIO selects the hardware driver and the BCM pin numbers.
type GPIO struct {
	Driver      string `yaml:"driver"`
	Chip        string `yaml:"chip"`
	SensorPin   int    `yaml:"sensor_pin"`
	PiezoPin    int    `yaml:"piezo_pin"`
	ArmedPin    int    `yaml:"armed_led_pin"`
	DisarmedPin int    `yaml:"disarmed_led_pin"`
}

// Pins converts the section to the gpio package representation.
func (g GPIO) Pins() gpio.Pins {
	return gpio.Pins{
		Chip:        g.Chip,
		Sensor:      g.SensorPin,
		Piezo:       g.PiezoPin,
		ArmedLED:    g.ArmedPin,
		DisarmedLED: g.DisarmedPin,
	}
}

// Sensor controls how often the sensor is sampled while armed.
type Sensor struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	Debounce     time.Duration `yaml:"debounce"`
}

// Alarm controls the alarm cycle.
type Alarm struct {
	// AutoSilence is how long the piezo sounds after a vibration.
	AutoSilence time.Duration `yaml:"auto_silence"`
	// Retrigger is what a vibration does while the alarm already sounds: ignore or reset.
	Retrigger string `yaml:"retrigger"`
	// TelemetryInterval is the telemetry cadence while armed; negative disables it.
	TelemetryInterval time.Duration `yaml:"telemetry_interval"`
}

// Commands controls the stdin command source.
type Commands struct {
	// Stdin enables reading arm/disarm lines from standard input.
	Stdin *bool `yaml:"stdin"`
	// PollTimeout bounds one wait for a command line.
	PollTimeout time.Duration `yaml:"poll_timeout"`
}

// StdinEnabled reports whether stdin commands are on (default true).
func (c Commands) StdinEnabled() bool {
	return c.Stdin == nil || *c.Stdin
}

// Control configures the gRPC control API.
type Control struct {
	// ListenAddress is where the daemon serves the API; empty disables it.
	ListenAddress string `yaml:"listen_address"`
	// ServerAddress is where alarm-ctl connects.
	ServerAddress string `yaml:"server_address"`
	// Timeout is the per-call timeout used by alarm-ctl.
	Timeout time.Duration `yaml:"timeout"`
}

// HTTP configures the status server.
type HTTP struct {
	// ListenAddress is where /status.json and /metrics are served; empty disables it.
	ListenAddress string `yaml:"listen_address"`
}

// Notify configures dispatch and the destinations.
type Notify struct {
	Timeout   time.Duration `yaml:"timeout"`
	QueueSize int           `yaml:"queue_size"`
	TLS       TLS           `yaml:"tls"`
	Bot       Bot           `yaml:"bot"`
	Telemetry Telemetry     `yaml:"telemetry"`
	MQTT      MQTT          `yaml:"mqtt"`
}

// TLS holds optional client certificates for HTTPS destinations.
type TLS struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`
}

// Enabled reports whether mutual TLS was configured.
func (t TLS) Enabled() bool {
	return t.CertFile != "" || t.KeyFile != "" || t.CAFile != ""
}

// Bot is the messaging-bot destination.
type Bot struct {
	Enabled     bool          `yaml:"enabled"`
	BaseURL     string        `yaml:"base_url"`
	Token       string        `yaml:"token"`
	ChatID      string        `yaml:"chat_id"`
	MinInterval time.Duration `yaml:"min_interval"`
}

// Telemetry is the telemetry-ingestion destination.
type Telemetry struct {
	Enabled     bool          `yaml:"enabled"`
	BaseURL     string        `yaml:"base_url"`
	Token       string        `yaml:"token"`
	Device      string        `yaml:"device"`
	Variable    string        `yaml:"variable"`
	MinInterval time.Duration `yaml:"min_interval"`
}

// MQTT is the broker destination.
type MQTT struct {
	Enabled     bool          `yaml:"enabled"`
	Broker      string        `yaml:"broker"`
	ClientID    string        `yaml:"client_id"`
	Topic       string        `yaml:"topic"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	MinInterval time.Duration `yaml:"min_interval"`
}

// Update configures where the self-updater fetches new binaries.
type Update struct {
	URL      string `yaml:"url"`
	Checksum string `yaml:"checksum"`
}

// Retrigger policies.
const (
	RetriggerIgnore = "ignore"
	RetriggerReset  = "reset"
)

const (
	// DefaultConfigFilename is the default settings file.
	DefaultConfigFilename = "vibration-alarm.yaml"

	// DefaultPollInterval is the sensor sampling cadence while armed.
	DefaultPollInterval = 10 * time.Millisecond
	// DefaultDebounce is the debounce window.
	DefaultDebounce = 100 * time.Millisecond
	// DefaultAutoSilence is how long the alarm sounds.
	DefaultAutoSilence = time.Second
	// DefaultTelemetryInterval is the telemetry cadence while armed.
	DefaultTelemetryInterval = 300 * time.Second
	// DefaultCommandTimeout bounds one command poll.
	DefaultCommandTimeout = 7 * time.Second
	// DefaultTimeout bounds network operations.
	DefaultTimeout = 5 * time.Second
	// DefaultQueueSize is the per-destination notification queue length.
	DefaultQueueSize = 32
	// DefaultServerAddress is where alarm-ctl connects when nothing is configured.
	DefaultServerAddress = "127.0.0.1:50051"

	// DefaultBotBaseURL is the Telegram Bot API endpoint.
	DefaultBotBaseURL = "https://api.telegram.org"
	// DefaultTelemetryBaseURL is the Ubidots industrial endpoint.
	DefaultTelemetryBaseURL = "https://industrial.api.ubidots.com"
	// DefaultTelemetryVariable is the variable telemetry samples are stored under.
	DefaultTelemetryVariable = "vibrations"
	// DefaultTelemetryMinInterval spaces telemetry posts.
	DefaultTelemetryMinInterval = 2 * time.Second
	// DefaultMQTTTopic is the topic notifications are published to.
	DefaultMQTTTopic = "alarm/vibration/events"
	// DefaultMQTTClientID is the MQTT client identifier.
	DefaultMQTTClientID = "vibration-alarm"

	// DefaultFilePermissions is used when saving the settings file.
	DefaultFilePermissions = 0o600
)

var (
	errConfigIsNotSet     = errors.New("configuration is not set")
	errUnknownRetrigger   = errors.New("unknown retrigger policy")
	errUnknownLogLevel    = errors.New("unknown log level")
	errDuplicatePin       = errors.New("pin used twice")
	errNegativePin        = errors.New("pin must not be negative")
	errMissingCredentials = errors.New("destination enabled without credentials")
)

// Load reads configuration from path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg = new(Config)
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save validates cfg and writes it to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the settings.
//
//nolint:cyclop // A flat list of checks reads better than helpers for each section.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%q: %w", cfg.LogLevel, errUnknownLogLevel)
	}

	if err := validateGPIO(&cfg.GPIO); err != nil {
		return err
	}

	setDefault(&cfg.Sensor.PollInterval, DefaultPollInterval)
	setDefault(&cfg.Sensor.Debounce, DefaultDebounce)
	setDefault(&cfg.Alarm.AutoSilence, DefaultAutoSilence)
	setDefault(&cfg.Commands.PollTimeout, DefaultCommandTimeout)
	setDefault(&cfg.Control.Timeout, DefaultTimeout)
	setDefault(&cfg.Notify.Timeout, DefaultTimeout)

	if cfg.Alarm.TelemetryInterval == 0 {
		cfg.Alarm.TelemetryInterval = DefaultTelemetryInterval
	}

	cfg.Alarm.Retrigger = strings.ToLower(strings.TrimSpace(cfg.Alarm.Retrigger))
	switch cfg.Alarm.Retrigger {
	case "":
		cfg.Alarm.Retrigger = RetriggerIgnore
	case RetriggerIgnore, RetriggerReset:
	default:
		return fmt.Errorf("%q: %w", cfg.Alarm.Retrigger, errUnknownRetrigger)
	}

	if cfg.Notify.QueueSize <= 0 {
		cfg.Notify.QueueSize = DefaultQueueSize
	}

	if cfg.Control.ServerAddress == "" {
		cfg.Control.ServerAddress = DefaultServerAddress
	}

	for _, addr := range []string{cfg.Control.ListenAddress, cfg.Control.ServerAddress, cfg.HTTP.ListenAddress} {
		if addr == "" {
			continue
		}

		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("invalid address %q: %w", addr, err)
		}
	}

	if err := validateNotify(&cfg.Notify); err != nil {
		return err
	}

	if cfg.Update.URL != "" {
		if _, err := url.ParseRequestURI(cfg.Update.URL); err != nil {
			return fmt.Errorf("invalid update URL: %w", err)
		}
	}

	return nil
}

func validateGPIO(g *GPIO) error {
	switch g.Driver {
	case "":
		g.Driver = gpio.DriverFake
	case gpio.DriverFake, gpio.DriverGPIOCDev, gpio.DriverPeriph:
	default:
		return fmt.Errorf("%q: %w", g.Driver, gpio.ErrUnknownDriver)
	}

	if g.Chip == "" {
		g.Chip = gpio.DefaultChip
	}

	setDefault(&g.SensorPin, gpio.DefaultSensorPin)
	setDefault(&g.PiezoPin, gpio.DefaultPiezoPin)
	setDefault(&g.ArmedPin, gpio.DefaultArmedPin)
	setDefault(&g.DisarmedPin, gpio.DefaultDisarmedPin)

	seen := make(map[int]struct{}, 4)

	for _, pin := range []int{g.SensorPin, g.PiezoPin, g.ArmedPin, g.DisarmedPin} {
		if pin < 0 {
			return fmt.Errorf("%d: %w", pin, errNegativePin)
		}

		if _, ok := seen[pin]; ok {
			return fmt.Errorf("%d: %w", pin, errDuplicatePin)
		}

		seen[pin] = struct{}{}
	}

	return nil
}

func validateNotify(n *Notify) error {
	if n.Bot.Enabled {
		if n.Bot.Token == "" || n.Bot.ChatID == "" {
			return fmt.Errorf("bot: %w", errMissingCredentials)
		}

		if n.Bot.BaseURL == "" {
			n.Bot.BaseURL = DefaultBotBaseURL
		}

		if _, err := url.ParseRequestURI(n.Bot.BaseURL); err != nil {
			return fmt.Errorf("invalid bot base URL: %w", err)
		}
	}

	if n.Telemetry.Enabled {
		if n.Telemetry.Token == "" || n.Telemetry.Device == "" {
			return fmt.Errorf("telemetry: %w", errMissingCredentials)
		}

		if n.Telemetry.BaseURL == "" {
			n.Telemetry.BaseURL = DefaultTelemetryBaseURL
		}

		if _, err := url.ParseRequestURI(n.Telemetry.BaseURL); err != nil {
			return fmt.Errorf("invalid telemetry base URL: %w", err)
		}

		if n.Telemetry.Variable == "" {
			n.Telemetry.Variable = DefaultTelemetryVariable
		}

		setDefault(&n.Telemetry.MinInterval, DefaultTelemetryMinInterval)
	}

	if n.MQTT.Enabled {
		if n.MQTT.Broker == "" {
			return fmt.Errorf("mqtt: %w", errMissingCredentials)
		}

		if _, err := url.Parse(n.MQTT.Broker); err != nil {
			return fmt.Errorf("invalid mqtt broker: %w", err)
		}

		if n.MQTT.Topic == "" {
			n.MQTT.Topic = DefaultMQTTTopic
		}

		if n.MQTT.ClientID == "" {
			n.MQTT.ClientID = DefaultMQTTClientID
		}
	}

	return nil
}

func setDefault[T int | time.Duration](v *T, def T) {
	if *v <= 0 {
		*v = def
	}
}
