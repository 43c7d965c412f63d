// Package config loads the service configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/uxr-project/uxr-go/pkg/transport"
	"github.com/uxr-project/uxr-go/pkg/vehicle"
)

// ErrInvalidConfig is returned by Validate and Load for unusable values.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the service configuration.
type Config struct {
	// MappingFile is the restriction mapping YAML. Empty selects the
	// built-in fallback mapping.
	MappingFile string `yaml:"mapping_file"`

	// ListenAddress is the TCP notification service address.
	ListenAddress string `yaml:"listen_address"`

	// HTTPAddress is the HTTP API address. Empty disables the HTTP API.
	HTTPAddress string `yaml:"http_address"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// ProtocolLog is the path of a CBOR event log. Empty disables it.
	ProtocolLog string `yaml:"protocol_log"`

	// Advertise enables mDNS advertising of the TCP service.
	Advertise bool `yaml:"advertise"`

	// InstanceName is the mDNS instance name.
	InstanceName string `yaml:"instance_name"`

	TLS        TLSConfig        `yaml:"tls"`
	KeepAlive  KeepAliveConfig  `yaml:"keep_alive"`
	Simulation SimulationConfig `yaml:"simulation"`
}

// TLSConfig enables TLS on the TCP service when both files are set.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// Enabled reports whether TLS is configured.
func (c TLSConfig) Enabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

// KeepAliveConfig configures server pings on TCP connections.
type KeepAliveConfig struct {
	PingInterval   time.Duration `yaml:"ping_interval"`
	PongTimeout    time.Duration `yaml:"pong_timeout"`
	MaxMissedPongs int           `yaml:"max_missed_pongs"`
}

// SimulationConfig seeds the in-memory vehicle sources.
type SimulationConfig struct {
	InitialState string  `yaml:"initial_state"`
	InitialSpeed float32 `yaml:"initial_speed"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		ListenAddress: fmt.Sprintf(":%d", transport.DefaultPort),
		HTTPAddress:   ":7421",
		LogLevel:      "info",
		Advertise:     true,
		InstanceName:  "uxr",
		KeepAlive: KeepAliveConfig{
			PingInterval:   transport.DefaultPingInterval,
			PongTimeout:    transport.DefaultPongTimeout,
			MaxMissedPongs: transport.DefaultMaxMissedPongs,
		},
		Simulation: SimulationConfig{
			InitialState: "parked",
		},
	}
}

// Load reads path over the defaults and validates the result. Unknown keys
// are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a configuration document over the defaults and validates it.
// An empty document yields the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return fmt.Errorf("%w: listen_address is required", ErrInvalidConfig)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Advertise && c.InstanceName == "" {
		return fmt.Errorf("%w: instance_name is required when advertising", ErrInvalidConfig)
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return fmt.Errorf("%w: tls needs both cert_file and key_file", ErrInvalidConfig)
	}
	if c.KeepAlive.PingInterval <= 0 || c.KeepAlive.PongTimeout <= 0 {
		return fmt.Errorf("%w: keep_alive durations must be positive", ErrInvalidConfig)
	}
	if c.KeepAlive.PongTimeout >= c.KeepAlive.PingInterval {
		return fmt.Errorf("%w: keep_alive pong_timeout must be shorter than ping_interval", ErrInvalidConfig)
	}
	if c.KeepAlive.MaxMissedPongs < 1 {
		return fmt.Errorf("%w: keep_alive max_missed_pongs must be at least 1", ErrInvalidConfig)
	}
	if _, err := vehicle.ParseDrivingState(c.Simulation.InitialState); err != nil {
		return fmt.Errorf("%w: simulation initial_state: %v", ErrInvalidConfig, err)
	}
	if c.Simulation.InitialSpeed < 0 {
		return fmt.Errorf("%w: simulation initial_speed must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Level returns the slog level of LogLevel. Call after Validate.
func (c *Config) Level() slog.Level {
	level, _ := ParseLevel(c.LogLevel)
	return level
}

// TransportKeepAlive returns the keep-alive settings for the TCP server.
func (c *Config) TransportKeepAlive() transport.KeepAliveConfig {
	return transport.KeepAliveConfig{
		PingInterval:   c.KeepAlive.PingInterval,
		PongTimeout:    c.KeepAlive.PongTimeout,
		MaxMissedPongs: c.KeepAlive.MaxMissedPongs,
	}
}

// InitialState returns the simulated initial driving state. Call after Validate.
func (c *Config) InitialState() vehicle.DrivingState {
	state, _ := vehicle.ParseDrivingState(c.Simulation.InitialState)
	return state
}

// ParseLevel parses a log level name.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, s)
	}
}
