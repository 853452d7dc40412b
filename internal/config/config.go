package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Config is the runtime configuration of the liveresults CLI.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	// DB is the SQLite database path.
	DB string `mapstructure:"db"`

	// Specs is a CUE file or directory holding schema and view definitions.
	Specs string `mapstructure:"specs"`

	// Format is the output format: "text" or "json".
	Format string `mapstructure:"format"`

	// SearchDelay is the debounce interval of search predicates.
	SearchDelay time.Duration `mapstructure:"search_delay"`

	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Default values.
const (
	DefaultDB            = "liveresults.db"
	DefaultFormat        = "text"
	DefaultSearchDelay   = 400 * time.Millisecond
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultMetricsAddr   = "127.0.0.1:9464"
	DefaultMetricsEnable = false
)

// Validation errors.
var (
	ErrEmptyDB          = errors.New("db path must not be empty")
	ErrInvalidFormat    = errors.New("format must be text or json")
	ErrInvalidDelay     = errors.New("search_delay must not be negative")
	ErrInvalidLogLevel  = errors.New("log.level must be debug, info, warn or error")
	ErrInvalidLogFormat = errors.New("log.format must be text or json")
	ErrEmptyMetricsAddr = errors.New("metrics.addr must be set when metrics are enabled")
)

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.DB == "" {
		return ErrEmptyDB
	}
	if c.Format != "text" && c.Format != "json" {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Format)
	}
	if c.SearchDelay < 0 {
		return ErrInvalidDelay
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format)
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return ErrEmptyMetricsAddr
	}
	return nil
}

// LogLevel returns the configured slog level. Invalid levels report Info;
// Validate rejects them first.
func (c *Config) LogLevel() slog.Level {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, s)
	}
}
