// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrPollIntervalInvalid is returned when POLL_INTERVAL is not positive.
	ErrPollIntervalInvalid = errors.New("config: POLL_INTERVAL must be positive")
	// ErrPollMaxWaitInvalid is returned when POLL_MAX_WAIT is smaller than POLL_INTERVAL.
	ErrPollMaxWaitInvalid = errors.New("config: POLL_MAX_WAIT must be at least POLL_INTERVAL")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Veo API settings. The API key is optional at boot: it can be
	// selected at runtime through the credentials endpoint.
	GeminiAPIKey string `env:"GEMINI_API_KEY" json:"-"` // Masked in JSON
	VeoBaseURL   string `env:"VEO_BASE_URL, default=https://generativelanguage.googleapis.com/v1beta" json:"veo_base_url"`

	// Polling settings
	PollInterval time.Duration `env:"POLL_INTERVAL, default=10s" json:"poll_interval"`
	PollMaxWait  time.Duration `env:"POLL_MAX_WAIT, default=15m" json:"poll_max_wait"`

	// Storage settings
	TempDir string `env:"TEMP_DIR, default=/tmp/veogen" json:"temp_dir"`

	// Optional S3 archive settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 archive configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return ErrPollIntervalInvalid
	}
	if c.PollMaxWait < c.PollInterval {
		return ErrPollMaxWaitInvalid
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, VeoBaseURL: %s, PollInterval: %s, PollMaxWait: %s, TempDir: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.VeoBaseURL,
		c.PollInterval,
		c.PollMaxWait,
		c.TempDir,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
