// Package config loads the odbcstream settings file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tomyedwab/odbcstream/odbc"
)

const (
	DefaultBatchSize = 5000
	DefaultMaxStrLen = 4096
)

// Config mirrors the YAML settings file. Every field is optional.
type Config struct {
	// Database is the path of the SQLite database served by the host.
	Database string `yaml:"database"`
	// BatchSize is the number of rows inserted per TextRowSet execution.
	BatchSize int `yaml:"batch_size"`
	// BlobBatchSize is the number of bytes sent per SQLPutData call.
	BlobBatchSize int `yaml:"blob_batch_size"`
	// MaxStrLen bounds the length of each text field of an inserted row and
	// of each text value exec writes.
	MaxStrLen int `yaml:"max_str_len"`
	// Trace, if set, is the path of a database recording every driver call.
	Trace string `yaml:"trace"`
	// TraceRetention, e.g. "72h", drops recorded calls older than the
	// duration when tracing starts. Empty keeps every call.
	TraceRetention string `yaml:"trace_retention"`
	LogLevel       string `yaml:"log_level"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Database:      "odbcstream.db",
		BatchSize:     DefaultBatchSize,
		BlobBatchSize: odbc.DefaultBatchSize,
		MaxStrLen:     DefaultMaxStrLen,
		LogLevel:      "info",
	}
}

// Load reads the settings file at path on top of the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that sizes are positive and the log level is known.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.BlobBatchSize <= 0 {
		return fmt.Errorf("blob_batch_size must be positive, got %d", c.BlobBatchSize)
	}
	if c.MaxStrLen <= 0 {
		return fmt.Errorf("max_str_len must be positive, got %d", c.MaxStrLen)
	}
	if _, err := c.Retention(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Retention parses TraceRetention. Zero means calls are never dropped.
func (c *Config) Retention() (time.Duration, error) {
	if c.TraceRetention == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.TraceRetention)
	if err != nil {
		return 0, fmt.Errorf("invalid trace_retention: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("trace_retention must not be negative, got %s", c.TraceRetention)
	}
	return d, nil
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log_level %q", c.LogLevel)
}
