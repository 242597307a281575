// Package config loads sumd settings from YAML, SUMD_* environment variables
// and built-in defaults, and builds the zap logger they describe.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds all sumd configuration.
type Config struct {
	// HTTP service
	Server ServerConfig `yaml:"server"`

	// Abuse guard
	Ban BanConfig `yaml:"ban"`

	// Sequence store limits
	Store StoreConfig `yaml:"store"`

	// Latency buckets and recent operations
	Stats StatsConfig `yaml:"stats"`

	// Logging
	Log LogConfig `yaml:"log"`
}

// ServerConfig configures the listener.
type ServerConfig struct {
	Listen          string `yaml:"listen"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64  `yaml:"max_body_bytes"`

	// Key clients on the first X-Forwarded-For entry instead of the peer
	// address. Only enable behind a proxy that overwrites the header.
	TrustForwardedFor bool `yaml:"trust_forwarded_for"`
}

// BanConfig configures the per-client abuse guard.
type BanConfig struct {
	Disabled        bool   `yaml:"disabled"`
	RejectThreshold int    `yaml:"reject_threshold"` // rejected requests before a ban
	Duration        string `yaml:"duration"`
}

// StoreConfig configures the in-memory sequence store.
type StoreConfig struct {
	MaxSequenceLen int `yaml:"max_sequence_len"`
}

// StatsConfig configures request statistics.
type StatsConfig struct {
	Buckets    []float64 `yaml:"buckets"` // upper bounds, in seconds
	RecentSize int       `yaml:"recent_size"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultBuckets mirrors jamon's range holder, doubling from 100ms.
var DefaultBuckets = []float64{
	0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8, 25.6, 51.12, 102.4, 204.8,
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          ":8000",
			ShutdownTimeout: "5s",
			MaxBodyBytes:    1 << 20,
		},
		Ban: BanConfig{
			RejectThreshold: 50,
			Duration:        "1m",
		},
		Store: StoreConfig{
			MaxSequenceLen: 100000,
		},
		Stats: StatsConfig{
			Buckets:    append([]float64(nil), DefaultBuckets...),
			RecentSize: 100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from a YAML file on top of the defaults, then
// applies SUMD_* environment overrides. An empty path or a missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("SUMD_LISTEN"); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv("SUMD_TRUST_FORWARDED_FOR"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SUMD_TRUST_FORWARDED_FOR %q: %w", v, err)
		}
		c.Server.TrustForwardedFor = b
	}
	if v := os.Getenv("SUMD_DISABLE_BAN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SUMD_DISABLE_BAN %q: %w", v, err)
		}
		c.Ban.Disabled = b
	}
	if v := os.Getenv("SUMD_REJECT_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SUMD_REJECT_THRESHOLD %q: %w", v, err)
		}
		c.Ban.RejectThreshold = n
	}
	if v := os.Getenv("SUMD_BAN_DURATION"); v != "" {
		c.Ban.Duration = v
	}
	if v := os.Getenv("SUMD_MAX_SEQUENCE_LEN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SUMD_MAX_SEQUENCE_LEN %q: %w", v, err)
		}
		c.Store.MaxSequenceLen = n
	}
	if v := os.Getenv("SUMD_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Write encodes the configuration as YAML to w.
func (c *Config) Write(w io.Writer) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Save writes the configuration as YAML to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// BanDuration parses Ban.Duration.
func (c *Config) BanDuration() time.Duration {
	d, err := time.ParseDuration(c.Ban.Duration)
	if err != nil {
		return time.Minute
	}
	return d
}

// ShutdownTimeout parses Server.ShutdownTimeout.
func (c *Config) ShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen must not be empty")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes)
	}
	if d, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid server.shutdown_timeout %q", c.Server.ShutdownTimeout)
	}
	if c.Ban.RejectThreshold <= 0 {
		return fmt.Errorf("ban.reject_threshold must be positive, got %d", c.Ban.RejectThreshold)
	}
	if d, err := time.ParseDuration(c.Ban.Duration); err != nil || d <= 0 {
		return fmt.Errorf("invalid ban.duration %q", c.Ban.Duration)
	}
	if c.Store.MaxSequenceLen <= 0 {
		return fmt.Errorf("store.max_sequence_len must be positive, got %d", c.Store.MaxSequenceLen)
	}
	if c.Stats.RecentSize <= 0 {
		return fmt.Errorf("stats.recent_size must be positive, got %d", c.Stats.RecentSize)
	}
	if len(c.Stats.Buckets) == 0 {
		return fmt.Errorf("stats.buckets must not be empty")
	}
	for i := 1; i < len(c.Stats.Buckets); i++ {
		if c.Stats.Buckets[i] <= c.Stats.Buckets[i-1] {
			return fmt.Errorf("stats.buckets must be strictly increasing (index %d)", i)
		}
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level %q: %w", c.Log.Level, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log.format %q (valid: json, console)", c.Log.Format)
	}
	return nil
}

// NewLogger builds a zap logger from the logging section. verbose forces
// debug level with a console encoder.
func (c *Config) NewLogger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if verbose || strings.EqualFold(c.Log.Format, "console") {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
