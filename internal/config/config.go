// Package config defines the top-level configuration for predictifyd
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/predictify/predictifyd/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by PREDICTIFY_* environment variables.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Database   DatabaseConfig   `toml:"database"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Notify     NotifyConfig     `toml:"notify"`
	Resolution ResolutionConfig `toml:"resolution"`
	Settlement SettlementConfig `toml:"settlement"`
	Admin      AdminConfig      `toml:"admin"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey protects all non-health endpoints when set. Empty disables
	// request authentication entirely.
	APIKey string `toml:"api_key"`
	// RateLimit is the allowed requests per client per window. 0 disables
	// rate limiting.
	RateLimit       int      `toml:"rate_limit"`
	RateLimitWindow duration `toml:"rate_limit_window"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for market archives.
// Archiving is skipped entirely when Enabled is false.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds notification channel credentials. Channels with empty
// credentials are not wired.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// ResolutionConfig holds dispute-window and finalizer parameters.
type ResolutionConfig struct {
	// DefaultWindowHours seeds the global dispute window on first start.
	// Later changes go through the admin API and are persisted.
	DefaultWindowHours int      `toml:"default_window_hours"`
	FinalizerInterval  duration `toml:"finalizer_interval"`
	// AutoFinalize enables the background sweep that finalizes markets
	// whose dispute window has closed.
	AutoFinalize bool `toml:"auto_finalize"`
	// ArchiveOnFinalize writes a JSONL snapshot of each finalized market
	// to object storage. Requires s3.enabled.
	ArchiveOnFinalize bool `toml:"archive_on_finalize"`
}

// SettlementConfig holds payout parameters.
type SettlementConfig struct {
	// FeePercent is the platform fee retained from each winning stake,
	// as a whole percentage in [0, 100].
	FeePercent int64 `toml:"fee_percent"`
}

// AdminConfig holds administrative access keys. Callers presenting one of
// these keys in the X-Admin-Key header may use the admin endpoints.
type AdminConfig struct {
	Keys []string `toml:"keys"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Enabled:         true,
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:       0,
			RateLimitWindow: duration{time.Second},
		},
		Database: DatabaseConfig{
			DSN:           "",
			Host:          "localhost",
			Port:          5432,
			Database:      "predictify",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "predictify-archives",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Notify: NotifyConfig{
			Events: []string{"resolution_proposed", "dispute_recorded", "resolution_finalized", "resolution_overridden"},
		},
		Resolution: ResolutionConfig{
			DefaultWindowHours: domain.DefaultWindowHours,
			FinalizerInterval:  duration{time.Minute},
			AutoFinalize:       true,
			ArchiveOnFinalize:  false,
		},
		Settlement: SettlementConfig{
			FeePercent: 2,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":    true,
	"finalizer": true,
	"full":      true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, finalizer, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server: rate_limit must be >= 0")
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 — only checked when archiving is possible.
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when s3 is enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when s3 is enabled")
		}
	}
	if c.Resolution.ArchiveOnFinalize && !c.S3.Enabled {
		errs = append(errs, "resolution: archive_on_finalize requires s3.enabled")
	}

	// Resolution
	if err := domain.ValidateGlobalWindow(c.Resolution.DefaultWindowHours); err != nil {
		errs = append(errs, fmt.Sprintf("resolution: default_window_hours: %v", err))
	}
	if c.Resolution.AutoFinalize && c.Resolution.FinalizerInterval.Duration <= 0 {
		errs = append(errs, "resolution: finalizer_interval must be > 0 when auto_finalize is set")
	}

	// Settlement
	if c.Settlement.FeePercent < 0 || c.Settlement.FeePercent > 100 {
		errs = append(errs, fmt.Sprintf("settlement: fee_percent must be 0-100, got %d", c.Settlement.FeePercent))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
