package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Defaults() should validate cleanly, got: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "unknown mode",
			mutate: func(c *Config) { c.Mode = "turbo" },
			want:   "unknown mode",
		},
		{
			name:   "unknown log level",
			mutate: func(c *Config) { c.LogLevel = "loud" },
			want:   "unknown log_level",
		},
		{
			name:   "bad server port",
			mutate: func(c *Config) { c.Server.Port = 70000 },
			want:   "server: port",
		},
		{
			name:   "missing database host",
			mutate: func(c *Config) { c.Database.Host = "" },
			want:   "database: host",
		},
		{
			name:   "pool min exceeds max",
			mutate: func(c *Config) { c.Database.PoolMinConns = 20 },
			want:   "pool_min_conns",
		},
		{
			name:   "empty redis addr",
			mutate: func(c *Config) { c.Redis.Addr = "" },
			want:   "redis: addr",
		},
		{
			name: "s3 enabled without bucket",
			mutate: func(c *Config) {
				c.S3.Enabled = true
				c.S3.Bucket = ""
			},
			want: "s3: bucket",
		},
		{
			name:   "archive without s3",
			mutate: func(c *Config) { c.Resolution.ArchiveOnFinalize = true },
			want:   "archive_on_finalize requires s3",
		},
		{
			name:   "window out of range",
			mutate: func(c *Config) { c.Resolution.DefaultWindowHours = 200 },
			want:   "default_window_hours",
		},
		{
			name:   "fee over 100",
			mutate: func(c *Config) { c.Settlement.FeePercent = 101 },
			want:   "fee_percent",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q, got nil", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "server"

[server]
port = 9100

[database]
dsn = "postgres://file-wins@localhost/predictify"

[resolution]
default_window_hours = 24
finalizer_interval = "30s"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PREDICTIFY_DATABASE_DSN", "postgres://env-wins@localhost/predictify")
	t.Setenv("PREDICTIFY_SETTLEMENT_FEE_PERCENT", "5")
	t.Setenv("PREDICTIFY_ADMIN_KEYS", "alpha, beta")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "server" {
		t.Errorf("mode = %q, want server", cfg.Mode)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("server port = %d, want 9100", cfg.Server.Port)
	}
	// Env var must win over the file value.
	if cfg.Database.DSN != "postgres://env-wins@localhost/predictify" {
		t.Errorf("dsn = %q, want env override", cfg.Database.DSN)
	}
	if cfg.Settlement.FeePercent != 5 {
		t.Errorf("fee = %d, want 5", cfg.Settlement.FeePercent)
	}
	if len(cfg.Admin.Keys) != 2 || cfg.Admin.Keys[0] != "alpha" || cfg.Admin.Keys[1] != "beta" {
		t.Errorf("admin keys = %v, want [alpha beta]", cfg.Admin.Keys)
	}
	if cfg.Resolution.DefaultWindowHours != 24 {
		t.Errorf("window hours = %d, want 24", cfg.Resolution.DefaultWindowHours)
	}
	if cfg.Resolution.FinalizerInterval.Duration != 30*time.Second {
		t.Errorf("finalizer interval = %v, want 30s", cfg.Resolution.FinalizerInterval.Duration)
	}
	// File values not mentioned keep their defaults.
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("redis addr = %q, want default", cfg.Redis.Addr)
	}
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Server.APIKey = "api-secret"
	cfg.Database.Password = "db-secret"
	cfg.Redis.Password = "redis-secret"
	cfg.S3.SecretKey = "s3-secret"
	cfg.Notify.TelegramToken = "tg-secret"
	cfg.Admin.Keys = []string{"admin-secret"}

	out := RedactedConfig(&cfg)

	for name, got := range map[string]string{
		"server api key":    out.Server.APIKey,
		"database password": out.Database.Password,
		"redis password":    out.Redis.Password,
		"s3 secret key":     out.S3.SecretKey,
		"telegram token":    out.Notify.TelegramToken,
		"admin key":         out.Admin.Keys[0],
	} {
		if got != "***" {
			t.Errorf("%s not redacted: %q", name, got)
		}
	}

	// Original must be untouched.
	if cfg.Database.Password != "db-secret" || cfg.Admin.Keys[0] != "admin-secret" {
		t.Error("RedactedConfig mutated the original")
	}
}
