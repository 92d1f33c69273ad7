// Package config defines the top-level configuration for fillwatch and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by FILLWATCH_* environment variables.
type Config struct {
	Hyperliquid HyperliquidConfig `toml:"hyperliquid"`
	Poll        PollConfig        `toml:"poll"`
	State       StateConfig       `toml:"state"`
	Notify      NotifyConfig      `toml:"notify"`
	Postgres    PostgresConfig    `toml:"postgres"`
	Redis       RedisConfig       `toml:"redis"`
	S3          S3Config          `toml:"s3"`
	Server      ServerConfig      `toml:"server"`
	Mode        string            `toml:"mode"`
	LogLevel    string            `toml:"log_level"`
}

// HyperliquidConfig identifies the watched account and the info endpoint.
type HyperliquidConfig struct {
	Account string   `toml:"account"`
	InfoURL string   `toml:"info_url"`
	Timeout duration `toml:"timeout"`
}

// PollConfig tunes the poll loop.
type PollConfig struct {
	Interval duration `toml:"interval"`
	// FetchAttempts is the per-variant attempt ceiling; 1 means the variant
	// fallback is the only retry.
	FetchAttempts int      `toml:"fetch_attempts"`
	RetryBackoff  duration `toml:"retry_backoff"`
	MaxSeenIDs    int      `toml:"max_seen_ids"`
	LockTTL       duration `toml:"lock_ttl"`
}

// StateConfig selects where the cursor is persisted.
type StateConfig struct {
	// Backend is one of "file", "redis" or "postgres".
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

// NotifyConfig holds notification channel credentials and delivery tuning.
type NotifyConfig struct {
	TelegramToken      string   `toml:"telegram_token"`
	TelegramChatID     string   `toml:"telegram_chat_id"`
	TelegramAPIURL     string   `toml:"telegram_api_url"`
	EncryptedTokenPath string   `toml:"encrypted_token_path"`
	TokenPassword      string   `toml:"token_password"`
	WebhookSecret      string   `toml:"webhook_secret"`
	DiscordWebhookURL  string   `toml:"discord_webhook_url"`
	Events             []string `toml:"events"`
	StartupNotice      bool     `toml:"startup_notice"`
	TimeOffsetHours    int      `toml:"time_offset_hours"`
	BatchThreshold     int      `toml:"batch_threshold"`
	SummaryCap         int      `toml:"summary_cap"`
	MinInterval        duration `toml:"min_interval"`
	MaxRetries         int      `toml:"max_retries"`
	ThrottleMargin     duration `toml:"throttle_margin"`
	TransportBackoff   duration `toml:"transport_backoff"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
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
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the raw fill
// archive.
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

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
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

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey protects the manual snapshot trigger when set.
	APIKey string `toml:"api_key"`
	// SnapshotRateLimit is the number of /snapshot calls allowed per
	// minute per client when Redis is enabled.
	SnapshotRateLimit int `toml:"snapshot_rate_limit"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Hyperliquid: HyperliquidConfig{
			InfoURL: "https://api.hyperliquid.xyz/info",
			Timeout: duration{30 * time.Second},
		},
		Poll: PollConfig{
			Interval:      duration{30 * time.Second},
			FetchAttempts: 1,
			RetryBackoff:  duration{time.Second},
			MaxSeenIDs:    500,
			LockTTL:       duration{2 * time.Minute},
		},
		State: StateConfig{
			Backend: "file",
			Path:    "state.json",
		},
		Notify: NotifyConfig{
			StartupNotice:    true,
			BatchThreshold:   5,
			SummaryCap:       5,
			MinInterval:      duration{1200 * time.Millisecond},
			MaxRetries:       3,
			ThrottleMargin:   duration{time.Second},
			TransportBackoff: duration{2 * time.Second},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  5,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "fillwatch-archive",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:           true,
			Port:              8080,
			SnapshotRateLimit: 6,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"watch":  true,
	"server": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validBackends = map[string]bool{
	"file":     true,
	"redis":    true,
	"postgres": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: watch, server, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Hyperliquid
	if c.Hyperliquid.Account == "" {
		errs = append(errs, "hyperliquid: account must be set")
	} else if !common.IsHexAddress(c.Hyperliquid.Account) {
		errs = append(errs, fmt.Sprintf("hyperliquid: account %q is not a valid hex address", c.Hyperliquid.Account))
	}
	if c.Hyperliquid.InfoURL == "" {
		errs = append(errs, "hyperliquid: info_url must not be empty")
	}

	// Poll
	if c.Poll.Interval.Duration <= 0 {
		errs = append(errs, "poll: interval must be > 0")
	}
	if c.Poll.FetchAttempts < 1 {
		errs = append(errs, "poll: fetch_attempts must be >= 1")
	}
	if c.Poll.MaxSeenIDs < 1 {
		errs = append(errs, "poll: max_seen_ids must be >= 1")
	}

	// State
	switch backend := strings.ToLower(c.State.Backend); {
	case !validBackends[backend]:
		errs = append(errs, fmt.Sprintf("state: unknown backend %q (valid: file, redis, postgres)", c.State.Backend))
	case backend == "file" && c.State.Path == "":
		errs = append(errs, "state: path must be set for the file backend")
	case backend == "redis" && !c.Redis.Enabled:
		errs = append(errs, "state: redis backend requires redis.enabled")
	case backend == "postgres" && !c.Postgres.Enabled:
		errs = append(errs, "state: postgres backend requires postgres.enabled")
	}

	// Notify: a bot token is mandatory, either inline or encrypted.
	if c.Notify.TelegramToken == "" && c.Notify.EncryptedTokenPath == "" {
		errs = append(errs, "notify: telegram_token or encrypted_token_path must be set")
	}
	if c.Notify.EncryptedTokenPath != "" && c.Notify.TokenPassword == "" {
		errs = append(errs, "notify: token_password is required when encrypted_token_path is set")
	}
	if c.Notify.BatchThreshold < 1 {
		errs = append(errs, "notify: batch_threshold must be >= 1")
	}
	if c.Notify.SummaryCap < 1 {
		errs = append(errs, "notify: summary_cap must be >= 1")
	}
	if c.Notify.MaxRetries < 0 {
		errs = append(errs, "notify: max_retries must be >= 0")
	}
	if c.Notify.MinInterval.Duration < 0 {
		errs = append(errs, "notify: min_interval must be >= 0")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	// Server
	if c.Server.Enabled || strings.EqualFold(c.Mode, "server") {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
