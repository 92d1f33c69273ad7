package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies environment variable overrides, and returns the
// final Config. A missing file is not an error, so a deployment can be
// configured from the environment alone. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known environment variables and overwrites the
// corresponding Config fields when a variable is set (i.e. not empty). The
// short legacy names are applied first so FILLWATCH_* always wins.
func applyEnvOverrides(cfg *Config) {
	// ── Legacy names ──
	setStr(&cfg.Notify.TelegramToken, "TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TELEGRAM_CHAT_ID")
	setStr(&cfg.Hyperliquid.Account, "HL_TRADER_ADDRESS")
	setSeconds(&cfg.Poll.Interval, "POLL_SECONDS")
	setInt(&cfg.Notify.TimeOffsetHours, "TIME_OFFSET_HOURS")
	setInt(&cfg.Server.Port, "PORT")

	// ── Hyperliquid ──
	setStr(&cfg.Hyperliquid.Account, "FILLWATCH_HYPERLIQUID_ACCOUNT")
	setStr(&cfg.Hyperliquid.InfoURL, "FILLWATCH_HYPERLIQUID_INFO_URL")
	setDuration(&cfg.Hyperliquid.Timeout, "FILLWATCH_HYPERLIQUID_TIMEOUT")

	// ── Poll ──
	setDuration(&cfg.Poll.Interval, "FILLWATCH_POLL_INTERVAL")
	setInt(&cfg.Poll.FetchAttempts, "FILLWATCH_POLL_FETCH_ATTEMPTS")
	setDuration(&cfg.Poll.RetryBackoff, "FILLWATCH_POLL_RETRY_BACKOFF")
	setInt(&cfg.Poll.MaxSeenIDs, "FILLWATCH_POLL_MAX_SEEN_IDS")
	setDuration(&cfg.Poll.LockTTL, "FILLWATCH_POLL_LOCK_TTL")

	// ── State ──
	setStr(&cfg.State.Backend, "FILLWATCH_STATE_BACKEND")
	setStr(&cfg.State.Path, "FILLWATCH_STATE_PATH")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "FILLWATCH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "FILLWATCH_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.TelegramAPIURL, "FILLWATCH_NOTIFY_TELEGRAM_API_URL")
	setStr(&cfg.Notify.EncryptedTokenPath, "FILLWATCH_NOTIFY_ENCRYPTED_TOKEN_PATH")
	setStr(&cfg.Notify.TokenPassword, "FILLWATCH_NOTIFY_TOKEN_PASSWORD")
	setStr(&cfg.Notify.WebhookSecret, "FILLWATCH_NOTIFY_WEBHOOK_SECRET")
	setStr(&cfg.Notify.DiscordWebhookURL, "FILLWATCH_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "FILLWATCH_NOTIFY_EVENTS")
	setBool(&cfg.Notify.StartupNotice, "FILLWATCH_NOTIFY_STARTUP_NOTICE")
	setInt(&cfg.Notify.TimeOffsetHours, "FILLWATCH_NOTIFY_TIME_OFFSET_HOURS")
	setInt(&cfg.Notify.BatchThreshold, "FILLWATCH_NOTIFY_BATCH_THRESHOLD")
	setInt(&cfg.Notify.SummaryCap, "FILLWATCH_NOTIFY_SUMMARY_CAP")
	setDuration(&cfg.Notify.MinInterval, "FILLWATCH_NOTIFY_MIN_INTERVAL")
	setInt(&cfg.Notify.MaxRetries, "FILLWATCH_NOTIFY_MAX_RETRIES")
	setDuration(&cfg.Notify.ThrottleMargin, "FILLWATCH_NOTIFY_THROTTLE_MARGIN")
	setDuration(&cfg.Notify.TransportBackoff, "FILLWATCH_NOTIFY_TRANSPORT_BACKOFF")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "FILLWATCH_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "FILLWATCH_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "FILLWATCH_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "FILLWATCH_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "FILLWATCH_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "FILLWATCH_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "FILLWATCH_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "FILLWATCH_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "FILLWATCH_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "FILLWATCH_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "FILLWATCH_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "FILLWATCH_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "FILLWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FILLWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FILLWATCH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FILLWATCH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "FILLWATCH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "FILLWATCH_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "FILLWATCH_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "FILLWATCH_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "FILLWATCH_S3_REGION")
	setStr(&cfg.S3.Bucket, "FILLWATCH_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "FILLWATCH_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "FILLWATCH_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "FILLWATCH_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "FILLWATCH_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "FILLWATCH_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "FILLWATCH_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "FILLWATCH_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "FILLWATCH_SERVER_API_KEY")
	setInt(&cfg.Server.SnapshotRateLimit, "FILLWATCH_SERVER_SNAPSHOT_RATE_LIMIT")

	// ── Top-level ──
	setStr(&cfg.Mode, "FILLWATCH_MODE")
	setStr(&cfg.LogLevel, "FILLWATCH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

// setSeconds reads a whole number of seconds.
func setSeconds(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			dst.Duration = time.Duration(n) * time.Second
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
