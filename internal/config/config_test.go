package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validAccount = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func validConfig() Config {
	cfg := Defaults()
	cfg.Hyperliquid.Account = validAccount
	cfg.Notify.TelegramToken = "123:abc"
	return cfg
}

func TestDefaultsNeedAccountAndToken(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hyperliquid: account must be set")
	assert.Contains(t, err.Error(), "notify: telegram_token or encrypted_token_path must be set")

	valid := validConfig()
	assert.NoError(t, valid.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad address", func(c *Config) { c.Hyperliquid.Account = "0x123" }, "not a valid hex address"},
		{"bad mode", func(c *Config) { c.Mode = "trade" }, "unknown mode"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "unknown log_level"},
		{"zero interval", func(c *Config) { c.Poll.Interval = duration{} }, "poll: interval"},
		{"zero attempts", func(c *Config) { c.Poll.FetchAttempts = 0 }, "fetch_attempts"},
		{"redis backend without redis", func(c *Config) { c.State.Backend = "redis" }, "requires redis.enabled"},
		{"postgres backend without postgres", func(c *Config) { c.State.Backend = "postgres" }, "requires postgres.enabled"},
		{"unknown backend", func(c *Config) { c.State.Backend = "etcd" }, "unknown backend"},
		{"encrypted token without password", func(c *Config) {
			c.Notify.TelegramToken = ""
			c.Notify.EncryptedTokenPath = "token.enc"
		}, "token_password"},
		{"s3 without bucket", func(c *Config) {
			c.S3.Enabled = true
			c.S3.Bucket = ""
		}, "s3: bucket"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server: port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Poll.Interval.Duration)
	assert.Equal(t, "file", cfg.State.Backend)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fillwatch.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "watch"

[hyperliquid]
account = "`+validAccount+`"

[poll]
interval = "45s"
fetch_attempts = 3

[notify]
telegram_token = "tok"
events = ["fill", "summary"]
min_interval = "2s"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "watch", cfg.Mode)
	assert.Equal(t, 45*time.Second, cfg.Poll.Interval.Duration)
	assert.Equal(t, 3, cfg.Poll.FetchAttempts)
	assert.Equal(t, 2*time.Second, cfg.Notify.MinInterval.Duration)
	assert.Equal(t, []string{"fill", "summary"}, cfg.Notify.Events)
	assert.Equal(t, 5, cfg.Notify.BatchThreshold, "unset keys keep defaults")
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("mode = "), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "legacy-token")
	t.Setenv("TELEGRAM_CHAT_ID", "-100")
	t.Setenv("HL_TRADER_ADDRESS", validAccount)
	t.Setenv("POLL_SECONDS", "15")
	t.Setenv("TIME_OFFSET_HOURS", "-6")
	t.Setenv("PORT", "9090")
	t.Setenv("FILLWATCH_NOTIFY_TELEGRAM_TOKEN", "new-token")
	t.Setenv("FILLWATCH_NOTIFY_EVENTS", "fill, summary ,")
	t.Setenv("FILLWATCH_REDIS_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "new-token", cfg.Notify.TelegramToken)
	assert.Equal(t, "-100", cfg.Notify.TelegramChatID)
	assert.Equal(t, validAccount, cfg.Hyperliquid.Account)
	assert.Equal(t, 15*time.Second, cfg.Poll.Interval.Duration)
	assert.Equal(t, -6, cfg.Notify.TimeOffsetHours)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"fill", "summary"}, cfg.Notify.Events)
	assert.True(t, cfg.Redis.Enabled)
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Redis.Password = "pw"
	cfg.Server.APIKey = "key"
	cfg.Notify.Events = []string{"fill"}

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Notify.TelegramToken)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.Server.APIKey)
	assert.Empty(t, red.Postgres.Password)
	assert.Equal(t, "123:abc", cfg.Notify.TelegramToken)

	red.Notify.Events[0] = "changed"
	assert.Equal(t, "fill", cfg.Notify.Events[0])
}
