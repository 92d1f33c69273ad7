package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/alanyoungcy/fillwatch/internal/blob/s3"
	"github.com/alanyoungcy/fillwatch/internal/cache/redis"
	"github.com/alanyoungcy/fillwatch/internal/clock"
	"github.com/alanyoungcy/fillwatch/internal/config"
	"github.com/alanyoungcy/fillwatch/internal/crypto"
	"github.com/alanyoungcy/fillwatch/internal/cursor"
	"github.com/alanyoungcy/fillwatch/internal/domain"
	"github.com/alanyoungcy/fillwatch/internal/notify"
	"github.com/alanyoungcy/fillwatch/internal/platform/hyperliquid"
	"github.com/alanyoungcy/fillwatch/internal/service"
	"github.com/alanyoungcy/fillwatch/internal/store/postgres"
)

// Dependencies bundles everything the modes need. Optional backends are nil
// when not configured.
type Dependencies struct {
	// Persistence
	Cursor     domain.CursorStore
	FillStore  domain.FillStore
	AuditStore domain.AuditStore

	// Redis coordination
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Raw fill archive
	BlobWriter domain.BlobWriter

	Source     *hyperliquid.Client
	Dispatcher *notify.Dispatcher
	Wallet     *service.WalletService
	Commands   *service.CommandRouter
}

// Wire constructs the concrete implementations selected by cfg and returns
// them with a cleanup function that releases them in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{}
	account := cfg.Hyperliquid.Account

	// --- PostgreSQL ---
	var pgClient *postgres.Client
	if cfg.Postgres.Enabled {
		c, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, c.Close)
		pgClient = c

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}

		pool := pgClient.Pool()
		deps.FillStore = postgres.NewFillStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
	}

	// --- Redis ---
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		c, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = c.Close() })
		redisClient = c

		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
	}

	// --- Cursor backend ---
	switch strings.ToLower(cfg.State.Backend) {
	case "redis":
		if redisClient == nil {
			return fail(fmt.Errorf("wire: state backend redis requires redis.enabled"))
		}
		deps.Cursor = redis.NewCursorStore(redisClient, account)
	case "postgres":
		if pgClient == nil {
			return fail(fmt.Errorf("wire: state backend postgres requires postgres.enabled"))
		}
		deps.Cursor = postgres.NewCursorStore(pgClient.Pool(), account)
	default:
		deps.Cursor = cursor.NewFileStore(cfg.State.Path)
	}

	// --- S3 archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		deps.BlobWriter = s3blob.NewWriter(s3Client)
	}

	// --- Remote fetcher ---
	sysClock := clock.System{}
	deps.Source = hyperliquid.NewClient(hyperliquid.Options{
		InfoURL:      cfg.Hyperliquid.InfoURL,
		Timeout:      cfg.Hyperliquid.Timeout.Duration,
		Attempts:     cfg.Poll.FetchAttempts,
		RetryBackoff: cfg.Poll.RetryBackoff.Duration,
		Clock:        sysClock,
	}, logger)

	// --- Notifications ---
	token, err := crypto.LoadSecret(crypto.SecretConfig{
		Raw:           cfg.Notify.TelegramToken,
		EncryptedPath: cfg.Notify.EncryptedTokenPath,
		Password:      cfg.Notify.TokenPassword,
	})
	if err != nil {
		return fail(fmt.Errorf("wire: telegram token: %w", err))
	}
	primary := notify.NewTelegramSender(cfg.Notify.TelegramAPIURL, token, cfg.Notify.TelegramChatID)

	var mirrors []notify.Sender
	if cfg.Notify.DiscordWebhookURL != "" {
		mirrors = append(mirrors, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}

	formatter := notify.NewFormatter(account, cfg.Notify.TimeOffsetHours, cfg.Notify.SummaryCap)
	deps.Dispatcher = notify.NewDispatcher(primary, mirrors, formatter, notify.DispatchConfig{
		BatchThreshold:   cfg.Notify.BatchThreshold,
		MinInterval:      cfg.Notify.MinInterval.Duration,
		MaxRetries:       cfg.Notify.MaxRetries,
		ThrottleMargin:   cfg.Notify.ThrottleMargin.Duration,
		TransportBackoff: cfg.Notify.TransportBackoff.Duration,
		Events:           cfg.Notify.Events,
	}, sysClock, logger)

	deps.Wallet = service.NewWalletService(account, deps.Source, deps.Dispatcher, formatter, sysClock, logger)
	deps.Commands = service.NewCommandRouter(deps.Wallet, deps.Dispatcher, formatter, cfg.Poll.Interval.Duration, logger)

	return deps, cleanup, nil
}
