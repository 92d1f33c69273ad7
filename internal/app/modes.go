package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/fillwatch/internal/domain"
	"github.com/alanyoungcy/fillwatch/internal/notify"
	"github.com/alanyoungcy/fillwatch/internal/server"
	"github.com/alanyoungcy/fillwatch/internal/server/handler"
	"github.com/alanyoungcy/fillwatch/internal/server/ws"
	"github.com/alanyoungcy/fillwatch/internal/watcher"
)

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// WatchMode runs the poll loop only. Notices go to the Redis bus when one is
// configured so a separate server process can relay them.
func (a *App) WatchMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting watch mode")

	g, ctx := errgroup.WithContext(ctx)
	var publisher domain.EventPublisher
	if deps.SignalBus != nil {
		publisher = deps.SignalBus
	}
	a.startWatcher(ctx, g, deps, publisher)
	return g.Wait()
}

// ServerMode runs the HTTP API only. The live feed relays notices published
// on the Redis bus by a watch-mode process.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	if deps.SignalBus == nil {
		a.logger.WarnContext(ctx, "server mode without redis: the live feed has no source")
	}

	g, ctx := errgroup.WithContext(ctx)
	hub := a.newHub(deps.SignalBus)
	g.Go(func() error { return hub.Run(ctx) })
	a.startHTTPServer(ctx, g, deps, nil, hub)
	return g.Wait()
}

// FullMode runs the poll loop and, when enabled, the HTTP API in one
// process. Without Redis the hub is the publisher itself.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	var (
		hub       *ws.Hub
		publisher domain.EventPublisher
	)
	if a.cfg.Server.Enabled {
		hub = a.newHub(deps.SignalBus)
		g.Go(func() error { return hub.Run(ctx) })
		publisher = hub
	}
	if deps.SignalBus != nil {
		publisher = deps.SignalBus
	}

	w := a.startWatcher(ctx, g, deps, publisher)
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, w, hub)
	}
	return g.Wait()
}

// startWatcher builds the watcher with every configured collaborator, sends
// the startup notice and adds the poll loop to g.
func (a *App) startWatcher(ctx context.Context, g *errgroup.Group, deps *Dependencies, publisher domain.EventPublisher) *watcher.Watcher {
	opts := []watcher.Option{}
	if deps.LockManager != nil {
		opts = append(opts, watcher.WithLock(deps.LockManager))
	}
	if publisher != nil {
		opts = append(opts, watcher.WithPublisher(publisher))
	}
	if deps.BlobWriter != nil {
		opts = append(opts, watcher.WithArchive(deps.BlobWriter))
	}
	if deps.FillStore != nil {
		opts = append(opts, watcher.WithFillStore(deps.FillStore))
	}
	if deps.AuditStore != nil {
		opts = append(opts, watcher.WithAuditStore(deps.AuditStore))
	}

	w := watcher.New(watcher.Config{
		Account:    a.cfg.Hyperliquid.Account,
		Interval:   a.cfg.Poll.Interval.Duration,
		MaxSeenIDs: a.cfg.Poll.MaxSeenIDs,
		LockTTL:    a.cfg.Poll.LockTTL.Duration,
	}, deps.Source, deps.Dispatcher, deps.Cursor, a.logger, opts...)

	g.Go(func() error {
		a.audit(ctx, deps, "watcher_started")
		defer a.audit(context.Background(), deps, "watcher_stopped")

		if a.cfg.Notify.StartupNotice {
			text := deps.Dispatcher.Formatter().Startup()
			if err := deps.Dispatcher.Deliver(ctx, notify.KindStartup, "", text); err != nil {
				return err
			}
		}
		return w.Run(ctx)
	})
	return w
}

func (a *App) audit(ctx context.Context, deps *Dependencies, event string) {
	if deps.AuditStore == nil {
		return
	}
	err := deps.AuditStore.Log(ctx, event, map[string]any{
		"account": a.cfg.Hyperliquid.Account,
		"mode":    a.cfg.Mode,
	})
	if err != nil {
		a.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func (a *App) newHub(bus domain.SignalBus) *ws.Hub {
	return ws.NewHub(bus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		Account:   a.cfg.Hyperliquid.Account,
		Channels:  []string{watcher.FillsChannel},
		StartedAt: time.Now().UTC(),
	})
}

// startHTTPServer adds the HTTP server and its graceful shutdown to g. status
// is nil when no watcher runs in this process.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, status handler.StatusProvider, hub *ws.Hub) {
	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(a.cfg.Mode, a.cfg.Hyperliquid.Account, status),
		Snapshot: handler.NewSnapshotHandler(deps.Wallet, a.logger),
		Webhook:  handler.NewWebhookHandler(deps.Commands, a.logger),
	}
	if deps.FillStore != nil {
		handlers.Fills = handler.NewFillHandler(deps.FillStore, a.cfg.Hyperliquid.Account, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:              a.cfg.Server.Port,
		CORSOrigins:       a.cfg.Server.CORSOrigins,
		APIKey:            a.cfg.Server.APIKey,
		WebhookSecret:     a.cfg.Notify.WebhookSecret,
		SnapshotRateLimit: a.cfg.Server.SnapshotRateLimit,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
