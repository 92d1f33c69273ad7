// Package server exposes the liveness, manual trigger, chat webhook, history
// and live feed endpoints over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/fillwatch/internal/domain"
	"github.com/alanyoungcy/fillwatch/internal/server/handler"
	"github.com/alanyoungcy/fillwatch/internal/server/middleware"
	"github.com/alanyoungcy/fillwatch/internal/server/ws"
)

// snapshotWindow is the rate-limit window for GET /snapshot.
const snapshotWindow = time.Minute

// Config holds the HTTP server configuration.
type Config struct {
	Port              int
	CORSOrigins       []string
	APIKey            string // if empty, authentication is disabled
	WebhookSecret     string // if empty, the webhook header is not checked
	SnapshotRateLimit int    // requests per minute per client, 0 disables
}

// Handlers aggregates the HTTP handlers. Snapshot, Webhook and Fills are
// optional; their routes are registered only when set.
type Handlers struct {
	Health   *handler.HealthHandler
	Snapshot *handler.SnapshotHandler
	Webhook  *handler.WebhookHandler
	Fills    *handler.FillHandler
}

// Server is the HTTP + WebSocket front of fillwatch.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers the routes and wraps them in the logging and CORS
// middleware. limiter and wsHub may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	auth := middleware.Auth(cfg.APIKey)

	mux.HandleFunc("GET /{$}", handlers.Health.Root)
	mux.HandleFunc("GET /health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /ping", handlers.Health.Ping)

	if handlers.Snapshot != nil {
		limit := middleware.RateLimit(limiter, "snapshot", cfg.SnapshotRateLimit, snapshotWindow, logger)
		mux.Handle("GET /snapshot", auth(limit(http.HandlerFunc(handlers.Snapshot.Snapshot))))
	}
	if handlers.Webhook != nil {
		mux.Handle("POST /telegram-webhook",
			middleware.WebhookSecret(cfg.WebhookSecret)(http.HandlerFunc(handlers.Webhook.Receive)))
	}
	if handlers.Fills != nil {
		mux.Handle("GET /api/fills", auth(http.HandlerFunc(handlers.Fills.ListFills)))
	}
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      h,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
