package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/alanyoungcy/fillwatch/internal/watcher"
)

// StatusProvider exposes the poll loop's progress.
type StatusProvider interface {
	Status() watcher.Status
}

// HealthHandler serves the liveness endpoints.
type HealthHandler struct {
	mode    string
	account string
	status  StatusProvider
	now     func() time.Time
}

// NewHealthHandler creates a HealthHandler. status is nil when no watcher runs
// in this process.
func NewHealthHandler(mode, account string, status StatusProvider) *HealthHandler {
	return &HealthHandler{mode: mode, account: account, status: status, now: time.Now}
}

// Root is the plain-text liveness check used by hosting keep-alive pings.
// GET /
func (h *HealthHandler) Root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "fillwatch alive")
}

type healthResponse struct {
	Status    string          `json:"status"`
	Mode      string          `json:"mode"`
	Account   string          `json:"account"`
	Timestamp string          `json:"timestamp"`
	Watcher   *watcher.Status `json:"watcher,omitempty"`
}

// HealthCheck reports the process mode and, when present, the watcher status.
// GET /health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Mode:      h.mode,
		Account:   h.account,
		Timestamp: h.now().UTC().Format(time.RFC3339),
	}
	if h.status != nil {
		st := h.status.Status()
		resp.Watcher = &st
	}
	writeJSON(w, http.StatusOK, resp)
}

// Ping answers {"pong":true}.
// GET /ping
func (h *HealthHandler) Ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"pong": true})
}
