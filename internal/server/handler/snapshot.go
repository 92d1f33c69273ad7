package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// SnapshotSender delivers a wallet snapshot. An empty chatID means the
// configured broadcast chat.
type SnapshotSender interface {
	SendSnapshot(ctx context.Context, chatID string) error
}

// SnapshotHandler triggers a manual wallet snapshot.
type SnapshotHandler struct {
	wallet SnapshotSender
	logger *slog.Logger
}

// NewSnapshotHandler creates a SnapshotHandler.
func NewSnapshotHandler(wallet SnapshotSender, logger *slog.Logger) *SnapshotHandler {
	return &SnapshotHandler{wallet: wallet, logger: logger}
}

// Snapshot sends the snapshot to the broadcast chat.
// GET /snapshot
func (h *SnapshotHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.wallet.SendSnapshot(r.Context(), ""); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: snapshot failed",
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
