package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/fillwatch/internal/service"
)

// maxUpdateBytes bounds the size of a webhook body.
const maxUpdateBytes = 1 << 20

// UpdateHandler routes one chat update.
type UpdateHandler interface {
	Handle(ctx context.Context, u service.Update) error
}

// WebhookHandler receives chat updates pushed by the Telegram webhook.
type WebhookHandler struct {
	router UpdateHandler
	logger *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(router UpdateHandler, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{router: router, logger: logger}
}

// Receive decodes an update and routes it. A malformed body is treated as an
// empty update so the platform does not keep redelivering it.
// POST /telegram-webhook
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "unreadable body"})
		return
	}

	var u service.Update
	if err := json.Unmarshal(body, &u); err != nil {
		h.logger.WarnContext(r.Context(), "handler: ignoring malformed update",
			slog.String("error", err.Error()),
		)
		u = service.Update{}
	}

	if err := h.router.Handle(r.Context(), u); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: telegram webhook failed",
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
