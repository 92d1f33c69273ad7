package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/fillwatch/internal/domain"
)

// FillHandler serves the stored fill history.
type FillHandler struct {
	store   domain.FillStore
	account string
	logger  *slog.Logger
}

// NewFillHandler creates a FillHandler for the watched account.
func NewFillHandler(store domain.FillStore, account string, logger *slog.Logger) *FillHandler {
	return &FillHandler{store: store, account: account, logger: logger}
}

type fillJSON struct {
	ID        int64           `json:"id"`
	TradeID   string          `json:"trade_id,omitempty"`
	Coin      string          `json:"coin"`
	Side      domain.Side     `json:"side"`
	Price     string          `json:"price"`
	Size      string          `json:"size"`
	Timestamp int64           `json:"ts"`
	Time      string          `json:"time,omitempty"`
	Raw       json.RawMessage `json:"raw,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type listFillsResponse struct {
	Account string     `json:"account"`
	Fills   []fillJSON `json:"fills"`
}

// ListFills returns the most recently forwarded fills.
// GET /api/fills?limit=50&offset=0&since=2024-01-01T00:00:00Z
func (h *FillHandler) ListFills(w http.ResponseWriter, r *http.Request) {
	stored, err := h.store.ListRecent(r.Context(), h.account, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list fills failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list fills")
		return
	}

	out := make([]fillJSON, 0, len(stored))
	for _, f := range stored {
		item := fillJSON{
			ID:        f.ID,
			TradeID:   f.TradeID,
			Coin:      f.Coin,
			Side:      f.Side,
			Price:     f.Price,
			Size:      f.Size,
			Timestamp: f.Timestamp,
			CreatedAt: f.CreatedAt,
		}
		if t := domain.EpochToTime(f.Timestamp); !t.IsZero() {
			item.Time = t.Format(time.RFC3339)
		}
		if json.Valid(f.Raw) {
			item.Raw = f.Raw
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, listFillsResponse{Account: h.account, Fills: out})
}
