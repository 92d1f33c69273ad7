package watcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/fillwatch/internal/domain"
)

// FillsChannel is the pub/sub channel carrying Notice payloads.
const FillsChannel = "fills"

// Notice types.
const (
	NoticeFill   = "fill"
	NoticeStatus = "status"
)

// Notice is the JSON payload published for live consumers.
type Notice struct {
	Type    string    `json:"type"`
	Account string    `json:"account"`
	Fill    *FillView `json:"fill,omitempty"`
	Status  *Status   `json:"status,omitempty"`
}

// FillView is the wire form of a FillEvent.
type FillView struct {
	Coin      string `json:"coin"`
	Side      string `json:"side"`
	SideLabel string `json:"side_label"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	TradeID   string `json:"trade_id,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// NewFillView converts ev to its wire form.
func NewFillView(ev domain.FillEvent) FillView {
	return FillView{
		Coin:      ev.Coin,
		Side:      string(ev.Side),
		SideLabel: ev.SideLabel,
		Price:     ev.Price.String(),
		Size:      ev.Size.String(),
		TradeID:   ev.TradeID,
		Timestamp: ev.Timestamp,
	}
}

// fanOut hands new fills to the optional collaborators. Failures are logged.
func (w *Watcher) fanOut(ctx context.Context, events []domain.FillEvent, next domain.CursorState) {
	cycleID := newCycleID()

	if w.publisher != nil {
		for _, ev := range events {
			view := NewFillView(ev)
			w.publish(ctx, Notice{Type: NoticeFill, Account: w.cfg.Account, Fill: &view})
		}
	}

	if w.archive != nil {
		if err := w.archiveRaw(ctx, cycleID, events); err != nil {
			w.logger.WarnContext(ctx, "fill archive failed", slog.String("error", err.Error()))
		}
	}

	if w.fills != nil {
		if err := w.fills.InsertBatch(ctx, w.cfg.Account, events); err != nil {
			w.logger.WarnContext(ctx, "fill history insert failed", slog.String("error", err.Error()))
		}
	}

	if w.audit != nil {
		detail := map[string]any{
			"cycle_id":  cycleID,
			"account":   w.cfg.Account,
			"new_fills": len(events),
			"last_ts":   next.LastTS,
		}
		if err := w.audit.Log(ctx, "cycle_completed", detail); err != nil {
			w.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) publish(ctx context.Context, n Notice) {
	payload, err := json.Marshal(n)
	if err != nil {
		w.logger.WarnContext(ctx, "notice marshal failed", slog.String("error", err.Error()))
		return
	}
	if err := w.publisher.Publish(ctx, FillsChannel, payload); err != nil {
		w.logger.WarnContext(ctx, "publish failed",
			slog.String("type", n.Type),
			slog.String("error", err.Error()),
		)
	}
}

// ArchivePath is the object key of a cycle's raw fills.
func ArchivePath(account, cycleID string, day string) string {
	return fmt.Sprintf("fills/%s/%s/%s.json", strings.ToLower(account), day, cycleID)
}

func (w *Watcher) archiveRaw(ctx context.Context, cycleID string, events []domain.FillEvent) error {
	raws := make([]any, 0, len(events))
	for _, ev := range events {
		raws = append(raws, ev.Raw)
	}
	data, err := json.Marshal(raws)
	if err != nil {
		return fmt.Errorf("marshal raw fills: %w", err)
	}
	path := ArchivePath(w.cfg.Account, cycleID, w.clock.Now().UTC().Format("2006/01/02"))
	return w.archive.Put(ctx, path, bytes.NewReader(data), "application/json")
}
