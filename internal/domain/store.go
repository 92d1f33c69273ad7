package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
}

// StoredFill is one row of the fill history table.
type StoredFill struct {
	ID        int64
	Account   string
	TradeID   string
	Coin      string
	Side      Side
	Price     string
	Size      string
	Timestamp int64
	Raw       []byte
	CreatedAt time.Time
}

// FillStore persists the history of forwarded fills.
type FillStore interface {
	InsertBatch(ctx context.Context, account string, fills []FillEvent) error
	ListRecent(ctx context.Context, account string, opts ListOpts) ([]StoredFill, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
