package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/fillwatch/internal/domain"
)

// FillStore implements domain.FillStore using PostgreSQL.
type FillStore struct {
	pool *pgxpool.Pool
}

// NewFillStore creates a new FillStore backed by the given connection pool.
func NewFillStore(pool *pgxpool.Pool) *FillStore {
	return &FillStore{pool: pool}
}

// InsertBatch stores forwarded fills with a pgx Batch. Fills whose trade id is
// already stored for the account are skipped.
func (s *FillStore) InsertBatch(ctx context.Context, account string, fills []domain.FillEvent) error {
	if len(fills) == 0 {
		return nil
	}
	account = strings.ToLower(account)

	const query = `
		INSERT INTO fills (account, trade_id, coin, side, price, size, ts, raw)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (account, trade_id) WHERE trade_id IS NOT NULL DO NOTHING`

	batch := &pgx.Batch{}
	for _, f := range fills {
		raw, err := json.Marshal(f.Raw)
		if err != nil {
			return fmt.Errorf("postgres: marshal fill raw: %w", err)
		}
		var tradeID *string
		if f.HasTradeID() {
			id := f.TradeID
			tradeID = &id
		}
		batch.Queue(query,
			account, tradeID, f.Coin, string(f.Side),
			f.Price.String(), f.Size.String(), f.Timestamp, raw,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range fills {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert fill batch item %d: %w", i, err)
		}
	}
	return nil
}

// ListRecent returns the account's stored fills, newest first.
func (s *FillStore) ListRecent(ctx context.Context, account string, opts domain.ListOpts) ([]domain.StoredFill, error) {
	query := `SELECT id, account, COALESCE(trade_id, ''), coin, side, price, size, ts, raw, created_at
		FROM fills WHERE account = $1`
	args := []any{strings.ToLower(account)}
	if opts.Since != nil {
		args = append(args, *opts.Since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC" + pageClause(opts, &args)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list fills: %w", err)
	}
	defer rows.Close()

	var out []domain.StoredFill
	for rows.Next() {
		var (
			f    domain.StoredFill
			side string
		)
		if err := rows.Scan(
			&f.ID, &f.Account, &f.TradeID, &f.Coin, &side,
			&f.Price, &f.Size, &f.Timestamp, &f.Raw, &f.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan fill: %w", err)
		}
		f.Side = domain.Side(side)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list fills rows: %w", err)
	}
	return out, nil
}

var _ domain.FillStore = (*FillStore)(nil)
