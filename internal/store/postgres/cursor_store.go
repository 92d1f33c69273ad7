package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/fillwatch/internal/domain"
)

// CursorStore keeps the watcher cursor in the cursor_state table, keyed by
// the lower-cased account address.
type CursorStore struct {
	pool    *pgxpool.Pool
	account string
}

// NewCursorStore creates a CursorStore for one account.
func NewCursorStore(pool *pgxpool.Pool, account string) *CursorStore {
	return &CursorStore{pool: pool, account: strings.ToLower(account)}
}

// Load returns the stored cursor, or the zero state when no row exists.
func (s *CursorStore) Load(ctx context.Context) (domain.CursorState, error) {
	const query = `SELECT last_ts, seen_ids, sent_raw_once FROM cursor_state WHERE account = $1`

	var (
		state   domain.CursorState
		seenRaw []byte
	)
	err := s.pool.QueryRow(ctx, query, s.account).Scan(&state.LastTS, &seenRaw, &state.SentRawOnce)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CursorState{}, nil
	}
	if err != nil {
		return domain.CursorState{}, fmt.Errorf("postgres: load cursor %s: %w", s.account, err)
	}
	if state.SeenIDs, err = decodeSeenIDs(seenRaw); err != nil {
		return domain.CursorState{}, err
	}
	return state, nil
}

// Save upserts the cursor row.
func (s *CursorStore) Save(ctx context.Context, state domain.CursorState) error {
	seenRaw, err := encodeSeenIDs(state.SeenIDs)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO cursor_state (account, last_ts, seen_ids, sent_raw_once, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (account) DO UPDATE SET
			last_ts = EXCLUDED.last_ts,
			seen_ids = EXCLUDED.seen_ids,
			sent_raw_once = EXCLUDED.sent_raw_once,
			updated_at = NOW()`
	if _, err := s.pool.Exec(ctx, query, s.account, state.LastTS, seenRaw, state.SentRawOnce); err != nil {
		return fmt.Errorf("postgres: save cursor %s: %w", s.account, err)
	}
	return nil
}

// encodeSeenIDs renders ids as a JSON array; nil becomes [].
func encodeSeenIDs(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode seen ids: %w", err)
	}
	return data, nil
}

// decodeSeenIDs parses the seen_ids column. Numeric ids are kept as their
// decimal text.
func decodeSeenIDs(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("postgres: decode seen ids: %w", err)
	}
	var ids []string
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			if s != "" {
				ids = append(ids, s)
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(r, &n); err != nil {
			return nil, fmt.Errorf("postgres: decode seen id %s: %w", r, err)
		}
		ids = append(ids, n.String())
	}
	return ids, nil
}

var _ domain.CursorStore = (*CursorStore)(nil)
