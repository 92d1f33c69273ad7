package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/fillwatch/internal/cursor"
	"github.com/alanyoungcy/fillwatch/internal/domain"
)

// CursorStore keeps the watcher cursor as a JSON document under
// fillwatch:cursor:<account>, in the same format as the state file.
type CursorStore struct {
	rdb *redis.Client
	key string
}

// NewCursorStore creates a CursorStore for one account.
func NewCursorStore(c *Client, account string) *CursorStore {
	return &CursorStore{rdb: c.Underlying(), key: cursorKey(account)}
}

func cursorKey(account string) string {
	return keyPrefix + "cursor:" + strings.ToLower(account)
}

// Load returns the stored cursor, or the zero state when the key is absent.
func (s *CursorStore) Load(ctx context.Context) (domain.CursorState, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.CursorState{}, nil
	}
	if err != nil {
		return domain.CursorState{}, fmt.Errorf("redis: load cursor %s: %w", s.key, err)
	}
	state, err := cursor.Decode(data)
	if err != nil {
		return domain.CursorState{}, fmt.Errorf("redis: decode cursor %s: %w", s.key, err)
	}
	return state, nil
}

// Save overwrites the stored cursor. SET is atomic, so readers never observe
// a partial document.
func (s *CursorStore) Save(ctx context.Context, state domain.CursorState) error {
	data, err := cursor.Encode(state)
	if err != nil {
		return fmt.Errorf("redis: encode cursor: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis: save cursor %s: %w", s.key, err)
	}
	return nil
}

var _ domain.CursorStore = (*CursorStore)(nil)
