package domain

import "context"

// CursorState is the persisted novelty watermark of the watcher.
type CursorState struct {
	LastTS      int64    `json:"last_ts"`
	SeenIDs     []string `json:"seen_ids"`
	SentRawOnce bool     `json:"sent_raw_once"`
}

// Clone returns a deep copy so callers can mutate the result freely.
func (s CursorState) Clone() CursorState {
	out := s
	if s.SeenIDs != nil {
		out.SeenIDs = make([]string, len(s.SeenIDs))
		copy(out.SeenIDs, s.SeenIDs)
	}
	return out
}

// CursorStore loads and saves the cursor for one watched account. Load
// returns the zero CursorState when nothing has been persisted yet.
type CursorStore interface {
	Load(ctx context.Context) (CursorState, error)
	Save(ctx context.Context, state CursorState) error
}
