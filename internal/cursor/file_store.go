package cursor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alanyoungcy/fillwatch/internal/domain"
)

// FileStore persists the cursor as an indented JSON document on local disk.
type FileStore struct {
	path string
}

// NewFileStore returns a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// fileState mirrors the on-disk document. Older files may hold numeric ids.
type fileState struct {
	LastTS      json.Number       `json:"last_ts"`
	SeenIDs     []json.RawMessage `json:"seen_ids"`
	SentRawOnce bool              `json:"sent_raw_once"`
}

// Load reads the cursor. A missing file yields the zero state.
func (s *FileStore) Load(_ context.Context) (domain.CursorState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.CursorState{}, nil
	}
	if err != nil {
		return domain.CursorState{}, fmt.Errorf("cursor: read %s: %w", s.path, err)
	}
	return Decode(data)
}

// Save writes the cursor atomically through a temp file and rename.
func (s *FileStore) Save(_ context.Context, state domain.CursorState) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cursor: mkdir %s: %w", dir, err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("cursor: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("cursor: rename %s: %w", tmp, err)
	}
	return nil
}

// Encode renders state as the indented persisted document.
func Encode(state domain.CursorState) ([]byte, error) {
	if state.SeenIDs == nil {
		state.SeenIDs = []string{}
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("cursor: encode: %w", err)
	}
	return data, nil
}

// Decode parses a persisted document, accepting string or numeric ids and a
// fractional watermark.
func Decode(data []byte) (domain.CursorState, error) {
	var fs fileState
	if err := json.Unmarshal(data, &fs); err != nil {
		return domain.CursorState{}, fmt.Errorf("cursor: decode: %w", err)
	}

	state := domain.CursorState{SentRawOnce: fs.SentRawOnce}
	if fs.LastTS != "" {
		if n, err := fs.LastTS.Int64(); err == nil {
			state.LastTS = n
		} else if f, err := fs.LastTS.Float64(); err == nil {
			state.LastTS = int64(f)
		} else {
			return domain.CursorState{}, fmt.Errorf("cursor: decode last_ts %q: %w", fs.LastTS, err)
		}
	}

	for _, raw := range fs.SeenIDs {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s != "" {
				state.SeenIDs = append(state.SeenIDs, s)
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			state.SeenIDs = append(state.SeenIDs, n.String())
		}
	}
	return state, nil
}
