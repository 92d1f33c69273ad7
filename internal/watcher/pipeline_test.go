package watcher

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fillwatch/internal/clock"
	"github.com/alanyoungcy/fillwatch/internal/domain"
	"github.com/alanyoungcy/fillwatch/internal/notify"
	"github.com/alanyoungcy/fillwatch/internal/platform/hyperliquid"
)

type recordingSender struct {
	mu    sync.Mutex
	texts []string
}

func (s *recordingSender) Send(_ context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, msg.Text)
	return nil
}

func (s *recordingSender) Name() string { return "recording" }

func TestRunCycleFallbackVariantToOrderedMessages(t *testing.T) {
	var (
		mu    sync.Mutex
		types []any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		types = append(types, body["type"])
		n := len(types)
		mu.Unlock()

		if n == 1 {
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"fills":[
			{"coin":"ETH","side":"A","px":"3010","sz":"1","time":200,"tid":"t200"},
			{"coin":"BTC","side":"B","px":"65000","sz":"0.1","time":100,"tid":"t100"}
		]}`)
	}))
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewManual(time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC))
	source := hyperliquid.NewClient(hyperliquid.Options{InfoURL: srv.URL, Attempts: 1, Clock: clk}, logger)

	sender := &recordingSender{}
	cfg := notify.DefaultDispatchConfig()
	dispatcher := notify.NewDispatcher(sender, nil, notify.NewFormatter(account, 0, 5), cfg, clk, logger)

	store := &memStore{state: domain.CursorState{LastTS: 50}}
	w := New(Config{Account: account, Interval: 30 * time.Second}, source, dispatcher, store, logger, WithClock(clk))
	w.Load(context.Background())

	assert.Equal(t, 2, w.RunCycle(context.Background()))

	mu.Lock()
	assert.Equal(t, []any{"userFills", "fills"}, types)
	mu.Unlock()

	require.Len(t, sender.texts, 2)
	assert.Contains(t, sender.texts[0], "Pair: BTC")
	assert.Contains(t, sender.texts[0], "Trade ID: t100")
	assert.Contains(t, sender.texts[1], "Pair: ETH")
	assert.Contains(t, sender.texts[1], "Trade ID: t200")

	assert.Equal(t, int64(200), store.state.LastTS)
	assert.Equal(t, []string{"t100", "t200"}, store.state.SeenIDs)
	assert.Empty(t, w.Status().LastError)
}
