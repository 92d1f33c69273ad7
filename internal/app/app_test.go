package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fillwatch/internal/config"
	"github.com/alanyoungcy/fillwatch/internal/crypto"
	"github.com/alanyoungcy/fillwatch/internal/cursor"
)

const testAccount = "0x1234567890abcdef1234567890abcdef12345678"

type chatRecorder struct {
	mu    sync.Mutex
	texts []string
}

func (c *chatRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ChatID string `json:"chat_id"`
		Text   string `json:"text"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	c.mu.Lock()
	c.texts = append(c.texts, body.Text)
	c.mu.Unlock()
	_, _ = io.WriteString(w, `{"ok":true}`)
}

func (c *chatRecorder) sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.texts...)
}

func testConfig(t *testing.T, infoURL, chatURL string) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Mode = "watch"
	cfg.Hyperliquid.Account = testAccount
	cfg.Hyperliquid.InfoURL = infoURL
	cfg.State.Path = filepath.Join(t.TempDir(), "state.json")
	cfg.Notify.TelegramToken = "123:abc"
	cfg.Notify.TelegramChatID = "42"
	cfg.Notify.TelegramAPIURL = chatURL
	cfg.Server.Enabled = false
	require.NoError(t, cfg.Validate())
	return &cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWireDefaultsToFileCursor(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0/info", "http://127.0.0.1:0")

	deps, cleanup, err := Wire(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &cursor.FileStore{}, deps.Cursor)
	assert.Nil(t, deps.FillStore)
	assert.Nil(t, deps.AuditStore)
	assert.Nil(t, deps.SignalBus)
	assert.Nil(t, deps.BlobWriter)
	assert.NotNil(t, deps.Dispatcher)
	assert.NotNil(t, deps.Commands)
}

func TestWireEncryptedToken(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0/info", "http://127.0.0.1:0")
	blob, err := crypto.EncryptSecret("123:abc", "pw")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "token.enc")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	cfg.Notify.TelegramToken = ""
	cfg.Notify.EncryptedTokenPath = path

	cfg.Notify.TokenPassword = "wrong"
	_, _, err = Wire(context.Background(), cfg, discardLogger())
	assert.ErrorContains(t, err, "telegram token")

	cfg.Notify.TokenPassword = "pw"
	_, cleanup, err := Wire(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	cleanup()
}

func TestWatchModeForwardsNewFills(t *testing.T) {
	info := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"coin":"BTC","side":"B","px":"50000","sz":"0.1","time":1700000000000,"tid":1}]`)
	}))
	defer info.Close()
	chat := &chatRecorder{}
	chatSrv := httptest.NewServer(chat)
	defer chatSrv.Close()

	cfg := testConfig(t, info.URL, chatSrv.URL)
	application := New(cfg, discardLogger())
	defer application.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	// Startup notice, then the fill once the pacer interval has passed.
	require.Eventually(t, func() bool { return len(chat.sent()) >= 2 }, 10*time.Second, 20*time.Millisecond)
	texts := chat.sent()
	assert.Contains(t, texts[0], "Bot started")
	assert.Contains(t, texts[1], "BTC")

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(cfg.State.Path)
		if err != nil {
			return false
		}
		state, err := cursor.Decode(data)
		return err == nil && state.LastTS == 1700000000000
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled), "unexpected error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Len(t, chat.sent(), 2)
}
