package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fillwatch/internal/domain"
)

func TestTelegramSenderSend(t *testing.T) {
	var got map[string]string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	s := NewTelegramSender(srv.URL, "TOKEN", "100")
	require.NoError(t, s.Send(context.Background(), Message{Text: "hi"}))
	assert.Equal(t, "/botTOKEN/sendMessage", path)
	assert.Equal(t, map[string]string{"chat_id": "100", "text": "hi"}, got)

	require.NoError(t, s.Send(context.Background(), Message{ChatID: "200", Text: "yo"}))
	assert.Equal(t, "200", got["chat_id"])
}

func TestTelegramSenderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "retry after in parameters",
			status: http.StatusTooManyRequests,
			body:   `{"ok":false,"parameters":{"retry_after":7}}`,
			check: func(t *testing.T, err error) {
				var th *domain.ThrottleError
				require.ErrorAs(t, err, &th)
				assert.Equal(t, 7*time.Second, th.Wait)
			},
		},
		{
			name:   "top level retry after",
			status: http.StatusTooManyRequests,
			body:   `{"retry_after":2}`,
			check: func(t *testing.T, err error) {
				var th *domain.ThrottleError
				require.ErrorAs(t, err, &th)
				assert.Equal(t, 2*time.Second, th.Wait)
			},
		},
		{
			name:   "default retry after",
			status: http.StatusTooManyRequests,
			body:   `not json`,
			check: func(t *testing.T, err error) {
				var th *domain.ThrottleError
				require.ErrorAs(t, err, &th)
				assert.Equal(t, 3*time.Second, th.Wait)
			},
		},
		{
			name:   "api error",
			status: http.StatusBadRequest,
			body:   `{"ok":false,"description":"chat not found"}`,
			check: func(t *testing.T, err error) {
				var ae *domain.APIError
				require.ErrorAs(t, err, &ae)
				assert.Equal(t, http.StatusBadRequest, ae.StatusCode)
				assert.False(t, ae.IsRetryable())
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewTelegramSender(srv.URL, "T", "1").Send(context.Background(), Message{Text: "x"})
			tt.check(t, err)
		})
	}
}

func TestTelegramSenderTransportError(t *testing.T) {
	err := NewTelegramSender("http://127.0.0.1:1", "T", "1").Send(context.Background(), Message{Text: "x"})
	var te *domain.TransportError
	assert.ErrorAs(t, err, &te)
}

func TestTelegramRetryAfter(t *testing.T) {
	tests := []struct {
		name string
		body string
		want time.Duration
	}{
		{"parameters", `{"parameters":{"retry_after":7}}`, 7 * time.Second},
		{"fractional", `{"parameters":{"retry_after":0.5}}`, 500 * time.Millisecond},
		{"top level fractional", `{"retry_after":1.25}`, 1250 * time.Millisecond},
		{"missing", `{"ok":false}`, defaultTelegramRetryAfter},
		{"garbage", `<html>`, defaultTelegramRetryAfter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, telegramRetryAfter([]byte(tt.body)))
		})
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	assert.Equal(t, "ab", truncate("abé", 3))
	assert.Equal(t, "abé", truncate("abé", 4))
	assert.Equal(t, "abc", truncate("abc", 5))
}

func TestDiscordRetryAfter(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, discordRetryAfter([]byte(`{"retry_after":1.5}`), ""))
	assert.Equal(t, 4*time.Second, discordRetryAfter(nil, "4"))
	assert.Equal(t, time.Second, discordRetryAfter(nil, ""))
}

func TestDiscordSenderSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, NewDiscordSender(srv.URL).Send(context.Background(), Message{ChatID: "ignored", Text: "hello"}))
	assert.Equal(t, map[string]string{"content": "hello"}, got)
}
