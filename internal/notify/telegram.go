package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alanyoungcy/fillwatch/internal/domain"
)

// DefaultTelegramAPI is the Bot API base URL.
const DefaultTelegramAPI = "https://api.telegram.org"

// defaultTelegramRetryAfter applies when a 429 carries no usable hint.
const defaultTelegramRetryAfter = 3 * time.Second

// TelegramSender delivers notifications via the Telegram Bot API.
type TelegramSender struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
}

// NewTelegramSender creates a TelegramSender for the given bot token and
// default chat ID. An empty baseURL selects the public Bot API.
func NewTelegramSender(baseURL, token, chatID string) *TelegramSender {
	if baseURL == "" {
		baseURL = DefaultTelegramAPI
	}
	return &TelegramSender{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 20 * time.Second},
	}
}

// Send posts a plain text message using the sendMessage API.
func (t *TelegramSender) Send(ctx context.Context, msg Message) error {
	chatID := msg.ChatID
	if chatID == "" {
		chatID = t.chatID
	}
	if chatID == "" {
		return fmt.Errorf("telegram: no chat id")
	}

	body, err := json.Marshal(map[string]string{
		"chat_id": chatID,
		"text":    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return &domain.TransportError{Op: "telegram sendMessage", Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode == http.StatusTooManyRequests {
		return &domain.ThrottleError{Wait: telegramRetryAfter(respBody)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.APIError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 200)}
	}
	return nil
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}

// telegramRetryAfter reads parameters.retry_after, then a top-level
// retry_after, and falls back to the default.
func telegramRetryAfter(body []byte) time.Duration {
	var r struct {
		Parameters struct {
			RetryAfter float64 `json:"retry_after"`
		} `json:"parameters"`
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &r); err != nil {
		return defaultTelegramRetryAfter
	}
	switch {
	case r.Parameters.RetryAfter > 0:
		return seconds(r.Parameters.RetryAfter)
	case r.RetryAfter > 0:
		return seconds(r.RetryAfter)
	default:
		return defaultTelegramRetryAfter
	}
}

// seconds converts a fractional seconds hint to a Duration.
func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
