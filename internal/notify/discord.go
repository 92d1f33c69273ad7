package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/fillwatch/internal/domain"
)

// defaultDiscordRetryAfter applies when a 429 carries no usable hint.
const defaultDiscordRetryAfter = time.Second

// DiscordSender mirrors notifications to a Discord webhook.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a DiscordSender for the given webhook URL. It uses a
// default HTTP client with a 10-second timeout.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the message text to the webhook. The chat ID is ignored.
func (d *DiscordSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(map[string]string{"content": msg.Text})
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return &domain.TransportError{Op: "discord webhook", Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode == http.StatusTooManyRequests {
		return &domain.ThrottleError{Wait: discordRetryAfter(respBody, resp.Header.Get("Retry-After"))}
	}
	// Discord returns 204 No Content on success.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.APIError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 200)}
	}
	return nil
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}

func discordRetryAfter(body []byte, header string) time.Duration {
	var r struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &r); err == nil && r.RetryAfter > 0 {
		return seconds(r.RetryAfter)
	}
	if secs, err := strconv.ParseFloat(header, 64); err == nil && secs > 0 {
		return seconds(secs)
	}
	return defaultDiscordRetryAfter
}
