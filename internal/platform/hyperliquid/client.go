// Package hyperliquid queries the Hyperliquid info endpoint for fills and
// account state. The endpoint's response shape is not stable across request
// variants, so every query walks an ordered list of variants and keeps the
// first structurally valid answer.
package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v5"

	"github.com/alanyoungcy/fillwatch/internal/clock"
	"github.com/alanyoungcy/fillwatch/internal/domain"
	"github.com/alanyoungcy/fillwatch/internal/normalize"
	"github.com/alanyoungcy/fillwatch/internal/retry"
)

// DefaultInfoURL is the public mainnet info endpoint.
const DefaultInfoURL = "https://api.hyperliquid.xyz/info"

// maxErrorBody caps how much of an error response is kept for logging.
const maxErrorBody = 120

// Options configures a Client.
type Options struct {
	InfoURL string
	Timeout time.Duration
	// Attempts is the per-variant attempt ceiling. 1 disables retries so
	// the variant fallback is the only recovery.
	Attempts     int
	RetryBackoff time.Duration
	Clock        clock.Clock
	HTTPClient   *http.Client
}

// Client is a schema-tolerant client for the info endpoint.
type Client struct {
	infoURL      string
	httpClient   *http.Client
	attempts     int
	retryBackoff time.Duration
	clock        clock.Clock
	logger       *slog.Logger
}

// NewClient creates a new info endpoint client.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.InfoURL == "" {
		opts.InfoURL = DefaultInfoURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = time.Second
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		infoURL:      opts.InfoURL,
		httpClient:   hc,
		attempts:     opts.Attempts,
		retryBackoff: opts.RetryBackoff,
		clock:        opts.Clock,
		logger:       logger.With(slog.String("component", "hyperliquid")),
	}
}

// variant is one request shape for a query.
type variant struct {
	label string
	// body is POSTed as JSON. When nil the request is a GET with query.
	body  map[string]any
	query url.Values
}

func postVariant(label string, body map[string]any) variant {
	return variant{label: label, body: body}
}

func getVariant(label string, query url.Values) variant {
	return variant{label: label, query: query}
}

// fetch runs one variant under the retry policy and decodes its payload.
func (c *Client) fetch(ctx context.Context, v variant) (normalize.Payload, error) {
	var payload normalize.Payload
	_, err := retry.Do(ctx, retry.Policy{
		MaxRetries: c.attempts - 1,
		Retryable:  domain.IsTransient,
		BackOff:    c.newBackOff(),
		Clock:      c.clock,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			c.logger.Debug("retrying variant",
				slog.String("variant", v.label),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("error", err.Error()),
			)
		},
	}, func(ctx context.Context) error {
		p, err := c.do(ctx, v)
		if err != nil {
			return err
		}
		payload = p
		return nil
	})
	return payload, err
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryBackoff
	b.MaxInterval = 10 * c.retryBackoff
	return b
}

// do performs a single HTTP exchange for v.
func (c *Client) do(ctx context.Context, v variant) (normalize.Payload, error) {
	var req *http.Request
	var err error
	if v.body != nil {
		jsonBody, mErr := json.Marshal(v.body)
		if mErr != nil {
			return normalize.Payload{}, fmt.Errorf("marshal request: %w", mErr)
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.infoURL, bytes.NewReader(jsonBody))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	} else {
		target := c.infoURL
		if len(v.query) > 0 {
			target += "?" + v.query.Encode()
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	}
	if err != nil {
		return normalize.Payload{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return normalize.Payload{}, &domain.TransportError{Op: v.label, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return normalize.Payload{}, &domain.TransportError{Op: v.label, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return normalize.Payload{}, &domain.APIError{StatusCode: resp.StatusCode, Body: truncate(string(body), maxErrorBody)}
	}

	p, err := normalize.Parse(body)
	if err != nil {
		return normalize.Payload{}, &domain.SchemaMismatch{Reason: "invalid json"}
	}
	return p, nil
}

// failures collects per-variant rejection reasons for one query.
type failures []string

func (f *failures) add(label string, err error) {
	*f = append(*f, label+": "+err.Error())
}

func (f failures) String() string {
	return strings.Join(f, " | ")
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
