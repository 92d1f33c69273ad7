package hyperliquid

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
)

const testUser = "0x1111111111111111111111111111111111111111"

// call records one request seen by the fake info endpoint.
type call struct {
	Method string
	Body   map[string]any
	Query  string
}

type fakeInfo struct {
	mu    sync.Mutex
	calls []call
	// respond returns status and body for the n-th call (0-based).
	respond func(n int, c call) (int, string)
}

func (f *fakeInfo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c := call{Method: r.Method, Query: r.URL.RawQuery}
	if r.Method == http.MethodPost {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &c.Body)
	}
	f.mu.Lock()
	n := len(f.calls)
	f.calls = append(f.calls, c)
	f.mu.Unlock()

	status, body := f.respond(n, c)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (f *fakeInfo) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func newTestClient(t *testing.T, f *fakeInfo, attempts int) (*Client, *clock.Manual) {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	clk := clock.NewManual(time.Unix(1_700_000_000, 0))
	c := NewClient(Options{
		InfoURL:      srv.URL,
		Attempts:     attempts,
		RetryBackoff: time.Second,
		Clock:        clk,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return c, clk
}

func TestFetchFillsFallsBackToSecondVariant(t *testing.T) {
	f := &fakeInfo{respond: func(n int, _ call) (int, string) {
		if n == 0 {
			return http.StatusInternalServerError, "boom"
		}
		return http.StatusOK, `{"fills":[
			{"coin":"ETH","side":"A","px":"3010","sz":"1","time":200,"tid":2},
			{"coin":"BTC","side":"B","px":"65000","sz":"0.1","time":100,"tid":1}
		]}`
	}}
	c, _ := newTestClient(t, f, 1)

	events := c.FetchFills(context.Background(), testUser, 50)

	require.Len(t, events, 2)
	assert.Equal(t, int64(200), events[0].Timestamp)
	assert.Equal(t, "2", events[0].TradeID)
	assert.Equal(t, int64(100), events[1].Timestamp)
	assert.Equal(t, "BTC", events[1].Coin)
	calls := f.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "userFills", calls[0].Body["type"])
	assert.Equal(t, "fills", calls[1].Body["type"])
	assert.Equal(t, testUser, calls[1].Body["user"])
}

func TestFetchFillsVariantOrder(t *testing.T) {
	t.Run("without since", func(t *testing.T) {
		f := &fakeInfo{respond: func(int, call) (int, string) { return http.StatusBadRequest, "no" }}
		c, _ := newTestClient(t, f, 1)

		assert.Empty(t, c.FetchFills(context.Background(), testUser, 0))

		calls := f.Calls()
		require.Len(t, calls, 4)
		assert.Equal(t, "userFills", calls[0].Body["type"])
		assert.Equal(t, "fills", calls[1].Body["type"])
		assert.NotContains(t, calls[1].Body, "n")
		assert.EqualValues(t, 500, calls[2].Body["n"])
		assert.Equal(t, http.MethodGet, calls[3].Method)
		assert.Contains(t, calls[3].Query, "type=userFills")
	})

	t.Run("with since", func(t *testing.T) {
		f := &fakeInfo{respond: func(int, call) (int, string) { return http.StatusOK, `{"a":1}` }}
		c, _ := newTestClient(t, f, 1)

		assert.Empty(t, c.FetchFills(context.Background(), testUser, 42))

		calls := f.Calls()
		require.Len(t, calls, 5)
		assert.EqualValues(t, 42, calls[3].Body["startTime"])
		assert.Equal(t, http.MethodGet, calls[4].Method)
	})
}

func TestFetchFillsRejectsInvalidJSON(t *testing.T) {
	f := &fakeInfo{respond: func(n int, _ call) (int, string) {
		if n == 0 {
			return http.StatusOK, "<html>"
		}
		return http.StatusOK, `[{"coin":"BTC","tid":1,"time":1700000000000}]`
	}}
	c, _ := newTestClient(t, f, 1)

	events := c.FetchFills(context.Background(), testUser, 0)
	require.Len(t, events, 1)
	assert.Equal(t, "BTC", events[0].Coin)
	assert.Equal(t, "1", events[0].TradeID)
}

func TestFetchFillsSinceFilter(t *testing.T) {
	f := &fakeInfo{respond: func(int, call) (int, string) {
		return http.StatusOK, `[{"tid":1,"time":100},{"tid":2,"time":200},{"tid":3},{"tid":4,"time":300}]`
	}}
	c, _ := newTestClient(t, f, 1)

	events := c.FetchFills(context.Background(), testUser, 200)
	require.Len(t, events, 1)
	assert.Equal(t, "4", events[0].TradeID)
}

func TestFetchFillsRetriesTransientStatus(t *testing.T) {
	f := &fakeInfo{respond: func(n int, _ call) (int, string) {
		switch n {
		case 0:
			return http.StatusTooManyRequests, "slow down"
		case 1:
			return http.StatusBadGateway, "bad gateway"
		default:
			return http.StatusOK, `[]`
		}
	}}
	c, clk := newTestClient(t, f, 3)

	events := c.FetchFills(context.Background(), testUser, 0)
	assert.Empty(t, events)

	calls := f.Calls()
	require.Len(t, calls, 3)
	for _, cl := range calls {
		assert.Equal(t, "userFills", cl.Body["type"])
	}
	assert.Len(t, clk.Sleeps(), 2)
}

func TestFetchFillsDoesNotRetryClientErrors(t *testing.T) {
	f := &fakeInfo{respond: func(n int, _ call) (int, string) {
		if n == 0 {
			return http.StatusNotFound, "nope"
		}
		return http.StatusOK, `[]`
	}}
	c, clk := newTestClient(t, f, 3)

	c.FetchFills(context.Background(), testUser, 0)
	calls := f.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "fills", calls[1].Body["type"])
	assert.Empty(t, clk.Sleeps())
}

func TestFetchWallet(t *testing.T) {
	f := &fakeInfo{respond: func(n int, _ call) (int, string) {
		if n == 0 {
			return http.StatusOK, `"unexpected"`
		}
		return http.StatusOK, `{"marginSummary":{"accountValue":"1500.5"},"withdrawable":"10",
			"assetPositions":[{"position":{"coin":"BTC","szi":"0.1","positionValue":"6000"}}]}`
	}}
	c, _ := newTestClient(t, f, 1)

	w := c.FetchWallet(context.Background(), testUser)
	require.NotNil(t, w.Equity)
	assert.Equal(t, "1500.5", w.Equity.String())
	require.Len(t, w.Positions, 1)
	assert.Equal(t, "BTC", w.Positions[0].Coin)

	calls := f.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "clearinghouseState", calls[0].Body["type"])
	assert.Equal(t, "accountState", calls[1].Body["type"])
}

func TestFetchWalletAllFail(t *testing.T) {
	f := &fakeInfo{respond: func(int, call) (int, string) { return http.StatusInternalServerError, "x" }}
	c, _ := newTestClient(t, f, 1)

	w := c.FetchWallet(context.Background(), testUser)
	assert.True(t, w.Empty())
	assert.Len(t, f.Calls(), 3)
}

func TestRawWallet(t *testing.T) {
	f := &fakeInfo{respond: func(int, call) (int, string) {
		return http.StatusOK, `[{"marginSummary":{"accountValue":"1"},"withdrawable":"2","assetPositions":[],"time":5}]`
	}}
	c, _ := newTestClient(t, f, 1)

	raw, err := c.RawWallet(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, "2", raw["withdrawable"])
	assert.NotContains(t, raw, "time")
}

func TestRawWalletError(t *testing.T) {
	f := &fakeInfo{respond: func(int, call) (int, string) { return http.StatusForbidden, "denied" }}
	c, _ := newTestClient(t, f, 1)

	_, err := c.RawWallet(context.Background(), testUser)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestTransportErrorIsTyped(t *testing.T) {
	c := NewClient(Options{InfoURL: "http://127.0.0.1:1", Timeout: time.Second},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := c.do(context.Background(), postVariant("POST userFills", map[string]any{"type": "userFills"}))
	var te *domain.TransportError
	assert.ErrorAs(t, err, &te)
}
