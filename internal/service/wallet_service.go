package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/alanyoungcy/fillwatch/internal/clock"
	"github.com/alanyoungcy/fillwatch/internal/domain"
	"github.com/alanyoungcy/fillwatch/internal/notify"
)

const (
	recentFillsWindow = 24 * time.Hour
	recentFillsTop    = 5
	debugTextLimit    = 3500
	truncatedMarker   = "\n...(truncated)..."
)

// WalletSource reads account state and fills from the exchange.
type WalletSource interface {
	FetchWallet(ctx context.Context, user string) domain.WalletSnapshot
	FetchFills(ctx context.Context, user string, since int64) []domain.FillEvent
	RawWallet(ctx context.Context, user string) (map[string]any, error)
}

// Deliverer sends one notification text.
type Deliverer interface {
	Deliver(ctx context.Context, kind, chatID, text string) error
}

// WalletService builds and sends on-demand wallet snapshots.
type WalletService struct {
	account   string
	source    WalletSource
	out       Deliverer
	formatter *notify.Formatter
	clock     clock.Clock
	logger    *slog.Logger
}

// NewWalletService creates a WalletService for account.
func NewWalletService(
	account string,
	source WalletSource,
	out Deliverer,
	formatter *notify.Formatter,
	c clock.Clock,
	logger *slog.Logger,
) *WalletService {
	if c == nil {
		c = clock.System{}
	}
	return &WalletService{
		account:   account,
		source:    source,
		out:       out,
		formatter: formatter,
		clock:     c,
		logger:    logger.With(slog.String("component", "wallet_service")),
	}
}

// Snapshot returns the formatted wallet snapshot: balances, positions and
// the most recent fills of the last 24 hours.
func (s *WalletService) Snapshot(ctx context.Context) string {
	wallet := s.source.FetchWallet(ctx, s.account)
	since := s.clock.Now().Add(-recentFillsWindow).UnixMilli()
	fills := s.source.FetchFills(ctx, s.account, since)

	sort.SliceStable(fills, func(i, j int) bool { return fills[i].Timestamp > fills[j].Timestamp })
	return s.formatter.Wallet(wallet, lo.Slice(fills, 0, recentFillsTop))
}

// SendSnapshot delivers the snapshot to chatID, or to the default chat when
// chatID is empty.
func (s *WalletService) SendSnapshot(ctx context.Context, chatID string) error {
	text := s.Snapshot(ctx)
	s.logger.InfoContext(ctx, "sending wallet snapshot", slog.String("chat_id", chatID))
	return s.out.Deliver(ctx, notify.KindSnapshot, chatID, text)
}

// SendDebug delivers the raw wallet sub-objects as indented JSON.
func (s *WalletService) SendDebug(ctx context.Context, chatID string) error {
	return s.out.Deliver(ctx, notify.KindCommand, chatID, s.Debug(ctx))
}

// Debug renders the raw wallet sub-objects, truncated for chat delivery.
func (s *WalletService) Debug(ctx context.Context) string {
	raw, err := s.source.RawWallet(ctx, s.account)
	if err != nil {
		return fmt.Sprintf("walletdebug error: %v", err)
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Sprintf("walletdebug error: %v", err)
	}
	text := string(data)
	if len(text) > debugTextLimit {
		text = cutText(text, debugTextLimit) + truncatedMarker
	}
	return "📦 walletdebug:\n" + text
}

// cutText returns the longest prefix of s within n bytes that does not split
// a UTF-8 sequence.
func cutText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
