package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/fillwatch/internal/domain"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in       string
		decimals int32
		want     string
	}{
		{"0", 2, "0.00"},
		{"999.999", 2, "1,000.00"},
		{"1234567.891", 2, "1,234,567.89"},
		{"-1234.5", 3, "-1,234.500"},
		{"100", 0, "100"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNumber(decimal.RequireFromString(tt.in), tt.decimals))
		})
	}
}

func TestFormatterChecksumsAddress(t *testing.T) {
	f := NewFormatter("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", 0, 5)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", f.Account())
}

func TestFormatterFill(t *testing.T) {
	f := NewFormatter("trader", -6, 5)
	ev := domain.FillEvent{
		Coin: "ETH", Side: domain.SideSell, SideLabel: "A",
		Price: domain.NewAmount("3000.1"), Size: domain.NewAmount("0.5"),
		TradeID: "99", Timestamp: 1_700_000_000_000,
	}

	text := f.Fill(ev)
	assert.Contains(t, text, "Trader: `trader`")
	assert.Contains(t, text, "Time: 2023-11-14 16:13:20")
	assert.Contains(t, text, "Pair: ETH")
	assert.Contains(t, text, "Side: A")
	assert.Contains(t, text, "Price: 3000.1")
	assert.Contains(t, text, "Size: 0.5")
	assert.Contains(t, text, "Trade ID: 99")

	bare := f.Fill(domain.FillEvent{Coin: "?", SideLabel: "?", Price: domain.NewAmount(""), Size: domain.NewAmount("")})
	assert.NotContains(t, bare, "Time:")
	assert.NotContains(t, bare, "Trade ID:")
	assert.Contains(t, bare, "Price: ?")
}

func TestFormatterSummaryCap(t *testing.T) {
	f := NewFormatter("trader", 0, 5)
	text := f.Summary(fills(5))
	assert.NotContains(t, text, "more.")
	assert.Len(t, strings.Split(text, "\n"), 6)
	assert.True(t, strings.Index(text, "2023-11-14 22:13:21") < strings.Index(text, "2023-11-14 22:13:22"))
}

func TestFormatterWallet(t *testing.T) {
	f := NewFormatter("trader", 0, 5)
	var positions []domain.Position
	for i := 0; i < 12; i++ {
		positions = append(positions, domain.Position{
			Coin:          "C",
			SignedSize:    decimal.NewFromInt(1),
			PositionValue: decimal.NewFromInt(1000),
		})
	}
	positions = append(positions, domain.Position{Coin: "FLAT"})
	positions[0] = domain.Position{
		Coin:           "BTC",
		SignedSize:     decimal.RequireFromString("-0.5"),
		PositionValue:  decimal.NewFromInt(30000),
		EntryPrice:     dec("60000"),
		ReturnOnEquity: dec("0.1859"),
	}
	w := domain.WalletSnapshot{Equity: dec("12345.678"), Withdrawable: dec("10"), Positions: positions}
	recent := []domain.FillEvent{{
		Coin: "BTC", Side: domain.SideBuy, SideLabel: "B",
		Price: domain.NewAmount("60000"), Size: domain.NewAmount("0.1"),
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).UnixMilli(),
	}}

	text := f.Wallet(w, recent)
	assert.Contains(t, text, "Equity: 12,345.68")
	assert.Contains(t, text, "Withdrawable: 10.00")
	assert.Contains(t, text, "• BTC: size=-0.500 value=30,000.00 entry=60,000.00 liq=- ROE=18.59%")
	assert.Contains(t, text, "… and 2 more.")
	assert.NotContains(t, text, "FLAT")
	assert.Contains(t, text, "• 🟢 BTC 0.1@60000 2024-01-02 03:04")
}

func TestFormatterWalletEmpty(t *testing.T) {
	text := NewFormatter("trader", 0, 5).Wallet(domain.WalletSnapshot{}, nil)
	assert.Contains(t, text, "No active positions.")
	assert.NotContains(t, text, "Equity")
	assert.NotContains(t, text, "Fills 24h")
}

func TestFormatterGreeting(t *testing.T) {
	text := NewFormatter("trader", 0, 5).Greeting(30 * time.Second)
	assert.Contains(t, text, "Interval: 30s")
	assert.Contains(t, text, "/wallet")
	assert.Contains(t, text, "/walletdebug")
}
