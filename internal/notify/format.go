package notify

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fillwatch/internal/domain"
)

const (
	timeLayout      = "2006-01-02 15:04:05"
	shortTimeLayout = "2006-01-02 15:04"
	maxPositions    = 10
	noValue         = "-"
)

// Formatter renders notification texts for one watched account.
type Formatter struct {
	account    string
	offset     time.Duration
	summaryCap int
}

// NewFormatter returns a Formatter. Times are shown in UTC shifted by
// offsetHours. Valid hex addresses are shown in checksum form.
func NewFormatter(account string, offsetHours, summaryCap int) *Formatter {
	if common.IsHexAddress(account) {
		account = common.HexToAddress(account).Hex()
	}
	if summaryCap <= 0 {
		summaryCap = 5
	}
	return &Formatter{
		account:    account,
		offset:     time.Duration(offsetHours) * time.Hour,
		summaryCap: summaryCap,
	}
}

// Account returns the display form of the watched address.
func (f *Formatter) Account() string { return f.account }

// Fill renders a single fill alert.
func (f *Formatter) Fill(ev domain.FillEvent) string {
	lines := []string{
		"⚡ Fill detected",
		fmt.Sprintf("Trader: `%s`", f.account),
	}
	if ev.HasTimestamp() {
		lines = append(lines, "Time: "+f.clockTime(ev.Timestamp, timeLayout))
	}
	lines = append(lines,
		"Pair: "+ev.Coin,
		"Side: "+ev.SideLabel,
		"Price: "+ev.Price.String(),
		"Size: "+ev.Size.String(),
	)
	if ev.HasTradeID() {
		lines = append(lines, "Trade ID: "+ev.TradeID)
	}
	return strings.Join(lines, "\n")
}

// Summary renders a digest of many fills: the count, the earliest few in
// chronological order and how many were left out.
func (f *Formatter) Summary(events []domain.FillEvent) string {
	sorted := chronological(events)
	lines := []string{fmt.Sprintf("📬 %d new fills from trader `%s`", len(sorted), f.account)}
	for _, ev := range lo.Slice(sorted, 0, f.summaryCap) {
		lines = append(lines, fmt.Sprintf("- [%s] %s %s sz=%s px=%s",
			f.clockTime(ev.Timestamp, timeLayout), ev.Coin, ev.SideLabel, ev.Size, ev.Price))
	}
	if extra := len(sorted) - f.summaryCap; extra > 0 {
		lines = append(lines, fmt.Sprintf("… and %d more.", extra))
	}
	return strings.Join(lines, "\n")
}

// Wallet renders the manual snapshot: balances, active positions and the
// most recent fills.
func (f *Formatter) Wallet(w domain.WalletSnapshot, recent []domain.FillEvent) string {
	lines := []string{fmt.Sprintf("🔎 Wallet: `%s`", f.account)}
	if w.Equity != nil {
		lines = append(lines, "Equity: "+FormatNumber(*w.Equity, 2))
	}
	if w.Withdrawable != nil {
		lines = append(lines, "Withdrawable: "+FormatNumber(*w.Withdrawable, 2))
	}

	active := lo.Filter(w.Positions, func(p domain.Position, _ int) bool { return p.Active() })
	if len(active) == 0 {
		lines = append(lines, "No active positions.")
	} else {
		lines = append(lines, "Active positions:")
		for _, p := range lo.Slice(active, 0, maxPositions) {
			lines = append(lines, fmt.Sprintf("• %s: size=%s value=%s entry=%s liq=%s ROE=%s",
				p.Coin,
				FormatNumber(p.SignedSize, 3),
				FormatNumber(p.PositionValue, 2),
				formatOptional(p.EntryPrice, 2),
				formatOptional(p.LiquidationPrice, 2),
				formatPercent(p.ReturnOnEquity),
			))
		}
		if extra := len(active) - maxPositions; extra > 0 {
			lines = append(lines, fmt.Sprintf("… and %d more.", extra))
		}
	}

	if len(recent) > 0 {
		lines = append(lines, "Fills 24h (top 5):")
		for _, ev := range recent {
			marker := "🔴"
			if ev.Side == domain.SideBuy || strings.HasPrefix(ev.SideLabel, "B") {
				marker = "🟢"
			}
			lines = append(lines, fmt.Sprintf("• %s %s %s@%s %s",
				marker, ev.Coin, ev.Size, ev.Price, f.clockTime(ev.Timestamp, shortTimeLayout)))
		}
	}
	return strings.Join(lines, "\n")
}

// Startup renders the notice sent when the watcher starts.
func (f *Formatter) Startup() string {
	return "👋 Bot started. Watching trader activity on Hyperliquid."
}

// Greeting renders the reply to /start.
func (f *Formatter) Greeting(interval time.Duration) string {
	return fmt.Sprintf("👋 fillwatch active.\n"+
		"Watching: `%s`\n"+
		"Interval: %s\n\n"+
		"Commands:\n"+
		"• /wallet – manual wallet snapshot\n"+
		"• /walletdebug – raw wallet data (debug)\n", f.account, interval)
}

func (f *Formatter) clockTime(ts int64, layout string) string {
	t := domain.EpochToTime(ts)
	if t.IsZero() {
		return noValue
	}
	return t.Add(f.offset).Format(layout)
}

// chronological returns a copy of events stably sorted by timestamp.
func chronological(events []domain.FillEvent) []domain.FillEvent {
	out := make([]domain.FillEvent, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// FormatNumber renders d with thousands separators and a fixed number of
// decimals.
func FormatNumber(d decimal.Decimal, decimals int32) string {
	s := d.StringFixed(decimals)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + frac
}

func formatOptional(d *decimal.Decimal, decimals int32) string {
	if d == nil {
		return noValue
	}
	return FormatNumber(*d, decimals)
}

func formatPercent(d *decimal.Decimal) string {
	if d == nil {
		return noValue
	}
	return FormatNumber(d.Mul(decimal.NewFromInt(100)), 2) + "%"
}
