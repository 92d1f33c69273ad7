package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Unknown is the display placeholder for fields the remote payload did not
// carry.
const Unknown = "?"

// millisThreshold separates epoch seconds from epoch milliseconds. Any
// timestamp above it is treated as milliseconds.
const millisThreshold = 10_000_000_000

// Side is the normalized trade direction of a fill.
type Side string

const (
	SideBuy     Side = "BUY"
	SideSell    Side = "SELL"
	SideUnknown Side = "UNKNOWN"
)

// ParseSide maps the exchange's side vocabulary ("B"/"A", "BUY"/"SELL",
// "Open Long", ...) onto a Side.
func ParseSide(label string) Side {
	l := strings.ToUpper(strings.TrimSpace(label))
	switch {
	case l == "B", l == "BUY", l == "BID", strings.HasSuffix(l, "LONG") && strings.HasPrefix(l, "OPEN"),
		strings.HasPrefix(l, "CLOSE") && strings.HasSuffix(l, "SHORT"):
		return SideBuy
	case l == "A", l == "S", l == "SELL", l == "ASK", strings.HasSuffix(l, "SHORT") && strings.HasPrefix(l, "OPEN"),
		strings.HasPrefix(l, "CLOSE") && strings.HasSuffix(l, "LONG"):
		return SideSell
	default:
		return SideUnknown
	}
}

// Amount is a price or size as the exchange sent it: either a JSON string or
// a JSON number. The original text is kept for display; Decimal is only
// meaningful when Numeric is true.
type Amount struct {
	Text    string
	Decimal decimal.Decimal
	Numeric bool
}

// NewAmount builds an Amount from source text, parsing it as a decimal when
// possible. Empty text yields the Unknown placeholder.
func NewAmount(text string) Amount {
	text = strings.TrimSpace(text)
	if text == "" {
		return Amount{Text: Unknown}
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return Amount{Text: text}
	}
	return Amount{Text: text, Decimal: d, Numeric: true}
}

// String returns the amount exactly as received, or "?" when missing.
func (a Amount) String() string {
	if a.Text == "" {
		return Unknown
	}
	return a.Text
}

// FillEvent is the canonical representation of one executed trade on the
// watched account, independent of the payload shape it came from.
type FillEvent struct {
	Coin      string
	Side      Side
	SideLabel string // upper-cased source text, "?" when absent
	Price     Amount
	Size      Amount
	TradeID   string // empty when the record carried no id
	Timestamp int64  // epoch seconds or millis, 0 when absent
	Raw       any
}

// HasTimestamp reports whether the fill carried a usable timestamp.
func (f FillEvent) HasTimestamp() bool { return f.Timestamp > 0 }

// HasTradeID reports whether the fill carried an identifier.
func (f FillEvent) HasTradeID() bool { return f.TradeID != "" }

// IsRaw reports whether the fill lacks both timestamp and identifier and can
// therefore not be deduplicated.
func (f FillEvent) IsRaw() bool { return !f.HasTimestamp() && !f.HasTradeID() }

// Time converts the fill timestamp to a UTC time, accepting both epoch
// seconds and epoch milliseconds. It returns the zero time when absent.
func (f FillEvent) Time() time.Time {
	return EpochToTime(f.Timestamp)
}

// EpochToTime converts an epoch value in seconds or milliseconds to UTC.
func EpochToTime(ts int64) time.Time {
	if ts <= 0 {
		return time.Time{}
	}
	if ts > millisThreshold {
		return time.UnixMilli(ts).UTC()
	}
	return time.Unix(ts, 0).UTC()
}
