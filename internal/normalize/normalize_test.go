package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fillwatch/internal/domain"
)

func mustParse(t *testing.T, s string) Payload {
	t.Helper()
	p, err := Parse([]byte(s))
	require.NoError(t, err)
	return p
}

func TestParseKinds(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{`null`, KindNull},
		{`42`, KindScalar},
		{`"x"`, KindScalar},
		{`[1,2]`, KindList},
		{`{"a":1}`, KindObject},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, mustParse(t, tt.in).Kind)
		})
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte(`{"a":`))
	assert.Error(t, err)
	_, err = Parse([]byte(`[] []`))
	assert.Error(t, err)
}

func TestRecords(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		recs, err := mustParse(t, `[{"coin":"BTC"}]`).Records()
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run("single list field", func(t *testing.T) {
		recs, err := mustParse(t, `{"meta":{"x":1},"whatever":[100,200]}`).Records()
		require.NoError(t, err)
		assert.Len(t, recs, 2)
	})

	t.Run("priority key decides", func(t *testing.T) {
		recs, err := mustParse(t, `{"other":[1],"fills":[1,2,3]}`).Records()
		require.NoError(t, err)
		assert.Len(t, recs, 3)
	})

	t.Run("ambiguous", func(t *testing.T) {
		_, err := mustParse(t, `{"a":[1],"b":[2]}`).Records()
		var sm *domain.SchemaMismatch
		assert.ErrorAs(t, err, &sm)
	})

	t.Run("object without list", func(t *testing.T) {
		_, err := mustParse(t, `{"a":1}`).Records()
		var sm *domain.SchemaMismatch
		assert.ErrorAs(t, err, &sm)
	})

	t.Run("scalar", func(t *testing.T) {
		_, err := mustParse(t, `"nope"`).Records()
		assert.Error(t, err)
	})
}

func TestFillPriorityAndFallthrough(t *testing.T) {
	p := mustParse(t, `[{
		"coin": "", "symbol": "ETH",
		"side": null, "dir": "Open Long",
		"px": 0, "price": "3012.5",
		"sz": "0.25",
		"tid": 0, "tradeId": 12345678901234567,
		"timestamp": false, "ts": 1700000000123
	}]`)
	ev := Fill(p.List[0])

	assert.Equal(t, "ETH", ev.Coin)
	assert.Equal(t, "OPEN LONG", ev.SideLabel)
	assert.Equal(t, domain.SideBuy, ev.Side)
	assert.Equal(t, "3012.5", ev.Price.String())
	assert.True(t, ev.Price.Numeric)
	assert.Equal(t, "0.25", ev.Size.String())
	assert.Equal(t, "12345678901234567", ev.TradeID)
	assert.Equal(t, int64(1700000000123), ev.Timestamp)
	assert.False(t, ev.IsRaw())
}

func TestFillDefaults(t *testing.T) {
	for _, rec := range []any{100, "text", nil, map[string]any{}} {
		ev := Fill(rec)
		assert.Equal(t, domain.Unknown, ev.Coin)
		assert.Equal(t, domain.Unknown, ev.SideLabel)
		assert.Equal(t, domain.SideUnknown, ev.Side)
		assert.Equal(t, "?", ev.Price.String())
		assert.Equal(t, "?", ev.Size.String())
		assert.Empty(t, ev.TradeID)
		assert.Zero(t, ev.Timestamp)
		assert.True(t, ev.IsRaw())
		assert.Equal(t, rec, ev.Raw)
	}
}

func TestFillStringTimestamp(t *testing.T) {
	ev := Fill(map[string]any{"time": "1700000000", "id": "abc"})
	assert.Equal(t, int64(1700000000), ev.Timestamp)
	assert.Equal(t, "abc", ev.TradeID)
}

func TestWallet(t *testing.T) {
	p := mustParse(t, `[{
		"crossMarginSummary": {"accountValueTotal": "1234.5"},
		"withdrawable": "200.25",
		"assetPositions": [
			{"position": {"coin": "BTC", "szi": "-0.5", "entryPx": "60000", "liqPx": null,
			              "returnOnEquity": "0.1859", "positionValue": "30000"}},
			{"perpPosition": {"size": 0}, "asset": "SOL", "positionValue": "0"},
			{"coin": "DOGE", "sz": "100", "posValue": "12"}
		]
	}]`)
	obj, err := p.AccountObject()
	require.NoError(t, err)
	w := Wallet(obj)

	require.NotNil(t, w.Equity)
	assert.True(t, w.Equity.Equal(decimal.RequireFromString("1234.5")))
	require.NotNil(t, w.Withdrawable)
	assert.True(t, w.Withdrawable.Equal(decimal.RequireFromString("200.25")))
	require.Len(t, w.Positions, 3)

	btc := w.Positions[0]
	assert.Equal(t, "BTC", btc.Coin)
	assert.True(t, btc.SignedSize.Equal(decimal.RequireFromString("-0.5")))
	require.NotNil(t, btc.EntryPrice)
	assert.Nil(t, btc.LiquidationPrice)
	require.NotNil(t, btc.ReturnOnEquity)
	assert.True(t, btc.Active())

	sol := w.Positions[1]
	assert.Equal(t, "SOL", sol.Coin)
	assert.False(t, sol.Active())

	doge := w.Positions[2]
	assert.Equal(t, "DOGE", doge.Coin)
	assert.True(t, doge.PositionValue.Equal(decimal.NewFromInt(12)))
	assert.True(t, doge.Active())
}

func TestWalletEmpty(t *testing.T) {
	assert.True(t, Wallet(nil).Empty())
	assert.True(t, Wallet(map[string]any{}).Empty())
}

func TestWalletDebug(t *testing.T) {
	dbg := WalletDebug(mustParse(t, `{"marginSummary":{"accountValue":"1"},"withdrawable":"2","extra":true}`))
	assert.Contains(t, dbg, "marginSummary")
	assert.Contains(t, dbg, "withdrawable")
	assert.Contains(t, dbg, "assetPositions")
	assert.NotContains(t, dbg, "extra")

	dbg = WalletDebug(mustParse(t, `"oops"`))
	assert.Equal(t, map[string]any{"raw": "oops"}, dbg)
}
