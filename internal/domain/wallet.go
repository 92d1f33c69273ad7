package domain

import "github.com/shopspring/decimal"

// Position is one perpetual position reported in the account state.
// Optional numbers are nil when the exchange omitted them.
type Position struct {
	Coin             string
	SignedSize       decimal.Decimal
	EntryPrice       *decimal.Decimal
	LiquidationPrice *decimal.Decimal
	ReturnOnEquity   *decimal.Decimal
	PositionValue    decimal.Decimal
}

// Active reports whether the position is open: a non-zero signed size or a
// positive notional value.
func (p Position) Active() bool {
	return !p.SignedSize.IsZero() || p.PositionValue.IsPositive()
}

// WalletSnapshot is the account-level view used by the manual snapshot
// command. All fields are unset when the account state could not be fetched.
type WalletSnapshot struct {
	Equity       *decimal.Decimal
	Withdrawable *decimal.Decimal
	Positions    []Position
}

// Empty reports whether no information was obtained.
func (w WalletSnapshot) Empty() bool {
	return w.Equity == nil && w.Withdrawable == nil && len(w.Positions) == 0
}
