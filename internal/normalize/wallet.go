package normalize

import "github.com/alanyoungcy/fillwatch/internal/domain"

// Wallet converts an account state object into a WalletSnapshot.
func Wallet(obj map[string]any) domain.WalletSnapshot {
	var w domain.WalletSnapshot
	if obj == nil {
		return w
	}

	if margin := object(obj, "marginSummary", "crossMarginSummary"); margin != nil {
		if v, ok := first(margin, "accountValue", "accountValueTotal"); ok {
			w.Equity = numberPtr(v)
		}
	}
	if v, ok := obj["withdrawable"]; ok && v != nil {
		w.Withdrawable = numberPtr(v)
	}

	list, _ := obj["assetPositions"].([]any)
	for _, item := range list {
		ap, ok := item.(map[string]any)
		if !ok {
			continue
		}
		w.Positions = append(w.Positions, position(ap))
	}
	return w
}

func position(ap map[string]any) domain.Position {
	core := object(ap, "position", "perpPosition")
	if core == nil {
		core = ap
	}

	p := domain.Position{Coin: domain.Unknown}
	if v, ok := first(core, "coin"); ok {
		p.Coin = text(v)
	} else if v, ok := first(ap, "coin", "asset", "symbol"); ok {
		p.Coin = text(v)
	}
	if v, ok := first(core, "szi", "size", "positionSize", "sz"); ok {
		p.SignedSize, _ = number(v)
	}

	pv, ok := first(core, "positionValue")
	if !ok {
		pv, ok = first(ap, "positionValue")
	}
	if !ok {
		pv, ok = first(core, "posValue")
	}
	if ok {
		p.PositionValue, _ = number(pv)
	}

	if v, ok := first(core, "entryPx", "entry", "entryPrice"); ok {
		p.EntryPrice = numberPtr(v)
	}
	if v, ok := first(core, "liqPx", "liquidationPx", "liq"); ok {
		p.LiquidationPrice = numberPtr(v)
	}
	if v, ok := first(core, "returnOnEquity", "roe", "ROE"); ok {
		p.ReturnOnEquity = numberPtr(v)
	}
	return p
}

// WalletDebug selects the raw sub-objects of an account state payload that
// matter when diagnosing wallet parsing. Payloads without an account object
// are returned whole under "raw".
func WalletDebug(p Payload) map[string]any {
	obj, err := p.AccountObject()
	if err != nil {
		var raw any
		switch p.Kind {
		case KindList:
			raw = p.List
		case KindObject:
			raw = p.Object
		case KindScalar:
			raw = p.Scalar
		}
		return map[string]any{"raw": raw}
	}
	return map[string]any{
		"marginSummary":  obj["marginSummary"],
		"withdrawable":   obj["withdrawable"],
		"assetPositions": obj["assetPositions"],
	}
}
