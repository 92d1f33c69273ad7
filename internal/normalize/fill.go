package normalize

import (
	"strings"

	"github.com/alanyoungcy/fillwatch/internal/domain"
)

var (
	coinKeys  = []string{"coin", "symbol", "asset"}
	sideKeys  = []string{"side", "dir"}
	priceKeys = []string{"px", "price", "p"}
	sizeKeys  = []string{"sz", "size", "q"}
	idKeys    = []string{"tid", "tradeId", "id"}
	tsKeys    = []string{"timestamp", "ts", "time"}
)

// Fill converts one fill record into a FillEvent. Records that are not
// objects yield an event with every field at its default.
func Fill(record any) domain.FillEvent {
	ev := domain.FillEvent{
		Coin:      domain.Unknown,
		Side:      domain.SideUnknown,
		SideLabel: domain.Unknown,
		Price:     domain.NewAmount(""),
		Size:      domain.NewAmount(""),
		Raw:       record,
	}
	obj, ok := record.(map[string]any)
	if !ok {
		return ev
	}

	if v, ok := first(obj, coinKeys...); ok {
		ev.Coin = text(v)
	}
	if v, ok := first(obj, sideKeys...); ok {
		ev.SideLabel = strings.ToUpper(text(v))
		ev.Side = domain.ParseSide(ev.SideLabel)
	}
	if v, ok := first(obj, priceKeys...); ok {
		ev.Price = domain.NewAmount(text(v))
	}
	if v, ok := first(obj, sizeKeys...); ok {
		ev.Size = domain.NewAmount(text(v))
	}
	if v, ok := first(obj, idKeys...); ok {
		ev.TradeID = text(v)
	}
	if v, ok := first(obj, tsKeys...); ok {
		ev.Timestamp = integer(v)
	}
	return ev
}

// Fills converts every record of a list.
func Fills(records []any) []domain.FillEvent {
	out := make([]domain.FillEvent, 0, len(records))
	for _, r := range records {
		out = append(out, Fill(r))
	}
	return out
}
