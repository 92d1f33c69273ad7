package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// present reports whether a value counts when resolving alternate keys. Null,
// empty strings, zero numbers, false and empty containers fall through.
func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// first returns the first present value among keys.
func first(obj map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok && present(v) {
			return v, true
		}
	}
	return nil, false
}

// object returns the first present value among keys that is itself an object.
func object(obj map[string]any, keys ...string) map[string]any {
	v, ok := first(obj, keys...)
	if !ok {
		return nil
	}
	m, _ := v.(map[string]any)
	return m
}

// text renders a scalar as display text. Numbers keep their source digits.
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// integer converts a number or numeric string to int64, truncating
// fractions. Unparseable input yields 0.
func integer(v any) int64 {
	s := strings.TrimSpace(text(v))
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.IntPart()
}

// number parses v as a decimal. ok is false when v is absent or not numeric.
func number(v any) (decimal.Decimal, bool) {
	if f, isFloat := v.(float64); isFloat {
		return decimal.NewFromFloat(f), true
	}
	s := strings.TrimSpace(text(v))
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func numberPtr(v any) *decimal.Decimal {
	d, ok := number(v)
	if !ok {
		return nil
	}
	return &d
}
