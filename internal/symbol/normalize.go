// Package symbol translates canonical tickers into the symbol formats of the
// quote and history sources and resolves benchmark indexes and display names.
package symbol

import (
	"strings"

	"StockSentinel/internal/model"
)

// Target selects the external system a symbol is built for.
type Target int

const (
	TargetSina Target = iota
	TargetHistory
)

// Normalize converts a canonical ticker into the symbol used by target:
//
//	600519.SS -> sh600519 (sina) / sh.600519 (history)
//	00700.HK  -> hk00700  (sina) / 00700.HK (history, unsupported)
//
// Malformed input is returned unchanged.
func Normalize(t model.Ticker, target Target) string {
	code, ex, ok := t.Split()
	if !ok {
		return string(t)
	}
	if ex == model.ExchangeHongKong {
		if target == TargetSina {
			return "hk" + code
		}
		return string(t)
	}
	prefix := "sz"
	if ex == model.ExchangeShanghai {
		prefix = "sh"
	}
	switch target {
	case TargetSina:
		return prefix + code
	case TargetHistory:
		return prefix + "." + code
	}
	return string(t)
}

// Denormalize is the inverse of Normalize for sina and history symbols.
// Unrecognised symbols are returned as a ticker unchanged.
func Denormalize(s string) model.Ticker {
	lower := strings.ToLower(s)
	var prefix, code string
	switch {
	case strings.HasPrefix(lower, "sh.") || strings.HasPrefix(lower, "sz."):
		prefix, code = lower[:2], s[3:]
	case strings.HasPrefix(lower, "sh") || strings.HasPrefix(lower, "sz") || strings.HasPrefix(lower, "hk"):
		prefix, code = lower[:2], s[2:]
	default:
		return model.Ticker(s)
	}
	if code == "" || strings.Contains(code, ".") {
		return model.Ticker(s)
	}
	switch prefix {
	case "sh":
		return model.Ticker(code + ".SS")
	case "sz":
		return model.Ticker(code + ".SZ")
	default:
		return model.Ticker(code + ".HK")
	}
}
