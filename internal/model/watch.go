package model

// Strategy selects which watch rule applies to a ticker.
type Strategy string

const (
	StrategyShort  Strategy = "short"
	StrategyBand   Strategy = "band"
	StrategyMarket Strategy = "market"
)

// legacyStrategies maps the labels stored by earlier versions of the watch file.
var legacyStrategies = map[string]Strategy{
	"⚡ 短线": StrategyShort,
	"🌊 波段": StrategyBand,
	"⚓ 大盘": StrategyMarket,
	"短线":   StrategyShort,
	"波段":   StrategyBand,
	"大盘":   StrategyMarket,
}

// ParseStrategy accepts canonical names and legacy labels. Unknown values fall
// back to the band strategy.
func ParseStrategy(s string) Strategy {
	switch Strategy(s) {
	case StrategyShort, StrategyBand, StrategyMarket:
		return Strategy(s)
	}
	if st, ok := legacyStrategies[s]; ok {
		return st
	}
	return StrategyBand
}

// Label returns the display label.
func (s Strategy) Label() string {
	switch s {
	case StrategyShort:
		return "⚡ 短线"
	case StrategyMarket:
		return "⚓ 大盘"
	default:
		return "🌊 波段"
	}
}

// WatchEntry drives the watch rule for a ticker.
type WatchEntry struct {
	Strategy Strategy `json:"strategy"`
}

// HoldingEntry drives the risk rules for a held ticker. Cost 0 means no cost
// basis was entered.
type HoldingEntry struct {
	Cost         float64 `json:"cost"`
	ProfitTarget float64 `json:"profit_target"`
	LossLimit    float64 `json:"loss_limit"`
	Support      float64 `json:"support"`
}

// DefaultHolding is the entry created when a ticker is first added as a holding.
func DefaultHolding() HoldingEntry {
	return HoldingEntry{Cost: 0, ProfitTarget: 20, LossLimit: -10, Support: 0}
}

// ProfitPct returns the profit percentage against cost. ok is false when no
// cost basis is set.
func (h HoldingEntry) ProfitPct(price float64) (pct float64, ok bool) {
	if h.Cost <= 0 {
		return 0, false
	}
	return (price - h.Cost) / h.Cost * 100, true
}

// Thresholds are signed percentages. Short is a magnitude; Band and Market are
// negative and trigger when the metric falls below them.
type Thresholds struct {
	Short  float64 `json:"short"`
	Band   float64 `json:"band"`
	Market float64 `json:"market"`
}

// DefaultThresholds returns the built-in thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Short: 3.0, Band: -5.0, Market: -8.0}
}
