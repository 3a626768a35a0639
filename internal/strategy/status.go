package strategy

import (
	"math"

	"StockSentinel/internal/model"
)

// Status is the display state of a holding.
type Status string

const (
	StatusHold       Status = "🟢 持有"
	StatusBreach     Status = "🚨 破位卖出"
	StatusTakeProfit Status = "💰 止盈卖出"
	StatusStopLoss   Status = "😭 止损卖出"
)

// Urgent reports whether the status asks the user to sell.
func (s Status) Urgent() bool { return s == StatusBreach || s == StatusStopLoss }

// HoldingStatus returns the highest-precedence status at price together with
// the profit percentage, 0 without a cost basis.
func HoldingStatus(h model.HoldingEntry, price float64) (Status, float64) {
	pct, hasCost := h.ProfitPct(price)
	switch {
	case h.Support > 0 && price < h.Support:
		return StatusBreach, pct
	case hasCost && pct >= h.ProfitTarget:
		return StatusTakeProfit, pct
	case hasCost && pct <= h.LossLimit:
		return StatusStopLoss, pct
	}
	return StatusHold, pct
}

// Watch table signal tags.
const (
	SignalMove        = "⚡ 异动"
	SignalOpportunity = "🌊 机会"
)

// Signal returns the watch-table tag for a row, empty when nothing stands out.
func Signal(strategy model.Strategy, q model.Quote, m *model.MetricsRecord, th model.Thresholds) string {
	switch strategy {
	case model.StrategyShort:
		if q.Available() && math.Abs(q.ChangePct) > th.Short {
			return SignalMove
		}
	case model.StrategyBand:
		if m != nil && m.MA20Dev.OK && m.MA20Dev.V < th.Band {
			return SignalOpportunity
		}
	}
	return ""
}
