package strategy

import (
	"fmt"
	"math"

	"StockSentinel/internal/model"
)

// shortMove fires when the absolute change exceeds the short threshold.
func shortMove(in Input) (model.AlertEvent, bool) {
	chg := in.Quote.ChangePct
	if !in.Quote.Available() || math.Abs(chg) <= in.Thresholds.Short {
		return model.AlertEvent{}, false
	}
	return in.alert(model.AlertShortMove, model.SeverityWarning, chg,
		fmt.Sprintf("⚡ %s 异动 %.2f%%", in.Name, chg)), true
}

// bandBreak fires when price sits further below MA20 than the band threshold.
func bandBreak(in Input) (model.AlertEvent, bool) {
	if in.Metrics == nil || !in.Metrics.MA20Dev.OK {
		return model.AlertEvent{}, false
	}
	dev := in.Metrics.MA20Dev.V
	if dev >= in.Thresholds.Band {
		return model.AlertEvent{}, false
	}
	return in.alert(model.AlertBandBreak, model.SeverityInfo, dev,
		fmt.Sprintf("🌊 %s 击穿MA20 %.1f%%", in.Name, dev)), true
}

// marketDiscount fires when the index premium is below the market threshold.
// The message shows the discount as a positive magnitude.
func marketDiscount(in Input) (model.AlertEvent, bool) {
	if in.Metrics == nil || !in.Metrics.IndexPremium.OK {
		return model.AlertEvent{}, false
	}
	prem := in.Metrics.IndexPremium.V
	if prem >= in.Thresholds.Market {
		return model.AlertEvent{}, false
	}
	return in.alert(model.AlertMarketDiscount, model.SeverityInfo, prem,
		fmt.Sprintf("⚓ %s 低估 %.1f%%", in.Name, -prem)), true
}

func supportBreach(in Input, h model.HoldingEntry) (model.AlertEvent, bool) {
	p := in.Quote.Price
	if h.Support <= 0 || p >= h.Support {
		return model.AlertEvent{}, false
	}
	return in.alert(model.AlertSupportBreach, model.SeverityCritical, p,
		fmt.Sprintf("🚨 %s 跌破支撑位! %.2f<%.2f", in.Name, p, h.Support)), true
}

func takeProfit(in Input, h model.HoldingEntry) (model.AlertEvent, bool) {
	pct, ok := h.ProfitPct(in.Quote.Price)
	if !ok || pct < h.ProfitTarget {
		return model.AlertEvent{}, false
	}
	return in.alert(model.AlertTakeProfit, model.SeverityWarning, pct,
		fmt.Sprintf("💰 %s 止盈达标! %.1f%%", in.Name, pct)), true
}

func stopLoss(in Input, h model.HoldingEntry) (model.AlertEvent, bool) {
	pct, ok := h.ProfitPct(in.Quote.Price)
	if !ok || pct > h.LossLimit {
		return model.AlertEvent{}, false
	}
	return in.alert(model.AlertStopLoss, model.SeverityWarning, pct,
		fmt.Sprintf("😭 %s 触及止损! %.1f%%", in.Name, pct)), true
}
