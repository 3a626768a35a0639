// Package strategy turns quotes and metrics into alerts for watched and held
// tickers.
package strategy

import "StockSentinel/internal/model"

// Input is everything the evaluator needs for one ticker. Watch and Holding
// are nil when the ticker is not on that list.
type Input struct {
	Ticker     model.Ticker
	Name       string
	Quote      model.Quote
	Metrics    *model.MetricsRecord
	Watch      *model.WatchEntry
	Holding    *model.HoldingEntry
	Thresholds model.Thresholds
}

func (in Input) alert(kind model.AlertKind, sev model.Severity, v float64, msg string) model.AlertEvent {
	name := in.Name
	if name == "" {
		name = string(in.Ticker)
	}
	return model.AlertEvent{Ticker: in.Ticker, Name: name, Kind: kind, Message: msg, Severity: sev, Value: v}
}

// Evaluate returns watch alerts followed by holding alerts.
func Evaluate(in Input) []model.AlertEvent {
	if in.Name == "" {
		in.Name = string(in.Ticker)
	}
	var out []model.AlertEvent
	if a, ok := EvaluateWatch(in); ok {
		out = append(out, a)
	}
	return append(out, EvaluateHolding(in)...)
}

// EvaluateWatch applies the single rule selected by the watch strategy.
func EvaluateWatch(in Input) (model.AlertEvent, bool) {
	if in.Watch == nil {
		return model.AlertEvent{}, false
	}
	switch in.Watch.Strategy {
	case model.StrategyShort:
		return shortMove(in)
	case model.StrategyBand:
		return bandBreak(in)
	case model.StrategyMarket:
		return marketDiscount(in)
	}
	return model.AlertEvent{}, false
}

// EvaluateHolding applies the risk rules. A support breach outranks the
// profit and loss rules and is reported alone.
func EvaluateHolding(in Input) []model.AlertEvent {
	if in.Holding == nil || !in.Quote.Available() {
		return nil
	}
	h := *in.Holding
	if a, ok := supportBreach(in, h); ok {
		return []model.AlertEvent{a}
	}
	var out []model.AlertEvent
	if a, ok := takeProfit(in, h); ok {
		out = append(out, a)
	}
	if a, ok := stopLoss(in, h); ok {
		out = append(out, a)
	}
	return out
}
