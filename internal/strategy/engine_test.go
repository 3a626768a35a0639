package strategy

import (
	"strings"
	"testing"

	"StockSentinel/internal/model"
)

func watchInput(st model.Strategy, q model.Quote, m *model.MetricsRecord) Input {
	return Input{
		Ticker:     "600519.SS",
		Name:       "贵州茅台",
		Quote:      q,
		Metrics:    m,
		Watch:      &model.WatchEntry{Strategy: st},
		Thresholds: model.DefaultThresholds(),
	}
}

func holdingInput(h model.HoldingEntry, price float64) Input {
	return Input{
		Ticker:     "600036.SS",
		Name:       "招商银行",
		Quote:      model.Quote{Ticker: "600036.SS", Price: price, PrevClose: price},
		Holding:    &h,
		Thresholds: model.DefaultThresholds(),
	}
}

func kinds(alerts []model.AlertEvent) []model.AlertKind {
	out := make([]model.AlertKind, len(alerts))
	for i, a := range alerts {
		out[i] = a.Kind
	}
	return out
}

func TestEvaluate_ShortMove(t *testing.T) {
	tests := []struct {
		name  string
		chg   float64
		count int
	}{
		{"up beyond threshold", 5.0, 1},
		{"down beyond threshold", -4.2, 1},
		{"within threshold", 2.0, 0},
		{"at threshold", 3.0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := watchInput(model.StrategyShort, model.Quote{Price: 10, ChangePct: tt.chg}, nil)
			alerts := Evaluate(in)
			if len(alerts) != tt.count {
				t.Fatalf("expected %d alerts, got %d: %v", tt.count, len(alerts), kinds(alerts))
			}
			if tt.count == 1 && alerts[0].Kind != model.AlertShortMove {
				t.Errorf("expected SHORT_MOVE, got %s", alerts[0].Kind)
			}
		})
	}
}

func TestEvaluate_ShortMoveMessage(t *testing.T) {
	in := watchInput(model.StrategyShort, model.Quote{Price: 10, ChangePct: 5}, nil)
	alerts := Evaluate(in)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if want := "⚡ 贵州茅台 异动 5.00%"; alerts[0].Message != want {
		t.Errorf("message = %q, want %q", alerts[0].Message, want)
	}
}

func TestEvaluate_BandBreak(t *testing.T) {
	m := &model.MetricsRecord{MA20Dev: model.Known(-6.5)}
	alerts := Evaluate(watchInput(model.StrategyBand, model.Quote{Price: 10}, m))
	if len(alerts) != 1 || alerts[0].Kind != model.AlertBandBreak {
		t.Fatalf("expected one BAND_BREAK, got %v", kinds(alerts))
	}
	if !strings.Contains(alerts[0].Message, "击穿MA20 -6.5%") {
		t.Errorf("unexpected message %q", alerts[0].Message)
	}

	m.MA20Dev = model.Known(-4.9)
	if alerts := Evaluate(watchInput(model.StrategyBand, model.Quote{Price: 10}, m)); len(alerts) != 0 {
		t.Errorf("expected no alert above threshold, got %v", kinds(alerts))
	}
}

func TestEvaluate_MarketDiscount(t *testing.T) {
	m := &model.MetricsRecord{IndexPremium: model.Known(-9.25)}
	alerts := Evaluate(watchInput(model.StrategyMarket, model.Quote{Price: 10}, m))
	if len(alerts) != 1 || alerts[0].Kind != model.AlertMarketDiscount {
		t.Fatalf("expected one MARKET_DISCOUNT, got %v", kinds(alerts))
	}
	if !strings.Contains(alerts[0].Message, "低估 9.2%") && !strings.Contains(alerts[0].Message, "低估 9.3%") {
		t.Errorf("expected positive discount magnitude, got %q", alerts[0].Message)
	}
}

func TestEvaluate_UnavailableMetricsNeverAlert(t *testing.T) {
	// The zero sentinel would pass a naive "< threshold" check for positive thresholds.
	th := model.Thresholds{Short: 3, Band: 1, Market: 1}
	for _, st := range []model.Strategy{model.StrategyBand, model.StrategyMarket} {
		for _, m := range []*model.MetricsRecord{nil, {}} {
			in := watchInput(st, model.Quote{Price: 10}, m)
			in.Thresholds = th
			if alerts := Evaluate(in); len(alerts) != 0 {
				t.Errorf("%s: expected no alerts without metrics, got %v", st, kinds(alerts))
			}
		}
	}
}

func TestEvaluate_NoCostNoProfitLoss(t *testing.T) {
	h := model.DefaultHolding()
	for _, price := range []float64{0.01, 1, 50, 1e6} {
		for _, a := range Evaluate(holdingInput(h, price)) {
			if a.Kind == model.AlertTakeProfit || a.Kind == model.AlertStopLoss {
				t.Errorf("price %.2f: unexpected %s without cost basis", price, a.Kind)
			}
		}
	}
}

func TestEvaluate_TakeProfitAndStopLoss(t *testing.T) {
	h := model.HoldingEntry{Cost: 100, ProfitTarget: 20, LossLimit: -10}

	alerts := Evaluate(holdingInput(h, 125))
	if len(alerts) != 1 || alerts[0].Kind != model.AlertTakeProfit {
		t.Fatalf("expected TAKE_PROFIT, got %v", kinds(alerts))
	}
	if want := "💰 招商银行 止盈达标! 25.0%"; alerts[0].Message != want {
		t.Errorf("message = %q, want %q", alerts[0].Message, want)
	}

	alerts = Evaluate(holdingInput(h, 88))
	if len(alerts) != 1 || alerts[0].Kind != model.AlertStopLoss {
		t.Fatalf("expected STOP_LOSS, got %v", kinds(alerts))
	}

	if alerts := Evaluate(holdingInput(h, 105)); len(alerts) != 0 {
		t.Errorf("expected no alerts, got %v", kinds(alerts))
	}
}

func TestEvaluate_SupportPrecedence(t *testing.T) {
	for _, limit := range []float64{-10, -20} {
		h := model.HoldingEntry{Cost: 100, ProfitTarget: 20, LossLimit: limit, Support: 90}
		alerts := Evaluate(holdingInput(h, 85))
		if len(alerts) != 1 {
			t.Fatalf("limit %.0f: expected exactly one alert, got %v", limit, kinds(alerts))
		}
		if alerts[0].Kind != model.AlertSupportBreach {
			t.Errorf("expected SUPPORT_BREACH, got %s", alerts[0].Kind)
		}
		if alerts[0].Severity != model.SeverityCritical {
			t.Errorf("expected critical severity, got %s", alerts[0].Severity)
		}
		if want := "🚨 招商银行 跌破支撑位! 85.00<90.00"; alerts[0].Message != want {
			t.Errorf("message = %q, want %q", alerts[0].Message, want)
		}
	}
}

func TestEvaluate_WatchAndHolding(t *testing.T) {
	h := model.HoldingEntry{Cost: 10, ProfitTarget: 20, LossLimit: -10}
	in := watchInput(model.StrategyShort, model.Quote{Price: 13, ChangePct: 6}, nil)
	in.Holding = &h
	got := kinds(Evaluate(in))
	if len(got) != 2 || got[0] != model.AlertShortMove || got[1] != model.AlertTakeProfit {
		t.Errorf("expected [SHORT_MOVE TAKE_PROFIT], got %v", got)
	}
}

func TestEvaluate_NameFallsBackToTicker(t *testing.T) {
	in := watchInput(model.StrategyShort, model.Quote{Price: 10, ChangePct: 9}, nil)
	in.Name = ""
	alerts := Evaluate(in)
	if len(alerts) != 1 || alerts[0].Name != "600519.SS" {
		t.Fatalf("expected ticker as name, got %+v", alerts)
	}
}

func TestHoldingStatus(t *testing.T) {
	tests := []struct {
		name  string
		h     model.HoldingEntry
		price float64
		want  Status
	}{
		{"hold", model.HoldingEntry{Cost: 100, ProfitTarget: 20, LossLimit: -10}, 105, StatusHold},
		{"breach beats stop loss", model.HoldingEntry{Cost: 100, ProfitTarget: 20, LossLimit: -10, Support: 90}, 85, StatusBreach},
		{"take profit", model.HoldingEntry{Cost: 100, ProfitTarget: 20, LossLimit: -10}, 120, StatusTakeProfit},
		{"stop loss", model.HoldingEntry{Cost: 100, ProfitTarget: 20, LossLimit: -10}, 90, StatusStopLoss},
		{"no cost basis", model.DefaultHolding(), 1, StatusHold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := HoldingStatus(tt.h, tt.price); got != tt.want {
				t.Errorf("HoldingStatus = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSignal(t *testing.T) {
	th := model.DefaultThresholds()
	if got := Signal(model.StrategyShort, model.Quote{Price: 1, ChangePct: -3.5}, nil, th); got != SignalMove {
		t.Errorf("short: got %q", got)
	}
	if got := Signal(model.StrategyBand, model.Quote{Price: 1}, &model.MetricsRecord{MA20Dev: model.Known(-7)}, th); got != SignalOpportunity {
		t.Errorf("band: got %q", got)
	}
	if got := Signal(model.StrategyBand, model.Quote{Price: 1}, &model.MetricsRecord{}, th); got != "" {
		t.Errorf("band without metrics: got %q", got)
	}
	if got := Signal(model.StrategyMarket, model.Quote{Price: 1, ChangePct: 9}, nil, th); got != "" {
		t.Errorf("market: got %q", got)
	}
}
