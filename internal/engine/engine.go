// Package engine derives MA deviations, volume ratio and index premium for a
// ticker from its quote and daily history.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"StockSentinel/internal/calculator"
	"StockSentinel/internal/collector"
	"StockSentinel/internal/model"
	"StockSentinel/internal/symbol"
)

// ErrMetricsUnavailable means the record could not be built this cycle and
// alert evaluation for the ticker should be skipped.
var ErrMetricsUnavailable = errors.New("metrics unavailable")

// HistorySource supplies daily series. Empty means unsupported or failed.
type HistorySource interface {
	GetHistory(ctx context.Context, t model.Ticker, lookbackDays int) *model.Series
	GetIndexHistory(ctx context.Context, index model.Ticker, lookbackDays int) *model.Series
}

// Engine computes MetricsRecords.
type Engine struct {
	history  HistorySource
	calendar calculator.TradingCalendar
	now      func() time.Time
	lookback int
}

// Option configures an Engine.
type Option func(*Engine)

// WithCalendar replaces the two-session trading calendar.
func WithCalendar(c calculator.TradingCalendar) Option { return func(e *Engine) { e.calendar = c } }

// WithClock sets the time source used for elapsed trading minutes.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithLookback sets the history window in calendar days.
func WithLookback(days int) Option { return func(e *Engine) { e.lookback = days } }

// New creates an Engine over history.
func New(history HistorySource, opts ...Option) *Engine {
	e := &Engine{
		history:  history,
		calendar: calculator.NewTwoSessionCalendar(),
		now:      time.Now,
		lookback: collector.DefaultLookbackDays,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Compute builds the record for t at price and today's traded volume.
// An empty own history yields a record with every metric unknown, which is a
// valid result and not an error.
func (e *Engine) Compute(ctx context.Context, t model.Ticker, price, volume float64) (rec *model.MetricsRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("metrics computation panicked", zap.String("ticker", t.String()), zap.Any("panic", r))
			rec, err = nil, fmt.Errorf("%w: %s: %v", ErrMetricsUnavailable, t, r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMetricsUnavailable, t, err)
	}

	idxCode, idxName := symbol.ResolveIndex(t)
	own := e.history.GetHistory(ctx, t, e.lookback)
	rec = &model.MetricsRecord{Ticker: t, IndexName: idxName, IndexCode: idxCode, History: own}
	if own.Empty() {
		return rec, nil
	}

	for _, w := range model.MAWindows {
		d, ok := calculator.Deviation(price, own.LastMA(w))
		v := model.Unknown
		if ok {
			v = model.Known(d)
		}
		setMADev(rec, w, v)
	}

	elapsed := e.calendar.ElapsedMinutes(e.now())
	rec.VolumeRatio = model.Known(calculator.VolumeRatio(volume, own.Volumes(), elapsed))

	index := e.history.GetIndexHistory(ctx, idxCode, e.lookback)
	if p, ok := calculator.IndexPremium(price, own, index); ok {
		rec.IndexPremium = model.Known(p)
	}
	return rec, nil
}

func setMADev(rec *model.MetricsRecord, window int, v model.Value) {
	switch window {
	case 10:
		rec.MA10Dev = v
	case 20:
		rec.MA20Dev = v
	case 30:
		rec.MA30Dev = v
	case 60:
		rec.MA60Dev = v
	}
}
