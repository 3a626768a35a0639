package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"StockSentinel/internal/cache"
	"StockSentinel/internal/calculator"
	"StockSentinel/internal/model"
)

const (
	DefaultLookbackDays = 730
	DefaultHistoryTTL   = time.Hour
)

var shanghai = calculator.NewTwoSessionCalendar().Location

// HistoryProvider serves cached daily series with moving-average columns.
// Only raw bars are cached; MA columns are rebuilt per call.
type HistoryProvider struct {
	Now func() time.Time

	fetcher BarFetcher
	cache   *cache.Cache[[]model.OHLCV]
	ttl     time.Duration
}

// NewHistoryProvider wraps fetcher with a cache of the given TTL.
func NewHistoryProvider(fetcher BarFetcher, ttl time.Duration, opts ...cache.Option) *HistoryProvider {
	if ttl <= 0 {
		ttl = DefaultHistoryTTL
	}
	return &HistoryProvider{
		Now:     time.Now,
		fetcher: fetcher,
		cache:   cache.New[[]model.OHLCV](opts...),
		ttl:     ttl,
	}
}

// GetHistory returns the series for t over lookbackDays. An empty series
// means the ticker is unsupported or the source failed.
func (p *HistoryProvider) GetHistory(ctx context.Context, t model.Ticker, lookbackDays int) *model.Series {
	s, err := p.Load(ctx, t, lookbackDays)
	if err != nil {
		zap.L().Warn("history unavailable", zap.String("ticker", t.String()), zap.Error(err))
	}
	return s
}

// GetIndexHistory returns the benchmark series. Indices share the stock path.
func (p *HistoryProvider) GetIndexHistory(ctx context.Context, index model.Ticker, lookbackDays int) *model.Series {
	return p.GetHistory(ctx, index, lookbackDays)
}

// Load is GetHistory with the failure reason kept. The series is never nil.
func (p *HistoryProvider) Load(ctx context.Context, t model.Ticker, lookbackDays int) (*model.Series, error) {
	s := &model.Series{Symbol: t}
	if t.IsHK() || !t.Valid() {
		return s, nil
	}
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	key := fmt.Sprintf("history:%s:%d", t, lookbackDays)
	bars, err := p.cache.Get(ctx, key, p.ttl, func(ctx context.Context) ([]model.OHLCV, error) {
		end := p.Now()
		start := end.AddDate(0, 0, -lookbackDays)
		return p.fetcher.FetchDailyBars(ctx, t, start, end)
	})
	if err != nil {
		return s, err
	}
	s.Bars = settledBars(bars, p.Now())
	calculator.AppendMAs(s)
	return s, nil
}

// settledBars copies bars, dropping today's bar until the 15:00 close.
// The feed reports the running session as a daily bar.
func settledBars(bars []model.OHLCV, now time.Time) []model.OHLCV {
	now = now.In(shanghai)
	closeAt := time.Date(now.Year(), now.Month(), now.Day(), 15, 0, 0, 0, shanghai)
	today := now.Format("2006-01-02")
	out := make([]model.OHLCV, 0, len(bars))
	for _, b := range bars {
		if now.Before(closeAt) && b.Time.Format("2006-01-02") == today {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Invalidate drops the cached bars for t.
func (p *HistoryProvider) Invalidate(t model.Ticker, lookbackDays int) {
	p.cache.Invalidate(fmt.Sprintf("history:%s:%d", t, lookbackDays))
}
