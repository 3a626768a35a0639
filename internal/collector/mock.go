package collector

import (
	"context"
	"sync/atomic"
	"time"

	"StockSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price  float64
	Quotes map[model.Ticker]model.Quote
	Bars   map[model.Ticker][]model.OHLCV
	Err    error
	// Delay stalls each quote read; a context deadline shorter than Delay
	// yields the zero Quote.
	Delay time.Duration

	barCalls atomic.Int32
}

func (m *MockFetcher) Name() string { return "mock" }

// BarCalls reports how many times FetchDailyBars ran.
func (m *MockFetcher) BarCalls() int { return int(m.barCalls.Load()) }

func (m *MockFetcher) FetchDailyBars(_ context.Context, t model.Ticker, start, end time.Time) ([]model.OHLCV, error) {
	m.barCalls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	if bars, ok := m.Bars[t]; ok {
		return bars, nil
	}
	if m.Price <= 0 {
		return nil, nil
	}
	return generateMockBars(m.Price, start, end), nil
}

func (m *MockFetcher) FetchOne(ctx context.Context, t model.Ticker) model.Quote {
	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return model.Quote{Ticker: t}
		case <-time.After(m.Delay):
		}
	}
	if q, ok := m.Quotes[t]; ok {
		q.Ticker = t
		return q
	}
	if m.Quotes == nil && m.Price > 0 {
		return model.Quote{Ticker: t, Price: m.Price, PrevClose: m.Price, Volume: 1000000}
	}
	return model.Quote{Ticker: t}
}

func (m *MockFetcher) FetchBatch(ctx context.Context, tickers []model.Ticker) map[model.Ticker]model.Quote {
	out := make(map[model.Ticker]model.Quote, len(tickers))
	for _, t := range tickers {
		out[t] = m.FetchOne(ctx, t)
	}
	return out
}

func generateMockBars(basePrice float64, start, end time.Time) []model.OHLCV {
	var bars []model.OHLCV
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	for i := 0; !day.After(end); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		p := basePrice * (1 + float64(i%20-10)*0.001)
		bars = append(bars, model.OHLCV{
			Time:   day,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		})
		i++
	}
	return bars
}
