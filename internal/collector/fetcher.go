package collector

import (
	"context"
	"errors"
	"time"

	"StockSentinel/internal/model"
)

var (
	// ErrFeedUnavailable wraps transport failures, timeouts and non-200 replies.
	ErrFeedUnavailable = errors.New("feed unavailable")
	// ErrMalformedLine marks a quote line that is short or not numeric.
	ErrMalformedLine = errors.New("malformed quote line")
)

// QuoteFetcher reads realtime quotes. Failures degrade to the zero Quote.
type QuoteFetcher interface {
	FetchOne(ctx context.Context, t model.Ticker) model.Quote
	FetchBatch(ctx context.Context, tickers []model.Ticker) map[model.Ticker]model.Quote
}

// BarFetcher retrieves daily bars for a ticker between two days inclusive.
type BarFetcher interface {
	FetchDailyBars(ctx context.Context, t model.Ticker, start, end time.Time) ([]model.OHLCV, error)
	Name() string
}

// Reconnector is implemented by sources whose upstream sessions expire.
type Reconnector interface {
	Reconnect(ctx context.Context) error
}
