// Package scanner runs one pass over the watched and held tickers: quote,
// metrics, then alert rules, fanned out over a bounded worker pool.
package scanner

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"StockSentinel/internal/collector"
	"StockSentinel/internal/engine"
	"StockSentinel/internal/model"
	"StockSentinel/internal/store"
	"StockSentinel/internal/strategy"
)

const (
	DefaultWorkers       = 8
	DefaultQuoteTimeout  = 3 * time.Second
	DefaultTickerTimeout = 30 * time.Second
)

// MetricsComputer builds a MetricsRecord. engine.Engine implements it.
type MetricsComputer interface {
	Compute(ctx context.Context, t model.Ticker, price, volume float64) (*model.MetricsRecord, error)
}

// NameResolver maps tickers to display names. symbol.Directory implements it.
type NameResolver interface {
	Name(ctx context.Context, t model.Ticker) string
}

// Observer is told about every finished scan.
type Observer interface {
	ObserveScan(r *model.ScanResult)
}

// Scanner orchestrates scans. It holds no per-scan state and is safe for
// concurrent use.
type Scanner struct {
	quotes        collector.QuoteFetcher
	metrics       MetricsComputer
	names         NameResolver
	observers     []Observer
	workers       int
	quoteTimeout  time.Duration
	tickerTimeout time.Duration
	now           func() time.Time
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithWorkers bounds the number of tickers processed at once.
func WithWorkers(n int) Option { return func(s *Scanner) { s.workers = n } }

// WithQuoteTimeout bounds a single quote read.
func WithQuoteTimeout(d time.Duration) Option { return func(s *Scanner) { s.quoteTimeout = d } }

// WithTickerTimeout bounds the whole pipeline of one ticker.
func WithTickerTimeout(d time.Duration) Option { return func(s *Scanner) { s.tickerTimeout = d } }

// WithNames sets the display name resolver.
func WithNames(n NameResolver) Option { return func(s *Scanner) { s.names = n } }

// WithObserver adds a scan observer.
func WithObserver(o Observer) Option { return func(s *Scanner) { s.observers = append(s.observers, o) } }

// WithClock sets the scan timestamp source.
func WithClock(now func() time.Time) Option { return func(s *Scanner) { s.now = now } }

// New creates a Scanner.
func New(quotes collector.QuoteFetcher, metrics MetricsComputer, opts ...Option) *Scanner {
	s := &Scanner{
		quotes:        quotes,
		metrics:       metrics,
		workers:       DefaultWorkers,
		quoteTimeout:  DefaultQuoteTimeout,
		tickerTimeout: DefaultTickerTimeout,
		now:           time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.workers < 1 {
		s.workers = 1
	}
	return s
}

type outcome struct {
	ticker      model.Ticker
	quote       model.Quote
	metrics     *model.MetricsRecord
	alerts      []model.AlertEvent
	skipped     bool
	unavailable bool
}

// RunScan evaluates every ticker in doc. It always completes; tickers that
// fail are reported in Skipped or Unavailable. Alerts are ordered by ticker,
// watch rules before holding rules.
func (s *Scanner) RunScan(ctx context.Context, doc *store.Document) *model.ScanResult {
	res := &model.ScanResult{
		ID:        uuid.NewString(),
		StartedAt: s.now(),
		Metrics:   make(map[model.Ticker]*model.MetricsRecord),
		Quotes:    make(map[model.Ticker]model.Quote),
	}
	tickers := doc.Tickers()

	jobs := make(chan int)
	outcomes := make([]outcome, len(tickers))
	var wg sync.WaitGroup
	workers := s.workers
	if workers > len(tickers) {
		workers = len(tickers)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = s.scanOne(ctx, doc, tickers[i])
			}
		}()
	}
	for i := range tickers {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, o := range outcomes {
		switch {
		case o.skipped:
			res.Skipped = append(res.Skipped, o.ticker)
			continue
		case o.unavailable:
			res.Unavailable = append(res.Unavailable, o.ticker)
			res.Quotes[o.ticker] = o.quote
			continue
		}
		res.Quotes[o.ticker] = o.quote
		res.Metrics[o.ticker] = o.metrics
		res.Alerts = append(res.Alerts, o.alerts...)
	}
	res.FinishedAt = s.now()

	zap.L().Info("scan finished",
		zap.String("scan_id", res.ID),
		zap.Int("tickers", len(tickers)),
		zap.Int("alerts", len(res.Alerts)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Int("unavailable", len(res.Unavailable)),
		zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)))
	for _, o := range s.observers {
		o.ObserveScan(res)
	}
	return res
}

func (s *Scanner) scanOne(parent context.Context, doc *store.Document, t model.Ticker) (out outcome) {
	out.ticker = t
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("ticker pipeline panicked", zap.String("ticker", t.String()), zap.Any("panic", r))
			out = outcome{ticker: t, quote: out.quote, unavailable: out.quote.Available(), skipped: !out.quote.Available()}
		}
	}()

	ctx, cancel := context.WithTimeout(parent, s.tickerTimeout)
	defer cancel()

	qctx, qcancel := context.WithTimeout(ctx, s.quoteTimeout)
	out.quote = s.quotes.FetchOne(qctx, t)
	qcancel()
	out.quote.Ticker = t
	if !out.quote.Available() {
		out.skipped = true
		return out
	}

	rec, err := s.metrics.Compute(ctx, t, out.quote.Price, out.quote.Volume)
	if err != nil {
		if !errors.Is(err, engine.ErrMetricsUnavailable) {
			zap.L().Warn("unexpected metrics error", zap.String("ticker", t.String()), zap.Error(err))
		}
		out.unavailable = true
		return out
	}
	out.metrics = rec

	in := strategy.Input{
		Ticker:     t,
		Name:       s.name(ctx, t),
		Quote:      out.quote,
		Metrics:    rec,
		Thresholds: doc.Thresholds,
	}
	if w, ok := doc.WatchList[t]; ok {
		in.Watch = &w
	}
	if h, ok := doc.HoldingList[t]; ok {
		in.Holding = &h
	}
	out.alerts = strategy.Evaluate(in)
	return out
}

func (s *Scanner) name(ctx context.Context, t model.Ticker) string {
	if s.names == nil {
		return string(t)
	}
	return s.names.Name(ctx, t)
}

// SortAlerts orders alerts by descending severity, then ticker. The slice is
// sorted in place and returned.
func SortAlerts(alerts []model.AlertEvent) []model.AlertEvent {
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Severity != alerts[j].Severity {
			return alerts[i].Severity > alerts[j].Severity
		}
		return alerts[i].Ticker < alerts[j].Ticker
	})
	return alerts
}
