// Package dashboard assembles the read-only views shown to the user: market
// strip, sector board, holdings table and watch table.
package dashboard

import (
	"context"
	"sort"

	"StockSentinel/internal/collector"
	"StockSentinel/internal/model"
	"StockSentinel/internal/store"
	"StockSentinel/internal/strategy"
	"StockSentinel/internal/symbol"
)

// Sector is one entry of the sector board, tracked through an ETF.
type Sector struct {
	Name   string
	Ticker model.Ticker
}

// Sectors is the fixed sector board.
var Sectors = []Sector{
	{"酒类/消费", "512690.SS"},
	{"半导体/芯片", "512480.SS"},
	{"新能源", "516160.SS"},
	{"光伏", "515790.SS"},
	{"医药", "512170.SS"},
	{"证券", "512880.SS"},
	{"银行", "512800.SS"},
	{"红利", "510880.SS"},
	{"中概互联", "513050.SS"},
}

// NameResolver maps tickers to display names.
type NameResolver interface {
	Name(ctx context.Context, t model.Ticker) string
}

// IndexRow is one benchmark on the market strip.
type IndexRow struct {
	Name      string       `json:"name"`
	Ticker    model.Ticker `json:"ticker"`
	Price     float64      `json:"price"`
	ChangePct float64      `json:"change_pct"`
}

// SectorRow is one sector's move today.
type SectorRow struct {
	Name      string       `json:"name"`
	Ticker    model.Ticker `json:"ticker"`
	ChangePct float64      `json:"change_pct"`
	Available bool         `json:"available"`
}

// HoldingRow is one line of the holdings table.
type HoldingRow struct {
	Ticker       model.Ticker    `json:"ticker"`
	Name         string          `json:"name"`
	Price        float64         `json:"price"`
	Cost         float64         `json:"cost"`
	ProfitPct    float64         `json:"profit_pct"`
	ProfitTarget float64         `json:"profit_target"`
	LossLimit    float64         `json:"loss_limit"`
	Support      float64         `json:"support"`
	Status       strategy.Status `json:"status"`
}

// WatchRow is one line of the watch table. Metric columns are only filled
// once a scan has produced a record for the ticker.
type WatchRow struct {
	Ticker      model.Ticker   `json:"ticker"`
	Name        string         `json:"name"`
	Strategy    model.Strategy `json:"strategy"`
	Price       float64        `json:"price"`
	ChangePct   float64        `json:"change_pct"`
	VolumeRatio *model.Value   `json:"volume_ratio,omitempty"`
	MA10Dev     *model.Value   `json:"ma10_dev,omitempty"`
	MA20Dev     *model.Value   `json:"ma20_dev,omitempty"`
	MA30Dev     *model.Value   `json:"ma30_dev,omitempty"`
	MA60Dev     *model.Value   `json:"ma60_dev,omitempty"`
	Signal      string         `json:"signal"`
}

// Board reads quotes for the dashboard views.
type Board struct {
	quotes collector.QuoteFetcher
	names  NameResolver
}

// New creates a Board. names may be nil.
func New(quotes collector.QuoteFetcher, names NameResolver) *Board {
	return &Board{quotes: quotes, names: names}
}

func (b *Board) name(ctx context.Context, t model.Ticker) string {
	if b.names == nil {
		return string(t)
	}
	return b.names.Name(ctx, t)
}

// Market quotes the market strip in display order.
func (b *Board) Market(ctx context.Context) []IndexRow {
	tickers := append([]model.Ticker(nil), symbol.MarketStrip...)
	quotes := b.quotes.FetchBatch(ctx, tickers)
	rows := make([]IndexRow, len(tickers))
	for i, t := range tickers {
		q := quotes[t]
		rows[i] = IndexRow{Name: symbol.IndexNames[t], Ticker: t, Price: q.Price, ChangePct: q.ChangePct}
	}
	return rows
}

// SectorBoard quotes every sector, sorted by change ascending as the board
// is drawn bottom to top.
func (b *Board) SectorBoard(ctx context.Context) []SectorRow {
	tickers := make([]model.Ticker, len(Sectors))
	for i, s := range Sectors {
		tickers[i] = s.Ticker
	}
	quotes := b.quotes.FetchBatch(ctx, tickers)
	rows := make([]SectorRow, len(Sectors))
	for i, s := range Sectors {
		q := quotes[s.Ticker]
		rows[i] = SectorRow{Name: s.Name, Ticker: s.Ticker, ChangePct: q.ChangePct, Available: q.Available()}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ChangePct < rows[j].ChangePct })
	return rows
}

// Holdings builds the holdings table. Tickers without a quote are left out.
func (b *Board) Holdings(ctx context.Context, doc *store.Document) []HoldingRow {
	tickers := make([]model.Ticker, 0, len(doc.HoldingList))
	for t := range doc.HoldingList {
		tickers = append(tickers, t)
	}
	sort.Slice(tickers, func(i, j int) bool { return tickers[i] < tickers[j] })
	quotes := b.quotes.FetchBatch(ctx, tickers)

	var rows []HoldingRow
	for _, t := range tickers {
		q := quotes[t]
		if !q.Available() {
			continue
		}
		h := doc.HoldingList[t]
		status, pct := strategy.HoldingStatus(h, q.Price)
		rows = append(rows, HoldingRow{
			Ticker:       t,
			Name:         b.name(ctx, t),
			Price:        q.Price,
			Cost:         h.Cost,
			ProfitPct:    pct,
			ProfitTarget: h.ProfitTarget,
			LossLimit:    h.LossLimit,
			Support:      h.Support,
			Status:       status,
		})
	}
	return rows
}

// WatchTable builds the watch table from fresh quotes and, when last is not
// nil, the metrics of the last scan.
func (b *Board) WatchTable(ctx context.Context, doc *store.Document, last *model.ScanResult) []WatchRow {
	tickers := make([]model.Ticker, 0, len(doc.WatchList))
	for t := range doc.WatchList {
		tickers = append(tickers, t)
	}
	sort.Slice(tickers, func(i, j int) bool { return tickers[i] < tickers[j] })
	quotes := b.quotes.FetchBatch(ctx, tickers)

	rows := make([]WatchRow, 0, len(tickers))
	for _, t := range tickers {
		q := quotes[t]
		st := doc.WatchList[t].Strategy
		row := WatchRow{
			Ticker:    t,
			Name:      b.name(ctx, t),
			Strategy:  st,
			Price:     q.Price,
			ChangePct: q.ChangePct,
		}
		var rec *model.MetricsRecord
		if last != nil {
			rec = last.Metrics[t]
		}
		if rec != nil {
			row.VolumeRatio = valuePtr(rec.VolumeRatio)
			row.MA10Dev = valuePtr(rec.MA10Dev)
			row.MA20Dev = valuePtr(rec.MA20Dev)
			row.MA30Dev = valuePtr(rec.MA30Dev)
			row.MA60Dev = valuePtr(rec.MA60Dev)
			row.Signal = strategy.Signal(st, q, rec, doc.Thresholds)
		}
		rows = append(rows, row)
	}
	return rows
}

func valuePtr(v model.Value) *model.Value { return &v }
