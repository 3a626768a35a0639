package recorder

import (
	"context"
	"time"

	"StockSentinel/internal/model"
)

// ScanSummary is one row of scan history.
type ScanSummary struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	Tickers     int
	Alerts      int
	Skipped     int
	Unavailable int
}

// AlertRecord is a persisted alert together with the scan that raised it.
type AlertRecord struct {
	ScanID    string
	Timestamp time.Time
	model.AlertEvent
}

// Recorder persists scan history for later analysis. Nothing in the scan
// path reads it back.
type Recorder interface {
	RecordScan(ctx context.Context, res *model.ScanResult) error
	RecentScans(ctx context.Context, limit int) ([]ScanSummary, error)
	RecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	Close() error
}
