package recorder

import (
	"context"

	"StockSentinel/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordScan(context.Context, *model.ScanResult) error { return nil }
func (n *NoopRecorder) RecentScans(context.Context, int) ([]ScanSummary, error) {
	return nil, nil
}
func (n *NoopRecorder) RecentAlerts(context.Context, int) ([]AlertRecord, error) {
	return nil, nil
}
func (n *NoopRecorder) Close() error { return nil }
