package monitor

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"StockSentinel/internal/model"
)

func TestObserveScan(t *testing.T) {
	pm := NewPrometheusMetrics()
	before := testutil.ToFloat64(scanTotal)
	beforeAlerts := testutil.ToFloat64(alertTotal.WithLabelValues("SUPPORT_BREACH", "CRITICAL"))
	beforeSkipped := testutil.ToFloat64(tickerOutcome.WithLabelValues(OutcomeSkipped))

	start := time.Unix(1700000000, 0)
	pm.ObserveScan(&model.ScanResult{
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		Alerts:     []model.AlertEvent{{Kind: model.AlertSupportBreach, Severity: model.SeverityCritical}},
		Metrics:    map[model.Ticker]*model.MetricsRecord{"600519.SS": {}},
		Skipped:    []model.Ticker{"00700.HK"},
	})

	assert.Equal(t, before+1, testutil.ToFloat64(scanTotal))
	assert.Equal(t, beforeAlerts+1, testutil.ToFloat64(alertTotal.WithLabelValues("SUPPORT_BREACH", "CRITICAL")))
	assert.Equal(t, beforeSkipped+1, testutil.ToFloat64(tickerOutcome.WithLabelValues(OutcomeSkipped)))
	assert.Equal(t, float64(start.Add(2*time.Second).Unix()), testutil.ToFloat64(lastScan))

	pm.SetListSizes(3, 1)
	assert.Equal(t, 3.0, testutil.ToFloat64(watchSize.WithLabelValues("watch")))
}
