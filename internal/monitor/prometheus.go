// Package monitor exports scan counters to Prometheus.
package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"StockSentinel/internal/model"
)

var (
	scanTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stocksentinel_scan_total",
			Help: "Total number of completed scans",
		},
	)

	scanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stocksentinel_scan_duration_seconds",
			Help:    "Wall time of a scan in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	alertTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocksentinel_alert_total",
			Help: "Total number of alerts emitted",
		},
		[]string{"kind", "severity"},
	)

	tickerOutcome = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocksentinel_ticker_total",
			Help: "Tickers processed per scan by outcome",
		},
		[]string{"outcome"},
	)

	lastScan = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stocksentinel_last_scan_timestamp_seconds",
			Help: "Unix time the last scan finished",
		},
	)

	watchSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stocksentinel_list_size",
			Help: "Number of tickers on the watch and holding lists",
		},
		[]string{"list"},
	)
)

// Outcome labels for stocksentinel_ticker_total.
const (
	OutcomeEvaluated   = "evaluated"
	OutcomeSkipped     = "skipped"
	OutcomeUnavailable = "unavailable"
)

// PrometheusMetrics records scan results.
type PrometheusMetrics struct{}

// NewPrometheusMetrics creates the collector facade.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{}
}

// ObserveScan records one finished scan.
func (pm *PrometheusMetrics) ObserveScan(r *model.ScanResult) {
	scanTotal.Inc()
	scanDuration.Observe(r.FinishedAt.Sub(r.StartedAt).Seconds())
	lastScan.Set(float64(r.FinishedAt.Unix()))
	for _, a := range r.Alerts {
		alertTotal.WithLabelValues(string(a.Kind), a.Severity.String()).Inc()
	}
	tickerOutcome.WithLabelValues(OutcomeEvaluated).Add(float64(len(r.Metrics)))
	tickerOutcome.WithLabelValues(OutcomeSkipped).Add(float64(len(r.Skipped)))
	tickerOutcome.WithLabelValues(OutcomeUnavailable).Add(float64(len(r.Unavailable)))
}

// SetListSizes records the current list lengths.
func (pm *PrometheusMetrics) SetListSizes(watch, holdings int) {
	watchSize.WithLabelValues("watch").Set(float64(watch))
	watchSize.WithLabelValues("holding").Set(float64(holdings))
}
