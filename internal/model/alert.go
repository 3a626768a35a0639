package model

import "time"

// AlertKind identifies which rule produced an alert.
type AlertKind string

const (
	AlertShortMove      AlertKind = "SHORT_MOVE"
	AlertBandBreak      AlertKind = "BAND_BREAK"
	AlertMarketDiscount AlertKind = "MARKET_DISCOUNT"
	AlertSupportBreach  AlertKind = "SUPPORT_BREACH"
	AlertTakeProfit     AlertKind = "TAKE_PROFIT"
	AlertStopLoss       AlertKind = "STOP_LOSS"
)

// Severity orders alerts for display.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// AlertEvent is produced once per scan; it is not deduplicated across scans.
type AlertEvent struct {
	Ticker   Ticker    `json:"ticker"`
	Name     string    `json:"name"`
	Kind     AlertKind `json:"kind"`
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
	Value    float64   `json:"value"`
}

// ScanResult aggregates one pass over the watch and holding lists.
type ScanResult struct {
	ID          string                    `json:"id"`
	StartedAt   time.Time                 `json:"started_at"`
	FinishedAt  time.Time                 `json:"finished_at"`
	Alerts      []AlertEvent              `json:"alerts"`
	Metrics     map[Ticker]*MetricsRecord `json:"metrics"`
	Quotes      map[Ticker]Quote          `json:"quotes"`
	Skipped     []Ticker                  `json:"skipped"`     // no quote this cycle
	Unavailable []Ticker                  `json:"unavailable"` // metrics failed, not evaluated
}
