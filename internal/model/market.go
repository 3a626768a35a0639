package model

import (
	"math"
	"time"
)

// MAWindows are the moving-average windows appended to every daily series.
var MAWindows = []int{10, 20, 30, 60}

// OHLCV represents a single daily bar.
type OHLCV struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Date returns the bar's trading day as YYYY-MM-DD, the join key between series.
func (b OHLCV) Date() string { return b.Time.Format("2006-01-02") }

// Series holds daily bars ascending by date plus trailing moving averages.
// MAs[w][i] is the w-bar simple average ending at bar i, NaN while fewer than
// w bars exist.
type Series struct {
	Symbol Ticker            `json:"symbol"`
	Bars   []OHLCV           `json:"bars"`
	MAs    map[int][]float64 `json:"-"`
}

// Empty reports whether the series carries no bars. An empty series means the
// source does not support the ticker or returned nothing.
func (s *Series) Empty() bool { return s == nil || len(s.Bars) == 0 }

// Len returns the number of bars.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Last returns the most recent bar.
func (s *Series) Last() (OHLCV, bool) {
	if s.Empty() {
		return OHLCV{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// LastMA returns the latest value of the moving average for window, NaN when
// unavailable.
func (s *Series) LastMA(window int) float64 {
	if s.Empty() {
		return math.NaN()
	}
	col, ok := s.MAs[window]
	if !ok || len(col) == 0 {
		return math.NaN()
	}
	return col[len(col)-1]
}

// Closes returns the close column.
func (s *Series) Closes() []float64 {
	out := make([]float64, s.Len())
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Volumes returns the volume column.
func (s *Series) Volumes() []float64 {
	out := make([]float64, s.Len())
	for i, b := range s.Bars {
		out[i] = b.Volume
	}
	return out
}
