package calculator

import (
	"errors"
	"math"

	"StockSentinel/internal/model"
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// RollingSMA returns the trailing simple moving average at every index. Values
// are NaN until period samples exist.
func RollingSMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if period <= 0 || i < period-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(period)
	}
	return out
}

// AppendMAs fills the series' moving-average columns for model.MAWindows.
func AppendMAs(s *model.Series) {
	if s == nil {
		return
	}
	closes := s.Closes()
	s.MAs = make(map[int][]float64, len(model.MAWindows))
	for _, w := range model.MAWindows {
		s.MAs[w] = RollingSMA(closes, w)
	}
}

// TailMean averages the last n values, or all of them when fewer exist.
func TailMean(values []float64, n int) float64 {
	if len(values) == 0 || n <= 0 {
		return 0
	}
	start := len(values) - n
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for _, v := range values[start:] {
		sum += v
	}
	return sum / float64(len(values)-start)
}

// Deviation returns (price-ma)/ma*100. ok is false when ma is not positive or NaN.
func Deviation(price, ma float64) (float64, bool) {
	if math.IsNaN(ma) || ma <= 0 {
		return 0, false
	}
	return (price - ma) / ma * 100, true
}
