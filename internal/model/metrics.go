package model

// Value is a derived number together with whether it could be computed.
type Value struct {
	V  float64 `json:"v"`
	OK bool    `json:"ok"`
}

// Known wraps a computed value.
func Known(v float64) Value { return Value{V: v, OK: true} }

// Unknown is the "could not compute" value. V stays 0 so consumers that only
// read V see the legacy zero sentinel.
var Unknown = Value{}

// MetricsRecord is the derived indicator set for one ticker at one instant.
type MetricsRecord struct {
	Ticker       Ticker  `json:"ticker"`
	MA10Dev      Value   `json:"ma10_dev"`
	MA20Dev      Value   `json:"ma20_dev"`
	MA30Dev      Value   `json:"ma30_dev"`
	MA60Dev      Value   `json:"ma60_dev"`
	VolumeRatio  Value   `json:"volume_ratio"`
	IndexPremium Value   `json:"index_premium"`
	IndexName    string  `json:"index_name"`
	IndexCode    Ticker  `json:"index_code"`
	History      *Series `json:"-"`
}

// MADev returns the deviation for one of the MAWindows.
func (m *MetricsRecord) MADev(window int) Value {
	switch window {
	case 10:
		return m.MA10Dev
	case 20:
		return m.MA20Dev
	case 30:
		return m.MA30Dev
	case 60:
		return m.MA60Dev
	}
	return Unknown
}

// HasHistory reports whether the record was built from a non-empty own series.
func (m *MetricsRecord) HasHistory() bool { return m != nil && !m.History.Empty() }
