package model

// Quote is a realtime snapshot. A zero Price means the feed had no usable
// reading for the ticker.
type Quote struct {
	Ticker    Ticker  `json:"ticker"`
	Price     float64 `json:"price"`
	PrevClose float64 `json:"prev_close"`
	ChangePct float64 `json:"change_pct"`
	Volume    float64 `json:"volume"` // shares
}

// Available reports whether the quote carries a price.
func (q Quote) Available() bool { return q.Price > 0 }
