package model

import "strings"

// Exchange is the suffix of a canonical ticker.
type Exchange string

const (
	ExchangeShanghai Exchange = "SS"
	ExchangeShenzhen Exchange = "SZ"
	ExchangeHongKong Exchange = "HK"
)

// Ticker is a canonical identifier of the form CODE.EXCHANGE, e.g. 600519.SS.
type Ticker string

// Split returns the code and exchange parts. ok is false when the ticker has no
// exchange suffix.
func (t Ticker) Split() (code string, exchange Exchange, ok bool) {
	s := string(t)
	i := strings.LastIndex(s, ".")
	if i <= 0 || i == len(s)-1 {
		return s, "", false
	}
	return s[:i], Exchange(s[i+1:]), true
}

// Code returns the numeric part, or the whole string for a malformed ticker.
func (t Ticker) Code() string {
	code, _, _ := t.Split()
	return code
}

// Exchange returns the exchange suffix, or "" for a malformed ticker.
func (t Ticker) Exchange() Exchange {
	_, ex, _ := t.Split()
	return ex
}

// IsHK reports whether the ticker is listed in Hong Kong.
func (t Ticker) IsHK() bool { return t.Exchange() == ExchangeHongKong }

// Valid reports whether the ticker has a known exchange suffix.
func (t Ticker) Valid() bool {
	code, ex, ok := t.Split()
	if !ok || code == "" {
		return false
	}
	switch ex {
	case ExchangeShanghai, ExchangeShenzhen, ExchangeHongKong:
		return true
	}
	return false
}

func (t Ticker) String() string { return string(t) }
