package calculator

import "time"

// FullSessionMinutes is the length of a complete trading day.
const FullSessionMinutes = 240

// TradingCalendar reports how many minutes of the trading day have elapsed.
type TradingCalendar interface {
	ElapsedMinutes(t time.Time) float64
}

// TwoSessionCalendar models the exchange day as 09:30-11:30 and 13:00-15:00.
// Holidays and half days are not modelled.
type TwoSessionCalendar struct {
	Location *time.Location
}

// NewTwoSessionCalendar returns a calendar in Asia/Shanghai, falling back to a
// fixed UTC+8 zone when tzdata is unavailable.
func NewTwoSessionCalendar() TwoSessionCalendar {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		loc = time.FixedZone("CST", 8*3600)
	}
	return TwoSessionCalendar{Location: loc}
}

// ElapsedMinutes returns minutes traded so far, never less than 1.
// Before the open and during the lunch break it reports the floor value.
func (c TwoSessionCalendar) ElapsedMinutes(t time.Time) float64 {
	if c.Location != nil {
		t = t.In(c.Location)
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	morningOpen, morningClose := at(9, 30), at(11, 30)
	afternoonOpen, afternoonClose := at(13, 0), at(15, 0)

	var elapsed float64
	switch {
	case !t.Before(morningOpen) && !t.After(morningClose):
		elapsed = t.Sub(morningOpen).Minutes()
	case !t.Before(afternoonOpen) && !t.After(afternoonClose):
		elapsed = 120 + t.Sub(afternoonOpen).Minutes()
	case t.After(afternoonClose):
		elapsed = FullSessionMinutes
	}
	if elapsed < 1 {
		elapsed = 1
	}
	return elapsed
}
