package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailySnapshot is the end-of-day state of one strategy backtest.
// Keyed by (Strategy, Date); Date is truncated to the day.
type DailySnapshot struct {
	Strategy    string
	Date        time.Time
	Position    float64         // invested share of total assets, 0..1
	TotalAmount decimal.Decimal // fund value + cash
	Principal   decimal.Decimal // money put in so far
	Profit      decimal.Decimal // accumulated profit
	BuyCount    int             // buy operations executed on this day
}

// Day returns UTC midnight of t's calendar date in t's own location.
// Snapshot dates and compare ranges are compared as Days.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
