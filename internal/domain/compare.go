package domain

import "time"

// CompareQuery is the result of one validated compare form submission.
// JSON names are the contract consumed by the dashboard front end.
type CompareQuery struct {
	StrategyChecked []string     `json:"stragegyChecked"`
	ChartChecked    []string     `json:"chartChecked"`
	DateRange       [2]time.Time `json:"dateRange"` // [start, end], start <= end
}

// Start returns the first day of the range.
func (q CompareQuery) Start() time.Time { return q.DateRange[0] }

// End returns the last day of the range.
func (q CompareQuery) End() time.Time { return q.DateRange[1] }

// CompareRecord is the per-strategy summary shown by the compare charts.
// Values may be negative (losses).
type CompareRecord struct {
	Name               string  `json:"name"`
	AvgPos             float64 `json:"avgPos"`
	MaxPos             float64 `json:"maxPos"`
	ProfitPerInvest    float64 `json:"profitPerInvest"`
	ProfitAmountPerPos float64 `json:"profitAmountPerPos"`
}

// Folded series types.
const (
	SeriesAvgPos = "avgPos"
	SeriesMaxPos = "maxPos"
)

// FoldedSeriesPoint is one long-format row derived from a CompareRecord.
type FoldedSeriesPoint struct {
	Name  string  `json:"name"`
	Type  string  `json:"type"` // SeriesAvgPos | SeriesMaxPos
	Value float64 `json:"value"`
}
