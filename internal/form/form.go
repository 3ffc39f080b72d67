// Package form implements the compare search form: option lists, defaults,
// date presets and validation of a submission into a domain.CompareQuery.
//
// A Form is built once per page render from the saved-condition registry and
// an explicit "now", so defaults are deterministic. Submit never performs I/O
// itself; it validates and hands the query to the caller's callback.
package form

import (
	"slices"
	"sort"
	"time"

	"fund-strategy-lab/internal/domain"
)

// Option is one checkbox of a multi-select.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// DateRange is an inclusive [start, end] pair of days.
type DateRange [2]time.Time

// Strings formats both ends as YYYY-MM-DD.
func (r DateRange) Strings() [2]string {
	return [2]string{r[0].Format(time.DateOnly), r[1].Format(time.DateOnly)}
}

// Preset is a quick-select date range.
type Preset struct {
	Label string    `json:"label"`
	Range DateRange `json:"range"`
}

// Defaults are the initial field values.
type Defaults struct {
	ChartChecked []string  `json:"chartChecked"`
	DateRange    DateRange `json:"dateRange"`
}

// Schema describes the form for clients rendering it themselves.
type Schema struct {
	Strategies []Option  `json:"strategies"`
	Metrics    []Option  `json:"metrics"`
	Defaults   Defaults  `json:"defaults"`
	Presets    []Preset  `json:"presets"`
	MaxDate    time.Time `json:"maxDate"`
}

// Config carries the deployment-specific parts of the form.
type Config struct {
	Blocked  []string          // saved conditions never offered
	Labels   map[string]string // metric key -> display label
	Location *time.Location    // day boundaries; nil means UTC
}

// Form is an immutable compare search form.
type Form struct {
	loc        *time.Location
	today      time.Time
	strategies []Option
	allowed    map[string]struct{}
	metrics    []Option
}

// presetYears are the "recent N years" quick selections.
var presetYears = []struct {
	years int
	label string
}{
	{1, "recent one year"},
	{2, "recent two years"},
	{3, "recent three years"},
	{4, "recent four years"},
}

// New builds a form from the saved conditions and the current time.
func New(conditions []*domain.SavedCondition, now time.Time, cfg Config) *Form {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	f := &Form{
		loc:     loc,
		today:   truncateDay(now, loc),
		allowed: make(map[string]struct{}),
	}

	for _, c := range conditions {
		if c == nil || c.Name == "" || slices.Contains(cfg.Blocked, c.Name) {
			continue
		}
		if _, dup := f.allowed[c.Name]; dup {
			continue
		}
		f.allowed[c.Name] = struct{}{}
		f.strategies = append(f.strategies, Option{Value: c.Name, Label: c.Name})
	}
	sort.Slice(f.strategies, func(i, j int) bool {
		return f.strategies[i].Value < f.strategies[j].Value
	})

	for _, m := range domain.ChartableMetrics {
		f.metrics = append(f.metrics, Option{Value: string(m), Label: domain.Label(cfg.Labels, string(m))})
	}

	return f
}

// Today returns the form's current day.
func (f *Form) Today() time.Time { return f.today }

// Location returns the time zone used for day boundaries.
func (f *Form) Location() *time.Location { return f.loc }

// StrategyOptions returns the selectable saved conditions, sorted by name.
func (f *Form) StrategyOptions() []Option { return slices.Clone(f.strategies) }

// MetricOptions returns the chartable metrics in display order.
func (f *Form) MetricOptions() []Option { return slices.Clone(f.metrics) }

// Defaults returns the initial metric selection and the most recent one year range.
func (f *Form) Defaults() Defaults {
	return Defaults{
		ChartChecked: domain.MetricKeyStrings(domain.DefaultChartMetrics),
		DateRange:    f.recentYears(1),
	}
}

// Presets returns the quick-select ranges relative to today.
func (f *Form) Presets() []Preset {
	out := make([]Preset, 0, len(presetYears))
	for _, p := range presetYears {
		out = append(out, Preset{Label: p.label, Range: f.recentYears(p.years)})
	}
	return out
}

// Schema returns options, defaults and presets in one value.
func (f *Form) Schema() Schema {
	return Schema{
		Strategies: f.StrategyOptions(),
		Metrics:    f.MetricOptions(),
		Defaults:   f.Defaults(),
		Presets:    f.Presets(),
		MaxDate:    f.today,
	}
}

// Submit validates v and, on success, calls onSearch exactly once with the query.
// On failure it returns ValidationErrors and onSearch is not called.
// The error returned by onSearch is passed through unchanged.
func (f *Form) Submit(v Values, onSearch func(domain.CompareQuery) error) error {
	q, errs := f.Validate(v)
	if len(errs) > 0 {
		return errs
	}
	return onSearch(q)
}

func (f *Form) recentYears(n int) DateRange {
	return DateRange{yearsBefore(f.today, n), f.today}
}

// yearsBefore moves t back n years keeping month and day.
// A day that does not exist in the target year (Feb 29) clamps to the month's last day.
func yearsBefore(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	y -= n
	if last := daysIn(y, m); d > last {
		d = last
	}
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func daysIn(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func truncateDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
