package reporting

import (
	"context"
	"fmt"
	"time"

	"fund-strategy-lab/internal/domain"
	"fund-strategy-lab/internal/observability"
)

// Comparer produces compare records for a query.
type Comparer interface {
	Compare(ctx context.Context, q domain.CompareQuery) ([]domain.CompareRecord, error)
}

// rankedFields are the values ranked in a report, in display order.
var rankedFields = []struct {
	field string
	value func(domain.CompareRecord) float64
}{
	{domain.SeriesAvgPos, func(r domain.CompareRecord) float64 { return r.AvgPos }},
	{domain.SeriesMaxPos, func(r domain.CompareRecord) float64 { return r.MaxPos }},
	{"profitPerInvest", func(r domain.CompareRecord) float64 { return r.ProfitPerInvest }},
	{"profitAmountPerPos", func(r domain.CompareRecord) float64 { return r.ProfitAmountPerPos }},
}

// Generator produces reports from compare results.
type Generator struct {
	comparer Comparer
	labels   map[string]string
	now      func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. labels may be nil.
func NewGenerator(comparer Comparer, labels map[string]string) *Generator {
	return &Generator{
		comparer: comparer,
		labels:   labels,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate runs the comparison for q and builds the report.
func (g *Generator) Generate(ctx context.Context, q domain.CompareQuery) (*Report, error) {
	records, err := g.comparer.Compare(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}

	r := &Report{
		GeneratedAt: g.now(),
		Query:       q,
		Records:     records,
		Rankings:    g.rank(records),
	}
	for _, rec := range records {
		if rec == (domain.CompareRecord{Name: rec.Name}) {
			r.MissingData = append(r.MissingData, rec.Name)
		}
	}

	observability.RecordReportGenerated()
	return r, nil
}

// rank picks the highest and lowest record per field. Ties keep the earlier record.
func (g *Generator) rank(records []domain.CompareRecord) []RankingRow {
	if len(records) == 0 {
		return nil
	}

	rows := make([]RankingRow, 0, len(rankedFields))
	for _, f := range rankedFields {
		row := RankingRow{
			Field:      f.field,
			Label:      domain.Label(g.labels, f.field),
			Best:       records[0].Name,
			BestValue:  f.value(records[0]),
			Worst:      records[0].Name,
			WorstValue: f.value(records[0]),
		}
		for _, rec := range records[1:] {
			v := f.value(rec)
			if v > row.BestValue {
				row.Best, row.BestValue = rec.Name, v
			}
			if v < row.WorstValue {
				row.Worst, row.WorstValue = rec.Name, v
			}
		}
		rows = append(rows, row)
	}
	return rows
}
