// Package chart turns compare records into chart descriptions.
//
// Render is a pure function of (records, Config). It never validates its input:
// missing values are zero-height bars, repeated names are separate bars.
package chart

import (
	"fund-strategy-lab/internal/domain"
)

// Chart identifiers, also used in URLs.
const (
	IDPosition           = "position"
	IDProfitPerInvest    = "profit-per-invest"
	IDProfitAmountPerPos = "profit-amount-per-pos"
)

// IDs lists the chart identifiers in display order.
var IDs = []string{IDPosition, IDProfitPerInvest, IDProfitAmountPerPos}

// Geometry and adjust names of the description format.
const (
	GeomInterval = "interval"
	AdjustDodge  = "dodge"

	dodgeMarginRatio = 1.0 / 32
)

// DefaultColors is used when CommonProp.Colors is empty.
var DefaultColors = []string{"#1890FF", "#2FC25B", "#FACC14", "#223273", "#8543E0"}

// CommonProp is chart styling passed through to every chart.
type CommonProp struct {
	Width   int      `json:"width,omitempty" yaml:"width"`
	Height  int      `json:"height,omitempty" yaml:"height"`
	Padding [4]int   `json:"padding,omitempty" yaml:"padding"` // top, right, bottom, left
	Colors  []string `json:"colors,omitempty" yaml:"colors"`   // hex, one per series
}

// LegendProp is legend styling passed through to charts with a legend.
type LegendProp struct {
	Position string `json:"position,omitempty" yaml:"position"` // top | bottom | left | right
	Hidden   bool   `json:"hidden,omitempty" yaml:"hidden"`
}

// Config is the display configuration of the compare charts.
type Config struct {
	Title    string            `json:"title"`
	SubTitle string            `json:"subTitle"`
	TextMap  map[string]string `json:"textMap"`
	Common   CommonProp        `json:"commonProp"`
	Legend   LegendProp        `json:"legendProp"`
}

// Adjust describes how overlapping bars are laid out.
type Adjust struct {
	Type        string  `json:"type"`
	MarginRatio float64 `json:"marginRatio"`
}

// Bar is one rendered bar. Type is empty for single-series charts.
type Bar struct {
	Name  string  `json:"name"`
	Type  string  `json:"type,omitempty"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// LegendItem labels one color of a grouped chart.
type LegendItem struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// Chart is a complete description of one bar chart.
type Chart struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	SubTitle string       `json:"subTitle,omitempty"`
	Geom     string       `json:"geom"`
	Position string       `json:"position"` // x*y field names
	Color    string       `json:"color,omitempty"`
	Adjust   []Adjust     `json:"adjust,omitempty"`
	Bars     []Bar        `json:"bars"`
	Legend   []LegendItem `json:"legend,omitempty"`
	Common   CommonProp   `json:"commonProp"`
	LegendOp LegendProp   `json:"legendProp"`
}

// Dashboard is the full output of one render pass.
type Dashboard struct {
	Position           Chart `json:"position"`
	ProfitPerInvest    Chart `json:"profitPerInvest"`
	ProfitAmountPerPos Chart `json:"profitAmountPerPos"`
}

// Charts returns the three charts in display order.
func (d Dashboard) Charts() []Chart {
	return []Chart{d.Position, d.ProfitPerInvest, d.ProfitAmountPerPos}
}

// ByID returns the chart with the given ID.
func (d Dashboard) ByID(id string) (Chart, bool) {
	for _, c := range d.Charts() {
		if c.ID == id {
			return c, true
		}
	}
	return Chart{}, false
}

// Fold reshapes records into long format: for each record, avgPos then maxPos.
func Fold(records []domain.CompareRecord) []domain.FoldedSeriesPoint {
	out := make([]domain.FoldedSeriesPoint, 0, 2*len(records))
	for _, r := range records {
		out = append(out,
			domain.FoldedSeriesPoint{Name: r.Name, Type: domain.SeriesAvgPos, Value: r.AvgPos},
			domain.FoldedSeriesPoint{Name: r.Name, Type: domain.SeriesMaxPos, Value: r.MaxPos},
		)
	}
	return out
}

// Render builds the position chart from the folded series and the two profit charts
// from the records as given.
func Render(records []domain.CompareRecord, cfg Config) Dashboard {
	colors := cfg.Common.Colors
	if len(colors) == 0 {
		colors = DefaultColors
	}

	return Dashboard{
		Position:           renderPosition(records, cfg, colors),
		ProfitPerInvest:    renderSingle(IDProfitPerInvest, "profitPerInvest", records, cfg, colors[0], func(r domain.CompareRecord) float64 { return r.ProfitPerInvest }),
		ProfitAmountPerPos: renderSingle(IDProfitAmountPerPos, "profitAmountPerPos", records, cfg, colors[0], func(r domain.CompareRecord) float64 { return r.ProfitAmountPerPos }),
	}
}

func renderPosition(records []domain.CompareRecord, cfg Config, colors []string) Chart {
	c := Chart{
		ID:       IDPosition,
		Title:    cfg.Title,
		SubTitle: cfg.SubTitle,
		Geom:     GeomInterval,
		Position: "name*value",
		Color:    "type",
		Adjust:   []Adjust{{Type: AdjustDodge, MarginRatio: dodgeMarginRatio}},
		Bars:     []Bar{},
		Common:   cfg.Common,
		LegendOp: cfg.Legend,
	}

	colorOf := make(map[string]string)
	for _, p := range Fold(records) {
		color, seen := colorOf[p.Type]
		if !seen {
			color = colors[len(colorOf)%len(colors)]
			colorOf[p.Type] = color
			c.Legend = append(c.Legend, LegendItem{Key: p.Type, Label: domain.Label(cfg.TextMap, p.Type), Color: color})
		}
		c.Bars = append(c.Bars, Bar{Name: p.Name, Type: p.Type, Value: p.Value, Color: color})
	}
	return c
}

func renderSingle(id, field string, records []domain.CompareRecord, cfg Config, color string, value func(domain.CompareRecord) float64) Chart {
	c := Chart{
		ID:       id,
		Title:    domain.Label(cfg.TextMap, field),
		Geom:     GeomInterval,
		Position: "name*" + field,
		Bars:     make([]Bar, 0, len(records)),
		Common:   cfg.Common,
		LegendOp: cfg.Legend,
	}
	for _, r := range records {
		c.Bars = append(c.Bars, Bar{Name: r.Name, Value: value(r), Color: color})
	}
	return c
}
