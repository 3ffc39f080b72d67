package layout

import (
	"html/template"
	"io"
	"slices"
	"time"

	"fund-strategy-lab/internal/chart"
	"fund-strategy-lab/internal/form"
)

// Choice is one checkbox with its checked state.
type Choice struct {
	Value   string
	Label   string
	Checked bool
}

// PresetLink is a quick-select date range rendered as a link.
type PresetLink struct {
	Label string
	Start string
	End   string
}

// ChartView is one rendered chart. SVG must be trusted markup.
type ChartView struct {
	ID     string
	SVG    template.HTML
	Legend []chart.LegendItem
}

// Dashboard is the view model of the compare page.
type Dashboard struct {
	Action     string
	Strategies []Choice
	Metrics    []Choice
	Start      string
	End        string
	MaxDate    string
	Presets    []PresetLink
	Errors     form.ValidationErrors
	Message    string
	Charts     []ChartView
}

// NewDashboard fills the form from submitted values, or from the form defaults when v is nil.
func NewDashboard(f *form.Form, v *form.Values) Dashboard {
	schema := f.Schema()
	d := Dashboard{
		Action:  CompareURL,
		MaxDate: schema.MaxDate.Format(time.DateOnly),
	}

	var strategies, metrics []string
	dates := schema.Defaults.DateRange.Strings()
	d.Start, d.End = dates[0], dates[1]
	if v == nil {
		metrics = schema.Defaults.ChartChecked
	} else {
		strategies, metrics = v.StrategyChecked, v.ChartChecked
		if len(v.DateRange) == 2 {
			d.Start, d.End = v.DateRange[0], v.DateRange[1]
		}
	}

	d.Strategies = choices(schema.Strategies, strategies)
	d.Metrics = choices(schema.Metrics, metrics)
	for _, p := range schema.Presets {
		r := p.Range.Strings()
		d.Presets = append(d.Presets, PresetLink{Label: p.Label, Start: r[0], End: r[1]})
	}
	return d
}

func choices(opts []form.Option, checked []string) []Choice {
	out := make([]Choice, 0, len(opts))
	for _, o := range opts {
		out = append(out, Choice{Value: o.Value, Label: o.Label, Checked: slices.Contains(checked, o.Value)})
	}
	return out
}

// WriteDashboard renders the compare page.
func WriteDashboard(w io.Writer, d Dashboard) error {
	body, err := renderBody("dashboard.html", d)
	if err != nil {
		return err
	}
	return Write(w, Page{Title: "Compare", Body: body})
}
