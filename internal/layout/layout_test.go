package layout

import (
	"bytes"
	"html/template"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fund-strategy-lab/internal/chart"
	"fund-strategy-lab/internal/domain"
	"fund-strategy-lab/internal/form"
)

var testNow = time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)

func testForm() *form.Form {
	conds := []*domain.SavedCondition{{Name: "weekly"}, {Name: "monthly"}}
	return form.New(conds, testNow, form.Config{Labels: map[string]string{"position": "Position"}})
}

func TestWrite_Shell(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Page{Title: "Hello", Body: template.HTML("<p>inner</p>")}))

	html := buf.String()
	assert.Contains(t, html, "<title>Hello - DAIN</title>")
	assert.Contains(t, html, "<h1>DAIN</h1>")
	assert.Contains(t, html, `<a href="/compare">`)
	assert.Contains(t, html, "<p>inner</p>")
}

func TestNewDashboard_Defaults(t *testing.T) {
	d := NewDashboard(testForm(), nil)

	assert.Equal(t, "2023-03-15", d.Start)
	assert.Equal(t, "2024-03-15", d.End)
	assert.Equal(t, "2024-03-15", d.MaxDate)
	require.Len(t, d.Strategies, 2)
	assert.Equal(t, "monthly", d.Strategies[0].Value)
	for _, s := range d.Strategies {
		assert.False(t, s.Checked)
	}

	checked := map[string]bool{}
	for _, m := range d.Metrics {
		checked[m.Value] = m.Checked
	}
	assert.True(t, checked["totalAmount"])
	assert.True(t, checked["position"])
	assert.False(t, checked["leftAmount"])

	require.Len(t, d.Presets, 4)
	assert.Equal(t, PresetLink{Label: "recent four years", Start: "2020-03-15", End: "2024-03-15"}, d.Presets[3])
}

func TestNewDashboard_KeepsSubmittedValues(t *testing.T) {
	v := &form.Values{
		StrategyChecked: []string{"weekly"},
		ChartChecked:    []string{"profit"},
		DateRange:       []string{"2023-06-01", "2023-07-01"},
	}
	d := NewDashboard(testForm(), v)

	assert.Equal(t, "2023-06-01", d.Start)
	assert.Equal(t, "2023-07-01", d.End)
	assert.True(t, d.Strategies[1].Checked)
	assert.False(t, d.Strategies[0].Checked)
	for _, m := range d.Metrics {
		assert.Equal(t, m.Value == "profit", m.Checked, m.Value)
	}
}

func TestWriteDashboard_ErrorsAndCharts(t *testing.T) {
	d := NewDashboard(testForm(), nil)
	d.Errors = form.ValidationErrors{form.FieldStrategy: form.MsgStrategyRequired}
	d.Charts = []ChartView{{
		ID:     chart.IDPosition,
		SVG:    template.HTML(`<svg id="s"></svg>`),
		Legend: []chart.LegendItem{{Key: "avgPos", Label: "Average <position>", Color: "#1890FF"}},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteDashboard(&buf, d))
	html := buf.String()

	assert.Contains(t, html, form.MsgStrategyRequired)
	assert.Contains(t, html, `name="strategy" value="weekly"`)
	assert.Contains(t, html, `value="position" checked`)
	assert.Contains(t, html, `<svg id="s"></svg>`)
	assert.Contains(t, html, "Average &lt;position&gt;")
	assert.Contains(t, html, `id="chart-position"`)
	assert.Contains(t, html, "recent two years")
}

func TestWriteDashboard_EscapesStrategyNames(t *testing.T) {
	conds := []*domain.SavedCondition{{Name: `<script>alert(1)</script>`}}
	f := form.New(conds, testNow, form.Config{})

	var buf bytes.Buffer
	require.NoError(t, WriteDashboard(&buf, NewDashboard(f, nil)))
	assert.NotContains(t, buf.String(), "<script>alert")
}
