package chart

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fund-strategy-lab/internal/domain"
)

func TestFold_SingleRecord(t *testing.T) {
	got := Fold([]domain.CompareRecord{
		{Name: "A", AvgPos: 10, MaxPos: 20, ProfitPerInvest: 1, ProfitAmountPerPos: 2},
	})

	want := []domain.FoldedSeriesPoint{
		{Name: "A", Type: "avgPos", Value: 10},
		{Name: "A", Type: "maxPos", Value: 20},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Fold() mismatch (-want +got):\n%s", diff)
	}
}

func TestFold_OrderAndLength(t *testing.T) {
	records := []domain.CompareRecord{
		{Name: "c", AvgPos: 0.3, MaxPos: 0.9},
		{Name: "a", AvgPos: -1, MaxPos: 0},
		{Name: "b", AvgPos: 0.5, MaxPos: 0.5},
	}

	got := Fold(records)
	require.Len(t, got, 2*len(records))

	for i, r := range records {
		avg, mx := got[2*i], got[2*i+1]
		assert.Equal(t, r.Name, avg.Name)
		assert.Equal(t, domain.SeriesAvgPos, avg.Type)
		assert.Equal(t, r.AvgPos, avg.Value)
		assert.Equal(t, r.Name, mx.Name)
		assert.Equal(t, domain.SeriesMaxPos, mx.Type)
		assert.Equal(t, r.MaxPos, mx.Value)
	}
}

func TestFold_Empty(t *testing.T) {
	assert.Empty(t, Fold(nil))
	assert.Empty(t, Fold([]domain.CompareRecord{}))
}

func TestRender_PositionChart(t *testing.T) {
	cfg := Config{
		Title:   "Position comparison",
		TextMap: map[string]string{"avgPos": "average position"},
	}
	d := Render([]domain.CompareRecord{
		{Name: "A", AvgPos: 0.4, MaxPos: 0.8},
		{Name: "B", AvgPos: 0.2, MaxPos: 0.6},
	}, cfg)

	c := d.Position
	assert.Equal(t, IDPosition, c.ID)
	assert.Equal(t, "Position comparison", c.Title)
	assert.Equal(t, "name*value", c.Position)
	assert.Equal(t, "type", c.Color)
	require.Len(t, c.Adjust, 1)
	assert.Equal(t, AdjustDodge, c.Adjust[0].Type)
	assert.InDelta(t, 1.0/32, c.Adjust[0].MarginRatio, 1e-12)

	require.Len(t, c.Bars, 4)
	assert.Equal(t, Bar{Name: "A", Type: "avgPos", Value: 0.4, Color: DefaultColors[0]}, c.Bars[0])
	assert.Equal(t, Bar{Name: "A", Type: "maxPos", Value: 0.8, Color: DefaultColors[1]}, c.Bars[1])
	assert.Equal(t, Bar{Name: "B", Type: "avgPos", Value: 0.2, Color: DefaultColors[0]}, c.Bars[2])

	// Legend falls back to the literal key when the text map has no entry
	require.Len(t, c.Legend, 2)
	assert.Equal(t, LegendItem{Key: "avgPos", Label: "average position", Color: DefaultColors[0]}, c.Legend[0])
	assert.Equal(t, LegendItem{Key: "maxPos", Label: "maxPos", Color: DefaultColors[1]}, c.Legend[1])
}

func TestRender_ProfitCharts(t *testing.T) {
	records := []domain.CompareRecord{
		{Name: "A", ProfitPerInvest: 12.5, ProfitAmountPerPos: -3},
		{Name: "A", ProfitPerInvest: 1, ProfitAmountPerPos: 4},
	}
	cfg := Config{
		TextMap: map[string]string{"profitPerInvest": "profit per invest"},
		Common:  CommonProp{Colors: []string{"#FF0000"}},
	}

	d := Render(records, cfg)

	ppi := d.ProfitPerInvest
	assert.Equal(t, "profit per invest", ppi.Title)
	assert.Equal(t, "name*profitPerInvest", ppi.Position)
	assert.Empty(t, ppi.Adjust)
	assert.Empty(t, ppi.Legend)
	// Equal names are not merged
	require.Len(t, ppi.Bars, 2)
	assert.Equal(t, Bar{Name: "A", Value: 12.5, Color: "#FF0000"}, ppi.Bars[0])
	assert.Equal(t, Bar{Name: "A", Value: 1, Color: "#FF0000"}, ppi.Bars[1])

	papp := d.ProfitAmountPerPos
	assert.Equal(t, "profitAmountPerPos", papp.Title)
	require.Len(t, papp.Bars, 2)
	assert.Equal(t, -3.0, papp.Bars[0].Value)
}

func TestRender_EmptyInput(t *testing.T) {
	d := Render(nil, Config{})

	for _, c := range d.Charts() {
		assert.NotNil(t, c.Bars, c.ID)
		assert.Empty(t, c.Bars, c.ID)
	}
	assert.Empty(t, d.Position.Legend)
}

func TestRender_PassThroughProps(t *testing.T) {
	cfg := Config{
		Common: CommonProp{Width: 800, Height: 400},
		Legend: LegendProp{Position: "bottom"},
	}
	d := Render([]domain.CompareRecord{{Name: "A"}}, cfg)

	for _, c := range d.Charts() {
		assert.Equal(t, cfg.Common, c.Common, c.ID)
		assert.Equal(t, cfg.Legend, c.LegendOp, c.ID)
	}
}

func TestDashboard_ByID(t *testing.T) {
	d := Render(nil, Config{})

	for _, id := range []string{IDPosition, IDProfitPerInvest, IDProfitAmountPerPos} {
		c, ok := d.ByID(id)
		assert.True(t, ok, id)
		assert.Equal(t, id, c.ID)
	}
	_, ok := d.ByID("missing")
	assert.False(t, ok)
}
