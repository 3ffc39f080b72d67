package chart

import (
	"fmt"
	"html"
	"io"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	defaultWidth  = 640
	defaultHeight = 360

	legendSwatch = 10
)

// RenderSVG draws c as an SVG document.
// The renderer writes text nodes verbatim, so every string is escaped here.
// A chart without bars is drawn as an empty canvas carrying only the title.
func RenderSVG(w io.Writer, c Chart) error {
	width, height := size(c.Common)
	if len(c.Bars) == 0 {
		return renderBlank(w, c.Title, width, height)
	}

	bars := make([]gochart.Value, 0, len(c.Bars))
	for i, b := range c.Bars {
		label := b.Name
		// Dodged bars share one x label per group.
		if c.Color != "" && i > 0 && c.Bars[i-1].Name == b.Name {
			label = ""
		}
		col := colorFromHex(b.Color)
		bars = append(bars, gochart.Value{
			Label: html.EscapeString(label),
			Value: b.Value,
			Style: gochart.Style{FillColor: col, StrokeColor: col, StrokeWidth: 1},
		})
	}

	bc := gochart.BarChart{
		Title:        html.EscapeString(c.Title),
		Width:        width,
		Height:       height,
		Background:   gochart.Style{Padding: padding(c.Common)},
		BarWidth:     barWidth(width, len(bars)),
		BarSpacing:   barSpacing(c),
		UseBaseValue: true,
		BaseValue:    0,
		YAxis:        gochart.YAxis{Range: valueRange(c.Bars)},
		Bars:         bars,
	}
	if len(c.Legend) > 0 && !c.LegendOp.Hidden {
		bc.Elements = []gochart.Renderable{legend(c.Legend, c.LegendOp.Position)}
	}

	if err := bc.Render(gochart.SVG, w); err != nil {
		return fmt.Errorf("render chart %s: %w", c.ID, err)
	}
	return nil
}

func renderBlank(w io.Writer, title string, width, height int) error {
	r, err := gochart.SVG(width, height)
	if err != nil {
		return fmt.Errorf("create svg renderer: %w", err)
	}
	if title != "" {
		font, err := gochart.GetDefaultFont()
		if err != nil {
			return fmt.Errorf("load default font: %w", err)
		}
		r.SetFont(font)
		r.SetFontColor(drawing.ColorBlack)
		r.SetFontSize(12)
		tb := r.MeasureText(title)
		r.Text(html.EscapeString(title), (width-tb.Width())/2, 20)
	}
	return r.Save(w)
}

// legend draws one swatch and label per item along the top or bottom of the canvas.
func legend(items []LegendItem, position string) gochart.Renderable {
	return func(r gochart.Renderer, box gochart.Box, defaults gochart.Style) {
		if defaults.Font != nil {
			r.SetFont(defaults.Font)
		}
		r.SetFontSize(10)
		r.SetFontColor(drawing.ColorBlack)

		x := box.Left + 4
		y := box.Top + 4
		if position == "bottom" {
			y = box.Bottom - legendSwatch - 4
		}

		for _, item := range items {
			col := colorFromHex(item.Color)
			r.SetFillColor(col)
			r.SetStrokeColor(col)
			r.SetStrokeWidth(1)
			r.MoveTo(x, y)
			r.LineTo(x+legendSwatch, y)
			r.LineTo(x+legendSwatch, y+legendSwatch)
			r.LineTo(x, y+legendSwatch)
			r.Close()
			r.FillStroke()

			r.Text(html.EscapeString(item.Label), x+legendSwatch+4, y+legendSwatch)
			x += legendSwatch + 4 + r.MeasureText(item.Label).Width() + 12
		}
	}
}

func size(p CommonProp) (int, int) {
	w, h := p.Width, p.Height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return w, h
}

func padding(p CommonProp) gochart.Box {
	if p.Padding == [4]int{} {
		return gochart.Box{Top: 32, Right: 16, Bottom: 16, Left: 16}
	}
	return gochart.Box{Top: p.Padding[0], Right: p.Padding[1], Bottom: p.Padding[2], Left: p.Padding[3]}
}

// barWidth splits roughly two thirds of the width among n bars, within [4, 48].
func barWidth(width, n int) int {
	bw := (width * 2 / 3) / n
	switch {
	case bw < 4:
		return 4
	case bw > 48:
		return 48
	}
	return bw
}

func barSpacing(c Chart) int {
	for _, a := range c.Adjust {
		if a.Type == AdjustDodge {
			return 2
		}
	}
	return 16
}

// valueRange spans all values and zero, never empty.
func valueRange(bars []Bar) *gochart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, b := range bars {
		lo = min(lo, b.Value)
		hi = max(hi, b.Value)
	}
	if hi == lo {
		hi = lo + 1
	}
	pad := (hi - lo) * 0.05
	if lo < 0 {
		lo -= pad
	}
	return &gochart.ContinuousRange{Min: lo, Max: hi + pad}
}

func colorFromHex(hex string) drawing.Color {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 && len(hex) != 3 {
		return drawing.ColorFromHex("1890FF")
	}
	return drawing.ColorFromHex(hex)
}
