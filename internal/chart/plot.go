package chart

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"collisio/internal/analysis"
)

// YLabel is the value axis label of every bar chart.
const YLabel = "Number of Accidents"

// PlotRenderer draws charts with gonum/plot.
type PlotRenderer struct {
	Width  vg.Length
	Height vg.Length
	Format string
}

// NewPlotRenderer returns a renderer producing 7x5 inch PNG images.
func NewPlotRenderer() *PlotRenderer {
	return &PlotRenderer{Width: 7 * vg.Inch, Height: 5 * vg.Inch, Format: "png"}
}

// Render implements Renderer.
func (r *PlotRenderer) Render(ctx context.Context, req Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = req.Title
	p.Title.TextStyle.Font.Size = vg.Points(14)

	var err error
	switch req.Kind {
	case Pie:
		err = drawPie(p, req.Table)
	case Bar:
		err = drawBars(p, req.Table)
	case StackedBar:
		err = drawStacked(p, req.Table)
	}
	if err != nil {
		return nil, fmt.Errorf("draw %s chart: %w", req.Kind, err)
	}

	return encode(p, r.Width, r.Height, r.Format)
}

func encode(p *plot.Plot, w, h vg.Length, format string) ([]byte, error) {
	wt, err := p.WriterTo(w, h, format)
	if err != nil {
		return nil, fmt.Errorf("create %s writer: %w", format, err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// rotateLabels tilts category labels by 45 degrees.
func rotateLabels(p *plot.Plot, labels []string) {
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
}

func barWidth(n int) vg.Length {
	w := vg.Points(360 / float64(n+1))
	if w > vg.Points(40) {
		w = vg.Points(40)
	}
	return w
}

func drawBars(p *plot.Plot, table *analysis.FrequencyTable) error {
	totals := table.RowTotals()
	values := make(plotter.Values, len(totals))
	for i, t := range totals {
		values[i] = float64(t)
	}

	bars, err := plotter.NewBarChart(values, barWidth(len(values)))
	if err != nil {
		return err
	}
	bars.Color = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)

	p.X.Label.Text = table.RowField
	p.Y.Label.Text = YLabel
	p.Y.Min = 0
	rotateLabels(p, table.RowLabels)
	return nil
}

func drawStacked(p *plot.Plot, table *analysis.FrequencyTable) error {
	width := barWidth(table.Len())

	var below *plotter.BarChart
	for c, label := range table.ColLabels {
		values := make(plotter.Values, table.Len())
		for r := range table.RowLabels {
			values[r] = float64(table.Counts[r][c])
		}

		bars, err := plotter.NewBarChart(values, width)
		if err != nil {
			return err
		}
		bars.Color = plotutil.Color(c)
		bars.LineStyle.Width = vg.Length(0)
		if below != nil {
			bars.StackOn(below)
		}
		p.Add(bars)
		p.Legend.Add(label, bars)
		below = bars
	}

	p.Legend.Top = true
	p.X.Label.Text = table.RowField
	p.Y.Label.Text = YLabel
	p.Y.Min = 0
	rotateLabels(p, table.RowLabels)
	return nil
}

func drawPie(p *plot.Plot, table *analysis.FrequencyTable) error {
	totals := table.RowTotals()
	pie := &pieChart{
		values: make([]float64, len(totals)),
		colors: make([]color.Color, len(totals)),
	}
	for i, t := range totals {
		pie.values[i] = float64(t)
		pie.colors[i] = plotutil.Color(i)
		p.Legend.Add(fmt.Sprintf("%s (%d)", table.RowLabels[i], t), swatch{pie.colors[i]})
	}

	p.HideAxes()
	p.Legend.Top = true
	p.Add(pie)
	pie.text = p.Legend.TextStyle
	return nil
}
