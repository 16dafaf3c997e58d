package spatial

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"log/slog"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"collisio/internal/analysis"
	"collisio/internal/records"
)

// severityColors pins the well-known classifications to fixed colours.
var severityColors = map[string]color.Color{
	"Fatal":                color.RGBA{R: 200, G: 30, B: 30, A: 255},
	"Injury":               color.RGBA{R: 245, G: 150, B: 30, A: 255},
	"Property Damage Only": color.RGBA{R: 40, G: 110, B: 200, A: 255},
	UnknownCategory:        color.RGBA{R: 128, G: 128, B: 128, A: 255},
}

// Palette maps categories to colours, assigning gonum's default colours in
// order to anything not pinned.
func Palette(categories []string) map[string]color.Color {
	out := make(map[string]color.Color, len(categories))
	next := 0
	for _, c := range categories {
		if fixed, ok := severityColors[c]; ok {
			out[c] = fixed
			continue
		}
		out[c] = plotutil.Color(next)
		next++
	}
	return out
}

// Map is a rendered spatial section.
type Map struct {
	Image      []byte
	Points     int
	Rejected   int
	Categories *analysis.FrequencyTable
	Hotspots   *analysis.FrequencyTable
}

// Builder renders accident maps.
type Builder struct {
	Width      vg.Length
	Height     vg.Length
	Resolution int
	TopCells   int
	logger     *slog.Logger
}

// NewBuilder returns a Builder drawing 7x6 inch maps with hotspots at resolution res.
func NewBuilder(res int, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		Width:      7 * vg.Inch,
		Height:     6 * vg.Inch,
		Resolution: res,
		TopCells:   10,
		logger:     logger.With(slog.String("component", "spatial")),
	}
}

// Build extracts valid points from t and draws them coloured by classField.
func (b *Builder) Build(ctx context.Context, t *records.Table, classField string) (*Map, error) {
	points, rejected, err := Extract(t, classField)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %d rows rejected", ErrNoValidPoints, rejected)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	categories := Categories(points, classField)
	img, err := b.render(points, categories.RowLabels)
	if err != nil {
		return nil, err
	}

	m := &Map{
		Image:      img,
		Points:     len(points),
		Rejected:   rejected,
		Categories: categories,
	}

	if HotspotsAvailable {
		spots, err := Hotspots(points, b.Resolution, b.TopCells)
		if err != nil {
			b.logger.WarnContext(ctx, "Hotspot indexing failed", slog.String("error", err.Error()))
		} else {
			m.Hotspots = HotspotTable(spots, b.Resolution)
		}
	}

	b.logger.DebugContext(ctx, "Map rendered",
		slog.Int("points", len(points)),
		slog.Int("rejected", rejected),
		slog.Int("categories", categories.Len()))
	return m, nil
}

func (b *Builder) render(points []Point, categories []string) ([]byte, error) {
	p := plot.New()
	p.Title.Text = "Spatial Distribution of Accidents"
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"
	p.Add(plotter.NewGrid())

	colors := Palette(categories)
	for _, category := range categories {
		var xys plotter.XYs
		for _, pt := range points {
			if pt.Category == category {
				xys = append(xys, plotter.XY{X: pt.Lon, Y: pt.Lat})
			}
		}

		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, fmt.Errorf("plot %s: %w", category, err)
		}
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		scatter.GlyphStyle.Radius = vg.Points(3)
		scatter.GlyphStyle.Color = colors[category]
		p.Add(scatter)
		p.Legend.Add(category, scatter)
	}
	p.Legend.Top = true

	wt, err := p.WriterTo(b.Width, b.Height, "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
