package chart

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// pieChart is a plot.Plotter drawing proportional wedges clockwise from
// twelve o'clock, each labelled with its percentage.
type pieChart struct {
	values []float64
	colors []color.Color
	text   text.Style
}

// arcStep is the angular resolution of a wedge outline.
const arcStep = math.Pi / 90

func (pc *pieChart) Plot(c draw.Canvas, _ *plot.Plot) {
	total := 0.0
	for _, v := range pc.values {
		total += v
	}
	if total <= 0 {
		return
	}

	size := c.Size()
	radius := 0.45 * min(size.X, size.Y)
	center := vg.Point{X: c.Min.X + radius + size.X*0.05, Y: c.Min.Y + size.Y/2}

	label := pc.text
	label.XAlign = text.XCenter
	label.YAlign = text.YCenter
	label.Color = color.White

	start := math.Pi / 2
	for i, v := range pc.values {
		if v <= 0 {
			continue
		}
		sweep := 2 * math.Pi * v / total
		steps := int(math.Ceil(sweep/arcStep)) + 1

		pts := make([]vg.Point, 0, steps+2)
		pts = append(pts, center)
		for s := 0; s <= steps; s++ {
			a := start - sweep*float64(s)/float64(steps)
			pts = append(pts, polar(center, radius, a))
		}
		c.FillPolygon(pc.colors[i], pts)

		if share := v / total; share >= 0.04 {
			c.FillText(label, polar(center, radius*0.65, start-sweep/2), fmt.Sprintf("%.1f%%", share*100))
		}
		start -= sweep
	}
}

func polar(center vg.Point, r vg.Length, angle float64) vg.Point {
	return vg.Point{
		X: center.X + r*vg.Length(math.Cos(angle)),
		Y: center.Y + r*vg.Length(math.Sin(angle)),
	}
}

// swatch is a solid legend thumbnail.
type swatch struct {
	color color.Color
}

func (s swatch) Thumbnail(c *draw.Canvas) {
	pts := []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Min.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Min.Y},
	}
	c.FillPolygon(s.color, pts)
}
