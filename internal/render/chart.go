package render

import (
	"fmt"
	"image"
	"image/color"

	"crypto_ticker/internal/domain"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	// A 10x3 inch figure at 17 dpi gives a 170x51 sparkline
	chartWidth  = 10 * vg.Inch
	chartHeight = 3 * vg.Inch
	chartDPI    = 17

	lineWidth = 6
	zeroWidth = 4
)

// zeroDashes is a dash-dot pattern scaled by the zero line width
var zeroDashes = []vg.Length{
	vg.Points(5 * zeroWidth),
	vg.Points(2 * zeroWidth),
	vg.Points(1 * zeroWidth),
	vg.Points(2 * zeroWidth),
}

// SparklineRenderer draws a mean-centered price series as an axis-free line
// plot with the final sample marked.
type SparklineRenderer struct {
	width  vg.Length
	height vg.Length
	dpi    int
}

// NewSparklineRenderer returns a renderer sized for the 250x122 panel
func NewSparklineRenderer() *SparklineRenderer {
	return &SparklineRenderer{
		width:  chartWidth,
		height: chartHeight,
		dpi:    chartDPI,
	}
}

// Render rasterizes the series. Series shorter than domain.MinSeriesLen are rejected.
func (r *SparklineRenderer) Render(series domain.PriceSeries) (image.Image, error) {
	centered, err := series.MeanCentered()
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.HideAxes()
	p.BackgroundColor = color.White

	xys := make(plotter.XYs, len(centered))
	for i, v := range centered {
		xys[i].X = float64(i)
		xys[i].Y = v
	}

	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, fmt.Errorf("sparkline: %w", err)
	}
	line.LineStyle.Width = vg.Points(lineWidth)
	line.LineStyle.Color = color.Black

	last := len(centered) - 1
	marker, err := plotter.NewScatter(plotter.XYs{{X: float64(last), Y: centered[last]}})
	if err != nil {
		return nil, fmt.Errorf("marker: %w", err)
	}
	marker.GlyphStyle.Shape = draw.CircleGlyph{}
	marker.GlyphStyle.Color = color.RGBA{R: 255, A: 255}
	marker.GlyphStyle.Radius = vg.Points(3)

	zero, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: float64(last), Y: 0}})
	if err != nil {
		return nil, fmt.Errorf("zero line: %w", err)
	}
	zero.LineStyle.Width = vg.Points(zeroWidth)
	zero.LineStyle.Color = color.Black
	zero.LineStyle.Dashes = zeroDashes

	p.Add(line, marker, zero)

	c := vgimg.NewWith(vgimg.UseWH(r.width, r.height), vgimg.UseDPI(r.dpi))
	p.Draw(draw.New(c))

	return c.Image(), nil
}
