package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"log/slog"
	"strings"
	"time"

	"crypto_ticker/internal/domain"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Panel geometry of the 2.13" e-ink display in landscape
const (
	DisplayWidth  = 250
	DisplayHeight = 122
)

// Fixed layout offsets (top-left corners)
var (
	tokenIconAt = image.Pt(0, 15)
	athIconAt   = image.Pt(15, 30)
	chartAt     = image.Pt(80, 15)
	changeAt    = image.Pt(130, 66)
	priceAt     = image.Pt(96, 73)
	timeAt      = image.Pt(95, 5)
)

// FrameComposer assembles the monochrome frame from the icon, sparkline
// and text readouts.
type FrameComposer struct {
	assets  *Assets
	days    int
	console io.Writer
	logger  *slog.Logger
}

// NewFrameComposer creates a composer. console receives one line per frame
// with the formatted price; nil discards it.
func NewFrameComposer(assets *Assets, days int, console io.Writer, logger *slog.Logger) (*FrameComposer, error) {
	if assets == nil || assets.PriceFace == nil || assets.LabelFace == nil {
		return nil, errors.New("composer: fonts are required")
	}
	if console == nil {
		console = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FrameComposer{
		assets:  assets,
		days:    days,
		console: console,
		logger:  logger.With("module", "composer"),
	}, nil
}

// Compose draws a 250x122 grayscale frame on a white background
func (c *FrameComposer) Compose(series domain.PriceSeries, snap domain.MarketSnapshot, isATH bool, chart image.Image, now time.Time) (*image.Gray, error) {
	pct, err := domain.PercentChange(series)
	if err != nil {
		return nil, err
	}

	price := series.Last()
	priceStr := domain.FormatPrice(price)

	fmt.Fprintln(c.console, domain.ConsoleLine(priceStr, isATH))
	c.logger.Info("Price updated",
		slog.String("price", priceStr),
		slog.Bool("ath", isATH),
		slog.Float64("volume", snap.Volume),
	)

	canvas := image.NewGray(image.Rect(0, 0, DisplayWidth, DisplayHeight))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	if isATH {
		c.drawATH(canvas)
	} else {
		c.drawToken(canvas)
	}

	if chart != nil {
		paste(canvas, chart, chartAt)
	}

	drawText(canvas, c.assets.LabelFace, changeAt, domain.FormatChangeLabel(c.days, pct))
	drawText(canvas, c.assets.PriceFace, priceAt, "$"+priceStr)
	drawText(canvas, c.assets.LabelFace, timeAt, domain.FormatTimestamp(now))

	return canvas, nil
}

func (c *FrameComposer) drawToken(dst draw.Image) {
	if c.assets.TokenIcon != nil {
		paste(dst, c.assets.TokenIcon, tokenIconAt)
		return
	}
	if c.assets.Symbol != "" {
		drawText(dst, c.assets.LabelFace, tokenIconAt.Add(image.Pt(8, 24)), strings.ToUpper(c.assets.Symbol))
	}
}

func (c *FrameComposer) drawATH(dst draw.Image) {
	if c.assets.ATHIcon != nil {
		paste(dst, c.assets.ATHIcon, athIconAt)
		return
	}
	box := image.Rect(0, 0, 50, 30).Add(athIconAt)
	strokeRect(dst, box, color.Black)
	drawText(dst, c.assets.LabelFace, athIconAt.Add(image.Pt(12, 8)), "ATH")
}

// paste composites src with its top-left corner at pt
func paste(dst draw.Image, src image.Image, pt image.Point) {
	b := src.Bounds()
	r := image.Rectangle{Min: pt, Max: pt.Add(b.Size())}
	draw.Draw(dst, r, src, b.Min, draw.Over)
}

// drawText draws s with the top of the line box at pt
func drawText(dst draw.Image, face font.Face, pt image.Point, s string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.P(pt.X, pt.Y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}

func strokeRect(dst draw.Image, r image.Rectangle, c color.Color) {
	for x := r.Min.X; x < r.Max.X; x++ {
		dst.Set(x, r.Min.Y, c)
		dst.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		dst.Set(r.Min.X, y, c)
		dst.Set(r.Max.X-1, y, c)
	}
}
