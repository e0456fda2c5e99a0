package views

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"gonum.org/v1/gonum/floats"

	"crashtest-analyzer/models"
)

// ─── axis helpers ───────────────────────────────────────────────────────

// Bounds is a fixed axis interval.
type Bounds struct {
	Min, Max float64
}

// Span returns min-margin .. max+margin over every value of vs. The result
// always has a positive width so go-chart never sees a zero delta.
func Span(margin float64, vs ...[]float64) Bounds {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vs {
		if len(v) == 0 {
			continue
		}
		lo = math.Min(lo, floats.Min(v))
		hi = math.Max(hi, floats.Max(v))
	}
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return Bounds{Min: -1, Max: 1}
	}
	return widen(Bounds{Min: lo - margin, Max: hi + margin})
}

func widen(b Bounds) Bounds {
	if b.Max > b.Min {
		return b
	}
	pad := math.Max(math.Abs(b.Min)*0.05, 0.5)
	return Bounds{Min: b.Min - pad, Max: b.Max + pad}
}

// Range allocates a fresh go-chart range; ranges are mutated while rendering.
func (b Bounds) Range() *chart.ContinuousRange {
	return &chart.ContinuousRange{Min: b.Min, Max: b.Max}
}

func (b Bounds) Contains(v float64) bool { return v >= b.Min && v <= b.Max }

// clip keeps the samples of ts whose time lies in b. go-chart draws points
// outside the axis range, so every series is clipped before plotting.
func clip(ts models.TimeSeries, b Bounds) models.TimeSeries {
	lo, hi := 0, ts.Len()
	for lo < hi && ts.Time[lo] < b.Min {
		lo++
	}
	for hi > lo && ts.Time[hi-1] > b.Max {
		hi--
	}
	return models.TimeSeries{Time: ts.Time[lo:hi], Value: ts.Value[lo:hi]}
}

// ─── series builders ────────────────────────────────────────────────────

var (
	colorX     = chart.ColorBlue
	colorY     = chart.ColorGreen
	colorZ     = chart.ColorRed
	colorASI   = chart.ColorOrange
	colorFaint = chart.ColorAlternateGray
	colorMark  = drawing.ColorBlack
)

var dotted = []float64{2, 4}

func line(name string, ts models.TimeSeries, col drawing.Color, dash []float64) chart.ContinuousSeries {
	return chart.ContinuousSeries{
		Name:    name,
		XValues: ts.Time,
		YValues: ts.Value,
		Style: chart.Style{
			StrokeColor:     col,
			StrokeWidth:     1.5,
			StrokeDashArray: dash,
		},
	}
}

// dots renders markers only (no connecting line).
func dots(name string, xs, ys []float64, col drawing.Color) chart.ContinuousSeries {
	return chart.ContinuousSeries{
		Name:    name,
		XValues: xs,
		YValues: ys,
		Style: chart.Style{
			StrokeWidth: chart.Disabled,
			DotWidth:    4,
			DotColor:    col,
		},
	}
}

// vline is a dashed vertical marker spanning y.
func vline(name string, x float64, y Bounds, col drawing.Color) chart.ContinuousSeries {
	return line(name, models.TimeSeries{Time: []float64{x, x}, Value: []float64{y.Min, y.Max}}, col, []float64{6, 4})
}

// ─── rendering ──────────────────────────────────────────────────────────

// panel is one chart of a multi-panel figure.
type panel struct {
	Title     string
	TitleSize float64
	XName     string
	YName     string
	X, Y      Bounds
	Series    []chart.Series
	Legend    bool
}

func (p panel) render(w, h int, dpi float64) (image.Image, error) {
	ch := chart.Chart{
		Title:      p.Title,
		TitleStyle: chart.Style{FontSize: p.TitleSize},
		Width:      w,
		Height:     h,
		DPI:        dpi,
		Background: chart.Style{Padding: chart.Box{Top: 36, Left: 16, Right: 16, Bottom: 12}},
		XAxis:      chart.XAxis{Name: p.XName, Range: p.X.Range()},
		YAxis:      chart.YAxis{Name: p.YName, Range: p.Y.Range()},
	}
	// go-chart rejects series without values.
	for _, s := range p.Series {
		if vp, ok := s.(chart.ValuesProvider); ok && vp.Len() == 0 {
			continue
		}
		ch.Series = append(ch.Series, s)
	}
	if len(ch.Series) == 0 {
		// An invisible anchor keeps empty panels renderable.
		ch.Series = []chart.Series{chart.ContinuousSeries{
			Style:   chart.Style{StrokeWidth: chart.Disabled},
			XValues: []float64{p.X.Min, p.X.Max},
			YValues: []float64{p.Y.Min, p.Y.Min},
		}}
	}
	if p.Legend {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render %q: %w", p.Title, err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", p.Title, err)
	}
	return img, nil
}

// compose lays rows of images out top to bottom. Cells of a row are placed
// left to right; the canvas is as wide as the widest row.
func compose(rows [][]image.Image) *image.RGBA {
	w, h := 0, 0
	for _, row := range rows {
		rw, rh := 0, 0
		for _, img := range row {
			b := img.Bounds()
			rw += b.Dx()
			if b.Dy() > rh {
				rh = b.Dy()
			}
		}
		if rw > w {
			w = rw
		}
		h += rh
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), image.White, image.Point{}, draw.Src)
	y := 0
	for _, row := range rows {
		x, rh := 0, 0
		for _, img := range row {
			b := img.Bounds()
			draw.Draw(out, image.Rect(x, y, x+b.Dx(), y+b.Dy()), img, b.Min, draw.Src)
			x += b.Dx()
			if b.Dy() > rh {
				rh = b.Dy()
			}
		}
		y += rh
	}
	return out
}

// stamp writes text at (x, baseline y) on a translucent box.
func stamp(img *image.RGBA, x, y int, text string) {
	face := basicfont.Face7x13
	dr := &font.Drawer{Dst: img, Src: image.NewUniform(color.RGBA{R: 255, G: 255, B: 255, A: 255}), Face: face}
	tw := dr.MeasureString(text).Ceil()

	pad := 4
	bg := image.NewUniform(color.RGBA{A: 200})
	rect := image.Rect(x-pad, y-face.Metrics().Ascent.Ceil()-pad, x+tw+pad, y+pad)
	draw.Draw(img, rect, bg, image.Point{}, draw.Over)

	dr.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}
	dr.DrawString(text)
}

// EncodePNG encodes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}
	return buf.Bytes(), nil
}
