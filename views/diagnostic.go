package views

import (
	"fmt"
	"image"

	chart "github.com/wcharczuk/go-chart/v2"

	"crashtest-analyzer/models"
	"crashtest-analyzer/utils"
)

// DiagnosticRenderer draws the speed/bias diagnostic figure.
type DiagnosticRenderer struct {
	render utils.RenderConfig
	speed  utils.SpeedConfig
}

func NewDiagnosticRenderer(render utils.RenderConfig, speed utils.SpeedConfig) *DiagnosticRenderer {
	return &DiagnosticRenderer{render: render, speed: speed}
}

// DiagnosticInput is everything the figure shows. Angles come from the
// uncorrected recording so the bias window can be judged by eye.
type DiagnosticInput struct {
	TestID    string
	Detection *models.SpeedDetection
	Window    models.BiasWindow
	Recording *models.Recording
}

// Render returns the encoded PNG. With a speed estimate it draws three
// stacked panels; without one it draws the full raw speed trace only.
func (d *DiagnosticRenderer) Render(in DiagnosticInput) ([]byte, error) {
	if in.Detection == nil || in.Detection.Raw.Len() < 2 {
		return nil, fmt.Errorf("diagnostic: speed trace is empty")
	}

	var img *image.RGBA
	var err error
	if in.Detection.OK() {
		img, err = d.success(in)
	} else {
		img, err = d.failure(in)
	}
	if err != nil {
		return nil, err
	}
	return EncodePNG(img)
}

func (d *DiagnosticRenderer) size() (int, int, float64) {
	return d.render.PanelWidth, d.render.PanelHeight, d.render.DPI
}

func (d *DiagnosticRenderer) success(in DiagnosticInput) (*image.RGBA, error) {
	det := in.Detection
	est := det.Estimate
	rt := det.Resampled.Time
	p := det.Peaks
	w, h, dpi := d.size()

	// (1) raw vs. shifted raw around the first passage.
	xa := widen(Bounds{Min: rt[p[0]] - d.speed.PlotLeadSeconds, Max: rt[p[1]] + d.speed.PlotMarginSeconds})
	raw := clip(det.Raw, xa)
	shifted := clip(det.Raw.Shift(-est.OffsetSeconds), xa)
	alignment := panel{
		Title:  fmt.Sprintf("%s  speed %.2f km/h  (falling %.2f km/h)", in.TestID, est.LeadingKmh, est.FallingKmh),
		XName:  "Time (s)",
		YName:  "Speed sensor",
		X:      xa,
		Y:      Span(5, raw.Value, shifted.Value),
		Series: []chart.Series{
			line("raw", raw, colorX, nil),
			line(fmt.Sprintf("shifted %.4f s", est.OffsetSeconds), shifted, colorZ, nil),
		},
		Legend: true,
	}

	// (2) angles with the bias window marked.
	angles := panel{
		Title:  fmt.Sprintf("Roll / Pitch / Yaw, bias window %s s", in.Window),
		XName:  "Time (s)",
		YName:  "deg",
		Legend: true,
	}
	if in.Recording != nil && in.Recording.Len() >= 2 {
		rec := in.Recording
		angles.X = widen(Bounds{Min: rec.Time[0], Max: rec.Time[rec.Len()-1]})
		angles.Y = Span(1, rec.Channels[models.RoleRoll], rec.Channels[models.RolePitch], rec.Channels[models.RoleYaw])
		angles.Series = []chart.Series{
			line("Roll", rec.Series(models.RoleRoll), colorX, nil),
			line("Pitch", rec.Series(models.RolePitch), colorY, nil),
			line("Yaw", rec.Series(models.RoleYaw), colorZ, nil),
		}
		for _, t := range []float64{in.Window.Start, in.Window.End} {
			if angles.X.Contains(t) {
				angles.Series = append(angles.Series, vline(fmt.Sprintf("t=%g", t), t, angles.Y, colorMark))
			}
		}
	} else {
		angles.X, angles.Y = Bounds{Min: 0, Max: 1}, Bounds{Min: -1, Max: 1}
	}

	// (3) transformed trace and the detected peaks.
	xp := widen(Bounds{Min: rt[p[0]] - d.speed.PlotMarginSeconds, Max: rt[p[len(p)-1]] + d.speed.PlotMarginSeconds})
	tr := clip(det.Transformed, xp)
	px := make([]float64, len(p))
	py := make([]float64, len(p))
	for i, k := range p {
		px[i], py[i] = rt[k], det.Transformed.Value[k]
	}
	peaks := panel{
		Title:  fmt.Sprintf("-|v - (%g)| with %d peaks", d.speed.ReferenceLevel, len(p)),
		XName:  "Time (s)",
		X:      xp,
		Y:      Span(5, tr.Value),
		Series: []chart.Series{
			line("transformed", tr, colorX, nil),
			dots("peaks", px, py, colorZ),
		},
	}

	var imgs [][]image.Image
	for _, pn := range []panel{alignment, angles, peaks} {
		img, err := pn.render(w, h, dpi)
		if err != nil {
			return nil, err
		}
		imgs = append(imgs, []image.Image{img})
	}
	return compose(imgs), nil
}

func (d *DiagnosticRenderer) failure(in DiagnosticInput) (*image.RGBA, error) {
	det := in.Detection
	w, h, dpi := d.size()
	t0, t1 := det.Raw.Span()

	pn := panel{
		Title:  fmt.Sprintf("%s  raw speed trace", in.TestID),
		XName:  "Time (s)",
		YName:  "Speed sensor",
		X:      widen(Bounds{Min: t0, Max: t1}),
		Y:      Span(5, det.Raw.Value),
		Series: []chart.Series{line("raw", det.Raw, colorX, nil)},
	}
	img, err := pn.render(w, h*2, dpi)
	if err != nil {
		return nil, err
	}
	out := compose([][]image.Image{{img}})
	stamp(out, 12, out.Bounds().Dy()-12,
		fmt.Sprintf("speed detection failed: found %d peaks, expected %d", det.PeakCount(), d.speed.ExpectedPeaks))
	return out, nil
}
