package views

import (
	"fmt"
	"image"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"crashtest-analyzer/models"
	"crashtest-analyzer/utils"
)

// FrameScene is the static content shared by every frame of a sequence.
// All series share one time axis, already limited to t < final.
type FrameScene struct {
	Params models.FrameParams

	Accel  [3]models.TimeSeries // X, Y, Z as loaded
	Smooth [3]models.TimeSeries // X, Y, Z after the moving average
	Angles [3]models.TimeSeries // roll, pitch, yaw
	ASI    models.TimeSeries    // extended layout only

	AccelY [3]Bounds
	AngleY Bounds
	ASIY   Bounds
	X      Bounds
}

// Len is the sample count of the shared time axis.
func (s *FrameScene) Len() int { return s.Smooth[0].Len() }

// Layout returns the panel grid: [[X, Y], [Z, RPY]] or, extended,
// [[X, Y, Z], [ASI, RPY]].
func (s *FrameScene) Layout() [][]models.PanelKind {
	if s.Params.Extended {
		return [][]models.PanelKind{
			{models.PanelLongAccel, models.PanelLatAccel, models.PanelVertAccel},
			{models.PanelASI, models.PanelAngles},
		}
	}
	return [][]models.PanelKind{
		{models.PanelLongAccel, models.PanelLatAccel},
		{models.PanelVertAccel, models.PanelAngles},
	}
}

// FrameRenderer draws one composite frame from a scene and a frame spec.
// It holds no per-frame state, so frames may be rendered concurrently.
type FrameRenderer struct {
	cfg utils.FramesConfig
	dpi float64
}

func NewFrameRenderer(cfg utils.FramesConfig, render utils.RenderConfig) *FrameRenderer {
	return &FrameRenderer{cfg: cfg, dpi: render.DPI}
}

// Render draws frame f of scene s.
func (r *FrameRenderer) Render(s *FrameScene, f models.FrameSpec) (*image.RGBA, error) {
	layout := s.Layout()
	totalW := 2 * r.cfg.PanelWidth

	rows := make([][]image.Image, len(layout))
	for i, kinds := range layout {
		cellW := totalW / len(kinds)
		for _, k := range kinds {
			pn := r.panel(s, k, f)
			pn.TitleSize = r.cfg.TitleFontSize
			img, err := pn.render(cellW, r.cfg.PanelHeight, r.dpi)
			if err != nil {
				return nil, fmt.Errorf("frame %d: %w", f.Number, err)
			}
			rows[i] = append(rows[i], img)
		}
	}

	out := compose(rows)
	stamp(out, 8, 16, fmt.Sprintf("%s  #%d", s.Params.Mode, f.Number))
	return out, nil
}

var accelNames = [3]string{"X", "Y", "Z"}
var accelColors = [3]drawing.Color{colorX, colorY, colorZ}

func (r *FrameRenderer) panel(s *FrameScene, k models.PanelKind, f models.FrameSpec) panel {
	switch k {
	case models.PanelLongAccel, models.PanelLatAccel, models.PanelVertAccel:
		return r.accelPanel(s, int(k-models.PanelLongAccel), f)
	case models.PanelASI:
		return r.asiPanel(s, f)
	}
	return r.anglePanel(s, f)
}

// moving returns the first cutoff+1 samples, or nothing for pre-roll.
func moving(ts models.TimeSeries, f models.FrameSpec) models.TimeSeries {
	if f.PreRoll || f.Cutoff < 0 {
		return ts.Head(0)
	}
	return ts.Head(f.Cutoff + 1)
}

// at returns the sample index a motion frame reports.
func at(s *FrameScene, f models.FrameSpec) int {
	if f.Cutoff >= s.Len() {
		return s.Len() - 1
	}
	return f.Cutoff
}

func ms(t float64) float64 { return 1000 * t }

func (r *FrameRenderer) accelPanel(s *FrameScene, axis int, f models.FrameSpec) panel {
	sm := s.Smooth[axis]
	p := panel{
		XName:  "Time (s)",
		YName:  accelNames[axis] + " (g)",
		X:      s.X,
		Y:      s.AccelY[axis],
		Series: []chart.Series{line(accelNames[axis]+" full", clip(sm, s.X), colorFaint, dotted)},
		Legend: axis == 0,
	}
	if mv := clip(moving(sm, f), s.X); mv.Len() > 0 {
		p.Series = append(p.Series, line(accelNames[axis], mv, accelColors[axis], nil))
	}
	if axis == 0 && s.X.Contains(s.Params.OIV) {
		p.Series = append(p.Series, vline(s.Params.Mode.MarkerLabel(), s.Params.OIV, p.Y, colorMark))
	}

	switch {
	case f.PreRoll:
		p.Title = fmt.Sprintf("t=%d ms a=      g", f.CountdownMs)
	case axis == 0:
		i := at(s, f)
		p.Title = fmt.Sprintf("t=%d ms a=%.2f g", utils.Millis(sm.Time[i]), sm.Value[i])
	default:
		i := at(s, f)
		p.Title = fmt.Sprintf("t=%.1f ms a=%.2f g", ms(sm.Time[i]), sm.Value[i])
	}
	return p
}

func (r *FrameRenderer) anglePanel(s *FrameScene, f models.FrameSpec) panel {
	names := [3]string{"Roll", "Pitch", "Yaw"}
	p := panel{
		XName:  "Time (s)",
		YName:  "deg",
		X:      s.X,
		Y:      s.AngleY,
		Legend: true,
	}
	for i, ts := range s.Angles {
		p.Series = append(p.Series, line(names[i]+" full", clip(ts, s.X), colorFaint, dotted))
	}
	for i, ts := range s.Angles {
		if mv := clip(moving(ts, f), s.X); mv.Len() > 0 {
			p.Series = append(p.Series, line(names[i], mv, accelColors[i], nil))
		}
	}

	if f.PreRoll {
		p.Title = fmt.Sprintf("t=%d ms R=      P=     Y=     ", f.CountdownMs)
		return p
	}
	i := at(s, f)
	p.Title = fmt.Sprintf("t=%d ms R=%.1f P=%.1f Y=%.1f",
		utils.Millis(s.Angles[0].Time[i]), s.Angles[0].Value[i], s.Angles[1].Value[i], s.Angles[2].Value[i])
	return p
}

func (r *FrameRenderer) asiPanel(s *FrameScene, f models.FrameSpec) panel {
	p := panel{
		XName:  "Time (s)",
		YName:  "ASI",
		X:      s.X,
		Y:      s.ASIY,
		Series: []chart.Series{line("ASI full", clip(s.ASI, s.X), colorFaint, dotted)},
	}
	if mv := clip(moving(s.ASI, f), s.X); mv.Len() > 0 {
		p.Series = append(p.Series, line("ASI", mv, colorASI, nil))
	}
	if f.PreRoll {
		p.Title = fmt.Sprintf("t=%d ms ASI=     ", f.CountdownMs)
		return p
	}
	i := at(s, f)
	p.Title = fmt.Sprintf("t=%d ms ASI=%.2f", utils.Millis(s.ASI.Time[i]), s.ASI.Value[i])
	return p
}
