package views

import (
	"bytes"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crashtest-analyzer/models"
	"crashtest-analyzer/utils"
)

// ---------------------------------------------------------------------------
// CSV export
// ---------------------------------------------------------------------------

func tinyRecording() *models.Recording {
	rec := &models.Recording{
		TestID:      "T9",
		SampleRate:  1000,
		HeaderRows:  [][]string{{"Test ID", "T9", "", "", "", "", "", ""}, {"Units", "km/h", "g", "g", "g", "deg", "deg", "deg"}},
		ColumnNames: []string{"Time", "Spd", "", "Lat", "Vert", "Roll", "Pitch", "Yaw"},
		Time:        []float64{0, 0.001},
	}
	for _, r := range models.Roles() {
		rec.Channels[r] = []float64{float64(r), float64(r) + 0.25}
	}
	return rec
}

func TestWriteBiasCorrected(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "run_OFFSET.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale content that must disappear\n"), 0o644))

	n, err := WriteBiasCorrected(path, tinyRecording(), -1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	assert.Equal(t, []string{
		"Headers,,,,,,,",
		"Test ID,T9,,,,,,",
		"Units,km/h,g,g,g,deg,deg,deg",
		"Time,Spd,LongAccel,Lat,Vert,Roll,Pitch,Yaw",
		"0,0,1,2,3,4,5,6",
		"0.001,0.25,1.25,2.25,3.25,4.25,5.25,6.25",
	}, lines)
}

func TestWriteBiasCorrected_BadDirectory(t *testing.T) {
	t.Parallel()
	_, err := WriteBiasCorrected(filepath.Join(t.TempDir(), "missing", "x.csv"), tinyRecording(), -1)
	assert.Equal(t, models.KindIO, models.Classify(err))
}

func TestBiasOutputPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, filepath.Join("data", "run 7_OFFSET.csv"), BiasOutputPath(filepath.Join("data", "run 7.csv"), "_OFFSET"))
	assert.Equal(t, filepath.Join("data", "raw_OFFSET.csv"), BiasOutputPath(filepath.Join("data", "raw"), "_OFFSET"))
}

func TestCanonicalColumns(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"Time", "Speed", "LongAccel", "LatAccel", "VertAccel", "Roll", "Pitch", "Yaw"}, CanonicalColumns())
	assert.Equal(t, []string{"Headers", "", "", "", "", "", "", ""}, HeaderLabelRow())
}

// ---------------------------------------------------------------------------
// Axis helpers
// ---------------------------------------------------------------------------

func TestSpanAndClip(t *testing.T) {
	t.Parallel()
	b := Span(2, []float64{1, 5}, []float64{-3}, nil)
	assert.Equal(t, Bounds{Min: -5, Max: 7}, b)

	flat := Span(0, []float64{4, 4})
	assert.Greater(t, flat.Max, flat.Min)
	assert.Equal(t, Bounds{Min: -1, Max: 1}, Span(1))

	ts := models.TimeSeries{Time: []float64{0, 1, 2, 3, 4}, Value: []float64{10, 11, 12, 13, 14}}
	c := clip(ts, Bounds{Min: 0.5, Max: 3})
	assert.Equal(t, []float64{1, 2, 3}, c.Time)
	assert.Equal(t, []float64{11, 12, 13}, c.Value)
	assert.Zero(t, clip(ts, Bounds{Min: 10, Max: 11}).Len())
}

// ---------------------------------------------------------------------------
// Diagnostic
// ---------------------------------------------------------------------------

func decode(t *testing.T, b []byte) (int, int) {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func smallRender() utils.RenderConfig {
	return utils.RenderConfig{PanelWidth: 400, PanelHeight: 200, DPI: 92}
}

func detection(ok bool) *models.SpeedDetection {
	n := 400
	raw := models.TimeSeries{Time: make([]float64, n), Value: make([]float64, n)}
	for i := range raw.Time {
		raw.Time[i] = float64(i) * 1e-4
	}
	peaks := []int{50, 100, 250, 300}
	for _, p := range peaks {
		raw.Value[p] = -100
	}
	det := &models.SpeedDetection{
		Raw:         raw,
		Resampled:   raw,
		Transformed: raw.Map(func(v float64) float64 { return -math.Abs(v + 100) }),
		Peaks:       peaks,
	}
	if ok {
		det.Estimate = &models.SpeedEstimate{TestID: "T", LeadingKmh: 18, FallingKmh: 18, OffsetSeconds: 0.2, ResampledRate: 10000}
	} else {
		det.Peaks = peaks[:3]
	}
	return det
}

func angleRecording() *models.Recording {
	rec := &models.Recording{Time: make([]float64, 1100)}
	for i := range rec.Time {
		rec.Time[i] = float64(i) * 0.01
	}
	for _, r := range models.Roles() {
		rec.Channels[r] = make([]float64, len(rec.Time))
		for i, tt := range rec.Time {
			rec.Channels[r][i] = math.Sin(tt + float64(r))
		}
	}
	return rec
}

func TestDiagnostic_SuccessHasThreePanels(t *testing.T) {
	t.Parallel()
	d := NewDiagnosticRenderer(smallRender(), utils.DefaultConfig().Speed)
	out, err := d.Render(DiagnosticInput{
		TestID:    "T",
		Detection: detection(true),
		Window:    models.DefaultBiasWindow(),
		Recording: angleRecording(),
	})
	require.NoError(t, err)
	w, h := decode(t, out)
	assert.Equal(t, 400, w)
	assert.Equal(t, 600, h)
}

func TestDiagnostic_FailureIsRawOnly(t *testing.T) {
	t.Parallel()
	d := NewDiagnosticRenderer(smallRender(), utils.DefaultConfig().Speed)
	out, err := d.Render(DiagnosticInput{TestID: "T", Detection: detection(false), Window: models.DefaultBiasWindow()})
	require.NoError(t, err)
	w, h := decode(t, out)
	assert.Equal(t, 400, w)
	assert.Equal(t, 400, h)
}

func TestDiagnostic_EmptyTrace(t *testing.T) {
	t.Parallel()
	d := NewDiagnosticRenderer(smallRender(), utils.DefaultConfig().Speed)
	_, err := d.Render(DiagnosticInput{Detection: &models.SpeedDetection{}})
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Frames
// ---------------------------------------------------------------------------

func scene(extended bool) *FrameScene {
	n := 100
	mk := func(f func(float64) float64) models.TimeSeries {
		ts := models.TimeSeries{Time: make([]float64, n), Value: make([]float64, n)}
		for i := range ts.Time {
			ts.Time[i] = float64(i) * 1e-4
			ts.Value[i] = f(ts.Time[i])
		}
		return ts
	}
	s := &FrameScene{
		Params: models.FrameParams{OIV: 0.005, FinalTime: 0.01, CameraRate: 1000, Mode: models.ModeMASH, Extended: extended},
		X:      Bounds{Min: 0, Max: 0.015},
		AngleY: Bounds{Min: -2, Max: 2},
		ASIY:   Bounds{Min: -1, Max: 2},
	}
	for i := 0; i < 3; i++ {
		k := float64(i + 1)
		s.Accel[i] = mk(func(t float64) float64 { return k * math.Sin(1000*t) })
		s.Smooth[i] = s.Accel[i]
		s.AccelY[i] = Bounds{Min: -k - 2, Max: k + 2}
		s.Angles[i] = mk(func(t float64) float64 { return math.Cos(500*t) / k })
	}
	if extended {
		s.Params.Mode = models.ModeEN1317
		s.ASI = mk(func(t float64) float64 { return 100 * t })
	}
	return s
}

func TestFrameRenderer_Layouts(t *testing.T) {
	t.Parallel()
	cfg := utils.DefaultConfig().Frames
	cfg.PanelWidth, cfg.PanelHeight = 300, 180
	r := NewFrameRenderer(cfg, utils.DefaultConfig().Render)

	for _, tc := range []struct {
		name     string
		extended bool
		rows     []int
	}{
		{"baseline", false, []int{2, 2}},
		{"extended", true, []int{3, 2}},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := scene(tc.extended)
			layout := s.Layout()
			require.Len(t, layout, 2)
			assert.Len(t, layout[0], tc.rows[0])
			assert.Len(t, layout[1], tc.rows[1])

			for _, f := range []models.FrameSpec{
				{Number: 1, Cutoff: -1, PreRoll: true, CountdownMs: -10},
				{Number: 10, Cutoff: 0},
				{Number: 15, Cutoff: 50},
				{Number: 20, Cutoff: 500},
			} {
				img, err := r.Render(s, f)
				require.NoError(t, err, "frame %d", f.Number)
				assert.Equal(t, 600, img.Bounds().Dx())
				assert.Equal(t, 360, img.Bounds().Dy())
			}
		})
	}
}

func TestFramePanelTitles(t *testing.T) {
	t.Parallel()
	r := NewFrameRenderer(utils.DefaultConfig().Frames, utils.DefaultConfig().Render)
	s := scene(true)

	pre := models.FrameSpec{Number: 3, Cutoff: -1, PreRoll: true, CountdownMs: -8}
	assert.Equal(t, "t=-8 ms a=      g", r.panel(s, models.PanelLongAccel, pre).Title)
	assert.Equal(t, "t=-8 ms R=      P=     Y=     ", r.panel(s, models.PanelAngles, pre).Title)

	f := models.FrameSpec{Number: 30, Cutoff: 20}
	x := r.panel(s, models.PanelLongAccel, f)
	assert.Equal(t, "t=2 ms a=0.91 g", x.Title)
	assert.Equal(t, "t=2.0 ms a=1.82 g", r.panel(s, models.PanelLatAccel, f).Title)
	assert.Equal(t, "t=2 ms R=0.5 P=0.3 Y=0.2", r.panel(s, models.PanelAngles, f).Title)
	assert.Equal(t, "t=2 ms ASI=0.20", r.panel(s, models.PanelASI, f).Title)

	// full trace, moving line, THIV marker
	require.Len(t, x.Series, 3)
	assert.Equal(t, "Time of THIV", x.Series[2].GetName())
	assert.Len(t, r.panel(s, models.PanelLongAccel, pre).Series, 2, "pre-roll has no moving line")
}

func TestPrepareFrameDirAndWrite(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "generated_images")

	n, err := PrepareFrameDir(dir)
	require.NoError(t, err)
	assert.Zero(t, n)

	img, err := NewFrameRenderer(utils.DefaultConfig().Frames, utils.DefaultConfig().Render).
		Render(scene(false), models.FrameSpec{Number: 1, Cutoff: -1, PreRoll: true, CountdownMs: -10})
	require.NoError(t, err)
	require.NoError(t, WriteFramePNG(filepath.Join(dir, "1.png"), img))
	require.NoError(t, WriteFramePNG(filepath.Join(dir, "2.png"), img))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0o644))

	n, err = PrepareFrameDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	left, _ := filepath.Glob(filepath.Join(dir, "*"))
	assert.Equal(t, []string{filepath.Join(dir, "keep.txt")}, left)
}
