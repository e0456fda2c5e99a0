package controller

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"crashtest-analyzer/models"
	"crashtest-analyzer/services/ingest"
	"crashtest-analyzer/services/signal"
	"crashtest-analyzer/utils"
	"crashtest-analyzer/views"
)

// FrameController renders the synchronised frame sequence for video
// overlay. Each frame is a pure function of the shared scene and its own
// sample cutoff, so frames are rendered in parallel.
type FrameController struct {
	cfg      *utils.Config
	reader   *ingest.ChannelReader
	renderer *views.FrameRenderer
}

func NewFrameController(cfg *utils.Config) *FrameController {
	return &FrameController{
		cfg:      cfg,
		reader:   ingest.NewChannelReader(cfg.Frames),
		renderer: views.NewFrameRenderer(cfg.Frames, cfg.Render),
	}
}

// OutputDir is where the frames of req are written.
func (c *FrameController) OutputDir(req models.FrameRequest) string {
	return filepath.Join(filepath.Dir(req.XFile), c.cfg.Frames.OutputSubdir)
}

// Params coerces the numeric fields of req under their configured policies.
func (c *FrameController) Params(req models.FrameRequest) (models.FrameParams, error) {
	fc := c.cfg.Frames
	p := models.FrameParams{Mode: models.ParseTestMode(req.Mode), Extended: req.Extended()}

	var err error
	if p.OIV, _, err = models.CoerceFloat("oiv", req.OIV, fc.OIV); err != nil {
		return p, err
	}
	finalSpec := fc.FinalTime
	if p.Extended {
		finalSpec = fc.FinalTimeExtended
	}
	if p.FinalTime, _, err = models.CoerceFloat("final", req.FinalTime, finalSpec); err != nil {
		return p, err
	}
	if p.CameraRate, _, err = models.CoerceFloat("camera_rate", req.CameraRate, fc.CameraRate); err != nil {
		return p, err
	}
	if !(p.FinalTime > 0) {
		return p, &models.ParameterCoercionError{Field: "final", Value: req.FinalTime}
	}
	if !(p.CameraRate > 0) {
		return p, &models.ParameterCoercionError{Field: "camera_rate", Value: req.CameraRate}
	}
	return p, nil
}

// PlanFrames lays out the sequence for a series sampled every dt seconds
// with n samples below the final time:
//
//	increment  = (1/dt) / camera_rate
//	num_images = floor(final / dt / increment)
//
// Pre-roll frames are numbered 1..preroll; motion frame i is numbered
// preroll+i and shows samples [0, floor(i×increment)], so frame i always
// sits at camera time i/camera_rate.
func PlanFrames(dt float64, n int, p models.FrameParams, preroll int) (models.FramePlan, error) {
	if !(dt > 0) {
		return models.FramePlan{}, fmt.Errorf("frame plan: sample interval %g is not positive", dt)
	}
	if !(p.CameraRate > 0) {
		return models.FramePlan{}, fmt.Errorf("frame plan: camera rate %g is not positive", p.CameraRate)
	}
	inc := (1 / dt) / p.CameraRate
	num := int(math.Floor(p.FinalTime/dt/inc + 1e-9))
	if num < 0 {
		num = 0
	}

	plan := models.FramePlan{Increment: inc, NumImages: num, Frames: make([]models.FrameSpec, 0, preroll+num)}
	for i := 0; i < preroll; i++ {
		plan.Frames = append(plan.Frames, models.FrameSpec{
			Number:      i + 1,
			Cutoff:      -1,
			PreRoll:     true,
			CountdownMs: i - preroll,
		})
	}
	for i := 0; i < num; i++ {
		cut := int(math.Floor(float64(i)*inc + 1e-9))
		if cut > n-1 {
			cut = n - 1
		}
		plan.Frames = append(plan.Frames, models.FrameSpec{Number: preroll + i, Cutoff: cut})
	}
	return plan, nil
}

// Scene loads every channel file of req and prepares the static content of
// the sequence.
func (c *FrameController) Scene(req models.FrameRequest, p models.FrameParams) (*views.FrameScene, error) {
	fc := c.cfg.Frames
	s := &views.FrameScene{Params: p}

	var full [3]models.TimeSeries
	for i, path := range []string{req.XFile, req.YFile, req.ZFile} {
		tbl, err := c.reader.Read(path)
		if err != nil {
			return nil, err
		}
		if full[i], err = tbl.First(); err != nil {
			return nil, err
		}
	}
	// Smooth before the final-time cut; the last samples keep a full window.
	w := signal.WindowSamples(fc.SmoothingWindowSeconds, full[0].Step())
	for i, ts := range full {
		smooth := models.TimeSeries{Time: ts.Time, Value: signal.CenteredMean(ts.Value, w)}
		s.Accel[i] = ts.Before(p.FinalTime)
		s.Smooth[i] = smooth.Before(p.FinalTime)
	}

	rpy, err := c.reader.Read(req.RPYFile)
	if err != nil {
		return nil, err
	}
	for i, name := range []string{fc.Columns.Roll, fc.Columns.Pitch, fc.Columns.Yaw} {
		ts, err := rpy.Column(name)
		if err != nil {
			return nil, err
		}
		s.Angles[i] = ts.Before(p.FinalTime)
	}

	if p.Extended {
		tbl, err := c.reader.Read(req.ASIFile)
		if err != nil {
			return nil, err
		}
		ts, err := tbl.Column(fc.Columns.ASI)
		if err != nil {
			if ts, err = tbl.First(); err != nil {
				return nil, err
			}
		}
		s.ASI = ts.Before(p.FinalTime)
	}

	n := s.Accel[0].Len()
	if n < 2 {
		return nil, &models.StructuralParseError{
			Path:   req.XFile,
			Reason: fmt.Sprintf("%d samples before t=%g, need at least 2", n, p.FinalTime),
		}
	}
	type loaded struct {
		path string
		ts   models.TimeSeries
	}
	check := []loaded{{req.YFile, s.Accel[1]}, {req.ZFile, s.Accel[2]}, {req.RPYFile, s.Angles[0]}}
	if p.Extended {
		check = append(check, loaded{req.ASIFile, s.ASI})
	}
	for _, ch := range check {
		if ch.ts.Len() != n {
			return nil, &models.StructuralParseError{
				Path:   ch.path,
				Field:  "length",
				Reason: fmt.Sprintf("%d samples before t=%g, x channel has %d", ch.ts.Len(), p.FinalTime, n),
			}
		}
	}

	dt := s.Accel[0].Step()
	if !(dt > 0) {
		return nil, &models.StructuralParseError{Path: req.XFile, Field: "time", Reason: "first two timestamps do not increase"}
	}
	// Accel axes span the smoothed traces, which are what gets plotted.
	for i, ts := range s.Smooth {
		s.AccelY[i] = views.Span(fc.AccelMargin, ts.Value)
	}
	s.AngleY = views.Span(fc.AngleMargin, s.Angles[0].Value, s.Angles[1].Value, s.Angles[2].Value)
	if p.Extended {
		s.ASIY = views.Span(fc.AngleMargin, s.ASI.Value)
	}
	s.X = views.Bounds{Min: 0, Max: p.FinalTime + fc.XPadSeconds}

	utils.L().Info("frame scene ready      (samples=%d, dt=%gs, smoothing=%d, mode=%s, extended=%v)",
		n, dt, w, p.Mode, p.Extended)
	return s, nil
}

// Generate renders the whole sequence for req. Any failure aborts the run;
// frames already written are left in place and the caller should treat the
// directory as incomplete.
func (c *FrameController) Generate(ctx context.Context, req models.FrameRequest) *models.FrameSequenceResult {
	start := time.Now()
	res := &models.FrameSequenceResult{Dir: c.OutputDir(req)}

	fail := func(err error) *models.FrameSequenceResult {
		res.OK = false
		res.ErrorKind = models.Classify(err)
		res.Error = err.Error()
		utils.L().Error("frame sequence failed  (%s, kind=%s): %v", res.Dir, res.ErrorKind, err)
		return res
	}

	params, err := c.Params(req)
	if err != nil {
		return fail(err)
	}
	scene, err := c.Scene(req, params)
	if err != nil {
		return fail(err)
	}
	plan, err := PlanFrames(scene.Smooth[0].Step(), scene.Len(), params, c.cfg.Frames.PreRollFrames)
	if err != nil {
		return fail(err)
	}
	res.Increment, res.NumImages = plan.Increment, plan.NumImages

	removed, err := views.PrepareFrameDir(res.Dir)
	if err != nil {
		return fail(err)
	}
	utils.L().Info("frame plan             (dir=%s, increment=%g, images=%d, cleared=%d)",
		res.Dir, plan.Increment, plan.NumImages, removed)

	pre, motion := splitPlan(plan)
	for _, phase := range [][]models.FrameSpec{pre, motion} {
		n, err := c.renderPhase(ctx, scene, res.Dir, phase)
		res.Frames += n
		if err != nil {
			return fail(err)
		}
	}

	res.OK = true
	utils.L().Info("frame sequence done    (dir=%s, frames=%d, elapsed=%s)", res.Dir, res.Frames, utils.Elapsed(start))
	return res
}

func splitPlan(plan models.FramePlan) (pre, motion []models.FrameSpec) {
	for _, f := range plan.Frames {
		if f.PreRoll {
			pre = append(pre, f)
		} else {
			motion = append(motion, f)
		}
	}
	return pre, motion
}

// renderPhase renders frames with a bounded worker pool. Phases run one
// after the other, so a motion frame sharing a pre-roll number always
// overwrites it.
func (c *FrameController) renderPhase(ctx context.Context, scene *views.FrameScene, dir string, frames []models.FrameSpec) (int, error) {
	workers := c.cfg.Frames.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	done := make([]bool, len(frames))
	for i, f := range frames {
		i, f := i, f
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := c.renderer.Render(scene, f)
			if err != nil {
				return err
			}
			if err := views.WriteFramePNG(filepath.Join(dir, f.FileName()), img); err != nil {
				return err
			}
			done[i] = true
			return nil
		})
	}
	err := g.Wait()

	n := 0
	for _, ok := range done {
		if ok {
			n++
		}
	}
	if err == nil {
		err = ctx.Err()
	}
	return n, err
}
