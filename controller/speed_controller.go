package controller

import (
	"fmt"
	"time"

	"crashtest-analyzer/models"
	"crashtest-analyzer/services/analysis"
	"crashtest-analyzer/services/ingest"
	"crashtest-analyzer/utils"
	"crashtest-analyzer/views"
)

// SpeedBiasController runs the speed/bias pipeline for one recording:
//
//	RecordingReader → SpeedEstimator → BiasCorrector → CSV + DiagnosticRenderer
//
// Every call returns a structured result; failures never escape as errors
// or panics.
type SpeedBiasController struct {
	cfg       *utils.Config
	reader    *ingest.RecordingReader
	estimator *analysis.SpeedEstimator
	corrector *analysis.BiasCorrector
	diag      *views.DiagnosticRenderer
}

func NewSpeedBiasController(cfg *utils.Config) *SpeedBiasController {
	return &SpeedBiasController{
		cfg:       cfg,
		reader:    ingest.NewRecordingReader(cfg.Recording),
		estimator: analysis.NewSpeedEstimator(cfg.Speed),
		corrector: analysis.NewBiasCorrector(cfg.Bias),
		diag:      views.NewDiagnosticRenderer(cfg.Render, cfg.Speed),
	}
}

// OutputPath is where the bias-corrected CSV of input is written.
func (c *SpeedBiasController) OutputPath(input string) string {
	return views.BiasOutputPath(input, c.cfg.Bias.OutputSuffix)
}

// Process runs the pipeline for req.
func (c *SpeedBiasController) Process(req models.SpeedRequest) (res *models.AnalysisResult) {
	start := time.Now()
	res = &models.AnalysisResult{}
	defer func() {
		if r := recover(); r != nil {
			res = &models.AnalysisResult{TestID: res.TestID, Window: res.Window}
			res.Fail(fmt.Errorf("speed pipeline panic: %v", r))
			utils.L().Error("speed pipeline panic (%s): %v", req.File, r)
		}
	}()

	window, err := c.corrector.Window(req.Start, req.End)
	if err != nil {
		return c.fail(res, req, err)
	}
	res.Window = window

	rec, err := c.reader.Read(req.File)
	if err != nil {
		return c.fail(res, req, err)
	}
	res.TestID = rec.TestID

	det, err := c.estimator.Detect(rec.TestID, rec.Series(models.RoleSpeed))
	if err != nil {
		return c.fail(res, req, err)
	}

	bias, err := c.corrector.Correct(rec, window)
	if err != nil {
		return c.fail(res, req, err)
	}

	out := c.OutputPath(req.File)
	rows, err := views.WriteBiasCorrected(out, bias.Corrected, c.cfg.Bias.FloatPrecision)
	if err != nil {
		return c.fail(res, req, err)
	}
	utils.L().Info("bias csv written       (%s, rows=%d)", out, rows)

	res.OutputCSV = out
	res.RollBias = models.F(bias.Roll)
	res.PitchBias = models.F(bias.Pitch)
	res.YawBias = models.F(bias.Yaw)
	res.PeakCount = det.PeakCount()
	if det.OK() {
		res.SpeedKmh = models.F(det.Estimate.LeadingKmh)
		res.SpeedFalling = models.F(det.Estimate.FallingKmh)
		res.Offset = models.F(det.Estimate.OffsetSeconds)
	} else {
		res.ErrorFlag = 1
		res.ErrorKind = models.KindSignalQuality
		res.Error = fmt.Sprintf("found %d speed peaks, expected %d", det.PeakCount(), c.cfg.Speed.ExpectedPeaks)
	}

	img, err := c.diag.Render(views.DiagnosticInput{
		TestID:    rec.TestID,
		Detection: det,
		Window:    window,
		Recording: rec,
	})
	if err != nil {
		utils.L().Error("diagnostic render (%s): %v", req.File, err)
	} else {
		res.Diagnostic = img
	}

	utils.L().Info("speed pipeline done    (%s, test=%s, flag=%d, elapsed=%s)",
		req.File, res.TestID, res.ErrorFlag, utils.Elapsed(start))
	return res
}

func (c *SpeedBiasController) fail(res *models.AnalysisResult, req models.SpeedRequest, err error) *models.AnalysisResult {
	res.Fail(err)
	utils.L().Error("speed pipeline failed  (%s, kind=%s): %v", req.File, res.ErrorKind, err)
	return res
}
