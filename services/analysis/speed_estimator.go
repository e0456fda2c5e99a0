package analysis

import (
	"fmt"
	"math"

	"crashtest-analyzer/models"
	"crashtest-analyzer/services/signal"
	"crashtest-analyzer/utils"
)

// kmhPerMps converts metres per second to km/h.
const kmhPerMps = 3600.0 / 1000.0

// SpeedEstimator derives impact speed from the four sensor-passage dips of
// the speed channel.
type SpeedEstimator struct {
	cfg utils.SpeedConfig
}

func NewSpeedEstimator(cfg utils.SpeedConfig) *SpeedEstimator {
	return &SpeedEstimator{cfg: cfg}
}

// Transform maps v to -|v - reference|, turning dips towards the reference
// level into maxima.
func (e *SpeedEstimator) Transform(ts models.TimeSeries) models.TimeSeries {
	ref := e.cfg.ReferenceLevel
	return ts.Map(func(v float64) float64 { return -math.Abs(v - ref) })
}

// Detect runs window → resample → transform → peak search on the raw speed
// channel. A peak count other than the expected one is not an error: the
// returned detection simply carries no Estimate.
func (e *SpeedEstimator) Detect(testID string, raw models.TimeSeries) (*models.SpeedDetection, error) {
	window := raw.Head(e.cfg.WindowSamples)
	resampled, err := signal.Resample(window, e.cfg.ResampleFactor)
	if err != nil {
		return nil, fmt.Errorf("speed channel: %w", err)
	}
	transformed := e.Transform(resampled)
	peaks := signal.PeakIndices(signal.FindPeaks(transformed.Value, e.cfg.MinProminence))

	det := &models.SpeedDetection{
		Raw:         raw,
		Resampled:   resampled,
		Transformed: transformed,
		Peaks:       peaks,
	}
	utils.L().Debug("speed peaks            (window=%d, resampled=%d, peaks=%v)", window.Len(), resampled.Len(), peaks)

	if len(peaks) != e.cfg.ExpectedPeaks {
		utils.L().Warn("speed detection failed (test=%s): found %d peaks, want %d", testID, len(peaks), e.cfg.ExpectedPeaks)
		return det, nil
	}
	est, err := EstimateFromPeaks(testID, resampled, peaks)
	if err != nil {
		return nil, err
	}
	det.Estimate = est
	utils.L().Info("speed estimated        (test=%s, leading=%.3f km/h, falling=%.3f km/h, offset=%.6fs)",
		testID, est.LeadingKmh, est.FallingKmh, est.OffsetSeconds)
	return det, nil
}

// EstimateFromPeaks converts four peak indices on a uniformly resampled
// series into leading/falling speeds and the time offset:
//
//	rate    = len(resampled) / (t_last - t_first)
//	leading = rate × 3.6 / (p2 - p0)
//	falling = rate × 3.6 / (p3 - p1)
//	offset  = 3.6 / leading
func EstimateFromPeaks(testID string, resampled models.TimeSeries, peaks []int) (*models.SpeedEstimate, error) {
	if len(peaks) < 4 {
		return nil, fmt.Errorf("speed estimate needs 4 peaks, got %d", len(peaks))
	}
	t0, t1 := resampled.Span()
	if !(t1 > t0) {
		return nil, fmt.Errorf("speed estimate: resampled span [%g, %g] is empty", t0, t1)
	}
	if peaks[2] <= peaks[0] || peaks[3] <= peaks[1] {
		return nil, fmt.Errorf("speed estimate: peaks %v are not increasing", peaks)
	}

	rate := float64(resampled.Len()) / (t1 - t0)
	leading := rate * kmhPerMps / float64(peaks[2]-peaks[0])
	falling := rate * kmhPerMps / float64(peaks[3]-peaks[1])
	return &models.SpeedEstimate{
		TestID:        testID,
		LeadingKmh:    leading,
		FallingKmh:    falling,
		OffsetSeconds: kmhPerMps / leading,
		ResampledRate: rate,
	}, nil
}
