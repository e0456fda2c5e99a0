package models

// SpeedEstimate is the impact-speed derived from a successful four-peak
// detection. It is computed once per request and never modified.
type SpeedEstimate struct {
	TestID        string  `json:"test_id"`
	LeadingKmh    float64 `json:"leading_kmh"`
	FallingKmh    float64 `json:"falling_kmh"`
	OffsetSeconds float64 `json:"offset_seconds"`
	// ResampledRate is len(resampled)/(t_last-t_first), samples per second.
	ResampledRate float64 `json:"resampled_rate"`
}

// SpeedDetection carries everything the speed stage produced, whether or not
// peak detection succeeded. Estimate is nil on a signal-quality failure.
type SpeedDetection struct {
	Raw         TimeSeries
	Resampled   TimeSeries
	Transformed TimeSeries
	Peaks       []int
	Estimate    *SpeedEstimate
}

// PeakCount returns the number of detected peaks.
func (d *SpeedDetection) PeakCount() int { return len(d.Peaks) }

// OK reports whether a speed estimate was produced.
func (d *SpeedDetection) OK() bool { return d != nil && d.Estimate != nil }
