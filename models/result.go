package models

// SpeedRequest is the input of one speed/bias run. Start and End are raw
// strings so the configured parameter policy decides how bad input is
// handled.
type SpeedRequest struct {
	File  string `json:"file" binding:"required"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// AnalysisResult is the structured record returned for every speed/bias
// request. Numeric fields are nil when the value could not be produced.
type AnalysisResult struct {
	TestID       string     `json:"test_id"`
	SpeedKmh     *float64   `json:"speed_kmh"`
	SpeedFalling *float64   `json:"speed_falling"`
	Offset       *float64   `json:"offset"`
	RollBias     *float64   `json:"rollbias"`
	PitchBias    *float64   `json:"pitchbias"`
	YawBias      *float64   `json:"yawbias"`
	Window       BiasWindow `json:"window"`
	PeakCount    int        `json:"peak_count"`
	OutputCSV    string     `json:"output_csv_path,omitempty"`
	Diagnostic   []byte     `json:"diagnostic_image,omitempty"`
	ErrorFlag    int        `json:"error_flag"`
	ErrorKind    ErrorKind  `json:"error_kind,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// Fail marks the result as failed with err.
func (r *AnalysisResult) Fail(err error) {
	r.ErrorFlag = 1
	r.ErrorKind = Classify(err)
	r.Error = err.Error()
}

// F returns a pointer to v.
func F(v float64) *float64 { return &v }
