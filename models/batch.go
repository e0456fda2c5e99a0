package models

import "path/filepath"

// BatchEntry is one line of a batch summary: the input export and the result
// of running the speed/bias pipeline on it.
type BatchEntry struct {
	Input  string
	Result *AnalysisResult
}

func (BatchEntry) CSVHeader() []string {
	return []string{
		"file", "test_id", "speed_kmh", "speed_falling", "offset",
		"rollbias", "pitchbias", "yawbias", "window_start", "window_end",
		"peak_count", "output_csv", "error_flag", "error_kind", "error",
	}
}

// CSVRow serialises the entry. Missing numeric values are left blank.
func (e *BatchEntry) CSVRow() []string {
	r := e.Result
	out := ""
	if r.OutputCSV != "" {
		out = filepath.Base(r.OutputCSV)
	}
	return []string{
		filepath.Base(e.Input),
		r.TestID,
		optf(r.SpeedKmh, 4),
		optf(r.SpeedFalling, 4),
		optf(r.Offset, 6),
		optf(r.RollBias, 6),
		optf(r.PitchBias, 6),
		optf(r.YawBias, 6),
		ftoa(r.Window.Start, -1),
		ftoa(r.Window.End, -1),
		itoa(r.PeakCount),
		out,
		itoa(r.ErrorFlag),
		string(r.ErrorKind),
		r.Error,
	}
}

// BatchSummary reports a finished batch run.
type BatchSummary struct {
	SessionDir string `json:"session_dir"`
	SummaryCSV string `json:"summary_csv"`
	Files      int    `json:"files"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
}
