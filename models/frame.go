package models

import (
	"fmt"
	"strings"
)

// TestMode selects the crash-test standard the frames are annotated for.
type TestMode string

const (
	ModeMASH   TestMode = "MASH"
	ModeEN1317 TestMode = "EN1317"
)

// ParseTestMode accepts the mode case-insensitively; anything unrecognised
// is MASH.
func ParseTestMode(s string) TestMode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeEN1317)) {
		return ModeEN1317
	}
	return ModeMASH
}

// MarkerLabel is the legend text of the time-of-interest marker.
func (m TestMode) MarkerLabel() string {
	if m == ModeEN1317 {
		return "Time of THIV"
	}
	return "Time of OIV"
}

// FrameRequest is the raw, uncoerced input of a frame-sequence run.
type FrameRequest struct {
	XFile   string `json:"x" binding:"required"`
	YFile   string `json:"y" binding:"required"`
	ZFile   string `json:"z" binding:"required"`
	RPYFile string `json:"rpy" binding:"required"`
	ASIFile string `json:"asi,omitempty"`

	OIV        string `json:"oiv"`
	FinalTime  string `json:"final"`
	CameraRate string `json:"camera_rate"`
	Mode       string `json:"mode"`
}

// Extended reports whether the request selects the five-panel layout.
func (r FrameRequest) Extended() bool {
	return ParseTestMode(r.Mode) == ModeEN1317 && strings.TrimSpace(r.ASIFile) != ""
}

// FrameParams are the coerced numeric parameters of a frame-sequence run.
type FrameParams struct {
	OIV        float64
	FinalTime  float64
	CameraRate float64
	Mode       TestMode
	Extended   bool
}

// PanelKind names one panel of a composite frame.
type PanelKind int

const (
	PanelLongAccel PanelKind = iota
	PanelLatAccel
	PanelVertAccel
	PanelAngles
	PanelASI
)

// FrameSpec is one entry of a frame sequence. Cutoff is the index of the last
// sample shown by the moving-window lines, or -1 for a pre-roll frame.
type FrameSpec struct {
	Number  int
	Cutoff  int
	PreRoll bool
	// CountdownMs is the negative millisecond label of a pre-roll frame.
	CountdownMs int
}

// FileName is the on-disk name of the frame.
func (f FrameSpec) FileName() string {
	return fmt.Sprintf("%d.png", f.Number)
}

// FramePlan is the full, ordered frame sequence of a run. Increment is the
// number of source samples per camera frame and is usually fractional.
type FramePlan struct {
	Increment float64
	NumImages int
	Frames    []FrameSpec
}

// FrameSequenceResult is the outcome reported to the caller of a frame run.
type FrameSequenceResult struct {
	OK        bool      `json:"ok"`
	Dir       string    `json:"dir"`
	Frames    int       `json:"frames"`
	NumImages int       `json:"num_images"`
	Increment float64   `json:"increment"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Error     string    `json:"error,omitempty"`
}
