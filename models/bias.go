package models

import "fmt"

// Default bias-window bounds, in seconds.
const (
	DefaultBiasStart = 7.0
	DefaultBiasEnd   = 9.8
)

// BiasWindow selects the calm period [Start, End] (inclusive) used to
// estimate the constant angle-sensor offset.
type BiasWindow struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// DefaultBiasWindow returns the 7.0 .. 9.8 s window.
func DefaultBiasWindow() BiasWindow {
	return BiasWindow{Start: DefaultBiasStart, End: DefaultBiasEnd}
}

// Contains reports whether t falls inside the window.
func (w BiasWindow) Contains(t float64) bool {
	return t >= w.Start && t <= w.End
}

func (w BiasWindow) String() string {
	return fmt.Sprintf("[%g, %g]", w.Start, w.End)
}

// BiasCorrection is the outcome of averaging and subtracting the angle
// channels over a window.
type BiasCorrection struct {
	Window    BiasWindow
	Samples   int
	Roll      float64
	Pitch     float64
	Yaw       float64
	Corrected *Recording
}

// Mean returns the bias for one angle role.
func (b *BiasCorrection) Mean(role Role) float64 {
	switch role {
	case RoleRoll:
		return b.Roll
	case RolePitch:
		return b.Pitch
	case RoleYaw:
		return b.Yaw
	}
	return 0
}
