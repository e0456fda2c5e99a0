package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunID returns a unique identifier for one pipeline run:
//
//	YYYYMMDD_HHMMSS_<8 hex chars>
func RunID() string {
	return fmt.Sprintf("%s_%s", time.Now().Format("20060102_150405"), uuid.NewString()[:8])
}

// Millis converts seconds to whole milliseconds, rounding half away from zero.
func Millis(sec float64) int {
	ms := sec * 1000
	if ms < 0 {
		return int(ms - 0.5)
	}
	return int(ms + 0.5)
}

// Elapsed formats the time since start for log lines.
func Elapsed(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
