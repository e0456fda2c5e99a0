package signal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"crashtest-analyzer/models"
)

// ResampledLength is floor(factor × n).
func ResampledLength(n int, factor float64) int {
	return int(math.Floor(factor * float64(n)))
}

// Resample regenerates ts on a uniform grid of floor(factor × N) points
// spanning exactly [t_first, t_last], linearly interpolating the values.
// The grid never leaves the original bounds, so no extrapolation happens.
func Resample(ts models.TimeSeries, factor float64) (models.TimeSeries, error) {
	n := ts.Len()
	if n < 2 {
		return models.TimeSeries{}, fmt.Errorf("resample: need at least 2 samples, got %d", n)
	}
	if len(ts.Value) != n {
		return models.TimeSeries{}, fmt.Errorf("resample: %d timestamps but %d values", n, len(ts.Value))
	}
	if !(factor > 0) || math.IsInf(factor, 0) {
		return models.TimeSeries{}, fmt.Errorf("resample: factor must be positive and finite, got %g", factor)
	}
	m := ResampledLength(n, factor)
	if m < 2 {
		return models.TimeSeries{}, fmt.Errorf("resample: factor %g leaves %d points", factor, m)
	}

	t0, t1 := ts.Span()
	grid := floats.Span(make([]float64, m), t0, t1)
	out := make([]float64, m)

	j := 0
	for k, x := range grid {
		for j < n-2 && ts.Time[j+1] < x {
			j++
		}
		out[k] = lerp(ts.Time[j], ts.Value[j], ts.Time[j+1], ts.Value[j+1], x)
	}
	// Pin the endpoints so the bounds are exact rather than interpolated.
	out[0] = ts.Value[0]
	out[m-1] = ts.Value[n-1]

	return models.TimeSeries{Time: grid, Value: out}, nil
}

func lerp(x0, y0, x1, y1, x float64) float64 {
	if x1 == x0 {
		return y0
	}
	return y0 + (x-x0)*(y1-y0)/(x1-x0)
}
