package models

// TimeSeries is an ordered run of (time, value) samples with increasing time.
type TimeSeries struct {
	Time  []float64
	Value []float64
}

// Len returns the sample count.
func (ts TimeSeries) Len() int { return len(ts.Time) }

// Head returns a view over the first n samples (or all of them when n is
// larger than the series).
func (ts TimeSeries) Head(n int) TimeSeries {
	if n > len(ts.Time) {
		n = len(ts.Time)
	}
	if n < 0 {
		n = 0
	}
	return TimeSeries{Time: ts.Time[:n], Value: ts.Value[:n]}
}

// Span returns the first and last timestamps.
func (ts TimeSeries) Span() (float64, float64) {
	if len(ts.Time) == 0 {
		return 0, 0
	}
	return ts.Time[0], ts.Time[len(ts.Time)-1]
}

// Map returns a new series with f applied to every value.
func (ts TimeSeries) Map(f func(float64) float64) TimeSeries {
	out := make([]float64, len(ts.Value))
	for i, v := range ts.Value {
		out[i] = f(v)
	}
	return TimeSeries{Time: ts.Time, Value: out}
}

// Shift returns a new series with every timestamp moved by dt.
func (ts TimeSeries) Shift(dt float64) TimeSeries {
	out := make([]float64, len(ts.Time))
	for i, t := range ts.Time {
		out[i] = t + dt
	}
	return TimeSeries{Time: out, Value: ts.Value}
}

// Before returns the leading samples with time strictly less than t.
func (ts TimeSeries) Before(t float64) TimeSeries {
	n := 0
	for n < len(ts.Time) && ts.Time[n] < t {
		n++
	}
	return ts.Head(n)
}

// Step returns the interval between the first two samples, or 0.
func (ts TimeSeries) Step() float64 {
	if len(ts.Time) < 2 {
		return 0
	}
	return ts.Time[1] - ts.Time[0]
}
