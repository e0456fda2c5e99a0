package signal

import "math"

// WindowSamples converts a smoothing width in seconds to a sample count for
// a series sampled every dt seconds. A small tolerance keeps exact ratios
// such as 0.010/0.001 from flooring one short.
func WindowSamples(seconds, dt float64) int {
	if !(dt > 0) || !(seconds > 0) {
		return 1
	}
	w := int(math.Floor(seconds/dt + 1e-9))
	if w < 1 {
		return 1
	}
	return w
}

// CenteredMean is a centred moving average of width w. Sample i averages
// v[i-w/2 .. i+(w-1)/2], truncated at the edges, so the output has the same
// length as the input and no missing values.
func CenteredMean(v []float64, w int) []float64 {
	out := make([]float64, len(v))
	if w <= 1 {
		copy(out, v)
		return out
	}

	prefix := make([]float64, len(v)+1)
	for i, x := range v {
		prefix[i+1] = prefix[i] + x
	}

	back, fwd := w/2, (w-1)/2
	for i := range v {
		lo := i - back
		if lo < 0 {
			lo = 0
		}
		hi := i + fwd
		if hi > len(v)-1 {
			hi = len(v) - 1
		}
		out[i] = (prefix[hi+1] - prefix[lo]) / float64(hi-lo+1)
	}
	return out
}
