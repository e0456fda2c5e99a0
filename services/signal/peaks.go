package signal

// Peak is a local maximum together with its topographic prominence.
type Peak struct {
	Index      int
	Prominence float64
}

// LocalMaxima returns the indices of every sample that is strictly greater
// than its left neighbour and greater than the next differing sample to the
// right. Flat tops report their midpoint, rounded down. The first and last
// samples are never peaks.
func LocalMaxima(x []float64) []int {
	var out []int
	n := len(x)
	i := 1
	for i < n-1 {
		if x[i-1] < x[i] {
			ahead := i + 1
			for ahead < n-1 && x[ahead] == x[i] {
				ahead++
			}
			if x[ahead] < x[i] {
				out = append(out, (i+ahead-1)/2)
				i = ahead
				continue
			}
		}
		i++
	}
	return out
}

// Prominence is the height of x[peak] above the higher of the two lowest
// points reached walking outward until a higher sample or the boundary.
func Prominence(x []float64, peak int) float64 {
	h := x[peak]

	leftMin := h
	for i := peak; i >= 0 && x[i] <= h; i-- {
		if x[i] < leftMin {
			leftMin = x[i]
		}
	}
	rightMin := h
	for i := peak; i < len(x) && x[i] <= h; i++ {
		if x[i] < rightMin {
			rightMin = x[i]
		}
	}

	base := leftMin
	if rightMin > base {
		base = rightMin
	}
	return h - base
}

// FindPeaks returns the local maxima of x whose prominence is at least
// minProminence, in index order.
func FindPeaks(x []float64, minProminence float64) []Peak {
	var out []Peak
	for _, i := range LocalMaxima(x) {
		p := Prominence(x, i)
		if p >= minProminence {
			out = append(out, Peak{Index: i, Prominence: p})
		}
	}
	return out
}

// PeakIndices strips prominences from a peak list.
func PeakIndices(ps []Peak) []int {
	out := make([]int, len(ps))
	for i, p := range ps {
		out[i] = p.Index
	}
	return out
}
