package vad

import "sort"

// noiseFloorWindow is the number of recent per-frame RMS samples the
// adaptive floor estimator keeps for its percentile computation.
const noiseFloorWindow = 100

// noiseFloorPercentile is the percentile (0.0-1.0) of recent RMS samples
// used as the noise floor estimate. The 20th percentile tracks the ambient
// noise bed without being pulled up by the speech itself, which occupies
// the upper end of the distribution.
const noiseFloorPercentile = 0.20

// noiseFloor tracks an exponentially-smoothed estimate of ambient noise
// energy from a ring buffer of recent frame RMS values.
type noiseFloor struct {
	window []float64
	pos    int
	full   bool

	alpha    float64
	minFloor float64
	current  float64
}

func newNoiseFloor(alpha, minFloor float64) *noiseFloor {
	return &noiseFloor{
		window:   make([]float64, noiseFloorWindow),
		alpha:    alpha,
		minFloor: minFloor,
		current:  minFloor,
	}
}

// update folds one frame's RMS energy into the estimator and returns the
// resulting floor value.
func (nf *noiseFloor) update(rms float64) float64 {
	nf.window[nf.pos] = rms
	nf.pos++
	if nf.pos >= len(nf.window) {
		nf.pos = 0
		nf.full = true
	}

	n := nf.pos
	if nf.full {
		n = len(nf.window)
	}
	if n < 4 {
		// Not enough samples yet to trust a percentile estimate.
		return nf.current
	}

	sorted := make([]float64, n)
	if nf.full {
		copy(sorted, nf.window)
	} else {
		copy(sorted, nf.window[:n])
	}
	sort.Float64s(sorted)

	idx := int(noiseFloorPercentile * float64(n))
	if idx >= n {
		idx = n - 1
	}
	sample := sorted[idx]

	nf.current = nf.alpha*sample + (1-nf.alpha)*nf.current
	if nf.current < nf.minFloor {
		nf.current = nf.minFloor
	}
	return nf.current
}

// reset clears all accumulated samples, keeping the configured minimum.
func (nf *noiseFloor) reset() {
	nf.pos = 0
	nf.full = false
	nf.current = nf.minFloor
}
