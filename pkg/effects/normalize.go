package effects

import "math"

// Normalize rescales the sequence so its peak absolute amplitude equals
// target, and returns it in place. A silent sequence is returned untouched —
// there is no peak to scale and no noise floor to amplify. Normalizing an
// already-normalized sequence is a no-op up to float rounding.
func Normalize(samples []float64, target float64) []float64 {
	var peak float64
	for _, x := range samples {
		if a := math.Abs(x); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return samples
	}

	scale := target / peak
	for i := range samples {
		samples[i] *= scale
	}
	return samples
}
