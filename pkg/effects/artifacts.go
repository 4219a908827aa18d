package effects

import (
	"math"

	"github.com/djzlabs/djzspeak/pkg/voice"
)

// artifactMix is the dry/wet blend of the artifact stage: most of the output
// is the quantized, gated copy, with enough of the original kept underneath
// that speech stays intelligible at low level counts.
const artifactMix = 0.7

// MechanicalArtifacts overlays digital-hardware artifacts on the signal and
// returns the degraded sequence in place. Two artifacts are combined: the
// amplitude axis is quantized to the profile's level count, and a short gate
// window is zeroed once per gate period, producing the periodic chatter of an
// early speech chip. The degraded copy is then blended over the original at a
// fixed mix, so reapplying the stage keeps degrading the signal rather than
// settling on a fixed point.
func MechanicalArtifacts(samples []float64, profile voice.EffectProfile) []float64 {
	levels := profile.QuantizeLevels
	if levels < 2 {
		levels = voice.DefaultQuantizeLevels
	}
	window := profile.GateWindow
	if window < 0 {
		window = voice.DefaultGateWindow
	}
	period := profile.GatePeriod
	if period <= window {
		period = voice.DefaultGatePeriod
	}

	// Step size over the [-1, 1] amplitude axis.
	step := 2 / float64(levels-1)
	for i, x := range samples {
		wet := math.Round(x/step) * step
		// Gate windows sit at the end of each period so the clip onset
		// is never swallowed.
		if i%period >= period-window {
			wet = 0
		}
		samples[i] = x + artifactMix*(wet-x)
	}
	return samples
}
