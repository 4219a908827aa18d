package effects

import (
	"math"

	"github.com/djzlabs/djzspeak/pkg/voice"
)

// EnhanceHarmonics injects energy at twice and three times the dominant
// frequency of the signal and returns the enhanced sequence in place. The
// injected partials ride the input as an amplitude envelope, so silence stays
// silent and the metallic ring tracks the speech. Injection strength is
// proportional to the profile's harmonic gain above unity; a gain of exactly
// 1.0 leaves the signal unchanged even with the stage enabled.
//
// The dominant frequency is the first formant when the profile carries a
// formant preset, otherwise a zero-crossing estimate over the whole clip.
func EnhanceHarmonics(samples []float64, profile voice.EffectProfile, sampleRate int) []float64 {
	gain := profile.HarmonicGain
	if gain <= 0 {
		gain = voice.DefaultHarmonicGain
	}
	amount := gain - 1
	if amount == 0 || len(samples) == 0 {
		return samples
	}

	fundamental := dominantFrequency(samples, sampleRate, profile.Formants)
	if fundamental <= 0 {
		return samples
	}

	w2 := 2 * math.Pi * 2 * fundamental / float64(sampleRate)
	w3 := 2 * math.Pi * 3 * fundamental / float64(sampleRate)
	for i, x := range samples {
		t := float64(i)
		// The second harmonic carries twice the weight of the third.
		partials := (2*math.Sin(w2*t) + math.Sin(w3*t)) / 3
		samples[i] = x + amount*x*partials
	}
	return samples
}

// dominantFrequency picks the frequency the harmonic stage builds on: F1 when
// a formant preset is present, otherwise half the zero-crossing rate.
func dominantFrequency(samples []float64, sampleRate int, fp *voice.FormantPreset) float64 {
	if fp != nil && fp.F1 > 0 {
		return fp.F1
	}

	var crossings int
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] < 0) != (samples[i] < 0) {
			crossings++
		}
	}
	return float64(crossings) * float64(sampleRate) / (2 * float64(len(samples)))
}
