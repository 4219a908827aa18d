package effects

import (
	"math"

	"github.com/djzlabs/djzspeak/pkg/voice"
)

// maxBands caps the resonator bank size. One band always covers the
// profile's primary passband; a formant preset contributes the remainder.
const maxBands = 3

// resonator is a two-pole bandpass section. Pole radius follows the
// bandwidth, r = exp(-pi*b/R), and pole angle the center frequency,
// w = 2*pi*f/R. The input gain keeps the peak response near unity so the
// band count, not the coefficients, decides overall level.
type resonator struct {
	b0, a1, a2 float64
	y1, y2     float64
}

func newResonator(center, bandwidth, sampleRate float64) *resonator {
	r := math.Exp(-math.Pi * bandwidth / sampleRate)
	w := 2 * math.Pi * center / sampleRate
	return &resonator{
		b0: (1 - r*r) * math.Sin(w),
		a1: 2 * r * math.Cos(w),
		a2: -(r * r),
	}
}

func (f *resonator) process(x float64) float64 {
	y := f.b0*x + f.a1*f.y1 + f.a2*f.y2
	f.y2 = f.y1
	f.y1 = y
	return y
}

// Bandpass runs samples through the profile's resonator bank and returns the
// filtered sequence in place. The bank holds the primary low/high cutoff band
// plus, when the profile names a formant preset, bands at its first formant
// frequencies, up to three bands total. Band outputs are summed in parallel
// and rescaled by the band count.
//
// Resonance narrows or widens every band: bandwidth is divided by the
// profile's resonance factor, so values above 1.0 ring harder.
func Bandpass(samples []float64, profile voice.EffectProfile, sampleRate int) []float64 {
	rate := float64(sampleRate)
	resonance := profile.Resonance
	if resonance <= 0 {
		resonance = voice.DefaultResonance
	}

	center := (profile.LowCutoff + profile.HighCutoff) / 2
	width := (profile.HighCutoff - profile.LowCutoff) / resonance
	bank := []*resonator{newResonator(center, width, rate)}

	if fp := profile.Formants; fp != nil {
		for _, f := range []float64{fp.F1, fp.F2, fp.F3} {
			if len(bank) == maxBands {
				break
			}
			if f <= 0 || f >= rate/2 {
				continue
			}
			bank = append(bank, newResonator(f, fp.Bandwidth/resonance, rate))
		}
	}

	scale := 1 / float64(len(bank))
	for i, x := range samples {
		var sum float64
		for _, f := range bank {
			sum += f.process(x)
		}
		samples[i] = sum * scale
	}
	return samples
}
