// Package effects implements the robotic-voice DSP chain applied to raw
// engine output: resonant bandpass filtering, harmonic enhancement,
// mechanical-artifact injection, and peak normalization.
//
// The stage order is fixed. Each stage is a single O(n) pass over the sample
// sequence and is an identity pass when its profile toggle is off. The
// pipeline is fully deterministic — identical input and profile always
// produce identical output — and carries no hidden state between calls.
package effects

import (
	"github.com/djzlabs/djzspeak/pkg/audio"
	"github.com/djzlabs/djzspeak/pkg/voice"
)

// NormalizeTarget is the peak ceiling normalization rescales to, about
// -1 dBFS. Every preset/effect combination lands at the same loudness.
const NormalizeTarget = 0.89

// Apply runs the effect chain for profile over buf and returns a new buffer;
// buf itself is never modified. The stage order is bandpass → harmonic
// enhancement → mechanical artifacts → normalization, with normalization
// last whenever any stage ran.
//
// When every profile toggle is off the input is returned as an identical
// copy — the pass-through baseline — rather than being renormalized.
func Apply(buf *audio.Buffer, profile voice.EffectProfile) *audio.Buffer {
	out := buf.Clone()
	if !profile.FilterEnabled && !profile.HarmonicEnabled && !profile.ArtifactsEnabled {
		return out
	}

	samples := out.Floats()

	if profile.FilterEnabled {
		samples = Bandpass(samples, profile, out.SampleRate)
	}
	if profile.HarmonicEnabled {
		samples = EnhanceHarmonics(samples, profile, out.SampleRate)
	}
	if profile.ArtifactsEnabled {
		samples = MechanicalArtifacts(samples, profile)
	}
	samples = Normalize(samples, NormalizeTarget)

	out.SetFloats(samples)
	return out
}
