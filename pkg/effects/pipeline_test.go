package effects_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/djzlabs/djzspeak/pkg/audio"
	"github.com/djzlabs/djzspeak/pkg/effects"
	"github.com/djzlabs/djzspeak/pkg/voice"
)

const testRate = 22050

// sine generates n float64 samples of a freq Hz sine at the given amplitude.
func sine(freq, amplitude float64, n int) []float64 {
	out := make([]float64, n)
	w := 2 * math.Pi * freq / testRate
	for i := range out {
		out[i] = amplitude * math.Sin(w*float64(i))
	}
	return out
}

// sineBuffer wraps a sine in a mono 16-bit Buffer.
func sineBuffer(freq, amplitude float64, n int) *audio.Buffer {
	buf := &audio.Buffer{SampleRate: testRate, Channels: 1, BitDepth: 16}
	buf.SetFloats(sine(freq, amplitude, n))
	return buf
}

// steadyPeak measures the peak amplitude over the second half of the clip,
// past any filter transient.
func steadyPeak(samples []float64) float64 {
	var peak float64
	for _, x := range samples[len(samples)/2:] {
		if a := math.Abs(x); a > peak {
			peak = a
		}
	}
	return peak
}

func defaultProfile() voice.EffectProfile {
	return voice.EffectProfile{
		LowCutoff:      voice.DefaultLowCutoff,
		HighCutoff:     voice.DefaultHighCutoff,
		HarmonicGain:   voice.DefaultHarmonicGain,
		QuantizeLevels: voice.DefaultQuantizeLevels,
		GateWindow:     voice.DefaultGateWindow,
		GatePeriod:     voice.DefaultGatePeriod,
		Resonance:      voice.DefaultResonance,
	}
}

func TestApplyDisabledProfileIsPassThrough(t *testing.T) {
	in := sineBuffer(440, 0.25, 4096)
	original := append([]byte(nil), in.Data...)

	out := effects.Apply(in, defaultProfile())

	if !bytes.Equal(out.Data, original) {
		t.Error("disabled profile should leave samples byte-identical")
	}
	if !bytes.Equal(in.Data, original) {
		t.Error("input buffer was modified")
	}
	if out == in {
		t.Error("Apply should return a copy, not the input buffer")
	}
}

func TestApplyDoesNotModifyInput(t *testing.T) {
	in := sineBuffer(1000, 0.25, 4096)
	original := append([]byte(nil), in.Data...)

	profile := defaultProfile()
	profile.FilterEnabled = true
	profile.HarmonicEnabled = true
	profile.ArtifactsEnabled = true
	effects.Apply(in, profile)

	if !bytes.Equal(in.Data, original) {
		t.Error("input buffer was modified")
	}
}

func TestApplyIsDeterministic(t *testing.T) {
	in := sineBuffer(700, 0.3, 8192)
	profile := defaultProfile()
	profile.FilterEnabled = true
	profile.HarmonicEnabled = true
	profile.ArtifactsEnabled = true

	a := effects.Apply(in, profile)
	b := effects.Apply(in, profile)
	if !bytes.Equal(a.Data, b.Data) {
		t.Error("identical input and profile should produce identical output")
	}
}

func TestApplyNormalizesPeak(t *testing.T) {
	// A quiet in-band sine must come out at the target ceiling.
	in := sineBuffer(1000, 0.1, 8192)
	profile := defaultProfile()
	profile.FilterEnabled = true

	out := effects.Apply(in, profile)
	peak := steadyPeak(out.Floats())
	if math.Abs(peak-effects.NormalizeTarget) > 0.01 {
		t.Errorf("output peak = %.4f, want ~%.2f", peak, effects.NormalizeTarget)
	}
}

func TestBandpassAttenuatesOutOfBand(t *testing.T) {
	profile := defaultProfile()
	profile.FilterEnabled = true

	inBand := effects.Bandpass(sine(1650, 0.5, 8192), profile, testRate)
	outBand := effects.Bandpass(sine(8000, 0.5, 8192), profile, testRate)

	inPeak := steadyPeak(inBand)
	outPeak := steadyPeak(outBand)
	if outPeak*4 > inPeak {
		t.Errorf("out-of-band peak %.4f not well below in-band peak %.4f", outPeak, inPeak)
	}
}

func TestBandpassFormantBandsPassFormantFrequencies(t *testing.T) {
	profile := defaultProfile()
	profile.FilterEnabled = true
	profile.LowCutoff = 250
	profile.HighCutoff = 2800
	profile.Formants = &voice.FormantPreset{F1: 500, F2: 1200, F3: 2400, Bandwidth: 80}

	atFormant := steadyPeak(effects.Bandpass(sine(1200, 0.5, 8192), profile, testRate))
	farOut := steadyPeak(effects.Bandpass(sine(9000, 0.5, 8192), profile, testRate))
	if farOut*2 > atFormant {
		t.Errorf("formant-band sine %.4f should dominate far-out sine %.4f", atFormant, farOut)
	}
}

func TestEnhanceHarmonicsUnityGainIsIdentity(t *testing.T) {
	profile := defaultProfile()
	profile.HarmonicGain = 1.0

	in := sine(440, 0.3, 4096)
	want := append([]float64(nil), in...)
	got := effects.EnhanceHarmonics(in, profile, testRate)
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("sample %d changed with unity gain: %v != %v", i, got[i], want[i])
		}
	}
}

func TestEnhanceHarmonicsInjectsEnergy(t *testing.T) {
	profile := defaultProfile()
	profile.HarmonicGain = 1.5
	profile.Formants = &voice.FormantPreset{F1: 500, F2: 1200, F3: 2400, Bandwidth: 80}

	in := sine(500, 0.3, 4096)
	want := append([]float64(nil), in...)
	got := effects.EnhanceHarmonics(in, profile, testRate)

	var changed bool
	for i := range got {
		if math.IsNaN(got[i]) || math.IsInf(got[i], 0) {
			t.Fatalf("sample %d is not finite: %v", i, got[i])
		}
		if got[i] != want[i] {
			changed = true
		}
	}
	if !changed {
		t.Error("gain above unity should change the signal")
	}
}

func TestEnhanceHarmonicsSilenceStaysSilent(t *testing.T) {
	profile := defaultProfile()
	profile.HarmonicGain = 1.8
	profile.Formants = &voice.FormantPreset{F1: 500, F2: 1200, F3: 2400, Bandwidth: 80}

	got := effects.EnhanceHarmonics(make([]float64, 2048), profile, testRate)
	for i, x := range got {
		if x != 0 {
			t.Fatalf("sample %d = %v, want 0", i, x)
		}
	}
}

func TestMechanicalArtifactsGatesPeriodically(t *testing.T) {
	profile := defaultProfile()
	profile.GateWindow = 10
	profile.GatePeriod = 100
	profile.QuantizeLevels = 64

	in := make([]float64, 1000)
	for i := range in {
		in[i] = 0.5
	}
	got := effects.MechanicalArtifacts(in, profile)

	for i, x := range got {
		gated := i%100 >= 90
		if gated && math.Abs(x) >= 0.5 {
			t.Fatalf("sample %d inside gate window not attenuated: %v", i, x)
		}
		if !gated && math.Abs(x) < 0.25 {
			t.Fatalf("sample %d outside gate window over-attenuated: %v", i, x)
		}
	}
}

func TestMechanicalArtifactsIsNotIdempotent(t *testing.T) {
	profile := defaultProfile()
	profile.QuantizeLevels = 16

	once := effects.MechanicalArtifacts(sine(440, 0.3, 4096), profile)
	onceCopy := append([]float64(nil), once...)
	twice := effects.MechanicalArtifacts(once, profile)

	var differs bool
	for i := range twice {
		if twice[i] != onceCopy[i] {
			differs = true
			break
		}
	}
	if !differs {
		t.Error("reapplying the artifact stage should keep degrading the signal")
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	once := effects.Normalize(sine(300, 0.42, 4096), effects.NormalizeTarget)
	onceCopy := append([]float64(nil), once...)
	twice := effects.Normalize(once, effects.NormalizeTarget)

	for i := range twice {
		if math.Abs(twice[i]-onceCopy[i]) > 1e-9 {
			t.Fatalf("sample %d drifted on renormalization: %v -> %v", i, onceCopy[i], twice[i])
		}
	}
}

func TestNormalizeSilenceUntouched(t *testing.T) {
	got := effects.Normalize(make([]float64, 512), effects.NormalizeTarget)
	for i, x := range got {
		if x != 0 {
			t.Fatalf("sample %d = %v, want 0", i, x)
		}
	}
}

func TestNormalizeScalesPeakToTarget(t *testing.T) {
	tests := []struct {
		name      string
		amplitude float64
	}{
		{"quiet", 0.05},
		{"nominal", 0.5},
		{"hot", 0.99},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := effects.Normalize(sine(1000, tt.amplitude, 4096), effects.NormalizeTarget)
			var peak float64
			for _, x := range got {
				if a := math.Abs(x); a > peak {
					peak = a
				}
			}
			if math.Abs(peak-effects.NormalizeTarget) > 1e-6 {
				t.Errorf("peak = %v, want %v", peak, effects.NormalizeTarget)
			}
		})
	}
}
