// Package voice provides the voice preset registry and synthesis parameter
// resolution for DJZ-Speak.
//
// Presets are loaded once at startup from the embedded built-in document,
// optionally merged with a user preset file (merge-by-id, user wins), and are
// immutable afterwards. The [Registry] is constructed explicitly and passed by
// reference into the orchestrator and callers — there is no ambient preset
// table, which keeps tests isolated.
package voice

// Params is the effective set of numeric synthesis parameters for one
// synthesis call, produced by merging defaults, preset values, environment
// overrides, and explicit call-site overrides.
type Params struct {
	// Speed is the speaking rate in words per minute. Valid range [80, 300].
	Speed int `json:"speed"`

	// Pitch is the base pitch level. Valid range [0, 99].
	Pitch int `json:"pitch"`

	// Amplitude is the output volume level. Valid range [0, 200].
	Amplitude int `json:"amplitude"`

	// Gap is the pause between words in 10 ms units. Must be >= 0.
	Gap int `json:"gap"`
}

// Preset describes a named robotic voice: its base synthesis parameters, the
// engine voice variant it builds on, and the effect profile that shapes the
// raw engine output. Presets are immutable once loaded.
type Preset struct {
	// ID is the registry key (e.g., "dectalk"). Unique within a registry.
	ID string `json:"-"`

	// Name is the human-readable display name.
	Name string `json:"name"`

	// Description is a short free-text summary shown in voice listings.
	Description string `json:"description"`

	// EngineVoice selects the engine's base voice (e.g., "en").
	EngineVoice string `json:"espeak_voice"`

	// Variant selects the engine's voice variant (e.g., "m3").
	Variant string `json:"variant"`

	// Params is the preset's base parameter layer. Fields the preset
	// document never set stay nil and fall through to the configured global
	// defaults during the merge.
	Params Overrides `json:"-"`

	// Effects is the resolved effect profile applied after synthesis.
	Effects EffectProfile `json:"-"`

	// Characteristics is free-text describing the voice timbre.
	Characteristics string `json:"characteristics"`
}

// EffectProfile controls the post-synthesis effect chain for a preset.
// Each stage has an explicit enable toggle; a disabled stage is an identity
// pass. Normalization is not part of the profile — it always runs last.
type EffectProfile struct {
	// FilterEnabled gates the resonant bandpass filter stage.
	FilterEnabled bool `json:"frequency_filter"`

	// LowCutoff and HighCutoff bound the primary passband in Hz.
	LowCutoff  float64 `json:"low_cutoff"`
	HighCutoff float64 `json:"high_cutoff"`

	// HarmonicEnabled gates the harmonic enhancement stage. The gate is this
	// boolean alone — a gain of exactly 1.0 with the stage enabled still runs
	// the stage.
	HarmonicEnabled bool `json:"harmonic_enhancement"`

	// HarmonicGain scales the injected 2x/3x harmonics. Nominal range [1.0, 2.0].
	HarmonicGain float64 `json:"harmonic_gain"`

	// ArtifactsEnabled gates the mechanical artifact stage.
	ArtifactsEnabled bool `json:"mechanical_artifacts"`

	// QuantizeLevels is the number of amplitude steps the artifact stage
	// quantizes to. Default 64.
	QuantizeLevels int `json:"quantize_levels"`

	// GateWindow is the length in samples of each zeroed micro-gate window.
	// Default 16.
	GateWindow int `json:"gate_window"`

	// GatePeriod is the distance in samples between micro-gate windows.
	// Default 1024.
	GatePeriod int `json:"gate_period"`

	// Resonance scales the Q of the bandpass resonators. Default 1.0.
	Resonance float64 `json:"resonance"`

	// Formants, when non-nil, adds up to three extra resonator bands at the
	// named formant preset's reference frequencies. Resolved from the
	// document's formant_presets table at load time.
	Formants *FormantPreset `json:"-"`
}

// FormantPreset holds reference vocal-tract resonance targets consulted by
// the bandpass and harmonic-enhancement stages.
type FormantPreset struct {
	// F1, F2, F3 are the formant center frequencies in Hz.
	F1 float64 `json:"f1"`
	F2 float64 `json:"f2"`
	F3 float64 `json:"f3"`

	// Bandwidth is the resonator bandwidth in Hz shared by all three bands.
	Bandwidth float64 `json:"bandwidth"`
}

// EffectTemplate is a reusable filter shape referenced by presets through the
// document's effect_templates table. Template values fill in cutoffs and
// resonance a preset does not set itself.
type EffectTemplate struct {
	LowCutoff  float64 `json:"low_cutoff"`
	HighCutoff float64 `json:"high_cutoff"`
	Resonance  float64 `json:"resonance"`
}

// Effect profile defaults applied at load time when a preset omits a field.
const (
	DefaultLowCutoff      = 300.0
	DefaultHighCutoff     = 3000.0
	DefaultHarmonicGain   = 1.2
	DefaultQuantizeLevels = 64
	DefaultGateWindow     = 16
	DefaultGatePeriod     = 1024
	DefaultResonance      = 1.0
)
