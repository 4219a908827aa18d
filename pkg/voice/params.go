package voice

import "strconv"

// Parameter bounds enforced by [Params.Validate]. These mirror the eSpeak-NG
// parameter ranges the engine accepts.
const (
	SpeedMin = 80
	SpeedMax = 300

	PitchMin = 0
	PitchMax = 99

	AmplitudeMin = 0
	AmplitudeMax = 200

	GapMin = 0
)

// Environment variable names consulted by [OverridesFromEnv].
const (
	EnvSpeed = "DJZ_SPEAK_SPEED"
	EnvPitch = "DJZ_SPEAK_PITCH"
	EnvVoice = "DJZ_SPEAK_VOICE"
)

// Validate checks every field of p against its permitted range. It returns a
// [*ValidationError] naming the first offending field, its bounds, and the
// received value, or nil when all fields are in range.
func (p Params) Validate() error {
	if p.Speed < SpeedMin || p.Speed > SpeedMax {
		return &ValidationError{Field: "speed", Min: SpeedMin, Max: SpeedMax, Got: p.Speed}
	}
	if p.Pitch < PitchMin || p.Pitch > PitchMax {
		return &ValidationError{Field: "pitch", Min: PitchMin, Max: PitchMax, Got: p.Pitch}
	}
	if p.Amplitude < AmplitudeMin || p.Amplitude > AmplitudeMax {
		return &ValidationError{Field: "amplitude", Min: AmplitudeMin, Max: AmplitudeMax, Got: p.Amplitude}
	}
	if p.Gap < GapMin {
		return &ValidationError{Field: "gap", Min: GapMin, Max: -1, Got: p.Gap}
	}
	return nil
}

// Overrides is a partial parameter source used in the layered merge. A nil
// field leaves the lower-precedence value in place. Preset base parameters
// are an Overrides too: a field the preset document never set must fall
// through to the global defaults, not shadow them.
type Overrides struct {
	Speed     *int
	Pitch     *int
	Amplitude *int
	Gap       *int
}

// IsZero reports whether the override set carries no values.
func (o Overrides) IsZero() bool {
	return o.Speed == nil && o.Pitch == nil && o.Amplitude == nil && o.Gap == nil
}

// Apply returns base with every set field of o replacing its counterpart.
func (o Overrides) Apply(base Params) Params {
	if o.Speed != nil {
		base.Speed = *o.Speed
	}
	if o.Pitch != nil {
		base.Pitch = *o.Pitch
	}
	if o.Amplitude != nil {
		base.Amplitude = *o.Amplitude
	}
	if o.Gap != nil {
		base.Gap = *o.Gap
	}
	return base
}

// Validate checks every set field of o against its permitted range, leaving
// unset fields alone. Used at preset load time, where an out-of-range base
// parameter is fatal but an absent one is not.
func (o Overrides) Validate() error {
	if o.Speed != nil && (*o.Speed < SpeedMin || *o.Speed > SpeedMax) {
		return &ValidationError{Field: "speed", Min: SpeedMin, Max: SpeedMax, Got: *o.Speed}
	}
	if o.Pitch != nil && (*o.Pitch < PitchMin || *o.Pitch > PitchMax) {
		return &ValidationError{Field: "pitch", Min: PitchMin, Max: PitchMax, Got: *o.Pitch}
	}
	if o.Amplitude != nil && (*o.Amplitude < AmplitudeMin || *o.Amplitude > AmplitudeMax) {
		return &ValidationError{Field: "amplitude", Min: AmplitudeMin, Max: AmplitudeMax, Got: *o.Amplitude}
	}
	if o.Gap != nil && *o.Gap < GapMin {
		return &ValidationError{Field: "gap", Min: GapMin, Max: -1, Got: *o.Gap}
	}
	return nil
}

// Merge resolves the effective parameters for one synthesis call by layering
// four sources under the fixed precedence
//
//	explicit call-site override > environment override > preset > defaults
//
// Each field is resolved independently at the highest precedence that sets
// it; ties always go to the higher-precedence source. A preset that omits a
// field contributes nothing for it, so the configured defaults still win
// there.
//
// Merge performs no range checking — validate the result with
// [Params.Validate] before handing it to the engine.
func Merge(defaults Params, preset, env, explicit Overrides) Params {
	out := defaults
	for _, layer := range []Overrides{preset, env, explicit} {
		out = layer.Apply(out)
	}
	return out
}

// OverridesFromEnv builds the environment-precedence override layer from the
// DJZ_SPEAK_SPEED and DJZ_SPEAK_PITCH variables. lookup is typically
// [os.LookupEnv]; tests substitute a map lookup. Variables that are unset or
// fail to parse as integers contribute nothing.
func OverridesFromEnv(lookup func(string) (string, bool)) Overrides {
	var o Overrides
	if v, ok := lookup(EnvSpeed); ok {
		if n, err := strconv.Atoi(v); err == nil {
			o.Speed = &n
		}
	}
	if v, ok := lookup(EnvPitch); ok {
		if n, err := strconv.Atoi(v); err == nil {
			o.Pitch = &n
		}
	}
	return o
}
