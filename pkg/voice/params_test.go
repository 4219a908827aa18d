package voice_test

import (
	"errors"
	"testing"

	"github.com/djzlabs/djzspeak/pkg/voice"
)

func intPtr(n int) *int { return &n }

func TestParamsValidateInRange(t *testing.T) {
	tests := []struct {
		name   string
		params voice.Params
	}{
		{"nominal", voice.Params{Speed: 140, Pitch: 35, Amplitude: 100, Gap: 8}},
		{"lower bounds", voice.Params{Speed: 80, Pitch: 0, Amplitude: 0, Gap: 0}},
		{"upper bounds", voice.Params{Speed: 300, Pitch: 99, Amplitude: 200, Gap: 1000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.params.Validate(); err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestParamsValidateNamesOffendingField(t *testing.T) {
	base := voice.Params{Speed: 140, Pitch: 35, Amplitude: 100, Gap: 8}

	tests := []struct {
		name      string
		mutate    func(*voice.Params)
		wantField string
		wantGot   int
	}{
		{"speed too low", func(p *voice.Params) { p.Speed = 79 }, "speed", 79},
		{"speed too high", func(p *voice.Params) { p.Speed = 301 }, "speed", 301},
		{"pitch too low", func(p *voice.Params) { p.Pitch = -1 }, "pitch", -1},
		{"pitch too high", func(p *voice.Params) { p.Pitch = 100 }, "pitch", 100},
		{"amplitude too high", func(p *voice.Params) { p.Amplitude = 201 }, "amplitude", 201},
		{"negative gap", func(p *voice.Params) { p.Gap = -5 }, "gap", -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			err := p.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			var verr *voice.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error %T is not *ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
			if verr.Got != tt.wantGot {
				t.Errorf("Got = %d, want %d", verr.Got, tt.wantGot)
			}
		})
	}
}

func fullPreset() voice.Overrides {
	return voice.Overrides{
		Speed:     intPtr(120),
		Pitch:     intPtr(25),
		Amplitude: intPtr(95),
		Gap:       intPtr(10),
	}
}

func TestMergePrecedence(t *testing.T) {
	defaults := voice.Params{Speed: 140, Pitch: 35, Amplitude: 100, Gap: 8}
	preset := fullPreset()
	env := voice.Overrides{Speed: intPtr(130)}
	explicit := voice.Overrides{Speed: intPtr(150)}

	// Explicit beats env beats preset beats defaults.
	got := voice.Merge(defaults, preset, env, explicit)
	if got.Speed != 150 {
		t.Errorf("speed with explicit override: got %d, want 150", got.Speed)
	}

	// Remove the explicit override: env wins.
	got = voice.Merge(defaults, preset, env, voice.Overrides{})
	if got.Speed != 130 {
		t.Errorf("speed with env override: got %d, want 130", got.Speed)
	}

	// Remove env too: preset wins.
	got = voice.Merge(defaults, preset, voice.Overrides{}, voice.Overrides{})
	if got.Speed != 120 {
		t.Errorf("speed from preset: got %d, want 120", got.Speed)
	}

	// No preset: defaults apply.
	got = voice.Merge(defaults, voice.Overrides{}, voice.Overrides{}, voice.Overrides{})
	if got.Speed != 140 {
		t.Errorf("speed from defaults: got %d, want 140", got.Speed)
	}
}

func TestMergeFieldsResolveIndependently(t *testing.T) {
	defaults := voice.Params{Speed: 140, Pitch: 35, Amplitude: 100, Gap: 8}
	preset := fullPreset()
	env := voice.Overrides{Pitch: intPtr(50)}
	explicit := voice.Overrides{Gap: intPtr(20)}

	got := voice.Merge(defaults, preset, env, explicit)
	want := voice.Params{Speed: 120, Pitch: 50, Amplitude: 95, Gap: 20}
	if got != want {
		t.Errorf("Merge() = %+v, want %+v", got, want)
	}
}

func TestMergePresetOmittedFieldFallsToDefaults(t *testing.T) {
	// A preset that only sets pitch must not shadow the configured defaults
	// for the other fields.
	defaults := voice.Params{Speed: 200, Pitch: 35, Amplitude: 110, Gap: 4}
	preset := voice.Overrides{Pitch: intPtr(40)}

	got := voice.Merge(defaults, preset, voice.Overrides{}, voice.Overrides{})
	want := voice.Params{Speed: 200, Pitch: 40, Amplitude: 110, Gap: 4}
	if got != want {
		t.Errorf("Merge() = %+v, want %+v", got, want)
	}
}

func TestMergeTieGoesToHigherPrecedence(t *testing.T) {
	// An override equal to the lower-precedence value still counts as set.
	defaults := voice.Params{Speed: 140, Pitch: 35, Amplitude: 100, Gap: 8}
	preset := voice.Overrides{Speed: intPtr(140)}
	got := voice.Merge(defaults, preset, voice.Overrides{Speed: intPtr(140)}, voice.Overrides{})
	if got.Speed != 140 {
		t.Errorf("speed: got %d, want 140", got.Speed)
	}
}

func TestOverridesValidateChecksOnlySetFields(t *testing.T) {
	if err := (voice.Overrides{}).Validate(); err != nil {
		t.Errorf("empty layer should validate, got %v", err)
	}
	if err := (voice.Overrides{Pitch: intPtr(40)}).Validate(); err != nil {
		t.Errorf("in-range field should validate, got %v", err)
	}
	err := (voice.Overrides{Speed: intPtr(999)}).Validate()
	var verr *voice.ValidationError
	if !errors.As(err, &verr) || verr.Field != "speed" {
		t.Errorf("out-of-range speed should fail with a ValidationError, got %v", err)
	}
}

func TestOverridesApply(t *testing.T) {
	base := voice.Params{Speed: 140, Pitch: 35, Amplitude: 100, Gap: 8}
	got := (voice.Overrides{Speed: intPtr(100), Gap: intPtr(0)}).Apply(base)
	want := voice.Params{Speed: 100, Pitch: 35, Amplitude: 100, Gap: 0}
	if got != want {
		t.Errorf("Apply() = %+v, want %+v", got, want)
	}
}

func TestOverridesFromEnv(t *testing.T) {
	env := map[string]string{
		voice.EnvSpeed: "180",
		voice.EnvPitch: "not-a-number",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	o := voice.OverridesFromEnv(lookup)
	if o.Speed == nil || *o.Speed != 180 {
		t.Errorf("Speed override = %v, want 180", o.Speed)
	}
	if o.Pitch != nil {
		t.Errorf("unparsable pitch should contribute nothing, got %d", *o.Pitch)
	}
	if o.Amplitude != nil || o.Gap != nil {
		t.Error("amplitude/gap have no environment variables and must stay nil")
	}
}

func TestOverridesIsZero(t *testing.T) {
	if !(voice.Overrides{}).IsZero() {
		t.Error("empty Overrides should be zero")
	}
	if (voice.Overrides{Speed: intPtr(1)}).IsZero() {
		t.Error("Overrides with a value should not be zero")
	}
}
