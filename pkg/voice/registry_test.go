package voice_test

import (
	"bytes"
	"errors"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/djzlabs/djzspeak/pkg/voice"
)

// loadBuiltin loads the embedded built-in presets with no user document.
func loadBuiltin(t *testing.T) *voice.Registry {
	t.Helper()
	reg, err := voice.LoadDefault("")
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	return reg
}

func TestResolveDectalkFixture(t *testing.T) {
	reg := loadBuiltin(t)

	p, err := reg.Resolve("dectalk")
	if err != nil {
		t.Fatalf("Resolve(dectalk): %v", err)
	}
	want := voice.Params{Speed: 120, Pitch: 25, Amplitude: 95, Gap: 10}
	if got := p.Params.Apply(voice.Params{}); got != want {
		t.Errorf("dectalk params = %+v, want %+v", got, want)
	}
	if !p.Effects.FilterEnabled {
		t.Error("dectalk should have the bandpass filter enabled")
	}
	if p.Effects.Formants == nil {
		t.Error("dectalk should resolve its formant preset reference")
	}
}

func TestResolveUnknownVoice(t *testing.T) {
	reg := loadBuiltin(t)

	_, err := reg.Resolve("nonexistent_voice_xyz")
	if err == nil {
		t.Fatal("Resolve of unknown id should fail")
	}
	var nf *voice.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error %T is not *NotFoundError", err)
	}
	if nf.ID != "nonexistent_voice_xyz" {
		t.Errorf("NotFoundError.ID = %q", nf.ID)
	}
}

func TestResolveSuggestsCloseMatch(t *testing.T) {
	reg := loadBuiltin(t)

	_, err := reg.Resolve("dectak")
	var nf *voice.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error %T is not *NotFoundError", err)
	}
	if nf.Suggestion != "dectalk" {
		t.Errorf("Suggestion = %q, want %q", nf.Suggestion, "dectalk")
	}
	if !strings.Contains(nf.Error(), "did you mean") {
		t.Errorf("error text should carry the suggestion: %q", nf.Error())
	}
}

func TestListPreservesBuiltinOrder(t *testing.T) {
	reg := loadBuiltin(t)

	ids := reg.List()
	if len(ids) == 0 {
		t.Fatal("built-in registry is empty")
	}
	if ids[0] != "classic_robot" {
		t.Errorf("first id = %q, want classic_robot (document order)", ids[0])
	}
	if !slices.Contains(ids, "dectalk") {
		t.Error("dectalk missing from listing")
	}
}

func TestCategories(t *testing.T) {
	reg := loadBuiltin(t)

	cats := reg.Categories()
	retro, ok := cats["retro"]
	if !ok {
		t.Fatal("retro category missing")
	}
	if !slices.Contains(retro, "dectalk") {
		t.Errorf("retro category %v should contain dectalk", retro)
	}
}

func TestUserPresetsOverrideAndAppend(t *testing.T) {
	user := `{
		"voices": {
			"dectalk": {
				"name": "Custom DECtalk",
				"speed": 100, "pitch": 20, "amplitude": 90, "gap": 12
			},
			"my_robot": {
				"name": "My Robot",
				"speed": 200, "pitch": 70, "amplitude": 120, "gap": 2
			}
		},
		"voice_categories": {
			"custom": ["my_robot"]
		}
	}`

	reg, err := voice.Load(builtinReader(t), strings.NewReader(user))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// User entry wins the merge-by-id.
	p, err := reg.Resolve("dectalk")
	if err != nil {
		t.Fatalf("Resolve(dectalk): %v", err)
	}
	if p.Name != "Custom DECtalk" || p.Params.Speed == nil || *p.Params.Speed != 100 {
		t.Errorf("user override not applied: name=%q params=%+v", p.Name, p.Params)
	}

	// User-only ids append after the built-in order.
	ids := reg.List()
	if ids[len(ids)-1] != "my_robot" {
		t.Errorf("last id = %q, want my_robot", ids[len(ids)-1])
	}
	if slices.Index(ids, "dectalk") >= slices.Index(ids, "my_robot") {
		t.Error("overridden built-in id should keep its original position")
	}

	if !slices.Contains(reg.Categories()["custom"], "my_robot") {
		t.Error("user categories should merge in")
	}
}

func TestPresetKeepsOmittedParamsUnset(t *testing.T) {
	doc := `{"voices": {"bare": {"name": "Bare", "pitch": 40}}}`
	reg, err := voice.Load(strings.NewReader(doc), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p, err := reg.Resolve("bare")
	if err != nil {
		t.Fatalf("Resolve(bare): %v", err)
	}
	if p.Params.Speed != nil || p.Params.Amplitude != nil || p.Params.Gap != nil {
		t.Errorf("omitted fields must stay unset: %+v", p.Params)
	}
	if p.Params.Pitch == nil || *p.Params.Pitch != 40 {
		t.Errorf("pitch = %v, want 40", p.Params.Pitch)
	}

	// The configured global defaults win for every omitted field.
	got := voice.Merge(voice.Params{Speed: 200, Pitch: 35, Amplitude: 110, Gap: 4},
		p.Params, voice.Overrides{}, voice.Overrides{})
	want := voice.Params{Speed: 200, Pitch: 40, Amplitude: 110, Gap: 4}
	if got != want {
		t.Errorf("merged params = %+v, want %+v", got, want)
	}
}

func TestUserCategoryRedefinitionDoesNotDuplicate(t *testing.T) {
	user := `{
		"voices": {
			"my_robot": {"name": "My Robot"}
		},
		"voice_categories": {
			"retro": ["dectalk", "my_robot"]
		}
	}`
	reg, err := voice.Load(builtinReader(t), strings.NewReader(user))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	retro := reg.Categories()["retro"]
	count := 0
	for _, id := range retro {
		if id == "dectalk" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("retro lists dectalk %d times: %v", count, retro)
	}
	if !slices.Contains(retro, "my_robot") {
		t.Errorf("retro %v should gain my_robot", retro)
	}
}

func TestLoadRejectsMalformedDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"invalid json", `{"voices": `},
		{"missing name", `{"voices": {"x": {"speed": 140}}}`},
		{"out of range speed", `{"voices": {"x": {"name": "X", "speed": 999}}}`},
		{"unknown effect template", `{"voices": {"x": {"name": "X", "effects": {"template": "nope"}}}}`},
		{"unknown formant preset", `{"voices": {"x": {"name": "X", "effects": {"formant_preset": "nope"}}}}`},
		{"inverted cutoffs", `{"voices": {"x": {"name": "X", "effects": {"low_cutoff": 4000, "high_cutoff": 300}}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := voice.Load(strings.NewReader(tt.doc), nil); err == nil {
				t.Error("Load should fail")
			}
		})
	}
}

func TestLoadToleratesUnknownFields(t *testing.T) {
	doc := `{
		"voices": {
			"x": {"name": "X", "future_field": 42}
		},
		"future_top_level": {"ignored": true}
	}`
	reg, err := voice.Load(strings.NewReader(doc), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := reg.Resolve("x"); err != nil {
		t.Errorf("Resolve(x): %v", err)
	}
}

func TestCategoryReferencingMissingIDIsNotFatal(t *testing.T) {
	doc := `{
		"voices": {"x": {"name": "X"}},
		"voice_categories": {"retro": ["x", "missing_id"]}
	}`
	reg, err := voice.Load(strings.NewReader(doc), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	retro := reg.Categories()["retro"]
	if !slices.Equal(retro, []string{"x"}) {
		t.Errorf("retro = %v, want [x] with the dangling id dropped", retro)
	}
}

func TestResolveOrDefaultFallsBack(t *testing.T) {
	reg := loadBuiltin(t)

	p, err := reg.ResolveOrDefault("nope", voice.DefaultVoice)
	if err != nil {
		t.Fatalf("ResolveOrDefault: %v", err)
	}
	if p.ID != voice.DefaultVoice {
		t.Errorf("fallback preset = %q, want %q", p.ID, voice.DefaultVoice)
	}
}

func TestEffectDefaultsResolvedAtLoad(t *testing.T) {
	doc := `{"voices": {"x": {"name": "X", "effects": {"frequency_filter": true}}}}`
	reg, err := voice.Load(strings.NewReader(doc), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p, _ := reg.Resolve("x")
	e := p.Effects
	if e.LowCutoff != voice.DefaultLowCutoff || e.HighCutoff != voice.DefaultHighCutoff {
		t.Errorf("cutoff defaults: got [%v, %v]", e.LowCutoff, e.HighCutoff)
	}
	if e.QuantizeLevels != voice.DefaultQuantizeLevels {
		t.Errorf("quantize levels default: got %d", e.QuantizeLevels)
	}
	if e.GateWindow != voice.DefaultGateWindow || e.GatePeriod != voice.DefaultGatePeriod {
		t.Errorf("gate defaults: got window=%d period=%d", e.GateWindow, e.GatePeriod)
	}
}

func TestWithEffectDefaults(t *testing.T) {
	doc := `{"voices": {
		"plain": {"name": "Plain"},
		"opinionated": {"name": "Opinionated", "effects": {"frequency_filter": false, "low_cutoff": 500}}
	}}`
	reg, err := voice.Load(strings.NewReader(doc), nil, voice.WithEffectDefaults(voice.EffectProfile{
		FilterEnabled:    true,
		LowCutoff:        250,
		HighCutoff:       2500,
		HarmonicEnabled:  true,
		HarmonicGain:     voice.DefaultHarmonicGain,
		ArtifactsEnabled: true,
		QuantizeLevels:   voice.DefaultQuantizeLevels,
		GateWindow:       voice.DefaultGateWindow,
		GatePeriod:       voice.DefaultGatePeriod,
		Resonance:        voice.DefaultResonance,
	}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// A preset without an effects block follows the configured defaults.
	p, _ := reg.Resolve("plain")
	if !p.Effects.FilterEnabled || !p.Effects.HarmonicEnabled || !p.Effects.ArtifactsEnabled {
		t.Errorf("plain preset should inherit the configured toggles: %+v", p.Effects)
	}
	if p.Effects.LowCutoff != 250 || p.Effects.HighCutoff != 2500 {
		t.Errorf("plain preset cutoffs = [%v, %v], want [250, 2500]", p.Effects.LowCutoff, p.Effects.HighCutoff)
	}

	// Fields the preset sets itself still win.
	p, _ = reg.Resolve("opinionated")
	if p.Effects.FilterEnabled {
		t.Error("explicit frequency_filter: false should beat the configured default")
	}
	if p.Effects.LowCutoff != 500 {
		t.Errorf("low cutoff = %v, want the preset's 500", p.Effects.LowCutoff)
	}
}

// builtinReader reads the built-in preset document from the package
// directory, the same file that is embedded into the binary.
func builtinReader(t *testing.T) *bytes.Reader {
	t.Helper()
	raw, err := os.ReadFile("presets.json")
	if err != nil {
		t.Fatalf("read presets.json: %v", err)
	}
	return bytes.NewReader(raw)
}
