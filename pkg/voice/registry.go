package voice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/antzucaro/matchr"
)

// suggestionThreshold is the minimum Jaro-Winkler similarity required before
// a NotFoundError carries a "did you mean" suggestion.
const suggestionThreshold = 0.75

// Registry holds the immutable set of voice presets for a synthesis session.
// Built once per process via [Load] (or [LoadDefault]) and then passed by
// reference; it is safe for concurrent use because it is read-only after
// construction.
type Registry struct {
	presets    map[string]Preset
	order      []string
	categories map[string][]string
	formants   map[string]FormantPreset
	templates  map[string]EffectTemplate

	effectDefaults EffectProfile
}

// LoadOption configures registry loading.
type LoadOption func(*Registry)

// WithEffectDefaults replaces the package-level effect defaults used for
// fields a preset document omits. The settings file's effects section is
// wired through here so presets without their own effects block follow the
// configured global effect defaults.
func WithEffectDefaults(p EffectProfile) LoadOption {
	return func(r *Registry) {
		r.effectDefaults = p
	}
}

// presetDoc mirrors the top-level structure of a preset document. Unknown
// top-level keys are tolerated for forward compatibility — encoding/json
// ignores them by default.
type presetDoc struct {
	Voices          map[string]presetRecord  `json:"voices"`
	VoiceCategories map[string][]string      `json:"voice_categories"`
	FormantPresets  map[string]FormantPreset `json:"formant_presets"`
	EffectTemplates map[string]EffectTemplate `json:"effect_templates"`
}

// presetRecord is the loosely-typed on-disk form of a single voice entry.
// Pointer fields distinguish "absent" from "zero" so defaults can be resolved
// once at load time rather than reinterpreted per use.
type presetRecord struct {
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	EngineVoice     string        `json:"espeak_voice"`
	Variant         string        `json:"variant"`
	Characteristics string        `json:"characteristics"`
	Speed           *int          `json:"speed"`
	Pitch           *int          `json:"pitch"`
	Amplitude       *int          `json:"amplitude"`
	Gap             *int          `json:"gap"`
	Effects         *effectRecord `json:"effects"`
}

// effectRecord is the on-disk form of an effect profile.
type effectRecord struct {
	FrequencyFilter     *bool    `json:"frequency_filter"`
	LowCutoff           *float64 `json:"low_cutoff"`
	HighCutoff          *float64 `json:"high_cutoff"`
	HarmonicEnhancement *bool    `json:"harmonic_enhancement"`
	HarmonicGain        *float64 `json:"harmonic_gain"`
	MechanicalArtifacts *bool    `json:"mechanical_artifacts"`
	QuantizeLevels      *int     `json:"quantize_levels"`
	GateWindow          *int     `json:"gate_window"`
	GatePeriod          *int     `json:"gate_period"`
	Resonance           *float64 `json:"resonance"`
	Template            string   `json:"template"`
	FormantPreset       string   `json:"formant_preset"`
}

// Load builds a Registry from the built-in preset document and an optional
// user document (pass nil for none). User entries are merged by id and win
// over built-in entries with the same id; ids unique to the user document are
// appended after the built-in listing order.
//
// Malformed documents, presets missing required fields, and out-of-range base
// parameters are load errors — broken preset data is fatal at startup, not
// something to paper over per call. A category referencing a missing id is
// only a warning.
func Load(builtin io.Reader, user io.Reader, opts ...LoadOption) (*Registry, error) {
	r := &Registry{
		presets:    make(map[string]Preset),
		categories: make(map[string][]string),
		formants:   make(map[string]FormantPreset),
		templates:  make(map[string]EffectTemplate),
		effectDefaults: EffectProfile{
			LowCutoff:      DefaultLowCutoff,
			HighCutoff:     DefaultHighCutoff,
			HarmonicGain:   DefaultHarmonicGain,
			QuantizeLevels: DefaultQuantizeLevels,
			GateWindow:     DefaultGateWindow,
			GatePeriod:     DefaultGatePeriod,
			Resonance:      DefaultResonance,
		},
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.mergeDocument(builtin, "builtin"); err != nil {
		return nil, err
	}
	if user != nil {
		if err := r.mergeDocument(user, "user"); err != nil {
			return nil, err
		}
	}

	// Non-owning labels: warn about dangling ids, keep the rest.
	for category, ids := range r.categories {
		kept := ids[:0]
		for _, id := range ids {
			if _, ok := r.presets[id]; !ok {
				slog.Warn("voice category references unknown preset",
					"category", category,
					"id", id,
				)
				continue
			}
			kept = append(kept, id)
		}
		r.categories[category] = kept
	}

	return r, nil
}

// mergeDocument decodes one preset document into the registry. source tags
// error messages ("builtin" or "user").
func (r *Registry) mergeDocument(src io.Reader, source string) error {
	raw, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("voice: read %s presets: %w", source, err)
	}

	var doc presetDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("voice: decode %s presets: %w", source, err)
	}

	// Formant presets and effect templates must land before voices so that
	// references resolve regardless of which document defines them.
	for name, fp := range doc.FormantPresets {
		r.formants[name] = fp
	}
	for name, tpl := range doc.EffectTemplates {
		r.templates[name] = tpl
	}

	for _, id := range documentVoiceOrder(raw) {
		rec := doc.Voices[id]
		preset, err := r.resolvePreset(id, rec)
		if err != nil {
			return fmt.Errorf("voice: %s preset %q: %w", source, id, err)
		}
		if _, exists := r.presets[id]; !exists {
			r.order = append(r.order, id)
		}
		r.presets[id] = preset
	}

	// Documents redefining a category merge into it; an id listed by both
	// documents appears once.
	for category, ids := range doc.VoiceCategories {
		existing := r.categories[category]
		for _, id := range ids {
			if !slices.Contains(existing, id) {
				existing = append(existing, id)
			}
		}
		r.categories[category] = existing
	}

	return nil
}

// resolvePreset converts a loosely-typed record into an immutable [Preset],
// resolving template/formant references once. Base parameters stay partial:
// omitted fields are resolved per call against the configured defaults, in
// [Merge].
func (r *Registry) resolvePreset(id string, rec presetRecord) (Preset, error) {
	if rec.Name == "" {
		return Preset{}, fmt.Errorf("missing required field %q", "name")
	}

	p := Preset{
		ID:              id,
		Name:            rec.Name,
		Description:     rec.Description,
		EngineVoice:     rec.EngineVoice,
		Variant:         rec.Variant,
		Characteristics: rec.Characteristics,
		Params: Overrides{
			Speed:     rec.Speed,
			Pitch:     rec.Pitch,
			Amplitude: rec.Amplitude,
			Gap:       rec.Gap,
		},
	}
	if p.EngineVoice == "" {
		p.EngineVoice = "en"
	}
	if err := p.Params.Validate(); err != nil {
		return Preset{}, err
	}

	profile, err := r.resolveEffects(rec.Effects)
	if err != nil {
		return Preset{}, err
	}
	p.Effects = profile

	return p, nil
}

// resolveEffects builds an [EffectProfile] from an effect record, applying
// field precedence explicit value > referenced template > registry default.
func (r *Registry) resolveEffects(rec *effectRecord) (EffectProfile, error) {
	profile := r.effectDefaults
	profile.Formants = nil
	if rec == nil {
		return profile, nil
	}

	if rec.Template != "" {
		tpl, ok := r.templates[rec.Template]
		if !ok {
			return EffectProfile{}, fmt.Errorf("unknown effect template %q", rec.Template)
		}
		if tpl.LowCutoff > 0 {
			profile.LowCutoff = tpl.LowCutoff
		}
		if tpl.HighCutoff > 0 {
			profile.HighCutoff = tpl.HighCutoff
		}
		if tpl.Resonance > 0 {
			profile.Resonance = tpl.Resonance
		}
	}

	profile.FilterEnabled = valueOr(rec.FrequencyFilter, r.effectDefaults.FilterEnabled)
	profile.HarmonicEnabled = valueOr(rec.HarmonicEnhancement, r.effectDefaults.HarmonicEnabled)
	profile.ArtifactsEnabled = valueOr(rec.MechanicalArtifacts, r.effectDefaults.ArtifactsEnabled)
	if rec.LowCutoff != nil {
		profile.LowCutoff = *rec.LowCutoff
	}
	if rec.HighCutoff != nil {
		profile.HighCutoff = *rec.HighCutoff
	}
	if rec.HarmonicGain != nil {
		profile.HarmonicGain = *rec.HarmonicGain
	}
	if rec.QuantizeLevels != nil {
		profile.QuantizeLevels = *rec.QuantizeLevels
	}
	if rec.GateWindow != nil {
		profile.GateWindow = *rec.GateWindow
	}
	if rec.GatePeriod != nil {
		profile.GatePeriod = *rec.GatePeriod
	}
	if rec.Resonance != nil {
		profile.Resonance = *rec.Resonance
	}

	if profile.LowCutoff >= profile.HighCutoff {
		return EffectProfile{}, fmt.Errorf("low_cutoff %.0f must be below high_cutoff %.0f",
			profile.LowCutoff, profile.HighCutoff)
	}

	if rec.FormantPreset != "" {
		fp, ok := r.formants[rec.FormantPreset]
		if !ok {
			return EffectProfile{}, fmt.Errorf("unknown formant preset %q", rec.FormantPreset)
		}
		profile.Formants = &fp
	}

	return profile, nil
}

// Resolve returns the preset registered under id. An unknown id yields a
// [*NotFoundError] carrying the closest known id by Jaro-Winkler similarity,
// so interactive callers can offer a correction.
func (r *Registry) Resolve(id string) (Preset, error) {
	if p, ok := r.presets[id]; ok {
		return p, nil
	}

	nf := &NotFoundError{ID: id}
	best := 0.0
	needle := strings.ToLower(id)
	for _, candidate := range r.order {
		score := matchr.JaroWinkler(needle, strings.ToLower(candidate), false)
		if score > best {
			best = score
			if score >= suggestionThreshold {
				nf.Suggestion = candidate
			}
		}
	}
	return Preset{}, nf
}

// ResolveOrDefault resolves id, falling back to fallbackID with a warning
// when id is unknown. The fallback itself must exist.
func (r *Registry) ResolveOrDefault(id, fallbackID string) (Preset, error) {
	p, err := r.Resolve(id)
	if err == nil {
		return p, nil
	}
	slog.Warn("unknown voice preset, falling back to default",
		"requested", id,
		"fallback", fallbackID,
		"err", err,
	)
	return r.Resolve(fallbackID)
}

// List returns all preset ids in listing order: built-in document order
// first, then user-appended ids.
func (r *Registry) List() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered presets.
func (r *Registry) Len() int {
	return len(r.presets)
}

// Categories returns the category → preset-id mapping. Categories are
// non-owning labels: an id may appear in any number of categories.
func (r *Registry) Categories() map[string][]string {
	out := make(map[string][]string, len(r.categories))
	for category, ids := range r.categories {
		out[category] = append([]string(nil), ids...)
	}
	return out
}

// Formant returns the named formant preset from the document's
// formant_presets table.
func (r *Registry) Formant(name string) (FormantPreset, bool) {
	fp, ok := r.formants[name]
	return fp, ok
}

// documentVoiceOrder extracts the key order of the "voices" object from the
// raw document. JSON objects decode into Go maps with randomised iteration,
// but listing order is part of the registry contract, so the keys are read
// back from the token stream.
func documentVoiceOrder(raw []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(raw))

	// Scan top-level keys for "voices".
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil
		}
		key, _ := keyTok.(string)
		if key != "voices" {
			// Skip this key's value entirely.
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil
			}
			continue
		}

		if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
			return nil
		}
		var order []string
		for dec.More() {
			idTok, err := dec.Token()
			if err != nil {
				return nil
			}
			id, _ := idTok.(string)
			order = append(order, id)
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil
			}
		}
		return order
	}
	return nil
}

// valueOr dereferences p, or returns def when p is nil.
func valueOr[T any](p *T, def T) T {
	if p != nil {
		return *p
	}
	return def
}
