// Package synth coordinates one complete text-to-speech run: parameter
// resolution, engine invocation, the effect chain, caching, and timing stats.
//
// The [Orchestrator] is the single entry point the CLI, batch pool, and
// interactive session all go through. It owns the per-call timeout and the
// synthesis cache; the engine below it stays a pure text-to-audio function
// and the effect chain stays a pure buffer transform.
package synth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/djzlabs/djzspeak/internal/observe"
	"github.com/djzlabs/djzspeak/pkg/audio"
	"github.com/djzlabs/djzspeak/pkg/effects"
	"github.com/djzlabs/djzspeak/pkg/engine"
	"github.com/djzlabs/djzspeak/pkg/voice"
)

// ErrTimeout marks a synthesis call that exceeded the orchestrator's
// per-call timeout. The wrapped chain also matches
// [context.DeadlineExceeded].
var ErrTimeout = errors.New("synth: synthesis timed out")

// Request describes one synthesis call.
type Request struct {
	// Text is the raw input; the orchestrator normalizes it before use.
	Text string

	// Voice is the preset id. Empty selects the configured default voice.
	Voice string

	// Overrides are explicit call-site parameter overrides, the highest
	// precedence layer of the merge.
	Overrides voice.Overrides
}

// Stats carries the timing breakdown of one synthesis call.
type Stats struct {
	// EngineTime is the wall time spent in the backend subprocess.
	EngineTime time.Duration

	// EffectsTime is the wall time spent in the effect chain.
	EffectsTime time.Duration

	// TotalTime is the end-to-end wall time of the call.
	TotalTime time.Duration

	// AudioDuration is the playback length of the produced clip.
	AudioDuration time.Duration
}

// RealTimeFactor returns synthesis wall time divided by produced audio
// duration. Values below 1.0 mean faster than real time; zero-length audio
// yields 0.
func (s Stats) RealTimeFactor() float64 {
	if s.AudioDuration <= 0 {
		return 0
	}
	return float64(s.TotalTime) / float64(s.AudioDuration)
}

// rtfWindow is how many recent calls the rolling RTF average covers.
const rtfWindow = 32

// AggregateStats summarises every non-cached synthesis an orchestrator has
// run so far.
type AggregateStats struct {
	// Syntheses counts completed engine runs; cache hits are not included.
	Syntheses int

	// TotalAudio and TotalWall accumulate produced audio length and
	// end-to-end wall time.
	TotalAudio time.Duration
	TotalWall  time.Duration

	// AverageRTF is the rolling mean real-time factor over the most recent
	// calls (at most rtfWindow of them).
	AverageRTF float64

	// Target is the configured real-time-factor target the rating grades
	// against.
	Target float64
}

// Rating grades the rolling average RTF against the target.
func (s AggregateStats) Rating() string {
	switch {
	case s.Syntheses == 0:
		return "no data"
	case s.AverageRTF <= s.Target/2:
		return "excellent"
	case s.AverageRTF <= s.Target:
		return "good"
	case s.AverageRTF <= s.Target*2:
		return "acceptable"
	default:
		return "slow"
	}
}

// Result is the outcome of a successful synthesis call.
type Result struct {
	// Audio is the final clip, effects applied.
	Audio *audio.Buffer

	// Preset is the resolved voice preset the call used.
	Preset voice.Preset

	// Params are the effective merged parameters handed to the engine.
	Params voice.Params

	// Stats is the timing breakdown.
	Stats Stats

	// Cached reports whether the clip came from the synthesis cache.
	Cached bool
}

// Option is a functional option for configuring an Orchestrator.
type Option func(*Orchestrator)

// WithDefaultVoice sets the preset id used when a request names no voice.
// Defaults to [voice.DefaultVoice].
func WithDefaultVoice(id string) Option {
	return func(o *Orchestrator) {
		o.defaultVoice = id
	}
}

// WithDefaults sets the lowest-precedence parameter layer of the merge.
func WithDefaults(p voice.Params) Option {
	return func(o *Orchestrator) {
		o.defaults = p
	}
}

// WithTimeout bounds each synthesis call end to end. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithMaxTextLength sets the longest accepted input in bytes (after
// normalization). Longer inputs are rejected, never truncated. Defaults
// to 5000.
func WithMaxTextLength(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxTextLength = n
		}
	}
}

// WithEffectsEnabled gates the effect chain globally. Defaults to enabled;
// when disabled, clips still pass through peak normalization unless that is
// turned off too via WithNormalization.
func WithEffectsEnabled(enabled bool) Option {
	return func(o *Orchestrator) {
		o.effectsEnabled = enabled
	}
}

// WithNormalization controls output peak normalization when the effect chain
// is disabled. Defaults to on.
func WithNormalization(enabled bool) Option {
	return func(o *Orchestrator) {
		o.normalizeOutput = enabled
	}
}

// WithCache enables the in-memory synthesis cache with the given capacity.
// Repeating text with identical voice and parameters then skips the backend.
func WithCache(size int) Option {
	return func(o *Orchestrator) {
		if size > 0 {
			// NewLRU errors only on size <= 0.
			o.cache, _ = lru.New[string, *audio.Buffer](size)
		}
	}
}

// WithMetrics overrides the metrics instance, mainly for tests. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithEnvLookup overrides the environment lookup used for the env override
// layer. Defaults to os.LookupEnv; tests pass a map-backed stub.
func WithEnvLookup(lookup func(string) (string, bool)) Option {
	return func(o *Orchestrator) {
		o.lookupEnv = lookup
	}
}

// WithRTFTarget sets the real-time-factor target the aggregate stats rating
// grades against. Defaults to 0.5 (twice faster than real time).
func WithRTFTarget(target float64) Option {
	return func(o *Orchestrator) {
		if target > 0 {
			o.rtfTarget = target
		}
	}
}

// Orchestrator runs complete synthesis calls against one engine and one
// preset registry. It is safe for concurrent use; the batch pool shares a
// single instance across its workers.
type Orchestrator struct {
	engine   engine.Engine
	registry *voice.Registry

	defaultVoice    string
	defaults        voice.Params
	timeout         time.Duration
	maxTextLength   int
	effectsEnabled  bool
	normalizeOutput bool
	lookupEnv       func(string) (string, bool)

	cache   *lru.Cache[string, *audio.Buffer]
	metrics *observe.Metrics

	rtfTarget float64

	// statsMu guards the aggregate counters; everything else is immutable
	// after New.
	statsMu    sync.Mutex
	synthCount int
	totalAudio time.Duration
	totalWall  time.Duration
	recentRTF  []float64
}

// New creates an Orchestrator for the given engine and registry. Both must be
// non-nil.
func New(eng engine.Engine, reg *voice.Registry, opts ...Option) (*Orchestrator, error) {
	if eng == nil {
		return nil, errors.New("synth: engine must not be nil")
	}
	if reg == nil {
		return nil, errors.New("synth: registry must not be nil")
	}
	o := &Orchestrator{
		engine:          eng,
		registry:        reg,
		defaultVoice:    voice.DefaultVoice,
		defaults:        voice.Params{Speed: 140, Pitch: 35, Amplitude: 100, Gap: 8},
		timeout:         30 * time.Second,
		maxTextLength:   5000,
		effectsEnabled:  true,
		normalizeOutput: true,
		lookupEnv:       os.LookupEnv,
		rtfTarget:       0.5,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	return o, nil
}

// Synthesize runs one complete text-to-speech call: normalize and bound the
// text, resolve the preset, merge and validate parameters, invoke the engine
// under the per-call timeout, run the effect chain, and record stats.
//
// Failed calls are never retried; the error reports exactly what failed.
func (o *Orchestrator) Synthesize(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "synth.synthesize")
	defer span.End()

	text := NormalizeText(req.Text)
	if text == "" {
		return nil, &voice.ValidationError{Field: "text", Min: 1, Max: o.maxTextLength, Got: 0}
	}
	if len(text) > o.maxTextLength {
		return nil, &voice.ValidationError{Field: "text", Min: 1, Max: o.maxTextLength, Got: len(text)}
	}

	voiceID := req.Voice
	if voiceID == "" {
		voiceID = o.defaultVoice
	}
	preset, err := o.registry.Resolve(voiceID)
	if err != nil {
		return nil, err
	}

	params := voice.Merge(o.defaults, preset.Params, voice.OverridesFromEnv(o.lookupEnv), req.Overrides)
	if err := params.Validate(); err != nil {
		return nil, err
	}

	log := observe.Logger(ctx).With("voice", preset.ID)

	key := o.cacheKey(text, preset, params)
	if o.cache != nil {
		if clip, ok := o.cache.Get(key); ok {
			o.metrics.RecordCacheLookup(ctx, true)
			log.Debug("synthesis cache hit", "text_len", len(text))
			result := &Result{
				Audio:  clip.Clone(),
				Preset: preset,
				Params: params,
				Cached: true,
			}
			result.Stats.TotalTime = time.Since(start)
			result.Stats.AudioDuration = result.Audio.Duration()
			return result, nil
		}
		o.metrics.RecordCacheLookup(ctx, false)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	engStart := time.Now()
	raw, err := o.engine.Synthesize(ctx, engine.Request{
		Text:    text,
		Voice:   preset.EngineVoice,
		Variant: preset.Variant,
		Params:  params,
	})
	engineTime := time.Since(engStart)
	o.metrics.EngineDuration.Record(ctx, engineTime.Seconds())
	if err != nil {
		o.metrics.RecordSynthesis(ctx, preset.ID, "error")
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %v: %w", ErrTimeout, o.timeout, err)
		}
		o.metrics.RecordEngineError(ctx, o.engine.Name())
		return nil, fmt.Errorf("synth: engine %q: %w", o.engine.Name(), err)
	}

	fxStart := time.Now()
	clip := o.applyEffects(raw, preset.Effects)
	effectsTime := time.Since(fxStart)
	o.metrics.EffectsDuration.Record(ctx, effectsTime.Seconds())

	if o.cache != nil {
		o.cache.Add(key, clip.Clone())
	}

	result := &Result{
		Audio:  clip,
		Preset: preset,
		Params: params,
		Stats: Stats{
			EngineTime:    engineTime,
			EffectsTime:   effectsTime,
			TotalTime:     time.Since(start),
			AudioDuration: clip.Duration(),
		},
	}

	o.recordStats(result.Stats)
	o.metrics.SynthesisDuration.Record(ctx, result.Stats.TotalTime.Seconds())
	if rtf := result.Stats.RealTimeFactor(); rtf > 0 {
		o.metrics.RealTimeFactor.Record(ctx, rtf)
	}
	span.SetAttributes(observe.Attr("voice", preset.ID))
	o.metrics.RecordSynthesis(ctx, preset.ID, "ok")

	log.Debug("synthesis complete",
		"text_len", len(text),
		"engine_ms", engineTime.Milliseconds(),
		"effects_ms", effectsTime.Milliseconds(),
		"audio_ms", result.Stats.AudioDuration.Milliseconds(),
	)
	return result, nil
}

// applyEffects runs the effect chain, or just peak normalization when the
// chain is globally disabled but output normalization is still on.
func (o *Orchestrator) applyEffects(buf *audio.Buffer, profile voice.EffectProfile) *audio.Buffer {
	if o.effectsEnabled {
		return effects.Apply(buf, profile)
	}
	out := buf.Clone()
	if o.normalizeOutput {
		samples := out.Floats()
		effects.Normalize(samples, effects.NormalizeTarget)
		out.SetFloats(samples)
	}
	return out
}

// ApplyEffects exposes the effect chain as a standalone transform for callers
// that already hold raw audio. It is pure delegation; the orchestrator's
// global effects toggle does not apply here.
func (o *Orchestrator) ApplyEffects(buf *audio.Buffer, profile voice.EffectProfile) *audio.Buffer {
	return effects.Apply(buf, profile)
}

// recordStats folds one completed call into the aggregate counters.
func (o *Orchestrator) recordStats(s Stats) {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()

	o.synthCount++
	o.totalAudio += s.AudioDuration
	o.totalWall += s.TotalTime
	if rtf := s.RealTimeFactor(); rtf > 0 {
		if len(o.recentRTF) == rtfWindow {
			copy(o.recentRTF, o.recentRTF[1:])
			o.recentRTF = o.recentRTF[:rtfWindow-1]
		}
		o.recentRTF = append(o.recentRTF, rtf)
	}
}

// Stats returns a snapshot of the aggregate performance counters.
func (o *Orchestrator) Stats() AggregateStats {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()

	agg := AggregateStats{
		Syntheses:  o.synthCount,
		TotalAudio: o.totalAudio,
		TotalWall:  o.totalWall,
		Target:     o.rtfTarget,
	}
	if len(o.recentRTF) > 0 {
		sum := 0.0
		for _, rtf := range o.recentRTF {
			sum += rtf
		}
		agg.AverageRTF = sum / float64(len(o.recentRTF))
	}
	return agg
}

// cacheKey builds the cache identity of one synthesis call: the normalized
// text plus everything that shapes the audio.
func (o *Orchestrator) cacheKey(text string, preset voice.Preset, params voice.Params) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d|%d|%d|%t|%s",
		preset.ID, preset.EngineVoice, preset.Variant,
		params.Speed, params.Pitch, params.Amplitude, params.Gap,
		o.effectsEnabled, text,
	)
}
