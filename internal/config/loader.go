package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/djzlabs/djzspeak/pkg/voice"
	"gopkg.in/yaml.v3"
)

// Environment variables recognised by [ApplyEnv].
const (
	// EnvEnginePath overrides engine.path.
	EnvEnginePath = "DJZ_SPEAK_ESPEAK_PATH"
)

// ErrInvalid marks settings validation failures. [Validate] wraps the joined
// per-field errors in it so callers can branch with errors.Is.
var ErrInvalid = errors.New("config: invalid settings")

// Load reads the YAML settings file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
// A missing file is not an error: the defaults are returned.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML settings from r over the defaults and validates
// the result. Useful in tests where settings are constructed from string
// literals. Fields absent from the document keep their default values.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment overrides onto cfg. The lookup function is
// usually os.LookupEnv; tests pass a map-backed stub. The voice override
// (DJZ_SPEAK_VOICE) replaces the default voice; numeric parameter variables
// are resolved later, during per-call parameter merging.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(voice.EnvVoice); ok && v != "" {
		cfg.Synthesis.DefaultVoice = v
	}
	if p, ok := lookup(EnvEnginePath); ok && p != "" {
		cfg.Engine.Path = p
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Audio format
	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is not positive", cfg.Audio.SampleRate))
	}
	if cfg.Audio.Channels != 1 && cfg.Audio.Channels != 2 {
		errs = append(errs, fmt.Errorf("audio.channels %d is invalid; valid values: 1, 2", cfg.Audio.Channels))
	}
	if cfg.Audio.BitDepth != 16 {
		errs = append(errs, fmt.Errorf("audio.bit_depth %d is unsupported; only 16-bit PCM", cfg.Audio.BitDepth))
	}

	// Synthesis defaults and limits
	if cfg.Synthesis.DefaultVoice == "" {
		errs = append(errs, errors.New("synthesis.default_voice is required"))
	}
	params := voice.Params{
		Speed:     cfg.Synthesis.Speed,
		Pitch:     cfg.Synthesis.Pitch,
		Amplitude: cfg.Synthesis.Amplitude,
		Gap:       cfg.Synthesis.Gap,
	}
	if err := params.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("synthesis defaults: %w", err))
	}
	if cfg.Synthesis.MaxTextLength <= 0 {
		errs = append(errs, fmt.Errorf("synthesis.max_text_length %d is not positive", cfg.Synthesis.MaxTextLength))
	}
	if cfg.Synthesis.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("synthesis.timeout %v is not positive", cfg.Synthesis.Timeout))
	}

	// Effects
	if ff := cfg.Effects.FrequencyFilter; ff.LowCutoff <= 0 || ff.LowCutoff >= ff.HighCutoff {
		errs = append(errs, fmt.Errorf("effects.frequency_filter cutoffs [%.0f, %.0f] are invalid; need 0 < low < high",
			ff.LowCutoff, ff.HighCutoff))
	}

	// Output
	if !cfg.Output.Format.IsValid() {
		errs = append(errs, fmt.Errorf("output.format %q is invalid; valid values: wav, raw", cfg.Output.Format))
	}

	// Performance
	if cfg.Performance.Workers < 1 {
		errs = append(errs, fmt.Errorf("performance.workers %d is invalid; need at least 1", cfg.Performance.Workers))
	}
	if cfg.Performance.CacheEnabled && cfg.Performance.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("performance.cache_size %d is not positive while the cache is enabled", cfg.Performance.CacheSize))
	}
	if cfg.Performance.RealTimeFactorTarget <= 0 {
		errs = append(errs, fmt.Errorf("performance.real_time_factor_target %g is not positive", cfg.Performance.RealTimeFactorTarget))
	}

	// Engine
	if cfg.Engine.Name == "" {
		errs = append(errs, errors.New("engine.name is required"))
	}
	for i, fb := range cfg.Engine.Fallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("engine.fallbacks[%d].name is required", i))
		}
	}

	// Logging
	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	if joined := errors.Join(errs...); joined != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, joined)
	}
	return nil
}
