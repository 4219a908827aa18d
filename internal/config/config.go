// Package config provides the settings schema, loader, engine registry, and
// settings-file watcher for DJZ-Speak.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// OutputFormat selects how synthesized audio is written.
type OutputFormat string

const (
	// FormatWAV writes a RIFF/WAVE file.
	FormatWAV OutputFormat = "wav"

	// FormatRaw writes headerless little-endian int16 PCM.
	FormatRaw OutputFormat = "raw"
)

// IsValid reports whether f is a recognised output format.
func (f OutputFormat) IsValid() bool {
	return f == FormatWAV || f == FormatRaw
}

// Config is the root settings structure for DJZ-Speak.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader];
// fields absent from the file keep the [Default] values.
type Config struct {
	Audio       AudioConfig       `yaml:"audio"`
	Synthesis   SynthesisConfig   `yaml:"synthesis"`
	Effects     EffectsConfig     `yaml:"effects"`
	Output      OutputConfig      `yaml:"output"`
	Performance PerformanceConfig `yaml:"performance"`
	Engine      EngineConfig      `yaml:"engine"`
	Presets     PresetsConfig     `yaml:"presets"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// AudioConfig pins the PCM format all synthesized audio flows through.
type AudioConfig struct {
	// SampleRate in Hz. eSpeak-NG natively emits 22050.
	SampleRate int `yaml:"sample_rate"`

	// Channels: 1 for mono, 2 for stereo.
	Channels int `yaml:"channels"`

	// BitDepth in bits per sample. Only 16 is supported.
	BitDepth int `yaml:"bit_depth"`
}

// SynthesisConfig holds the synthesis defaults and limits.
type SynthesisConfig struct {
	// DefaultVoice is the preset id used when a request names no voice.
	DefaultVoice string `yaml:"default_voice"`

	// Speed, Pitch, Amplitude, and Gap are the global parameter defaults,
	// overridden per preset, environment variable, and call site.
	Speed     int `yaml:"speed"`
	Pitch     int `yaml:"pitch"`
	Amplitude int `yaml:"amplitude"`
	Gap       int `yaml:"gap"`

	// MaxTextLength is the longest text (in bytes) one synthesis call
	// accepts. Longer inputs are rejected, never truncated.
	MaxTextLength int `yaml:"max_text_length"`

	// Timeout bounds one synthesis call end to end.
	Timeout time.Duration `yaml:"timeout"`
}

// EffectsConfig gates the post-synthesis effect chain globally and supplies
// the effect defaults for presets that omit their own effects block.
// Per-preset stage toggles still apply when the chain is enabled.
type EffectsConfig struct {
	Enabled bool `yaml:"enabled"`

	// FrequencyFilter is the global bandpass default.
	FrequencyFilter FrequencyFilterConfig `yaml:"frequency_filter"`

	// HarmonicEnhancement and MechanicalArtifacts are the global stage
	// toggles used when a preset does not set its own.
	HarmonicEnhancement bool `yaml:"harmonic_enhancement"`
	MechanicalArtifacts bool `yaml:"mechanical_artifacts"`
}

// FrequencyFilterConfig is the global bandpass filter default.
type FrequencyFilterConfig struct {
	Enabled bool `yaml:"enabled"`

	// LowCutoff and HighCutoff bound the passband in Hz.
	LowCutoff  float64 `yaml:"low_cutoff"`
	HighCutoff float64 `yaml:"high_cutoff"`
}

// OutputConfig controls where and how synthesized audio is written.
type OutputConfig struct {
	// Format selects the file encoding.
	Format OutputFormat `yaml:"format"`

	// Directory is where relative output paths are resolved.
	Directory string `yaml:"directory"`

	// NormalizeAudio rescales the final clip to the standard peak ceiling
	// even when the effect chain is disabled.
	NormalizeAudio bool `yaml:"normalize_audio"`
}

// PerformanceConfig tunes the batch worker pool and the synthesis cache.
type PerformanceConfig struct {
	// Workers is the number of concurrent synthesis workers in batch mode.
	Workers int `yaml:"workers"`

	// CacheEnabled turns the in-memory synthesis cache on.
	CacheEnabled bool `yaml:"cache_enabled"`

	// CacheSize is the maximum number of cached clips.
	CacheSize int `yaml:"cache_size"`

	// RealTimeFactorTarget is the synthesis-speed goal the aggregate
	// performance rating grades against. 0.5 means twice faster than real
	// time.
	RealTimeFactorTarget float64 `yaml:"real_time_factor_target"`
}

// EngineConfig selects and locates the synthesis backend.
type EngineConfig struct {
	// Name selects the registered engine implementation (e.g., "espeak-ng").
	Name string `yaml:"name"`

	// Path pins the backend executable, skipping discovery. Empty means
	// discover on PATH and in common install locations.
	Path string `yaml:"path"`

	// Fallbacks are tried in order when the engine above them fails; each
	// gets its own circuit breaker. Nested fallbacks are ignored.
	Fallbacks []EngineConfig `yaml:"fallbacks"`
}

// TelemetryConfig controls the optional HTTP listener serving /metrics,
// /healthz, and /readyz.
type TelemetryConfig struct {
	// MetricsAddr is the listen address (e.g., "127.0.0.1:9090"). Empty
	// disables the listener.
	MetricsAddr string `yaml:"metrics_addr"`
}

// PresetsConfig locates the optional user preset document merged over the
// built-in voices.
type PresetsConfig struct {
	// UserFile is the path to a user preset JSON document. Empty disables
	// the user layer; a missing file is not an error.
	UserFile string `yaml:"user_file"`
}

// Default returns the settings used when no file (or an empty file) is given.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate: 22050,
			Channels:   1,
			BitDepth:   16,
		},
		Synthesis: SynthesisConfig{
			DefaultVoice:  "classic_robot",
			Speed:         140,
			Pitch:         35,
			Amplitude:     100,
			Gap:           8,
			MaxTextLength: 5000,
			Timeout:       30 * time.Second,
		},
		Effects: EffectsConfig{
			Enabled: true,
			FrequencyFilter: FrequencyFilterConfig{
				Enabled:    true,
				LowCutoff:  300,
				HighCutoff: 3000,
			},
			HarmonicEnhancement: true,
			MechanicalArtifacts: true,
		},
		Output: OutputConfig{
			Format:         FormatWAV,
			Directory:      ".",
			NormalizeAudio: true,
		},
		Performance: PerformanceConfig{
			Workers:              4,
			CacheEnabled:         true,
			CacheSize:            128,
			RealTimeFactorTarget: 0.5,
		},
		Engine:   EngineConfig{Name: "espeak-ng"},
		LogLevel: LogInfo,
	}
}
