package config

// DiffResult describes what changed between two settings snapshots.
// Only fields that can be safely hot-applied mid-session are tracked; audio
// format and engine changes require a restart and are deliberately absent.
type DiffResult struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// DefaultVoiceChanged is set when synthesis.default_voice changed.
	DefaultVoiceChanged bool
	NewDefaultVoice     string

	// ParamsChanged is set when any of the global synthesis parameter
	// defaults (speed, pitch, amplitude, gap) changed.
	ParamsChanged bool

	// EffectsToggled is set when effects.enabled flipped.
	EffectsToggled bool
	EffectsEnabled bool
}

// Changed reports whether any hot-applicable field differs.
func (d DiffResult) Changed() bool {
	return d.LogLevelChanged || d.DefaultVoiceChanged || d.ParamsChanged || d.EffectsToggled
}

// Diff compares old and new settings and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) DiffResult {
	d := DiffResult{}

	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.LogLevel
	}

	if old.Synthesis.DefaultVoice != new.Synthesis.DefaultVoice {
		d.DefaultVoiceChanged = true
		d.NewDefaultVoice = new.Synthesis.DefaultVoice
	}

	if old.Synthesis.Speed != new.Synthesis.Speed ||
		old.Synthesis.Pitch != new.Synthesis.Pitch ||
		old.Synthesis.Amplitude != new.Synthesis.Amplitude ||
		old.Synthesis.Gap != new.Synthesis.Gap {
		d.ParamsChanged = true
	}

	if old.Effects.Enabled != new.Effects.Enabled {
		d.EffectsToggled = true
		d.EffectsEnabled = new.Effects.Enabled
	}

	return d
}
