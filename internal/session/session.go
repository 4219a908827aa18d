package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/djzlabs/djzspeak/internal/config"
	"github.com/djzlabs/djzspeak/internal/observe"
	"github.com/djzlabs/djzspeak/pkg/synth"
	"github.com/djzlabs/djzspeak/pkg/voice"
)

// Sink receives every successfully synthesized clip, typically to play it or
// write it to disk. A nil sink drops the audio and only reports stats.
type Sink func(ctx context.Context, res *synth.Result) error

// Config wires up a Session. Orchestrator and Registry are required.
type Config struct {
	Orchestrator *synth.Orchestrator
	Registry     *voice.Registry

	// DefaultVoice is the preset selected at startup and after /reset.
	// Empty means [voice.DefaultVoice].
	DefaultVoice string

	// Output receives prompts, listings, and error messages.
	Output io.Writer

	// Sink handles synthesized audio. Optional.
	Sink Sink

	// Updates feeds settings-file changes into the loop; they are applied
	// between commands. Optional.
	Updates <-chan config.DiffResult

	// Prompt is printed before each input line. Empty means "djz> ".
	Prompt string
}

// Session is the interactive synthesis loop. It owns the current voice
// selection and parameter overrides; all state changes happen on the loop
// goroutine, so Session needs no locking and must not be shared.
type Session struct {
	orch     *synth.Orchestrator
	registry *voice.Registry
	out      io.Writer
	sink     Sink
	updates  <-chan config.DiffResult
	prompt   string

	defaultVoice string
	voiceID      string
	overrides    voice.Overrides
}

// New creates a Session from cfg.
func New(cfg Config) (*Session, error) {
	if cfg.Orchestrator == nil {
		return nil, errors.New("session: orchestrator must not be nil")
	}
	if cfg.Registry == nil {
		return nil, errors.New("session: registry must not be nil")
	}
	s := &Session{
		orch:         cfg.Orchestrator,
		registry:     cfg.Registry,
		out:          cfg.Output,
		sink:         cfg.Sink,
		updates:      cfg.Updates,
		defaultVoice: cfg.DefaultVoice,
		prompt:       cfg.Prompt,
	}
	if s.out == nil {
		s.out = io.Discard
	}
	if s.defaultVoice == "" {
		s.defaultVoice = voice.DefaultVoice
	}
	if s.prompt == "" {
		s.prompt = "djz> "
	}
	s.voiceID = s.defaultVoice
	return s, nil
}

// Run reads input line by line until EOF, /quit, or ctx cancellation.
// Command errors are printed and the loop continues; only input errors and
// cancellation end the session with a non-nil error.
func (s *Session) Run(ctx context.Context, input io.Reader) error {
	fmt.Fprintf(s.out, "DJZ-Speak interactive session, voice %q. /help lists commands.\n", s.voiceID)

	scanner := bufio.NewScanner(input)
	for {
		s.drainUpdates()
		fmt.Fprint(s.out, s.prompt)

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("session: read input: %w", err)
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		cmd, err := Parse(line)
		if err != nil {
			fmt.Fprintln(s.out, err)
			continue
		}

		quit, err := s.Execute(ctx, cmd)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// Execute applies one command to the session state. It returns quit=true for
// KindQuit. Errors leave the state untouched: a rejected parameter keeps its
// previous value.
func (s *Session) Execute(ctx context.Context, cmd Command) (quit bool, err error) {
	switch cmd.Kind {
	case KindQuit:
		return true, nil

	case KindHelp:
		s.printHelp()
		return false, nil

	case KindReset:
		s.voiceID = s.defaultVoice
		s.overrides = voice.Overrides{}
		fmt.Fprintf(s.out, "voice %q, overrides cleared\n", s.voiceID)
		return false, nil

	case KindSetVoice:
		preset, err := s.registry.Resolve(cmd.Text)
		if err != nil {
			return false, err
		}
		s.voiceID = preset.ID
		fmt.Fprintf(s.out, "voice %q (%s)\n", preset.ID, preset.Name)
		return false, nil

	case KindSetSpeed:
		return false, setOverride(&s.overrides.Speed, "speed", cmd.Value, voice.SpeedMin, voice.SpeedMax)
	case KindSetPitch:
		return false, setOverride(&s.overrides.Pitch, "pitch", cmd.Value, voice.PitchMin, voice.PitchMax)
	case KindSetAmplitude:
		return false, setOverride(&s.overrides.Amplitude, "amplitude", cmd.Value, voice.AmplitudeMin, voice.AmplitudeMax)
	case KindSetGap:
		return false, setOverride(&s.overrides.Gap, "gap", cmd.Value, voice.GapMin, -1)

	case KindListVoices:
		s.printVoices()
		return false, nil

	case KindStats:
		s.printStats()
		return false, nil

	case KindVoiceInfo:
		id := cmd.Text
		if id == "" {
			id = s.voiceID
		}
		preset, err := s.registry.Resolve(id)
		if err != nil {
			return false, err
		}
		s.printInfo(preset)
		return false, nil

	case KindSynthesize:
		return false, s.synthesize(ctx, cmd.Text)

	default:
		return false, fmt.Errorf("session: unhandled command kind %d", cmd.Kind)
	}
}

// synthesize speaks one line with the current voice and overrides.
func (s *Session) synthesize(ctx context.Context, text string) error {
	res, err := s.orch.Synthesize(ctx, synth.Request{
		Text:      text,
		Voice:     s.voiceID,
		Overrides: s.overrides,
	})
	if err != nil {
		return err
	}

	if s.sink != nil {
		if err := s.sink(ctx, res); err != nil {
			return fmt.Errorf("session: audio sink: %w", err)
		}
	}

	note := ""
	if res.Cached {
		note = ", cached"
	}
	fmt.Fprintf(s.out, "%.2fs audio in %.2fs (rtf %.2f%s)\n",
		res.Stats.AudioDuration.Seconds(),
		res.Stats.TotalTime.Seconds(),
		res.Stats.RealTimeFactor(),
		note,
	)
	return nil
}

// drainUpdates applies any pending settings-file changes without blocking.
func (s *Session) drainUpdates() {
	if s.updates == nil {
		return
	}
	for {
		select {
		case diff, ok := <-s.updates:
			if !ok {
				s.updates = nil
				return
			}
			s.applyDiff(diff)
		default:
			return
		}
	}
}

// applyDiff folds one settings change into the session. Only the default
// voice is hot-applied here; the log level is handled by the process, and an
// effects toggle needs a rebuilt orchestrator, so it is only announced.
func (s *Session) applyDiff(diff config.DiffResult) {
	if !diff.Changed() {
		return
	}
	if diff.DefaultVoiceChanged {
		onDefault := s.voiceID == s.defaultVoice
		s.defaultVoice = diff.NewDefaultVoice
		if onDefault {
			s.voiceID = diff.NewDefaultVoice
		}
		fmt.Fprintf(s.out, "settings reloaded: default voice is now %q\n", diff.NewDefaultVoice)
	}
	if diff.EffectsToggled {
		fmt.Fprintf(s.out, "settings reloaded: effects %s takes effect after restart\n",
			onOff(diff.EffectsEnabled))
	}
	if diff.ParamsChanged {
		fmt.Fprintln(s.out, "settings reloaded: synthesis defaults changed")
	}
	observe.Logger(context.Background()).Debug("session applied settings change",
		"default_voice", s.defaultVoice,
	)
}

func (s *Session) printHelp() {
	fmt.Fprint(s.out, `Commands:
  /voice <id>   select a voice preset
  /speed <n>    speaking rate in wpm (80-300)
  /pitch <n>    base pitch (0-99)
  /amp <n>      amplitude (0-200)
  /gap <n>      word gap in 10 ms units (0 or more)
  /voices       list available presets
  /info [id]    show preset details
  /stats        show synthesis performance statistics
  /reset        restore the default voice and clear overrides
  /help         show this help
  /quit         leave the session
Any other line is spoken with the current settings.
`)
}

func (s *Session) printVoices() {
	for _, id := range s.registry.List() {
		preset, err := s.registry.Resolve(id)
		if err != nil {
			continue
		}
		marker := " "
		if id == s.voiceID {
			marker = "*"
		}
		fmt.Fprintf(s.out, "%s %-16s %s", marker, id, preset.Name)
		if preset.Description != "" {
			fmt.Fprintf(s.out, ": %s", preset.Description)
		}
		fmt.Fprintln(s.out)
	}
}

func (s *Session) printInfo(preset voice.Preset) {
	fmt.Fprintf(s.out, "%s (%s)\n", preset.Name, preset.ID)
	if preset.Description != "" {
		fmt.Fprintf(s.out, "  %s\n", preset.Description)
	}
	engineVoice := preset.EngineVoice
	if preset.Variant != "" {
		engineVoice += "+" + preset.Variant
	}
	fmt.Fprintf(s.out, "  engine voice %s\n", engineVoice)
	fmt.Fprintf(s.out, "  speed %s, pitch %s, amplitude %s, gap %s\n",
		paramOrDefault(preset.Params.Speed),
		paramOrDefault(preset.Params.Pitch),
		paramOrDefault(preset.Params.Amplitude),
		paramOrDefault(preset.Params.Gap))
	if preset.Characteristics != "" {
		fmt.Fprintf(s.out, "  %s\n", preset.Characteristics)
	}

	if !s.overrides.IsZero() && preset.ID == s.voiceID {
		parts := make([]string, 0, 4)
		for _, f := range []struct {
			name  string
			value *int
		}{
			{"speed", s.overrides.Speed},
			{"pitch", s.overrides.Pitch},
			{"amplitude", s.overrides.Amplitude},
			{"gap", s.overrides.Gap},
		} {
			if f.value != nil {
				parts = append(parts, fmt.Sprintf("%s %d", f.name, *f.value))
			}
		}
		fmt.Fprintf(s.out, "  session overrides: %s\n", strings.Join(parts, ", "))
	}
}

// printStats reports the orchestrator's aggregate performance counters.
func (s *Session) printStats() {
	agg := s.orch.Stats()
	if agg.Syntheses == 0 {
		fmt.Fprintln(s.out, "no syntheses yet")
		return
	}
	fmt.Fprintf(s.out, "%d syntheses, %.2fs audio in %.2fs\n",
		agg.Syntheses, agg.TotalAudio.Seconds(), agg.TotalWall.Seconds())
	fmt.Fprintf(s.out, "average rtf %.2f against target %.2f: %s\n",
		agg.AverageRTF, agg.Target, agg.Rating())
}

// paramOrDefault formats a preset base parameter, or "(default)" when the
// preset leaves the field to the configured global defaults.
func paramOrDefault(p *int) string {
	if p == nil {
		return "(default)"
	}
	return strconv.Itoa(*p)
}

// setOverride bounds-checks value and stores it. max < 0 means unbounded
// above, matching the validation convention elsewhere.
func setOverride(dst **int, field string, value, min, max int) error {
	if value < min || (max >= 0 && value > max) {
		return &voice.ValidationError{Field: field, Min: min, Max: max, Got: value}
	}
	v := value
	*dst = &v
	return nil
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
