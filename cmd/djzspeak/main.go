// Command djzspeak is the DJZ-Speak robotic text-to-speech CLI.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/djzlabs/djzspeak/internal/batch"
	"github.com/djzlabs/djzspeak/internal/config"
	"github.com/djzlabs/djzspeak/internal/health"
	"github.com/djzlabs/djzspeak/internal/observe"
	"github.com/djzlabs/djzspeak/internal/session"
	"github.com/djzlabs/djzspeak/pkg/audio"
	"github.com/djzlabs/djzspeak/pkg/engine"
	"github.com/djzlabs/djzspeak/pkg/engine/espeak"
	"github.com/djzlabs/djzspeak/pkg/engine/fallback"
	"github.com/djzlabs/djzspeak/pkg/synth"
	"github.com/djzlabs/djzspeak/pkg/voice"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// logLevel backs the default logger so the settings watcher can adjust
// verbosity at runtime.
var logLevel = new(slog.LevelVar)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML settings file")
	textFlag := flag.String("text", "", "text to synthesize (also taken from remaining arguments)")
	batchFile := flag.String("f", "", `batch input file, one utterance per line ("-" for stdin)`)
	interactive := flag.Bool("i", false, "start an interactive session")
	listVoices := flag.Bool("list-voices", false, "list voice presets and exit")
	showVersion := flag.Bool("version", false, "print version and exit")

	voiceID := flag.String("voice", "", "voice preset id (overrides the settings file)")
	speed := flag.Int("speed", -1, "speaking rate in wpm (80-300)")
	pitch := flag.Int("pitch", -1, "base pitch (0-99)")
	amplitude := flag.Int("amp", -1, "amplitude (0-200)")
	gap := flag.Int("gap", -1, "word gap in 10 ms units")
	noEffects := flag.Bool("no-effects", false, "skip the robotic effect chain")

	outPath := flag.String("o", "", `output file ("-" for stdout); batch mode treats this as a directory`)
	metricsAddr := flag.String("metrics-addr", "", "serve /metrics, /healthz, and /readyz on this address")
	flag.Parse()

	if *showVersion {
		fmt.Println("djzspeak", version)
		return 0
	}

	// ── Load settings ─────────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "djzspeak: %v\n", err)
		return 1
	}
	config.ApplyEnv(cfg, os.LookupEnv)
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "djzspeak: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	slog.SetDefault(newLogger(cfg.LogLevel))

	// ── Telemetry ─────────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "djzspeak",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Voice registry ────────────────────────────────────────────────────────
	registry, err := voice.LoadDefault(cfg.Presets.UserFile,
		voice.WithEffectDefaults(effectDefaults(cfg)))
	if err != nil {
		slog.Error("failed to load voice presets", "err", err)
		return 1
	}

	if *listVoices {
		printVoices(os.Stdout, registry, cfg.Synthesis.DefaultVoice)
		return 0
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	engines := config.NewRegistry()
	registerBuiltinEngines(engines)

	eng, err := buildEngine(engines, cfg.Engine)
	if err != nil {
		slog.Error("failed to create engine", "name", cfg.Engine.Name, "err", err)
		return 1
	}
	slog.Debug("engine ready", "name", eng.Name())

	// ── Telemetry listener (optional) ─────────────────────────────────────────
	if addr := firstNonEmpty(*metricsAddr, cfg.Telemetry.MetricsAddr); addr != "" {
		stopTelemetry := serveTelemetry(addr, eng, registry, cfg.Output.Directory)
		defer stopTelemetry()
	}

	// ── Orchestrator ──────────────────────────────────────────────────────────
	orch, err := synth.New(eng, registry, orchestratorOptions(cfg, *noEffects)...)
	if err != nil {
		slog.Error("failed to build orchestrator", "err", err)
		return 1
	}

	overrides := overridesFromFlags(*speed, *pitch, *amplitude, *gap)
	selectedVoice := *voiceID
	if selectedVoice == "" {
		selectedVoice = cfg.Synthesis.DefaultVoice
	}

	// ── Mode dispatch ─────────────────────────────────────────────────────────
	switch {
	case *interactive:
		return runInteractive(ctx, orch, registry, cfg, *configPath, selectedVoice)

	case *batchFile != "":
		return runBatch(ctx, orch, cfg, *batchFile, *outPath, selectedVoice, overrides)

	default:
		text := *textFlag
		if text == "" {
			text = strings.Join(flag.Args(), " ")
		}
		if strings.TrimSpace(text) == "" {
			fmt.Fprintln(os.Stderr, "djzspeak: nothing to do; pass text, -f, -i, or -list-voices")
			flag.Usage()
			return 2
		}
		return runOnce(ctx, orch, cfg, text, *outPath, selectedVoice, overrides)
	}
}

// ── One-shot mode ─────────────────────────────────────────────────────────────

func runOnce(ctx context.Context, orch *synth.Orchestrator, cfg *config.Config, text, outPath, voiceID string, overrides voice.Overrides) int {
	res, err := orch.Synthesize(ctx, synth.Request{
		Text:      text,
		Voice:     voiceID,
		Overrides: overrides,
	})
	if err != nil {
		reportSynthesisError(err)
		return 1
	}

	if outPath == "" {
		outPath = filepath.Join(cfg.Output.Directory, "output"+extension(cfg.Output.Format))
	}
	if err := writeClip(cfg, outPath, res.Audio); err != nil {
		slog.Error("failed to write output", "path", outPath, "err", err)
		return 1
	}

	slog.Info("synthesis complete",
		"voice", res.Preset.ID,
		"output", outPath,
		"audio_ms", res.Stats.AudioDuration.Milliseconds(),
		"rtf", fmt.Sprintf("%.2f", res.Stats.RealTimeFactor()),
		"cached", res.Cached,
	)
	return 0
}

// ── Batch mode ────────────────────────────────────────────────────────────────

func runBatch(ctx context.Context, orch *synth.Orchestrator, cfg *config.Config, inPath, outDir, voiceID string, overrides voice.Overrides) int {
	if !overrides.IsZero() {
		// The pool resolves parameters per item; flag overrides would apply to
		// every line, which is surprising in scripts. Keep batch lines pure.
		slog.Warn("parameter flags are ignored in batch mode")
	}

	items, err := readBatchItems(inPath, voiceID)
	if err != nil {
		slog.Error("failed to read batch input", "path", inPath, "err", err)
		return 1
	}
	if len(items) == 0 {
		slog.Warn("batch input is empty", "path", inPath)
		return 0
	}

	if outDir == "" {
		outDir = cfg.Output.Directory
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		slog.Error("failed to create output directory", "dir", outDir, "err", err)
		return 1
	}

	pool := batch.New(orch, cfg.Performance.Workers)
	results, summary, err := pool.Run(ctx, items)
	if err != nil {
		slog.Error("batch aborted", "err", err)
		return 1
	}

	ext := extension(cfg.Output.Format)
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		path := filepath.Join(outDir, fmt.Sprintf("line_%04d%s", r.Index+1, ext))
		if err := writeClip(cfg, path, r.Synthesis.Audio); err != nil {
			slog.Error("failed to write batch output", "path", path, "err", err)
			return 1
		}
	}

	agg := orch.Stats()
	slog.Info("batch complete",
		"items", summary.Items,
		"failed", summary.Failed,
		"audio_ms", summary.AudioDuration.Milliseconds(),
		"wall_ms", summary.WallTime.Milliseconds(),
		"rtf", fmt.Sprintf("%.2f", summary.RealTimeFactor()),
		"avg_rtf", fmt.Sprintf("%.2f", agg.AverageRTF),
		"rating", agg.Rating(),
	)
	if summary.Failed > 0 {
		for _, r := range results {
			if r.Err != nil {
				slog.Error("batch item failed", "line", r.Index+1, "err", r.Err)
			}
		}
		return 1
	}
	return 0
}

// readBatchItems reads one utterance per line; blank lines and '#' comment
// lines are skipped.
func readBatchItems(path, voiceID string) ([]batch.Item, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var items []batch.Item
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		items = append(items, batch.Item{Text: line, Voice: voiceID})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ── Interactive mode ──────────────────────────────────────────────────────────

func runInteractive(ctx context.Context, orch *synth.Orchestrator, registry *voice.Registry, cfg *config.Config, configPath, voiceID string) int {
	// Hot-reload the settings file while the session runs, when there is one.
	var updates chan config.DiffResult
	if _, err := os.Stat(configPath); err == nil {
		updates = make(chan config.DiffResult, 4)
		watcher, err := config.NewWatcher(configPath, func(old, new *config.Config) {
			diff := config.Diff(old, new)
			if diff.LogLevelChanged {
				logLevel.Set(slogLevel(diff.NewLogLevel))
			}
			select {
			case updates <- diff:
			default:
			}
		})
		if err != nil {
			slog.Warn("settings watcher unavailable", "err", err)
		} else {
			defer watcher.Stop()
		}
	}

	var clips int
	sess, err := session.New(session.Config{
		Orchestrator: orch,
		Registry:     registry,
		DefaultVoice: voiceID,
		Output:       os.Stdout,
		Updates:      updates,
		Sink: func(ctx context.Context, res *synth.Result) error {
			clips++
			path := filepath.Join(cfg.Output.Directory,
				fmt.Sprintf("session_%03d%s", clips, extension(cfg.Output.Format)))
			if err := writeClip(cfg, path, res.Audio); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	})
	if err != nil {
		slog.Error("failed to start session", "err", err)
		return 1
	}

	if err := sess.Run(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("session error", "err", err)
		return 1
	}
	return 0
}

// ── Engine wiring ─────────────────────────────────────────────────────────────

// registerBuiltinEngines wires the synthesis backends that ship with
// DJZ-Speak into the registry.
func registerBuiltinEngines(reg *config.Registry) {
	reg.Register("espeak-ng", func(ecfg config.EngineConfig) (engine.Engine, error) {
		var opts []espeak.Option
		if ecfg.Path != "" {
			opts = append(opts, espeak.WithPath(ecfg.Path))
		}
		return espeak.New(opts...)
	})
}

// buildEngine creates the configured engine, wrapped in a failover chain when
// fallbacks are listed.
func buildEngine(reg *config.Registry, ecfg config.EngineConfig) (engine.Engine, error) {
	primary, err := reg.Create(ecfg)
	if err != nil {
		return nil, err
	}
	if len(ecfg.Fallbacks) == 0 {
		return primary, nil
	}

	chain := fallback.New(primary, fallback.BreakerConfig{})
	for _, fcfg := range ecfg.Fallbacks {
		fb, err := reg.Create(fcfg)
		if err != nil {
			return nil, fmt.Errorf("fallback engine %q: %w", fcfg.Name, err)
		}
		chain.AddFallback(fb)
	}
	return chain, nil
}

// effectDefaults maps the settings file's global effects section onto the
// profile used for presets without their own effects block.
func effectDefaults(cfg *config.Config) voice.EffectProfile {
	return voice.EffectProfile{
		FilterEnabled:    cfg.Effects.FrequencyFilter.Enabled,
		LowCutoff:        cfg.Effects.FrequencyFilter.LowCutoff,
		HighCutoff:       cfg.Effects.FrequencyFilter.HighCutoff,
		HarmonicEnabled:  cfg.Effects.HarmonicEnhancement,
		HarmonicGain:     voice.DefaultHarmonicGain,
		ArtifactsEnabled: cfg.Effects.MechanicalArtifacts,
		QuantizeLevels:   voice.DefaultQuantizeLevels,
		GateWindow:       voice.DefaultGateWindow,
		GatePeriod:       voice.DefaultGatePeriod,
		Resonance:        voice.DefaultResonance,
	}
}

// orchestratorOptions maps settings onto orchestrator options.
func orchestratorOptions(cfg *config.Config, noEffects bool) []synth.Option {
	opts := []synth.Option{
		synth.WithDefaultVoice(cfg.Synthesis.DefaultVoice),
		synth.WithDefaults(voice.Params{
			Speed:     cfg.Synthesis.Speed,
			Pitch:     cfg.Synthesis.Pitch,
			Amplitude: cfg.Synthesis.Amplitude,
			Gap:       cfg.Synthesis.Gap,
		}),
		synth.WithTimeout(cfg.Synthesis.Timeout),
		synth.WithMaxTextLength(cfg.Synthesis.MaxTextLength),
		synth.WithEffectsEnabled(cfg.Effects.Enabled && !noEffects),
		synth.WithNormalization(cfg.Output.NormalizeAudio),
		synth.WithRTFTarget(cfg.Performance.RealTimeFactorTarget),
	}
	if cfg.Performance.CacheEnabled {
		opts = append(opts, synth.WithCache(cfg.Performance.CacheSize))
	}
	return opts
}

// overridesFromFlags turns the numeric flags into the explicit override
// layer. Negative values mean "not set"; range checking happens in the
// orchestrator.
func overridesFromFlags(speed, pitch, amplitude, gap int) voice.Overrides {
	var o voice.Overrides
	if speed >= 0 {
		o.Speed = &speed
	}
	if pitch >= 0 {
		o.Pitch = &pitch
	}
	if amplitude >= 0 {
		o.Amplitude = &amplitude
	}
	if gap >= 0 {
		o.Gap = &gap
	}
	return o
}

// ── Telemetry listener ────────────────────────────────────────────────────────

// serveTelemetry starts the HTTP listener for Prometheus scrapes and health
// probes. The returned function shuts it down.
func serveTelemetry(addr string, eng engine.Engine, registry *voice.Registry, outputDir string) func() {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(
		health.EngineChecker(eng),
		health.RegistryChecker(registry),
		health.OutputDirChecker(outputDir),
	).Register(mux)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		slog.Info("telemetry listener up", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("telemetry listener error", "err", err)
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry listener shutdown error", "err", err)
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ── Output ────────────────────────────────────────────────────────────────────

// writeClip writes buf to path in the configured encoding, converting to the
// configured audio format first. "-" writes to stdout.
func writeClip(cfg *config.Config, path string, buf *audio.Buffer) error {
	buf = audio.Convert(buf, cfg.Audio.SampleRate, cfg.Audio.Channels)

	var data []byte
	switch cfg.Output.Format {
	case config.FormatRaw:
		data = buf.Data
	default:
		data = audio.EncodeWAV(buf)
	}

	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func extension(format config.OutputFormat) string {
	if format == config.FormatRaw {
		return ".raw"
	}
	return ".wav"
}

func printVoices(w io.Writer, registry *voice.Registry, defaultVoice string) {
	for _, id := range registry.List() {
		preset, err := registry.Resolve(id)
		if err != nil {
			continue
		}
		marker := " "
		if id == defaultVoice {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %-16s %s", marker, id, preset.Name)
		if preset.Description != "" {
			fmt.Fprintf(w, ": %s", preset.Description)
		}
		fmt.Fprintln(w)
	}
}

// reportSynthesisError prints a friendly message for the well-known failure
// shapes and logs the rest.
func reportSynthesisError(err error) {
	var nf *voice.NotFoundError
	if errors.As(err, &nf) {
		fmt.Fprintf(os.Stderr, "djzspeak: %v\n", nf)
		return
	}
	var verr *voice.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintf(os.Stderr, "djzspeak: %v\n", verr)
		return
	}
	if errors.Is(err, synth.ErrTimeout) {
		fmt.Fprintln(os.Stderr, "djzspeak: synthesis timed out; is espeak-ng healthy?")
		return
	}
	slog.Error("synthesis failed", "err", err)
}

// ── Logger ────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	logLevel.Set(slogLevel(level))
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
