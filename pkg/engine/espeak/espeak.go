// Package espeak provides the eSpeak-NG subprocess backend. It implements the
// engine.Engine interface.
//
// Each synthesis call runs one short-lived `espeak-ng` process: the text is
// written to the process on stdin and the synthesized clip is read back as a
// RIFF/WAVE stream from stdout (`--stdin --stdout`). eSpeak-NG streams its
// output and writes a placeholder data-chunk length, which the WAV parser
// tolerates.
//
// Typical usage:
//
//	eng, err := espeak.New(espeak.WithPath(cfg.EnginePath))
//	buf, err := eng.Synthesize(ctx, engine.Request{
//	    Text:  "All systems nominal.",
//	    Voice: "en", Variant: "m3",
//	    Params: params,
//	})
package espeak

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/djzlabs/djzspeak/pkg/audio"
	"github.com/djzlabs/djzspeak/pkg/engine"
)

// Compile-time interface assertion.
var _ engine.Engine = (*Engine)(nil)

const engineName = "espeak-ng"

// executableNames are probed on PATH, in order.
var executableNames = []string{"espeak-ng", "espeak"}

// commonPaths are fixed install locations probed when PATH discovery fails.
var commonPaths = []string{
	"/usr/bin/espeak-ng",
	"/usr/local/bin/espeak-ng",
	"/opt/homebrew/bin/espeak-ng",
	"/usr/bin/espeak",
	"/usr/local/bin/espeak",
}

// Option is a functional option for configuring the Engine.
type Option func(*Engine)

// WithPath pins the eSpeak-NG executable to an explicit path, skipping
// discovery. An empty path leaves discovery enabled.
func WithPath(path string) Option {
	return func(e *Engine) {
		e.path = path
	}
}

// Engine implements engine.Engine by spawning one eSpeak-NG subprocess per
// synthesis call. It holds no per-call state and is safe for concurrent use.
type Engine struct {
	path string
}

// New creates an Engine, locating the eSpeak-NG executable unless WithPath
// pinned one. Discovery checks PATH for espeak-ng then espeak, then falls
// back to common install locations. A pinned path is verified to exist.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{}
	for _, o := range opts {
		o(e)
	}

	if e.path != "" {
		if _, err := os.Stat(e.path); err != nil {
			return nil, &engine.Error{
				Engine:   engineName,
				Op:       "locate executable",
				ExitCode: -1,
				Err:      fmt.Errorf("configured path %q: %w", e.path, err),
			}
		}
		return e, nil
	}

	path, err := discover()
	if err != nil {
		return nil, err
	}
	e.path = path
	return e, nil
}

// discover searches PATH and then the common install locations.
func discover() (string, error) {
	for _, name := range executableNames {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", &engine.Error{
		Engine:   engineName,
		Op:       "locate executable",
		ExitCode: -1,
		Err:      errors.New("espeak-ng not found on PATH or in common install locations"),
	}
}

// Name returns the backend identifier.
func (e *Engine) Name() string { return engineName }

// Path returns the resolved executable path.
func (e *Engine) Path() string { return e.path }

// Synthesize runs one eSpeak-NG subprocess for req and parses its WAV output.
// Cancelling ctx kills the subprocess; the context's error is returned so
// callers can distinguish timeouts from backend failures.
func (e *Engine) Synthesize(ctx context.Context, req engine.Request) (*audio.Buffer, error) {
	cmd := exec.CommandContext(ctx, e.path, synthesisArgs(req)...)
	cmd.Stdin = strings.NewReader(req.Text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("espeak: synthesize: %w", ctx.Err())
		}
		return nil, &engine.Error{
			Engine:   engineName,
			Op:       "synthesize",
			ExitCode: exitCode(err),
			Stderr:   stderr.String(),
			Err:      err,
		}
	}

	buf, err := audio.ParseWAV(stdout.Bytes())
	if err != nil {
		return nil, &engine.Error{
			Engine:   engineName,
			Op:       "synthesize",
			ExitCode: 0,
			Stderr:   stderr.String(),
			Err:      fmt.Errorf("parse output: %w", err),
		}
	}
	return buf, nil
}

// synthesisArgs builds the eSpeak-NG command line for req. The voice variant
// is appended to the base voice with '+' (e.g., "en+m3"); text arrives on
// stdin and the WAV stream leaves on stdout.
func synthesisArgs(req engine.Request) []string {
	voice := req.Voice
	if req.Variant != "" {
		voice += "+" + req.Variant
	}
	return []string{
		"-v", voice,
		"-s", strconv.Itoa(req.Params.Speed),
		"-p", strconv.Itoa(req.Params.Pitch),
		"-a", strconv.Itoa(req.Params.Amplitude),
		"-g", strconv.Itoa(req.Params.Gap),
		"--stdin",
		"--stdout",
	}
}

// Voices runs `espeak-ng --voices` and returns the language identifiers from
// its catalogue table, usable as Request.Voice values.
func (e *Engine) Voices(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, e.path, "--voices")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("espeak: list voices: %w", ctx.Err())
		}
		return nil, &engine.Error{
			Engine:   engineName,
			Op:       "list voices",
			ExitCode: exitCode(err),
			Stderr:   stderr.String(),
			Err:      err,
		}
	}
	return parseVoiceTable(stdout.String()), nil
}

// parseVoiceTable extracts the language column from the `--voices` table.
// The first line is a header; each following row is whitespace-separated with
// the language identifier in the second column.
func parseVoiceTable(table string) []string {
	var voices []string
	lines := strings.Split(table, "\n")
	for i, line := range lines {
		if i == 0 {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		voices = append(voices, fields[1])
	}
	return voices
}

// exitCode extracts the subprocess exit code, or -1 when the process never
// ran or was terminated by a signal.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
