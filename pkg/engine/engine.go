// Package engine defines the Engine interface for speech synthesis backends.
//
// An Engine turns one text string into one PCM audio buffer using the numeric
// parameters already resolved by the caller — it performs no parameter
// merging, validation, or effects processing of its own. The orchestrator
// owns all of that and treats the engine as a pure text-to-audio function.
//
// Implementations are provided by backend-specific subpackages (espeak for
// the eSpeak-NG subprocess backend, mock for tests). Implementations must be
// safe for concurrent use: batch synthesis runs several requests in parallel
// against one shared engine.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/djzlabs/djzspeak/pkg/audio"
	"github.com/djzlabs/djzspeak/pkg/voice"
)

// Request is one synthesis call: the text to speak, the backend voice to
// speak it with, and the fully resolved numeric parameters.
type Request struct {
	// Text is the exact string handed to the backend, already normalized.
	Text string

	// Voice is the backend's base voice identifier (e.g., "en", "en-us").
	Voice string

	// Variant is the backend's voice variant (e.g., "m3"). May be empty.
	Variant string

	// Params carries the resolved speed/pitch/amplitude/gap values. The
	// caller has already validated them against their ranges.
	Params voice.Params
}

// Engine is the abstraction over a speech synthesis backend.
type Engine interface {
	// Synthesize produces PCM audio for req. The call blocks until the
	// backend has produced the complete clip or ctx is done; cancelling ctx
	// aborts the backend call. Failures of the backend itself are reported
	// as an *Error.
	Synthesize(ctx context.Context, req Request) (*audio.Buffer, error)

	// Voices lists the base voice identifiers the backend offers. This is
	// the backend's catalogue, not the preset registry.
	Voices(ctx context.Context) ([]string, error)

	// Name identifies the backend (e.g., "espeak-ng") for logs and errors.
	Name() string
}

// Error reports a failure of the synthesis backend itself: the executable is
// missing, the subprocess exited non-zero, or its output is unusable.
type Error struct {
	// Engine names the backend that failed.
	Engine string

	// Op is the operation that failed (e.g., "synthesize", "list voices").
	Op string

	// ExitCode is the subprocess exit code, or -1 when the process never
	// ran or was killed.
	ExitCode int

	// Stderr holds the backend's diagnostic output, trimmed.
	Stderr string

	// Err is the underlying error.
	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s failed", e.Engine, e.Op)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }
