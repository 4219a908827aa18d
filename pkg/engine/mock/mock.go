// Package mock provides a test double for the engine.Engine interface.
//
// Use Engine to feed controlled audio to the orchestrator and to verify which
// requests reach the backend.
//
// Example:
//
//	eng := &mock.Engine{
//	    SynthesizeResult: audio.FromSamples(samples, 22050, 1),
//	    VoicesResult:     []string{"en", "en-us"},
//	}
package mock

import (
	"context"
	"sync"

	"github.com/djzlabs/djzspeak/pkg/audio"
	"github.com/djzlabs/djzspeak/pkg/engine"
)

// Engine is a mock implementation of engine.Engine.
type Engine struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// SynthesizeResult is returned (as a clone) by Synthesize.
	SynthesizeResult *audio.Buffer

	// SynthesizeErr, if non-nil, is returned by Synthesize instead.
	SynthesizeErr error

	// SynthesizeFunc, if non-nil, overrides SynthesizeResult/SynthesizeErr
	// entirely. The call is still recorded.
	SynthesizeFunc func(ctx context.Context, req engine.Request) (*audio.Buffer, error)

	// VoicesResult is returned by Voices.
	VoicesResult []string

	// VoicesErr, if non-nil, is returned as the error from Voices.
	VoicesErr error

	// EngineName is returned by Name. Defaults to "mock".
	EngineName string

	// --- Call records ---

	// SynthesizeCalls records every request passed to Synthesize, in order.
	SynthesizeCalls []engine.Request

	// VoicesCalls counts calls to Voices.
	VoicesCalls int
}

// Synthesize records the call and returns the configured result. The result
// buffer is cloned so tests can mutate the output without aliasing.
func (e *Engine) Synthesize(ctx context.Context, req engine.Request) (*audio.Buffer, error) {
	e.mu.Lock()
	e.SynthesizeCalls = append(e.SynthesizeCalls, req)
	fn := e.SynthesizeFunc
	result, err := e.SynthesizeResult, e.SynthesizeErr
	e.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if result == nil {
		return audio.FromSamples(nil, 22050, 1), nil
	}
	return result.Clone(), nil
}

// Voices records the call and returns VoicesResult, VoicesErr.
func (e *Engine) Voices(ctx context.Context) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.VoicesCalls++
	return e.VoicesResult, e.VoicesErr
}

// Name returns EngineName, or "mock" when unset.
func (e *Engine) Name() string {
	if e.EngineName != "" {
		return e.EngineName
	}
	return "mock"
}

// Requests returns a copy of the recorded synthesis requests. Thread-safe.
func (e *Engine) Requests() []engine.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]engine.Request, len(e.SynthesizeCalls))
	copy(out, e.SynthesizeCalls)
	return out
}

// Reset clears all recorded calls. Thread-safe.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.SynthesizeCalls = nil
	e.VoicesCalls = 0
}

// Ensure Engine implements engine.Engine at compile time.
var _ engine.Engine = (*Engine)(nil)
