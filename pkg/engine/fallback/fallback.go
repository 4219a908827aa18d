// Package fallback composes several synthesis engines into one
// [engine.Engine] with automatic failover. Each backend carries its own
// three-state circuit breaker (closed, open, half-open), so a backend whose
// subprocess keeps dying is bypassed for a while instead of being probed on
// every call.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/djzlabs/djzspeak/pkg/audio"
	"github.com/djzlabs/djzspeak/pkg/engine"
)

// ErrCircuitOpen marks a backend skipped because its breaker is open.
var ErrCircuitOpen = errors.New("fallback: circuit breaker is open")

// ErrAllFailed is returned when every backend failed or was skipped.
var ErrAllFailed = errors.New("fallback: all engines failed")

// BreakerConfig tunes the per-backend circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the breaker
	// opens. Default 3.
	MaxFailures int

	// ResetTimeout is how long an open breaker waits before allowing a
	// probe call. Default 30s.
	ResetTimeout time.Duration
}

// breakerState is the operating mode of one backend's breaker.
type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breaker is a minimal three-state circuit breaker. A single successful
// probe in the half-open state closes it again.
type breaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration

	mu          sync.Mutex
	state       breakerState
	failures    int
	lastFailure time.Time
}

// allow reports whether a call may proceed, transitioning open breakers to
// half-open once the reset timeout has elapsed.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateOpen {
		if time.Since(b.lastFailure) < b.resetTimeout {
			return false
		}
		b.state = stateHalfOpen
		slog.Info("engine breaker half-open", "engine", b.name)
	}
	return true
}

func (b *breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.state == stateHalfOpen {
			slog.Info("engine breaker closed", "engine", b.name)
		}
		b.state = stateClosed
		b.failures = 0
		return
	}

	b.lastFailure = time.Now()
	if b.state == stateHalfOpen {
		b.state = stateOpen
		slog.Warn("engine breaker re-opened", "engine", b.name)
		return
	}
	b.failures++
	if b.failures >= b.maxFailures {
		b.state = stateOpen
		slog.Warn("engine breaker opened",
			"engine", b.name,
			"consecutive_failures", b.failures,
		)
	}
}

func (b *breaker) currentState() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == stateOpen && time.Since(b.lastFailure) >= b.resetTimeout {
		return stateHalfOpen
	}
	return b.state
}

// entry pairs one backend with its breaker.
type entry struct {
	engine  engine.Engine
	breaker *breaker
}

// Engine is an [engine.Engine] that tries its backends in registration order
// until one succeeds. It is safe for concurrent use once assembled; AddFallback
// must not race with calls.
type Engine struct {
	entries []entry
	cfg     BreakerConfig
}

// Compile-time interface assertion.
var _ engine.Engine = (*Engine)(nil)

// New creates a fallback Engine with primary as the preferred backend.
func New(primary engine.Engine, cfg BreakerConfig) *Engine {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	e := &Engine{cfg: cfg}
	e.AddFallback(primary)
	return e
}

// AddFallback appends a backend tried after all earlier ones.
func (e *Engine) AddFallback(eng engine.Engine) {
	e.entries = append(e.entries, entry{
		engine: eng,
		breaker: &breaker{
			name:         eng.Name(),
			maxFailures:  e.cfg.MaxFailures,
			resetTimeout: e.cfg.ResetTimeout,
		},
	})
}

// Name lists the backend names in try order.
func (e *Engine) Name() string {
	names := make([]string, len(e.entries))
	for i, ent := range e.entries {
		names[i] = ent.engine.Name()
	}
	return "fallback(" + strings.Join(names, ",") + ")"
}

// Synthesize tries each healthy backend in order. A cancelled or expired
// context stops the chain immediately: the caller's deadline is not a backend
// fault and retrying against it would charge every breaker for one slow call.
func (e *Engine) Synthesize(ctx context.Context, req engine.Request) (*audio.Buffer, error) {
	var lastErr error
	for i := range e.entries {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return nil, fmt.Errorf("%w: %w", err, lastErr)
			}
			return nil, fmt.Errorf("fallback: synthesize: %w", err)
		}

		ent := &e.entries[i]
		if !ent.breaker.allow() {
			slog.Debug("skipping engine, circuit open", "engine", ent.engine.Name())
			lastErr = fmt.Errorf("%w: %s", ErrCircuitOpen, ent.engine.Name())
			continue
		}

		buf, err := ent.engine.Synthesize(ctx, req)
		if ctx.Err() != nil {
			// Don't let the caller's cancellation trip the breaker.
			return nil, err
		}
		ent.breaker.record(err)
		if err == nil {
			return buf, nil
		}
		lastErr = err
		slog.Warn("engine failed, trying next",
			"engine", ent.engine.Name(),
			"err", err,
		)
	}
	return nil, fmt.Errorf("%w: %w", ErrAllFailed, lastErr)
}

// Voices returns the voice listing of the first healthy backend.
func (e *Engine) Voices(ctx context.Context) ([]string, error) {
	var lastErr error
	for i := range e.entries {
		ent := &e.entries[i]
		if !ent.breaker.allow() {
			lastErr = fmt.Errorf("%w: %s", ErrCircuitOpen, ent.engine.Name())
			continue
		}
		voices, err := ent.engine.Voices(ctx)
		if ctx.Err() != nil {
			return nil, err
		}
		ent.breaker.record(err)
		if err == nil {
			return voices, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %w", ErrAllFailed, lastErr)
}
