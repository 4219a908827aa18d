package config

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/djzlabs/djzspeak/pkg/engine"
)

// ErrEngineNotRegistered is returned by [Registry.Create] when no factory has
// been registered under the requested engine name.
var ErrEngineNotRegistered = errors.New("config: engine not registered")

// Registry maps engine names to their constructor functions. It is safe for
// concurrent use. The main binary registers the real backends at startup;
// tests register mocks.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]func(EngineConfig) (engine.Engine, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[string]func(EngineConfig) (engine.Engine, error)),
	}
}

// Register adds a factory under name, replacing any previous registration.
func (r *Registry) Register(name string, factory func(EngineConfig) (engine.Engine, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[name] = factory
}

// Create builds the engine selected by cfg.Name.
func (r *Registry) Create(cfg EngineConfig) (engine.Engine, error) {
	r.mu.RLock()
	factory, ok := r.engines[cfg.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrEngineNotRegistered, cfg.Name, r.Names())
	}
	return factory(cfg)
}

// Names lists the registered engine names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
