// Package module provides the module registry and the built-in module set.
//
// A module is the unit of request-handling logic bound into pipeline
// phases. Concrete loading is a deployment choice hidden behind the
// registry: built-ins are statically linked and registered by name; an
// out-of-process or plugin-loaded module would register a factory the
// same way.
package module

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/oxproject/oxweb/internal/core/ports"
)

// Factory instantiates a module from its configuration parameters.
// The factory is called once per configured binding at startup, never
// per request.
type Factory struct {
	// Name is the stable module identifier used in configuration.
	Name string
	// Description is a human-readable summary for the status page.
	Description string
	// Create builds a module instance from config params.
	Create func(params map[string]any, logger *slog.Logger) (ports.Module, error)
}

// Registry maps module identifiers to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory. Panics on empty or duplicate names: both are
// wiring bugs that must fail at startup, not at request time.
func (r *Registry) Register(f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f.Name == "" {
		panic("module factory name cannot be empty")
	}
	if f.Create == nil {
		panic(fmt.Sprintf("module factory %q must have a Create function", f.Name))
	}
	if _, exists := r.factories[f.Name]; exists {
		panic(fmt.Sprintf("module factory %q already registered", f.Name))
	}
	r.factories[f.Name] = f
}

// New instantiates the named module with the given parameters.
func (r *Registry) New(name string, params map[string]any, logger *slog.Logger) (ports.Module, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown module %q (registered: %v)", name, r.Names())
	}
	if logger == nil {
		logger = slog.Default()
	}
	m, err := f.Create(params, logger.With(slog.String("module", name)))
	if err != nil {
		return nil, fmt.Errorf("create module %q: %w", name, err)
	}
	return m, nil
}

// Names returns the registered identifiers, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
