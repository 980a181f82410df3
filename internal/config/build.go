package config

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/oxproject/oxweb/internal/arena"
	"github.com/oxproject/oxweb/internal/core/ports"
	"github.com/oxproject/oxweb/internal/module"
	"github.com/oxproject/oxweb/internal/pipeline"
	"github.com/oxproject/oxweb/internal/router"
)

// ArenaOptions translates the arena section. Unknown policies fail
// startup.
func (c *Config) ArenaOptions() (arena.Options, error) {
	opts := arena.Options{
		ChunkSize:   c.Arena.ChunkSize,
		ZeroOnReset: c.Arena.ZeroOnReset,
	}
	switch c.Arena.Policy {
	case "", "chunked":
		opts.Policy = arena.Chunked
	case "fixed":
		opts.Policy = arena.Fixed
	default:
		return arena.Options{}, fmt.Errorf("unknown arena policy %q", c.Arena.Policy)
	}
	return opts, nil
}

// PhaseOrder resolves the pipeline phase order, defaulting to the full
// lattice when the configuration leaves it out.
func (c *Config) PhaseOrder() ([]ports.Phase, error) {
	if len(c.Pipeline.Phases) == 0 {
		return ports.DefaultPhases(), nil
	}
	phases := make([]ports.Phase, 0, len(c.Pipeline.Phases))
	for _, s := range c.Pipeline.Phases {
		p, err := ports.ParsePhase(s)
		if err != nil {
			return nil, err
		}
		phases = append(phases, p)
	}
	return phases, nil
}

// BuildRoutes instantiates every configured module through the registry
// and compiles the route specs. Module instances are created once at
// startup and shared by all requests that hit their bindings.
func (c *Config) BuildRoutes(registry *module.Registry, logger *slog.Logger) ([]router.Spec, error) {
	phases, err := c.PhaseOrder()
	if err != nil {
		return nil, err
	}

	instances := make(map[string]ports.Module, len(c.Modules))
	for _, mc := range c.Modules {
		if mc.Name == "" {
			return nil, fmt.Errorf("module entry with empty name")
		}
		if _, dup := instances[mc.Name]; dup {
			return nil, fmt.Errorf("module %q configured twice", mc.Name)
		}
		factory := mc.Factory
		if factory == "" {
			factory = mc.Name
		}
		inst, err := registry.New(factory, mc.Params, logger)
		if err != nil {
			return nil, err
		}
		instances[mc.Name] = inst
	}

	specs := make([]router.Spec, 0, len(c.Routes))
	for _, rc := range c.Routes {
		if rc.Name == "" {
			return nil, fmt.Errorf("route with empty name")
		}
		bindings := make([]*pipeline.Binding, 0, len(rc.Bindings))
		for _, bc := range rc.Bindings {
			b, err := buildBinding(rc.Name, bc, instances, registry, logger)
			if err != nil {
				return nil, err
			}
			bindings = append(bindings, b)
		}
		specs = append(specs, router.Spec{
			Name:        rc.Name,
			Methods:     rc.Methods,
			PathPattern: rc.Path,
			Protocol:    rc.Protocol,
			Upgrade:     rc.Upgrade,
			Plan:        pipeline.NewPlan(phases, bindings),
		})
	}
	return specs, nil
}

func buildBinding(route string, bc BindingConfig, instances map[string]ports.Module, registry *module.Registry, logger *slog.Logger) (*pipeline.Binding, error) {
	phase, err := ports.ParsePhase(bc.Phase)
	if err != nil {
		return nil, fmt.Errorf("route %q: %w", route, err)
	}
	policy, err := ports.ParseFailurePolicy(bc.Policy)
	if err != nil {
		return nil, fmt.Errorf("route %q: %w", route, err)
	}

	inst, ok := instances[bc.Module]
	if !ok {
		// Bindings may name a factory directly when the module needs no
		// params and no shared instance.
		inst, err = registry.New(bc.Module, nil, logger)
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", route, err)
		}
		instances[bc.Module] = inst
	}

	b := &pipeline.Binding{Phase: phase, Module: inst, Policy: policy}
	if len(bc.Headers) > 0 {
		b.Headers = make(map[string]*regexp.Regexp, len(bc.Headers))
		for name, pat := range bc.Headers {
			re, err := regexp.Compile(pat)
			if err != nil {
				return nil, fmt.Errorf("route %q: header matcher %q: %w", route, name, err)
			}
			b.Headers[name] = re
		}
	}
	if bc.Query != "" {
		re, err := regexp.Compile(bc.Query)
		if err != nil {
			return nil, fmt.Errorf("route %q: query matcher: %w", route, err)
		}
		b.Query = re
	}
	return b, nil
}
