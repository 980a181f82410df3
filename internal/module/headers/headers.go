// Package headers implements the static response header module.
package headers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oxproject/oxweb/internal/core/ports"
	"github.com/oxproject/oxweb/internal/module"
)

// ModuleName is the stable identifier used in configuration.
const ModuleName = "headers"

// Module adds a configured set of headers to every response that passes
// through it. Typical bindings are early phases (security headers) or
// PostContent (cache directives).
type Module struct {
	set    []header
	logger *slog.Logger
}

type header struct {
	name  string
	value string
}

var _ ports.Module = (*Module)(nil)

// New creates a headers module from a name to value map.
func New(params map[string]any, logger *slog.Logger) (*Module, error) {
	raw, ok := params["set"].(map[string]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("headers module requires a non-empty 'set' map")
	}
	m := &Module{logger: logger}
	for name, v := range raw {
		val, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("header %q: value must be a string, got %T", name, v)
		}
		m.set = append(m.set, header{name: name, value: val})
	}
	return m, nil
}

// Register adds the headers factory to r.
func Register(r *module.Registry) {
	r.Register(module.Factory{
		Name:        ModuleName,
		Description: "adds configured static headers to the response",
		Create: func(params map[string]any, logger *slog.Logger) (ports.Module, error) {
			return New(params, logger)
		},
	})
}

func (m *Module) Name() string { return ModuleName }

func (m *Module) Handle(_ context.Context, _ ports.Phase, st ports.State) ports.Outcome {
	resp := st.Response()
	for _, h := range m.set {
		if err := resp.SetHeader(h.name, h.value); err != nil {
			return ports.Fail(err)
		}
	}
	return ports.Modified()
}
