// Package rewrite implements the path rewrite module.
package rewrite

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/oxproject/oxweb/internal/core/ports"
	"github.com/oxproject/oxweb/internal/module"
)

// ModuleName is the stable identifier used in configuration.
const ModuleName = "rewrite"

// Module rewrites the request path against a configured pattern before
// later phases see it. Bound early (EarlyRequest) so content modules only
// ever observe the rewritten path.
type Module struct {
	pattern     *regexp.Regexp
	replacement string
	logger      *slog.Logger
}

var _ ports.Module = (*Module)(nil)

// New creates a rewrite module from 'pattern' and 'replacement' params.
func New(params map[string]any, logger *slog.Logger) (*Module, error) {
	pat, _ := params["pattern"].(string)
	if pat == "" {
		return nil, fmt.Errorf("rewrite module requires a 'pattern' param")
	}
	re, err := regexp.Compile(pat)
	if err != nil {
		return nil, fmt.Errorf("invalid rewrite pattern %q: %w", pat, err)
	}
	repl, _ := params["replacement"].(string)
	return &Module{pattern: re, replacement: repl, logger: logger}, nil
}

// Register adds the rewrite factory to r.
func Register(r *module.Registry) {
	r.Register(module.Factory{
		Name:        ModuleName,
		Description: "rewrites the request path by regular expression",
		Create: func(params map[string]any, logger *slog.Logger) (ports.Module, error) {
			return New(params, logger)
		},
	})
}

func (m *Module) Name() string { return ModuleName }

func (m *Module) Handle(_ context.Context, _ ports.Phase, st ports.State) ports.Outcome {
	req := st.Request()
	if !m.pattern.MatchString(req.Path) {
		return ports.Continue()
	}

	rewritten := m.pattern.ReplaceAllString(req.Path, m.replacement)
	// The rewritten path is request-scoped: park it in the arena with the
	// rest of the request data.
	parked, err := st.CopyString(rewritten)
	if err != nil {
		return ports.Fail(err)
	}

	m.logger.Debug("rewrote path",
		slog.String("request_id", st.ID()),
		slog.String("from", req.Path),
		slog.String("to", rewritten))
	req.Path = parked
	return ports.Modified()
}
