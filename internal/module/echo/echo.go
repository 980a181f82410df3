// Package echo implements the body echo module, mainly useful for
// pipeline smoke tests and as a minimal content module.
package echo

import (
	"context"
	"log/slog"

	"github.com/oxproject/oxweb/internal/core/ports"
	"github.com/oxproject/oxweb/internal/module"
)

// ModuleName is the stable identifier used in configuration.
const ModuleName = "echo"

// Module copies the request body into the response. The body is already
// arena-backed (the state copies it at creation), so no further
// allocation happens here.
type Module struct {
	logger *slog.Logger
}

var _ ports.Module = (*Module)(nil)

// New creates an echo module.
func New(logger *slog.Logger) *Module {
	return &Module{logger: logger}
}

// Register adds the echo factory to r.
func Register(r *module.Registry) {
	r.Register(module.Factory{
		Name:        ModuleName,
		Description: "echoes the request body back as the response",
		Create: func(_ map[string]any, logger *slog.Logger) (ports.Module, error) {
			return New(logger), nil
		},
	})
}

func (m *Module) Name() string { return ModuleName }

func (m *Module) Handle(_ context.Context, _ ports.Phase, st ports.State) ports.Outcome {
	req := st.Request()
	resp := st.Response()

	if err := resp.SetStatus(200); err != nil {
		return ports.Fail(err)
	}
	contentType := req.Headers.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}
	if err := resp.SetHeader("Content-Type", contentType); err != nil {
		return ports.Fail(err)
	}
	resp.SetBody(req.Body)
	return ports.Modified()
}
