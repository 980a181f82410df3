// Package upgrade implements the protocol upgrade module. Pipeline phases
// model one-shot request/response, not persistent duplex sessions, so an
// upgrading route short-circuits the pipeline with an "upgraded" marker
// and the transport hands the connection to its post-upgrade message loop.
package upgrade

import (
	"context"
	"log/slog"

	"github.com/oxproject/oxweb/internal/core/domain"
	"github.com/oxproject/oxweb/internal/core/ports"
	"github.com/oxproject/oxweb/internal/module"
)

// ModuleName is the stable identifier used in configuration.
const ModuleName = "upgrade"

// Module short-circuits upgrade requests with ResponseData.Upgraded set.
// Requests without an upgrade offer pass through untouched.
type Module struct {
	logger *slog.Logger
}

var _ ports.Module = (*Module)(nil)

// New creates an upgrade module.
func New(logger *slog.Logger) *Module {
	return &Module{logger: logger}
}

// Register adds the upgrade factory to r.
func Register(r *module.Registry) {
	r.Register(module.Factory{
		Name:        ModuleName,
		Description: "hands upgrade requests off to the post-upgrade loop",
		Create: func(_ map[string]any, logger *slog.Logger) (ports.Module, error) {
			return New(logger), nil
		},
	})
}

func (m *Module) Name() string { return ModuleName }

func (m *Module) Handle(_ context.Context, _ ports.Phase, st ports.State) ports.Outcome {
	if !st.Request().Upgrade {
		return ports.Continue()
	}

	resp := domain.NewResponseData(101)
	resp.Upgraded = true
	m.logger.Debug("upgrading connection",
		slog.String("request_id", st.ID()),
		slog.String("path", st.Request().Path))
	return ports.ShortCircuit(resp)
}
