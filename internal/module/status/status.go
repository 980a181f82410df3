// Package status implements the introspection module: a content module
// that renders the server's metrics snapshot and registered module set as
// JSON.
package status

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/oxproject/oxweb/internal/core/ports"
	"github.com/oxproject/oxweb/internal/module"
	"github.com/oxproject/oxweb/internal/pipeline"
)

// ModuleName is the stable identifier used in configuration.
const ModuleName = "status"

type statusPage struct {
	Metrics pipeline.Snapshot `json:"metrics"`
	Modules []string          `json:"registered_modules"`
}

// Module serves the status page.
type Module struct {
	metrics  *pipeline.Metrics
	registry *module.Registry
	logger   *slog.Logger
}

var _ ports.Module = (*Module)(nil)

// New creates a status module over the shared metrics registry.
func New(metrics *pipeline.Metrics, registry *module.Registry, logger *slog.Logger) *Module {
	return &Module{metrics: metrics, registry: registry, logger: logger}
}

// Register adds the status factory to r.
func Register(r *module.Registry, metrics *pipeline.Metrics) {
	r.Register(module.Factory{
		Name:        ModuleName,
		Description: "serves a JSON snapshot of pipeline metrics",
		Create: func(_ map[string]any, logger *slog.Logger) (ports.Module, error) {
			return New(metrics, r, logger), nil
		},
	})
}

func (m *Module) Name() string { return ModuleName }

func (m *Module) Handle(_ context.Context, _ ports.Phase, st ports.State) ports.Outcome {
	page := statusPage{Modules: m.registry.Names()}
	if m.metrics != nil {
		page.Metrics = m.metrics.Snapshot()
	}
	payload, err := json.Marshal(page)
	if err != nil {
		return ports.Fail(err)
	}

	body, err := st.Alloc(len(payload), 1)
	if err != nil {
		return ports.Fail(err)
	}
	copy(body, payload)

	resp := st.Response()
	if err := resp.SetStatus(200); err != nil {
		return ports.Fail(err)
	}
	if err := resp.SetHeader("Content-Type", "application/json"); err != nil {
		return ports.Fail(err)
	}
	resp.SetBody(body)
	return ports.Modified()
}
