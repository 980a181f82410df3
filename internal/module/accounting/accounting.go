// Package accounting implements the access-log module: bound into the
// Accounting phase, it records one row per request in the configured
// store. It is an observer — it never mutates request or response.
package accounting

import (
	"context"
	"log/slog"
	"time"

	"github.com/oxproject/oxweb/internal/core/ports"
	"github.com/oxproject/oxweb/internal/module"
	"github.com/oxproject/oxweb/internal/storage/accesslog"
)

// ModuleName is the stable identifier used in configuration.
const ModuleName = "accounting"

// Module writes access records.
type Module struct {
	store  accesslog.Store
	logger *slog.Logger
}

var _ ports.Module = (*Module)(nil)

// New creates an accounting module backed by store.
func New(store accesslog.Store, logger *slog.Logger) *Module {
	return &Module{store: store, logger: logger}
}

// Register adds the accounting factory to r. The store is captured at
// registration time; configuration selects the binding, not the backend.
func Register(r *module.Registry, store accesslog.Store) {
	r.Register(module.Factory{
		Name:        ModuleName,
		Description: "records one access-log row per request",
		Create: func(_ map[string]any, logger *slog.Logger) (ports.Module, error) {
			return New(store, logger), nil
		},
	})
}

func (m *Module) Name() string { return ModuleName }

// Handle persists the record. A storage failure is reported as Fail so
// the binding's policy decides; the recommended binding uses skip_module,
// making accounting loss non-fatal to the request.
func (m *Module) Handle(ctx context.Context, _ ports.Phase, st ports.State) ports.Outcome {
	req := st.Request()
	rec := &accesslog.Record{
		RequestID:      st.ID(),
		Method:         req.Method,
		Path:           req.Path,
		Protocol:       req.Protocol,
		SourceAddr:     req.SourceAddr,
		Status:         st.Response().Status(),
		Modified:       st.Modified(),
		ArenaBytes:     st.ArenaAllocated(),
		ModulesInvoked: st.Executed(),
		CreatedAt:      time.Now().UTC(),
	}
	if err := m.store.Save(ctx, rec); err != nil {
		return ports.Fail(err)
	}
	m.logger.Debug("recorded access",
		slog.String("request_id", st.ID()),
		slog.Int("status", rec.Status))
	return ports.Continue()
}
