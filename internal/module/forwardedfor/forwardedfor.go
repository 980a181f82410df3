// Package forwardedfor implements the client-address restore module: when
// the service sits behind a proxy, the X-Forwarded-For header carries the
// real client address and the transport-level peer is the proxy.
package forwardedfor

import (
	"context"
	"log/slog"
	"strings"

	"github.com/oxproject/oxweb/internal/core/ports"
	"github.com/oxproject/oxweb/internal/module"
)

// ModuleName is the stable identifier used in configuration.
const ModuleName = "forwardedfor"

// Module replaces RequestData.SourceAddr with the first (client-most)
// entry of X-Forwarded-For. The transport-level address is preserved in
// the module's context slot so accounting can still see it.
type Module struct {
	logger *slog.Logger
}

var _ ports.Module = (*Module)(nil)

// New creates a forwardedfor module.
func New(logger *slog.Logger) *Module {
	return &Module{logger: logger}
}

// Register adds the forwardedfor factory to r.
func Register(r *module.Registry) {
	r.Register(module.Factory{
		Name:        ModuleName,
		Description: "restores the client address from X-Forwarded-For",
		Create: func(_ map[string]any, logger *slog.Logger) (ports.Module, error) {
			return New(logger), nil
		},
	})
}

func (m *Module) Name() string { return ModuleName }

func (m *Module) Handle(_ context.Context, _ ports.Phase, st ports.State) ports.Outcome {
	req := st.Request()
	fwd := req.Headers.Get("X-Forwarded-For")
	if fwd == "" {
		return ports.Continue()
	}

	client := fwd
	if i := strings.IndexByte(fwd, ','); i >= 0 {
		client = fwd[:i]
	}
	client = strings.TrimSpace(client)
	if client == "" {
		return ports.Continue()
	}

	parked, err := st.CopyString(client)
	if err != nil {
		return ports.Fail(err)
	}

	st.ContextFor(ModuleName)["peer_addr"] = req.SourceAddr
	req.SourceAddr = parked
	m.logger.Debug("restored client address",
		slog.String("request_id", st.ID()),
		slog.String("client", client))
	return ports.Modified()
}
