// Package ping implements the liveness module: it answers any request it
// sees with a pong, as JSON or HTML depending on content negotiation.
package ping

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/oxproject/oxweb/internal/core/ports"
	"github.com/oxproject/oxweb/internal/module"
)

// ModuleName is the stable identifier used in configuration.
const ModuleName = "ping"

type pongPayload struct {
	Response string `json:"response"`
}

// Module answers with {"response":"pong"} (or an HTML rendering when the
// client negotiates text/html).
type Module struct {
	logger *slog.Logger
}

var _ ports.Module = (*Module)(nil)

// New creates a ping module.
func New(logger *slog.Logger) *Module {
	return &Module{logger: logger}
}

// Register adds the ping factory to r.
func Register(r *module.Registry) {
	r.Register(module.Factory{
		Name:        ModuleName,
		Description: "answers ping requests with a pong payload",
		Create: func(_ map[string]any, logger *slog.Logger) (ports.Module, error) {
			return New(logger), nil
		},
	})
}

func (m *Module) Name() string { return ModuleName }

// Handle renders the pong. The body is carved from the request's arena so
// it lives exactly as long as the response needs it.
func (m *Module) Handle(_ context.Context, phase ports.Phase, st ports.State) ports.Outcome {
	req := st.Request()

	format := "json"
	if strings.Contains(req.Query, "format=html") ||
		(req.Query == "" && strings.Contains(req.Headers.Get("Accept"), "text/html")) {
		format = "html"
	}

	var payload []byte
	contentType := "application/json"
	if format == "html" {
		payload = []byte("<html><body><h1>response: pong</h1></body></html>")
		contentType = "text/html"
	} else {
		b, err := json.Marshal(pongPayload{Response: "pong"})
		if err != nil {
			return ports.Fail(err)
		}
		payload = b
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
	if err := resp.SetHeader("Content-Type", contentType); err != nil {
		return ports.Fail(err)
	}
	resp.SetBody(body)

	m.logger.Debug("handled ping",
		slog.String("request_id", st.ID()),
		slog.String("format", format),
		slog.String("phase", string(phase)))
	return ports.Modified()
}
