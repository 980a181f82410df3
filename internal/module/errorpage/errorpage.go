// Package errorpage implements the error rendering module: requests that
// reach the error-handling phases with a 4xx/5xx status and no body get a
// structured JSON error document.
package errorpage

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/oxproject/oxweb/internal/core/ports"
	"github.com/oxproject/oxweb/internal/module"
)

// ModuleName is the stable identifier used in configuration.
const ModuleName = "errorpage"

type errorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// Module renders JSON error pages.
type Module struct {
	logger *slog.Logger
}

var _ ports.Module = (*Module)(nil)

// New creates an errorpage module.
func New(logger *slog.Logger) *Module {
	return &Module{logger: logger}
}

// Register adds the errorpage factory to r.
func Register(r *module.Registry) {
	r.Register(module.Factory{
		Name:        ModuleName,
		Description: "renders JSON error documents for empty 4xx/5xx responses",
		Create: func(_ map[string]any, logger *slog.Logger) (ports.Module, error) {
			return New(logger), nil
		},
	})
}

func (m *Module) Name() string { return ModuleName }

func (m *Module) Handle(_ context.Context, _ ports.Phase, st ports.State) ports.Outcome {
	resp := st.Response()
	if resp.Status() < 400 || len(resp.Body()) > 0 || resp.Stream() != nil {
		return ports.Continue()
	}

	var doc errorBody
	doc.Error.Status = resp.Status()
	doc.Error.Message = http.StatusText(resp.Status())
	payload, err := json.Marshal(doc)
	if err != nil {
		return ports.Fail(err)
	}

	body, err := st.Alloc(len(payload), 1)
	if err != nil {
		return ports.Fail(err)
	}
	copy(body, payload)

	if err := resp.SetHeader("Content-Type", "application/json"); err != nil {
		return ports.Fail(err)
	}
	resp.SetBody(body)
	return ports.Modified()
}
