// Package registration wires the built-in modules into a registry.
// Explicit calls replace init-based side effects so cmd/oxweb and tests
// control exactly what is available.
package registration

import (
	"github.com/oxproject/oxweb/internal/module"
	"github.com/oxproject/oxweb/internal/module/accounting"
	"github.com/oxproject/oxweb/internal/module/echo"
	"github.com/oxproject/oxweb/internal/module/errorpage"
	"github.com/oxproject/oxweb/internal/module/forwardedfor"
	"github.com/oxproject/oxweb/internal/module/headers"
	"github.com/oxproject/oxweb/internal/module/ping"
	"github.com/oxproject/oxweb/internal/module/rewrite"
	"github.com/oxproject/oxweb/internal/module/status"
	"github.com/oxproject/oxweb/internal/module/upgrade"
	"github.com/oxproject/oxweb/internal/pipeline"
	"github.com/oxproject/oxweb/internal/storage/accesslog"
)

// Options carries the shared backends some built-ins close over.
type Options struct {
	// Store backs the accounting module. Nil leaves accounting
	// unregistered.
	Store accesslog.Store
	// Metrics backs the status module.
	Metrics *pipeline.Metrics
}

// RegisterBuiltins registers every built-in module factory on r.
func RegisterBuiltins(r *module.Registry, opts Options) {
	ping.Register(r)
	echo.Register(r)
	headers.Register(r)
	rewrite.Register(r)
	forwardedfor.Register(r)
	errorpage.Register(r)
	upgrade.Register(r)
	status.Register(r, opts.Metrics)
	if opts.Store != nil {
		accounting.Register(r, opts.Store)
	}
}
