package domain

import (
	"errors"
	"fmt"
)

// ErrResponseFinalized is returned when a module mutates response headers
// or status after another module finalized the response. It is a contract
// violation by the caller and surfaces as a 500-class error.
var ErrResponseFinalized = errors.New("response already finalized")

// ErrNoRouteMatched is returned by the router when no configured route
// matches the request. It is non-fatal to the service; the transport
// renders a generic 404.
var ErrNoRouteMatched = errors.New("no route matched")

// ModuleError wraps a module-local failure with the module and phase it
// occurred in. The executor's failure policy decides whether it aborts the
// request or is recorded and skipped.
type ModuleError struct {
	Module string
	Phase  string
	Err    error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("module %s (phase %s): %v", e.Module, e.Phase, e.Err)
}

func (e *ModuleError) Unwrap() error { return e.Err }
