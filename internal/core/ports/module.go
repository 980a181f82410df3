// Package ports defines the interfaces between the pipeline core and its
// pluggable parts: the module capability contract, the per-request state
// surface modules are allowed to touch, and the failure policy applied to
// module errors.
package ports

import (
	"context"
	"fmt"

	"github.com/oxproject/oxweb/internal/core/domain"
)

// State is the surface of the per-request pipeline state visible to
// modules. Implementations back ContextFor and the allocators with a bump
// arena that is recycled when the request ends, so modules must not retain
// anything obtained here beyond the Handle call that produced it.
type State interface {
	// ID is the unique identifier of this request.
	ID() string
	// Request returns the request record.
	Request() *domain.RequestData
	// Response returns the response record being built.
	Response() *domain.ResponseData
	// ContextFor returns the calling module's private scratch slot, created
	// lazily on first access. Slots are never shared across modules or
	// requests.
	ContextFor(moduleID string) map[string]any
	// Alloc carves request-scoped memory from the owning arena.
	Alloc(size, align int) ([]byte, error)
	// CopyString copies s into request-scoped memory.
	CopyString(s string) (string, error)
	// SetModified flips the monotonic mutation latch.
	SetModified()
	// Modified reports whether any module mutated the request or response.
	Modified() bool
	// ArenaAllocated reports the bytes this request has carved so far.
	ArenaAllocated() int64
	// Executed reports how many module invocations have run so far.
	Executed() int
}

// OutcomeKind discriminates the result of a module invocation.
type OutcomeKind int

const (
	// KindContinue lets the executor proceed to the next bound module.
	KindContinue OutcomeKind = iota
	// KindShortCircuit aborts all remaining phases and uses the carried
	// response as the final output.
	KindShortCircuit
	// KindFail is a module-local error; the binding's failure policy
	// decides whether it is fatal.
	KindFail
)

func (k OutcomeKind) String() string {
	switch k {
	case KindContinue:
		return "continue"
	case KindShortCircuit:
		return "short_circuit"
	case KindFail:
		return "fail"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the result of Module.Handle.
type Outcome struct {
	Kind OutcomeKind
	// Response carries the final response for KindShortCircuit.
	Response *domain.ResponseData
	// Err carries the failure for KindFail.
	Err error
	// Modified reports that the module mutated request or response state.
	Modified bool
}

// Continue signals the executor to move on.
func Continue() Outcome { return Outcome{Kind: KindContinue} }

// Modified signals the executor to move on and flips the mutation latch.
func Modified() Outcome { return Outcome{Kind: KindContinue, Modified: true} }

// ShortCircuit terminates the pipeline with resp as the final response.
func ShortCircuit(resp *domain.ResponseData) Outcome {
	return Outcome{Kind: KindShortCircuit, Response: resp, Modified: true}
}

// Fail reports a module-local error.
func Fail(err error) Outcome { return Outcome{Kind: KindFail, Err: err} }

// Module is the single capability every pluggable unit implements. New
// module kinds are added by implementing this interface and registering a
// factory; there is no hierarchy.
type Module interface {
	// Name returns the stable module identifier.
	Name() string
	// Handle processes one phase invocation. Implementations must not
	// retain st or anything allocated through it past the call: the backing
	// arena may be reset immediately after the pipeline ends. Handle may
	// block on I/O; the executor observes ctx cancellation at the next
	// module boundary.
	Handle(ctx context.Context, phase Phase, st State) Outcome
}

// FailurePolicy governs how the executor treats a KindFail outcome.
type FailurePolicy string

const (
	// PolicyAbort treats the failure as a short-circuit with a generated
	// error response. This is the default.
	PolicyAbort FailurePolicy = "abort"
	// PolicySkipModule records the error and continues with the next
	// module in the phase.
	PolicySkipModule FailurePolicy = "skip_module"
	// PolicySkipPhase records the error and skips the remaining modules of
	// the current phase only.
	PolicySkipPhase FailurePolicy = "skip_phase"
)

// ParseFailurePolicy validates a configuration string. Empty selects
// PolicyAbort.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case "":
		return PolicyAbort, nil
	case PolicyAbort, PolicySkipModule, PolicySkipPhase:
		return FailurePolicy(s), nil
	default:
		return "", fmt.Errorf("invalid failure policy %q (must be 'abort', 'skip_module' or 'skip_phase')", s)
	}
}
