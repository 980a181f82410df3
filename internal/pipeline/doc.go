// Package pipeline provides the phase-ordered module execution engine.
//
// A request's lifecycle: the router resolves a Plan (an immutable, shared
// list of phase/module bindings), a State is created around a fresh bump
// arena, and the Executor drives the plan's phases strictly in order. Each
// phase invokes its bound modules in configuration order; a module returns
// Continue, ShortCircuit (terminating the run with a final response), or
// Fail (handled per the binding's failure policy: abort, skip_module, or
// skip_phase).
//
// Terminal states are Completed (finalized response ready to flush) and
// Aborted (generated error response, or an explicit abort signal when the
// transport disconnected). Phases are never re-entered, so every module
// runs at most once per request.
package pipeline
