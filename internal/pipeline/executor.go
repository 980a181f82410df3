package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/oxproject/oxweb/internal/core/domain"
	"github.com/oxproject/oxweb/internal/core/ports"
)

// Binding ties a module to a phase at configuration time. Binding lists
// are immutable for the process lifetime and shared by reference across
// all concurrent requests.
type Binding struct {
	Phase  ports.Phase
	Module ports.Module
	// Policy governs Fail outcomes from this module. Empty means abort.
	Policy ports.FailurePolicy
	// Headers and Query optionally gate the module: when a pattern does
	// not match the request, the module is skipped without consuming an
	// outcome.
	Headers map[string]*regexp.Regexp
	Query   *regexp.Regexp
}

func (b *Binding) matches(req *domain.RequestData) bool {
	for name, re := range b.Headers {
		if !re.MatchString(req.Headers.Get(name)) {
			return false
		}
	}
	if b.Query != nil && !b.Query.MatchString(req.Query) {
		return false
	}
	return true
}

// Plan is an ordered set of phases with their bound modules, resolved by
// the router for one route and executed unchanged for every request that
// matches it.
type Plan struct {
	phases   []ports.Phase
	bindings map[ports.Phase][]*Binding
}

// NewPlan groups bindings under the given phase order. Bindings whose
// phase is absent from the order are dropped; within a phase,
// configuration order is preserved.
func NewPlan(phases []ports.Phase, bindings []*Binding) *Plan {
	p := &Plan{
		phases:   phases,
		bindings: make(map[ports.Phase][]*Binding),
	}
	known := make(map[ports.Phase]struct{}, len(phases))
	for _, ph := range phases {
		known[ph] = struct{}{}
	}
	for _, b := range bindings {
		if _, ok := known[b.Phase]; ok {
			p.bindings[b.Phase] = append(p.bindings[b.Phase], b)
		}
	}
	return p
}

// Phases returns the execution order.
func (p *Plan) Phases() []ports.Phase { return p.phases }

// Bindings returns the modules bound to a phase in configuration order.
func (p *Plan) Bindings(phase ports.Phase) []*Binding { return p.bindings[phase] }

// indexAfter finds phase at or after from, or -1. The forward-only search
// is what keeps the no-backtracking guarantee even for error jumps.
func (p *Plan) indexAfter(phase ports.Phase, from int) int {
	for i := from; i < len(p.phases); i++ {
		if p.phases[i] == phase {
			return i
		}
	}
	return -1
}

// TerminalState is where a pipeline run ended up.
type TerminalState int

const (
	// Completed means the response is finalized and ready to flush.
	Completed TerminalState = iota
	// Aborted means the run was cut short; Response carries the generated
	// error response, or is nil when the transport went away.
	Aborted
)

// Result is the outcome of one pipeline run. Every run yields either a
// finalized response or, for cancellation, a nil response with Err set as
// the explicit abort signal — never a half-constructed response.
type Result struct {
	Terminal TerminalState
	Response *domain.ResponseData
	// Err is the fatal cause when Terminal is Aborted.
	Err error
	// Recorded holds non-fatal module errors skipped under the
	// skip_module / skip_phase policies.
	Recorded []error
}

// Executor drives a plan against one pipeline state. It is stateless
// between runs and safe to share across requests; all per-request data
// lives in the State.
type Executor struct {
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// NewExecutor creates an executor. A nil metrics registry disables
// counters.
func NewExecutor(logger *slog.Logger, metrics *Metrics) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		logger:  logger,
		metrics: metrics,
		tracer:  otel.Tracer("oxweb/pipeline"),
	}
}

// Run executes the plan's phases strictly in order against st. Within a
// phase, modules run in configuration order. No phase is re-entered once
// left, which guarantees at-most-once side effects per module per
// request. Cancellation is observed at module boundaries only: an
// in-flight Handle call is never preempted, just not followed by another.
func (e *Executor) Run(ctx context.Context, plan *Plan, st *State) Result {
	var recorded []error

	ctx, span := e.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("request.id", st.ID())))
	defer span.End()

	i := 0
	for i < len(plan.phases) {
		phase := plan.phases[i]
		if err := ctx.Err(); err != nil {
			return e.canceled(st, err, recorded)
		}

		leave := e.enterPhase(phase)
		mutated, out := e.runPhase(ctx, plan, phase, st, &recorded)
		leave()

		switch out {
		case phaseShortCircuit:
			resp := st.Response()
			resp.Finalize()
			span.AddEvent("short_circuit")
			return Result{Terminal: Completed, Response: resp, Recorded: recorded}
		case phaseAbort:
			return e.abort(st, recorded)
		case phaseCanceled:
			return e.canceled(st, ctx.Err(), recorded)
		}

		if phase == ports.Content && !mutated {
			// Nothing produced content: 404 and jump forward to the
			// error-handling phases when the plan has them.
			if err := st.Response().SetStatus(404); err != nil {
				e.logger.Warn("response finalized before content phase ended",
					slog.String("request_id", st.ID()))
			}
			if j := plan.indexAfter(ports.PreErrorHandling, i+1); j >= 0 {
				i = j
				continue
			}
		}
		i++
	}

	st.Response().Finalize()
	return Result{Terminal: Completed, Response: st.Response(), Recorded: recorded}
}

type phaseOutcome int

const (
	phaseDone phaseOutcome = iota
	phaseShortCircuit
	phaseAbort
	phaseCanceled
)

// runPhase executes one phase's bindings. The bool reports whether any
// module in the phase declared a mutation, which is what marks the
// content phase as handled.
func (e *Executor) runPhase(ctx context.Context, plan *Plan, phase ports.Phase, st *State, recorded *[]error) (bool, phaseOutcome) {
	mutated := false
	ctx, span := e.tracer.Start(ctx, "phase."+string(phase))
	defer span.End()

	for _, b := range plan.bindings[phase] {
		if ctx.Err() != nil {
			return mutated, phaseCanceled
		}
		if !b.matches(st.Request()) {
			continue
		}

		start := time.Now()
		before := st.ArenaAllocated()
		out := b.Module.Handle(ctx, phase, st)
		e.recordExecution(b.Module.Name(), start, st.ArenaAllocated()-before)

		rec := ExecutionRecord{Module: b.Module.Name(), Phase: phase, Outcome: out.Kind}
		if out.Err != nil {
			rec.Error = out.Err.Error()
		}
		st.Record(rec)

		if out.Modified {
			st.SetModified()
			mutated = true
		}

		switch out.Kind {
		case ports.KindContinue:
			continue
		case ports.KindShortCircuit:
			if out.Response != nil {
				st.response = out.Response
			}
			return mutated, phaseShortCircuit
		case ports.KindFail:
			merr := &domain.ModuleError{Module: b.Module.Name(), Phase: string(phase), Err: out.Err}
			*recorded = append(*recorded, merr)
			policy := b.Policy
			if policy == "" {
				policy = ports.PolicyAbort
			}
			switch policy {
			case ports.PolicySkipModule:
				e.logFailure(st, merr, "skipping module")
			case ports.PolicySkipPhase:
				e.logFailure(st, merr, "skipping remainder of phase")
				return mutated, phaseDone
			default:
				return mutated, phaseAbort
			}
		default:
			*recorded = append(*recorded, fmt.Errorf("module %s returned unknown outcome %v", b.Module.Name(), out.Kind))
			return mutated, phaseAbort
		}
	}
	return mutated, phaseDone
}

func (e *Executor) logFailure(st *State, merr *domain.ModuleError, action string) {
	e.logger.Warn("module failed, "+action,
		slog.String("request_id", st.ID()),
		slog.String("module", merr.Module),
		slog.String("phase", merr.Phase),
		slog.String("error", merr.Err.Error()))
}

func (e *Executor) enterPhase(p ports.Phase) func() {
	if e.metrics == nil {
		return func() {}
	}
	return e.metrics.EnterPhase(p)
}

func (e *Executor) recordExecution(module string, start time.Time, bytes int64) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordExecution(module, time.Since(start).Microseconds(), bytes)
}

// abort builds the generated error response for a fatal module failure:
// the request still resolves to a finalized response, it just reports the
// failure instead of the route's content.
func (e *Executor) abort(st *State, recorded []error) Result {
	var cause error
	if n := len(recorded); n > 0 {
		cause = recorded[n-1]
	}
	resp := domain.NewResponseData(500)
	resp.Headers().Set("Content-Type", "application/json")
	resp.SetBody([]byte(`{"error":"internal server error"}`))
	resp.Finalize()
	e.logger.Error("pipeline aborted",
		slog.String("request_id", st.ID()),
		slog.Any("error", cause))
	return Result{Terminal: Aborted, Response: resp, Err: cause, Recorded: recorded}
}

// canceled is the transport-went-away abort: no response is generated,
// the nil Response plus Err is the explicit abort signal.
func (e *Executor) canceled(st *State, err error, recorded []error) Result {
	e.logger.Info("pipeline canceled",
		slog.String("request_id", st.ID()),
		slog.String("reason", err.Error()))
	return Result{Terminal: Aborted, Err: err, Recorded: recorded}
}
