package pipeline

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/oxproject/oxweb/internal/core/domain"
	"github.com/oxproject/oxweb/internal/core/ports"
)

// mockModule is a test helper that records calls and returns configured
// outcomes.
type mockModule struct {
	name    string
	outcome ports.Outcome
	handle  func(ctx context.Context, phase ports.Phase, st ports.State) ports.Outcome
	calls   []ports.Phase
}

func (m *mockModule) Name() string { return m.name }

func (m *mockModule) Handle(ctx context.Context, phase ports.Phase, st ports.State) ports.Outcome {
	m.calls = append(m.calls, phase)
	if m.handle != nil {
		return m.handle(ctx, phase, st)
	}
	return m.outcome
}

func newTestState(t *testing.T, req *domain.RequestData) *State {
	t.Helper()
	st, err := NewState(req, StateOptions{})
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	return st
}

// order is a shared call log for asserting cross-module ordering.
type order struct{ seq []string }

func tracked(o *order, name string, out ports.Outcome) *mockModule {
	return &mockModule{
		name: name,
		handle: func(context.Context, ports.Phase, ports.State) ports.Outcome {
			o.seq = append(o.seq, name)
			return out
		},
	}
}

func TestRun_ModulesExecuteInConfiguredOrder(t *testing.T) {
	o := &order{}
	plan := NewPlan(
		[]ports.Phase{ports.EarlyRequest, ports.LateRequest},
		[]*Binding{
			{Phase: ports.EarlyRequest, Module: tracked(o, "a", ports.Continue())},
			{Phase: ports.EarlyRequest, Module: tracked(o, "b", ports.Continue())},
			{Phase: ports.LateRequest, Module: tracked(o, "c", ports.Continue())},
		},
	)
	st := newTestState(t, domain.NewRequestData("GET", "/"))

	res := NewExecutor(nil, nil).Run(context.Background(), plan, st)

	if res.Terminal != Completed {
		t.Fatalf("terminal = %v, want Completed", res.Terminal)
	}
	want := []string{"a", "b", "c"}
	if len(o.seq) != len(want) {
		t.Fatalf("call sequence = %v, want %v", o.seq, want)
	}
	for i := range want {
		if o.seq[i] != want[i] {
			t.Fatalf("call sequence = %v, want %v", o.seq, want)
		}
	}
	if !res.Response.Finalized() {
		t.Error("completed response must be finalized")
	}
}

func TestRun_ShortCircuitHaltsAllLaterModules(t *testing.T) {
	o := &order{}
	resp := domain.NewResponseData(418)
	resp.SetBody([]byte("stopped"))

	plan := NewPlan(
		[]ports.Phase{ports.EarlyRequest, ports.LateRequest},
		[]*Binding{
			{Phase: ports.EarlyRequest, Module: tracked(o, "first", ports.ShortCircuit(resp))},
			{Phase: ports.EarlyRequest, Module: tracked(o, "same-phase", ports.Continue())},
			{Phase: ports.LateRequest, Module: tracked(o, "later-phase", ports.Continue())},
		},
	)
	st := newTestState(t, domain.NewRequestData("GET", "/"))

	res := NewExecutor(nil, nil).Run(context.Background(), plan, st)

	if len(o.seq) != 1 || o.seq[0] != "first" {
		t.Errorf("expected only the short-circuiting module to run, got %v", o.seq)
	}
	if res.Terminal != Completed {
		t.Errorf("terminal = %v, want Completed", res.Terminal)
	}
	if res.Response.Status() != 418 || string(res.Response.Body()) != "stopped" {
		t.Errorf("carried response not used: status=%d body=%q", res.Response.Status(), res.Response.Body())
	}
	if !res.Response.Finalized() {
		t.Error("short-circuit response must be finalized")
	}
}

func TestRun_FailAbortPreventsAllLaterModules(t *testing.T) {
	o := &order{}
	plan := NewPlan(
		[]ports.Phase{ports.EarlyRequest, ports.LateRequest},
		[]*Binding{
			{Phase: ports.EarlyRequest, Module: tracked(o, "boom", ports.Fail(errors.New("boom")))},
			{Phase: ports.EarlyRequest, Module: tracked(o, "next", ports.Continue())},
			{Phase: ports.LateRequest, Module: tracked(o, "later", ports.Continue())},
		},
	)
	st := newTestState(t, domain.NewRequestData("GET", "/"))

	res := NewExecutor(nil, nil).Run(context.Background(), plan, st)

	if len(o.seq) != 1 {
		t.Errorf("expected no module after the failure, got %v", o.seq)
	}
	if res.Terminal != Aborted {
		t.Fatalf("terminal = %v, want Aborted", res.Terminal)
	}
	if res.Response == nil || res.Response.Status() != 500 {
		t.Errorf("expected generated 500 response, got %+v", res.Response)
	}
	if !res.Response.Finalized() {
		t.Error("generated error response must be finalized")
	}
	var merr *domain.ModuleError
	if !errors.As(res.Err, &merr) || merr.Module != "boom" {
		t.Errorf("expected ModuleError from 'boom', got %v", res.Err)
	}
}

func TestRun_FailSkipModuleContinuesWithinPhase(t *testing.T) {
	o := &order{}
	plan := NewPlan(
		[]ports.Phase{ports.EarlyRequest},
		[]*Binding{
			{Phase: ports.EarlyRequest, Module: tracked(o, "boom", ports.Fail(errors.New("boom"))), Policy: ports.PolicySkipModule},
			{Phase: ports.EarlyRequest, Module: tracked(o, "after", ports.Continue())},
		},
	)
	st := newTestState(t, domain.NewRequestData("GET", "/"))

	res := NewExecutor(nil, nil).Run(context.Background(), plan, st)

	if res.Terminal != Completed {
		t.Fatalf("terminal = %v, want Completed", res.Terminal)
	}
	if len(o.seq) != 2 || o.seq[1] != "after" {
		t.Errorf("expected the later module in phase to still run, got %v", o.seq)
	}
	if len(res.Recorded) != 1 {
		t.Errorf("expected 1 recorded error, got %d", len(res.Recorded))
	}
}

func TestRun_FailSkipPhaseSkipsRestOfPhaseOnly(t *testing.T) {
	o := &order{}
	plan := NewPlan(
		[]ports.Phase{ports.EarlyRequest, ports.LateRequest},
		[]*Binding{
			{Phase: ports.EarlyRequest, Module: tracked(o, "boom", ports.Fail(errors.New("boom"))), Policy: ports.PolicySkipPhase},
			{Phase: ports.EarlyRequest, Module: tracked(o, "same-phase", ports.Continue())},
			{Phase: ports.LateRequest, Module: tracked(o, "next-phase", ports.Continue())},
		},
	)
	st := newTestState(t, domain.NewRequestData("GET", "/"))

	res := NewExecutor(nil, nil).Run(context.Background(), plan, st)

	if res.Terminal != Completed {
		t.Fatalf("terminal = %v, want Completed", res.Terminal)
	}
	if len(o.seq) != 2 || o.seq[0] != "boom" || o.seq[1] != "next-phase" {
		t.Errorf("expected phase remainder skipped but next phase run, got %v", o.seq)
	}
}

func TestRun_CancellationObservedAtModuleBoundary(t *testing.T) {
	o := &order{}
	ctx, cancel := context.WithCancel(context.Background())

	canceling := &mockModule{
		name: "canceling",
		handle: func(context.Context, ports.Phase, ports.State) ports.Outcome {
			o.seq = append(o.seq, "canceling")
			cancel() // transport disconnect mid-module
			return ports.Continue()
		},
	}
	plan := NewPlan(
		[]ports.Phase{ports.EarlyRequest, ports.LateRequest},
		[]*Binding{
			{Phase: ports.EarlyRequest, Module: canceling},
			{Phase: ports.EarlyRequest, Module: tracked(o, "never", ports.Continue())},
			{Phase: ports.LateRequest, Module: tracked(o, "never2", ports.Continue())},
		},
	)
	st := newTestState(t, domain.NewRequestData("GET", "/"))

	res := NewExecutor(nil, nil).Run(ctx, plan, st)

	if len(o.seq) != 1 {
		t.Errorf("expected no module after cancellation, got %v", o.seq)
	}
	if res.Terminal != Aborted {
		t.Errorf("terminal = %v, want Aborted", res.Terminal)
	}
	if res.Response != nil {
		t.Error("canceled run must not fabricate a response")
	}
	if !errors.Is(res.Err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", res.Err)
	}
}

func TestRun_UnhandledContentYields404AndJumpsToErrorHandling(t *testing.T) {
	o := &order{}
	plan := NewPlan(
		[]ports.Phase{ports.Content, ports.PostContent, ports.PreErrorHandling, ports.ErrorHandling},
		[]*Binding{
			{Phase: ports.Content, Module: tracked(o, "observer", ports.Continue())},
			{Phase: ports.PostContent, Module: tracked(o, "post-content", ports.Continue())},
			{Phase: ports.ErrorHandling, Module: tracked(o, "errorpage", ports.Modified())},
		},
	)
	st := newTestState(t, domain.NewRequestData("GET", "/missing"))

	res := NewExecutor(nil, nil).Run(context.Background(), plan, st)

	if res.Response.Status() != 404 {
		t.Errorf("status = %d, want 404", res.Response.Status())
	}
	// PostContent must be jumped over; the error-handling module must run.
	if len(o.seq) != 2 || o.seq[0] != "observer" || o.seq[1] != "errorpage" {
		t.Errorf("call sequence = %v, want [observer errorpage]", o.seq)
	}
}

func TestRun_ContentHandledSkipsErrorJump(t *testing.T) {
	o := &order{}
	plan := NewPlan(
		[]ports.Phase{ports.Content, ports.PostContent},
		[]*Binding{
			{Phase: ports.Content, Module: tracked(o, "content", ports.Modified())},
			{Phase: ports.PostContent, Module: tracked(o, "post", ports.Continue())},
		},
	)
	st := newTestState(t, domain.NewRequestData("GET", "/"))

	res := NewExecutor(nil, nil).Run(context.Background(), plan, st)

	if res.Response.Status() != 200 {
		t.Errorf("status = %d, want 200", res.Response.Status())
	}
	if len(o.seq) != 2 {
		t.Errorf("call sequence = %v, want both modules", o.seq)
	}
}

func TestRun_BindingMatchersGateModules(t *testing.T) {
	o := &order{}
	plan := NewPlan(
		[]ports.Phase{ports.EarlyRequest},
		[]*Binding{
			{
				Phase:   ports.EarlyRequest,
				Module:  tracked(o, "gated", ports.Continue()),
				Headers: map[string]*regexp.Regexp{"X-Test": regexp.MustCompile(`^true$`)},
			},
			{
				Phase:  ports.EarlyRequest,
				Module: tracked(o, "query-gated", ports.Continue()),
				Query:  regexp.MustCompile(`mode=special`),
			},
		},
	)

	req := domain.NewRequestData("GET", "/")
	req.Headers.Add("X-Test", "true")
	req.Query = "mode=normal"
	st := newTestState(t, req)

	NewExecutor(nil, nil).Run(context.Background(), plan, st)

	if len(o.seq) != 1 || o.seq[0] != "gated" {
		t.Errorf("expected only the header-matched module, got %v", o.seq)
	}
}

func TestRun_RecordsExecutionHistory(t *testing.T) {
	plan := NewPlan(
		[]ports.Phase{ports.EarlyRequest},
		[]*Binding{
			{Phase: ports.EarlyRequest, Module: &mockModule{name: "ok", outcome: ports.Continue()}},
			{Phase: ports.EarlyRequest, Module: &mockModule{name: "bad", outcome: ports.Fail(errors.New("nope"))}, Policy: ports.PolicySkipModule},
		},
	)
	st := newTestState(t, domain.NewRequestData("GET", "/"))

	NewExecutor(nil, nil).Run(context.Background(), plan, st)

	hist := st.History()
	if len(hist) != 2 {
		t.Fatalf("expected 2 history records, got %d", len(hist))
	}
	if hist[0].Module != "ok" || hist[0].Result != "continue" {
		t.Errorf("record 0 = %+v", hist[0])
	}
	if hist[1].Module != "bad" || hist[1].Error != "nope" {
		t.Errorf("record 1 = %+v", hist[1])
	}
}

func TestRun_MetricsCountExecutions(t *testing.T) {
	m := NewMetrics(ports.DefaultPhases())
	plan := NewPlan(
		[]ports.Phase{ports.EarlyRequest},
		[]*Binding{
			{Phase: ports.EarlyRequest, Module: &mockModule{name: "counted", outcome: ports.Continue()}},
		},
	)

	exec := NewExecutor(nil, m)
	for range 3 {
		st := newTestState(t, domain.NewRequestData("GET", "/"))
		exec.Run(context.Background(), plan, st)
		st.Release()
	}

	snap := m.Snapshot()
	if got := snap.Modules["counted"].Executions; got != 3 {
		t.Errorf("executions = %d, want 3", got)
	}
	if got := snap.ActiveByPhase[string(ports.EarlyRequest)]; got != 0 {
		t.Errorf("active pipelines after runs = %d, want 0", got)
	}
}
