// Package router maps inbound requests to their pipeline plan and drives
// the executor. The route table is compiled once at startup from the
// configuration collaborator and is immutable afterwards; every
// concurrent request resolves against the same table and shares plans by
// reference.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/oxproject/oxweb/internal/core/domain"
	"github.com/oxproject/oxweb/internal/pipeline"
)

// Metadata describes a resolved route to the transport.
type Metadata struct {
	// Name is the configured route name, for logs and traces.
	Name string
	// Upgrade marks routes that hand the connection to the post-upgrade
	// loop after the pipeline short-circuits with an upgraded response.
	Upgrade bool
}

// Route is one compiled entry: the shared plan plus metadata.
type Route struct {
	Plan     *pipeline.Plan
	Metadata Metadata
}

// Spec is the uncompiled form produced by the configuration collaborator.
type Spec struct {
	Name string
	// Methods restricts the route to the listed verbs; empty means any.
	Methods []string
	// PathPattern is an anchored regular expression over the request path.
	PathPattern string
	// Protocol restricts the route (e.g. "websocket"); empty means any.
	Protocol string
	// Upgrade marks the route as connection-upgrading.
	Upgrade bool
	// Plan is the phase/module binding list to execute.
	Plan *pipeline.Plan
}

type entry struct {
	methods map[string]struct{}
	path    *regexp.Regexp
	proto   string
	route   *Route
}

func (e *entry) matches(req *domain.RequestData) bool {
	if len(e.methods) > 0 {
		if _, ok := e.methods[req.Method]; !ok {
			return false
		}
	}
	if e.proto != "" && !strings.EqualFold(e.proto, req.Protocol) {
		return false
	}
	return e.path.MatchString(req.Path)
}

// Table is the compiled route table. Resolution is a pure function of the
// request; first match in configuration order wins.
type Table struct {
	entries []*entry
}

// NewTable compiles specs. Pattern errors fail startup, never a request.
func NewTable(specs []Spec) (*Table, error) {
	t := &Table{}
	for _, s := range specs {
		if s.Plan == nil {
			return nil, fmt.Errorf("route %q: no plan", s.Name)
		}
		pat := s.PathPattern
		if pat == "" {
			return nil, fmt.Errorf("route %q: empty path pattern", s.Name)
		}
		if !strings.HasPrefix(pat, "^") {
			pat = "^" + pat
		}
		if !strings.HasSuffix(pat, "$") {
			pat += "$"
		}
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("route %q: invalid path pattern: %w", s.Name, err)
		}
		en := &entry{
			path:  re,
			proto: s.Protocol,
			route: &Route{Plan: s.Plan, Metadata: Metadata{Name: s.Name, Upgrade: s.Upgrade}},
		}
		if len(s.Methods) > 0 {
			en.methods = make(map[string]struct{}, len(s.Methods))
			for _, m := range s.Methods {
				en.methods[strings.ToUpper(m)] = struct{}{}
			}
		}
		t.entries = append(t.entries, en)
	}
	return t, nil
}

// Resolve finds the route for req, or domain.ErrNoRouteMatched.
func (t *Table) Resolve(req *domain.RequestData) (*Route, error) {
	for _, e := range t.entries {
		if e.matches(req) {
			return e.route, nil
		}
	}
	return nil, domain.ErrNoRouteMatched
}

// Dispatch is the routing result the transport consumes: the resolved
// route, the state (for release after flush), and the executor's result.
type Dispatch struct {
	Route  *Route
	State  *pipeline.State
	Result pipeline.Result
}

// Router resolves requests and runs them through the executor.
type Router struct {
	table     *Table
	exec      *pipeline.Executor
	stateOpts pipeline.StateOptions
	logger    *slog.Logger
}

// New creates a router over a compiled table.
func New(table *Table, exec *pipeline.Executor, stateOpts pipeline.StateOptions, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{table: table, exec: exec, stateOpts: stateOpts, logger: logger}
}

// Resolve exposes table resolution without running the pipeline.
func (r *Router) Resolve(req *domain.RequestData) (*Route, error) {
	return r.table.Resolve(req)
}

// Dispatch resolves req, constructs the pipeline state (the routing miss
// path constructs none), runs the executor to a terminal state, and
// returns. The caller must flush the response before calling
// Dispatch.State.Release.
func (r *Router) Dispatch(ctx context.Context, req *domain.RequestData) (*Dispatch, error) {
	route, err := r.table.Resolve(req)
	if err != nil {
		return nil, err
	}

	st, err := pipeline.NewState(req, r.stateOpts)
	if err != nil {
		return nil, fmt.Errorf("create pipeline state: %w", err)
	}

	r.logger.Debug("dispatching request",
		slog.String("request_id", st.ID()),
		slog.String("route", route.Metadata.Name),
		slog.String("method", req.Method),
		slog.String("path", req.Path))

	res := r.exec.Run(ctx, route.Plan, st)
	return &Dispatch{Route: route, State: st, Result: res}, nil
}
