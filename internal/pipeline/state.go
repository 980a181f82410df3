package pipeline

import (
	"github.com/google/uuid"

	"github.com/oxproject/oxweb/internal/arena"
	"github.com/oxproject/oxweb/internal/core/domain"
	"github.com/oxproject/oxweb/internal/core/ports"
)

// ExecutionRecord is one entry of a request's execution history: which
// module ran in which phase and how it came out.
type ExecutionRecord struct {
	Module  string            `json:"module"`
	Phase   ports.Phase       `json:"phase"`
	Outcome ports.OutcomeKind `json:"-"`
	Result  string            `json:"result"`
	Error   string            `json:"error,omitempty"`
}

// StateOptions configures per-request state construction.
type StateOptions struct {
	// Arena configures the backing allocator.
	Arena arena.Options
}

// State is the complete per-request context: it exclusively owns one bump
// arena, the request record, the response record being built, and the
// per-module scratch slots. Exactly one State exists per in-flight request
// and it is never shared across requests. Only the currently executing
// module mutates it, so no locking is needed.
type State struct {
	id        string
	arena     *arena.Arena
	request   *domain.RequestData
	response  *domain.ResponseData
	moduleCtx map[string]map[string]any
	modified  bool
	history   []ExecutionRecord
	released  bool
}

var _ ports.State = (*State)(nil)

// NewState creates the state for one request: it allocates the backing
// arena, copies the request body into it, and initializes an empty response
// and module-context table.
func NewState(req *domain.RequestData, opts StateOptions) (*State, error) {
	a := arena.New(opts.Arena)
	if len(req.Body) > 0 {
		body, err := a.Copy(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body = body
	}
	return &State{
		id:       uuid.New().String(),
		arena:    a,
		request:  req,
		response: domain.NewResponseData(200),
	}, nil
}

func (s *State) ID() string                     { return s.id }
func (s *State) Request() *domain.RequestData   { return s.request }
func (s *State) Response() *domain.ResponseData { return s.response }

// ContextFor returns the named module's private scratch slot, created
// lazily on first access. Slots live exactly as long as the state.
func (s *State) ContextFor(moduleID string) map[string]any {
	if s.moduleCtx == nil {
		s.moduleCtx = make(map[string]map[string]any)
	}
	slot, ok := s.moduleCtx[moduleID]
	if !ok {
		slot = make(map[string]any)
		s.moduleCtx[moduleID] = slot
	}
	return slot
}

// Alloc carves request-scoped memory from the owning arena.
func (s *State) Alloc(size, align int) ([]byte, error) {
	return s.arena.Alloc(size, align)
}

// CopyString copies a string into the owning arena.
func (s *State) CopyString(str string) (string, error) {
	return s.arena.CopyString(str)
}

// SetModified flips the monotonic mutation latch. It never clears.
func (s *State) SetModified() { s.modified = true }

// Modified reports whether any module mutated request or response state.
func (s *State) Modified() bool { return s.modified }

// Record appends one execution-history entry.
func (s *State) Record(rec ExecutionRecord) {
	rec.Result = rec.Outcome.String()
	s.history = append(s.history, rec)
}

// History returns the execution records in run order.
func (s *State) History() []ExecutionRecord { return s.history }

// Executed reports how many module invocations have run so far.
func (s *State) Executed() int { return len(s.history) }

// ArenaAllocated reports the bytes the request has carved so far.
func (s *State) ArenaAllocated() int64 { return s.arena.Allocated() }

// Release destroys the state: the arena is reset, invalidating every
// request-scoped allocation. The response must already have been flushed
// to the transport. Release is idempotent; only the first call resets.
func (s *State) Release() {
	if s.released {
		return
	}
	s.released = true
	s.moduleCtx = nil
	s.arena.Reset()
}

// Released reports whether Release has run.
func (s *State) Released() bool { return s.released }
