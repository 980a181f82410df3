package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/oxproject/oxweb/internal/core/ports"
)

// ModuleMetrics accumulates per-module counters across all requests.
type ModuleMetrics struct {
	executions    atomic.Int64
	durationMicro atomic.Int64
	bytesAlloc    atomic.Int64
}

// ModuleSnapshot is the JSON shape of one module's counters.
type ModuleSnapshot struct {
	Executions     int64 `json:"execution_count"`
	DurationMicros int64 `json:"total_duration_micros"`
	BytesAllocated int64 `json:"memory_allocated"`
}

// Metrics tracks pipeline activity: per-module counters plus active runs
// per phase. All methods are safe for concurrent use; the executor updates
// counters with atomics on the hot path.
type Metrics struct {
	mu      sync.RWMutex
	modules map[string]*ModuleMetrics
	active  map[ports.Phase]*atomic.Int64
	total   atomic.Int64 // bytes allocated across all requests
}

// Snapshot is the JSON shape served by the status module.
type Snapshot struct {
	ActiveByPhase  map[string]int64          `json:"active_pipelines_by_phase"`
	BytesAllocated int64                     `json:"global_memory_allocated"`
	Modules        map[string]ModuleSnapshot `json:"modules"`
}

// NewMetrics creates a metrics registry pre-populated with the phase set.
func NewMetrics(phases []ports.Phase) *Metrics {
	m := &Metrics{
		modules: make(map[string]*ModuleMetrics),
		active:  make(map[ports.Phase]*atomic.Int64, len(phases)),
	}
	for _, p := range phases {
		m.active[p] = &atomic.Int64{}
	}
	return m
}

func (m *Metrics) module(name string) *ModuleMetrics {
	m.mu.RLock()
	mm, ok := m.modules[name]
	m.mu.RUnlock()
	if ok {
		return mm
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if mm, ok = m.modules[name]; ok {
		return mm
	}
	mm = &ModuleMetrics{}
	m.modules[name] = mm
	return mm
}

// RecordExecution adds one module invocation's cost.
func (m *Metrics) RecordExecution(module string, durationMicros, bytesAllocated int64) {
	mm := m.module(module)
	mm.executions.Add(1)
	mm.durationMicro.Add(durationMicros)
	mm.bytesAlloc.Add(bytesAllocated)
	m.total.Add(bytesAllocated)
}

// EnterPhase marks a pipeline as active in p; the returned func leaves it.
func (m *Metrics) EnterPhase(p ports.Phase) func() {
	c, ok := m.active[p]
	if !ok {
		return func() {}
	}
	c.Add(1)
	return func() { c.Add(-1) }
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{
		ActiveByPhase:  make(map[string]int64, len(m.active)),
		BytesAllocated: m.total.Load(),
		Modules:        make(map[string]ModuleSnapshot),
	}
	for p, c := range m.active {
		snap.ActiveByPhase[string(p)] = c.Load()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for name, mm := range m.modules {
		snap.Modules[name] = ModuleSnapshot{
			Executions:     mm.executions.Load(),
			DurationMicros: mm.durationMicro.Load(),
			BytesAllocated: mm.bytesAlloc.Load(),
		}
	}
	return snap
}
