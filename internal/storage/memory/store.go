// Package memory provides an in-memory access-log store, used in tests
// and for deployments that do not need persistence.
package memory

import (
	"context"
	"sync"

	"github.com/oxproject/oxweb/internal/storage/accesslog"
)

// Store keeps records in a slice, newest last.
type Store struct {
	mu      sync.Mutex
	records []accesslog.Record
	closed  bool
	// FailSave, when set, makes Save return it. Test hook.
	FailSave error
}

var _ accesslog.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// Save appends a copy of rec.
func (s *Store) Save(_ context.Context, rec *accesslog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave != nil {
		return s.FailSave
	}
	s.records = append(s.records, *rec)
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(_ context.Context, limit int) ([]accesslog.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.records)
	if limit > n {
		limit = n
	}
	out := make([]accesslog.Record, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

// Len reports the number of saved records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
