// Package accesslog defines the request accounting store consumed by the
// accounting module. Implementations: sqlite (default), memory (tests).
package accesslog

import (
	"context"
	"time"
)

// Record is one completed (or aborted) request as seen by the accounting
// phase.
type Record struct {
	RequestID      string    `db:"request_id" json:"request_id"`
	Method         string    `db:"method" json:"method"`
	Path           string    `db:"path" json:"path"`
	Protocol       string    `db:"protocol" json:"protocol"`
	SourceAddr     string    `db:"source_addr" json:"source_addr"`
	Status         int       `db:"status" json:"status"`
	Modified       bool      `db:"modified" json:"modified"`
	ArenaBytes     int64     `db:"arena_bytes" json:"arena_bytes"`
	ModulesInvoked int       `db:"modules_invoked" json:"modules_invoked"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Store persists access records.
type Store interface {
	// Save writes one record.
	Save(ctx context.Context, rec *Record) error
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)
	// Close releases the backing resources.
	Close() error
}
