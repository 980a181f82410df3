package rewrite

import (
	"context"
	"log/slog"
	"testing"

	"github.com/oxproject/oxweb/internal/core/domain"
	"github.com/oxproject/oxweb/internal/core/ports"
	"github.com/oxproject/oxweb/internal/pipeline"
)

func TestNewValidatesParams(t *testing.T) {
	if _, err := New(nil, slog.Default()); err == nil {
		t.Fatal("expected error for missing pattern")
	}
	if _, err := New(map[string]any{"pattern": "["}, slog.Default()); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestRewriteReplacesPath(t *testing.T) {
	m, err := New(map[string]any{
		"pattern":     `^/old/(.*)$`,
		"replacement": "/new/$1",
	}, slog.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req := domain.NewRequestData("GET", "/old/thing")
	st, err := pipeline.NewState(req, pipeline.StateOptions{})
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	defer st.Release()

	before := st.ArenaAllocated()
	out := m.Handle(context.Background(), ports.EarlyRequest, st)
	if out.Kind != ports.KindContinue || !out.Modified {
		t.Fatalf("outcome = %+v", out)
	}
	if req.Path != "/new/thing" {
		t.Fatalf("path = %q", req.Path)
	}
	if st.ArenaAllocated() <= before {
		t.Fatal("rewritten path should be parked in the arena")
	}
}

func TestRewriteIgnoresNonMatch(t *testing.T) {
	m, err := New(map[string]any{"pattern": `^/old/`, "replacement": "/new/"}, slog.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req := domain.NewRequestData("GET", "/other")
	st, err := pipeline.NewState(req, pipeline.StateOptions{})
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	defer st.Release()

	out := m.Handle(context.Background(), ports.EarlyRequest, st)
	if out.Kind != ports.KindContinue || out.Modified {
		t.Fatalf("outcome = %+v, want unmodified continue", out)
	}
	if req.Path != "/other" {
		t.Fatalf("path = %q, should be untouched", req.Path)
	}
}
