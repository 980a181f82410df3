package errorpage

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/oxproject/oxweb/internal/core/domain"
	"github.com/oxproject/oxweb/internal/core/ports"
	"github.com/oxproject/oxweb/internal/pipeline"
)

func newState(t *testing.T) *pipeline.State {
	t.Helper()
	st, err := pipeline.NewState(domain.NewRequestData("GET", "/"), pipeline.StateOptions{})
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	t.Cleanup(st.Release)
	return st
}

func TestRendersEmptyErrorResponse(t *testing.T) {
	st := newState(t)
	st.Response().SetStatus(404)

	out := New(slog.Default()).Handle(context.Background(), ports.ErrorHandling, st)
	if out.Kind != ports.KindContinue || !out.Modified {
		t.Fatalf("outcome = %+v", out)
	}

	var doc struct {
		Error struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(st.Response().Body(), &doc); err != nil {
		t.Fatalf("body %q: %v", st.Response().Body(), err)
	}
	if doc.Error.Status != 404 || doc.Error.Message != "Not Found" {
		t.Fatalf("doc = %+v", doc)
	}
	if ct := st.Response().Headers().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q", ct)
	}
}

func TestLeavesSuccessAlone(t *testing.T) {
	st := newState(t)

	out := New(slog.Default()).Handle(context.Background(), ports.ErrorHandling, st)
	if out.Modified {
		t.Fatalf("outcome = %+v, 200 must pass through", out)
	}
	if len(st.Response().Body()) != 0 {
		t.Fatal("body must stay empty")
	}
}

func TestLeavesExistingBodyAlone(t *testing.T) {
	st := newState(t)
	st.Response().SetStatus(500)
	st.Response().SetBody([]byte("custom error page"))

	out := New(slog.Default()).Handle(context.Background(), ports.ErrorHandling, st)
	if out.Modified {
		t.Fatalf("outcome = %+v", out)
	}
	if got := string(st.Response().Body()); got != "custom error page" {
		t.Fatalf("body = %q, existing content must win", got)
	}
}
