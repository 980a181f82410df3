package forwardedfor

import (
	"context"
	"log/slog"
	"testing"

	"github.com/oxproject/oxweb/internal/core/domain"
	"github.com/oxproject/oxweb/internal/core/ports"
	"github.com/oxproject/oxweb/internal/pipeline"
)

func run(t *testing.T, req *domain.RequestData) (*pipeline.State, ports.Outcome) {
	t.Helper()
	st, err := pipeline.NewState(req, pipeline.StateOptions{})
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	t.Cleanup(st.Release)
	out := New(slog.Default()).Handle(context.Background(), ports.EarlyRequest, st)
	return st, out
}

func TestRestoresFirstForwardedEntry(t *testing.T) {
	req := domain.NewRequestData("GET", "/")
	req.SourceAddr = "10.0.0.1:443"
	req.Headers.Add("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	st, out := run(t, req)
	if out.Kind != ports.KindContinue || !out.Modified {
		t.Fatalf("outcome = %+v", out)
	}
	if req.SourceAddr != "203.0.113.7" {
		t.Fatalf("source = %q", req.SourceAddr)
	}
	if peer := st.ContextFor(ModuleName)["peer_addr"]; peer != "10.0.0.1:443" {
		t.Fatalf("peer_addr = %v, transport address should be preserved", peer)
	}
}

func TestNoHeaderPassesThrough(t *testing.T) {
	req := domain.NewRequestData("GET", "/")
	req.SourceAddr = "10.0.0.1:443"

	_, out := run(t, req)
	if out.Kind != ports.KindContinue || out.Modified {
		t.Fatalf("outcome = %+v, want unmodified continue", out)
	}
	if req.SourceAddr != "10.0.0.1:443" {
		t.Fatalf("source = %q", req.SourceAddr)
	}
}

func TestBlankHeaderIgnored(t *testing.T) {
	req := domain.NewRequestData("GET", "/")
	req.Headers.Add("X-Forwarded-For", "  ,10.0.0.1")

	_, out := run(t, req)
	if out.Modified {
		t.Fatalf("outcome = %+v, blank client entry must not modify", out)
	}
}
