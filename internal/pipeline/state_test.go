package pipeline

import (
	"bytes"
	"testing"

	"github.com/oxproject/oxweb/internal/arena"
	"github.com/oxproject/oxweb/internal/core/domain"
)

func TestNewState_CopiesBodyIntoArena(t *testing.T) {
	original := []byte("request body")
	req := domain.NewRequestData("POST", "/submit")
	req.Body = original

	st, err := NewState(req, StateOptions{})
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}

	if !bytes.Equal(st.Request().Body, original) {
		t.Errorf("body = %q, want %q", st.Request().Body, original)
	}
	if &st.Request().Body[0] == &original[0] {
		t.Error("body was borrowed, expected an arena copy")
	}
	if st.ArenaAllocated() != int64(len(original)) {
		t.Errorf("arena allocated = %d, want %d", st.ArenaAllocated(), len(original))
	}
}

func TestContextFor_SlotsAreLazyAndPrivate(t *testing.T) {
	st := newTestState(t, domain.NewRequestData("GET", "/"))

	a := st.ContextFor("mod-a")
	a["counter"] = 1

	b := st.ContextFor("mod-b")
	if _, ok := b["counter"]; ok {
		t.Error("module slots must not be shared")
	}

	again := st.ContextFor("mod-a")
	if again["counter"] != 1 {
		t.Error("slot did not persist across accesses within the request")
	}
}

func TestModified_LatchIsMonotonic(t *testing.T) {
	st := newTestState(t, domain.NewRequestData("GET", "/"))

	if st.Modified() {
		t.Fatal("fresh state must not be modified")
	}
	st.SetModified()
	st.SetModified()
	if !st.Modified() {
		t.Error("latch lost")
	}
}

func TestRelease_IsIdempotent(t *testing.T) {
	st := newTestState(t, domain.NewRequestData("GET", "/"))
	st.ContextFor("mod")["k"] = "v"

	st.Release()
	if !st.Released() {
		t.Fatal("Released() false after Release")
	}
	st.Release() // second call must be a no-op, not a double-free

	if st.ArenaAllocated() != 0 {
		t.Errorf("arena not reset: %d bytes still accounted", st.ArenaAllocated())
	}
}

func TestRelease_FreshStateSeesNoResidue(t *testing.T) {
	opts := StateOptions{Arena: arena.Options{ChunkSize: 64, ZeroOnReset: true}}

	req := domain.NewRequestData("POST", "/")
	req.Body = []byte("secret payload")
	st, err := NewState(req, opts)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	st.Release()

	// A new request over a fresh state must never observe prior bytes.
	st2, err := NewState(domain.NewRequestData("GET", "/"), opts)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	buf, err := st2.Alloc(14, 1)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	for i, c := range buf {
		if c != 0 {
			t.Fatalf("byte %d = %q, expected zero-filled fresh allocation", i, c)
		}
	}
}

func TestState_IDsAreUnique(t *testing.T) {
	a := newTestState(t, domain.NewRequestData("GET", "/"))
	b := newTestState(t, domain.NewRequestData("GET", "/"))
	if a.ID() == b.ID() {
		t.Error("two states share an ID")
	}
}
