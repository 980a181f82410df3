package arena

import (
	"bytes"
	"errors"
	"testing"
)

func TestAlloc_AdvancesCursor(t *testing.T) {
	a := New(Options{ChunkSize: 64})

	first, err := a.Alloc(8, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := a.Alloc(8, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != 8 || len(second) != 8 {
		t.Fatalf("expected 8-byte slices, got %d and %d", len(first), len(second))
	}
	if &first[0] == &second[0] {
		t.Error("expected distinct regions for consecutive allocations")
	}
	if got := a.Allocated(); got != 16 {
		t.Errorf("expected 16 bytes allocated, got %d", got)
	}
}

func TestAlloc_Alignment(t *testing.T) {
	a := New(Options{ChunkSize: 128})

	if _, err := a.Alloc(3, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := a.Alloc(8, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The cursor was at 3; an 8-aligned allocation must start at offset 8.
	if a.off != 16 {
		t.Errorf("expected cursor at 16 after aligned alloc, got %d", a.off)
	}
	if len(b) != 8 {
		t.Errorf("expected 8-byte slice, got %d", len(b))
	}
}

func TestAlloc_CapIsClamped(t *testing.T) {
	a := New(Options{ChunkSize: 64})

	b, err := a.Alloc(4, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cap(b) != 4 {
		t.Errorf("expected cap clamped to 4, got %d", cap(b))
	}
}

func TestAlloc_FixedPolicyExhaustion(t *testing.T) {
	a := New(Options{ChunkSize: 16, Policy: Fixed})

	if _, err := a.Alloc(16, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := a.Alloc(1, 1)
	if !errors.Is(err, ErrOutOfArenaMemory) {
		t.Fatalf("expected ErrOutOfArenaMemory, got %v", err)
	}
}

func TestAlloc_ChunkedGrowth(t *testing.T) {
	a := New(Options{ChunkSize: 16})

	if _, err := a.Alloc(16, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	big, err := a.Alloc(100, 1)
	if err != nil {
		t.Fatalf("expected chunked arena to grow, got %v", err)
	}
	if len(big) != 100 {
		t.Errorf("expected 100-byte slice, got %d", len(big))
	}
	if a.Chunks() != 2 {
		t.Errorf("expected 2 chunks, got %d", a.Chunks())
	}
}

func TestReset_NoResidualData(t *testing.T) {
	a := New(Options{ChunkSize: 32, ZeroOnReset: true})

	b, err := a.Copy([]byte("previous request secret"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(b, []byte("previous request secret")) {
		t.Fatal("copy did not round-trip")
	}

	a.Reset()

	fresh, err := a.Alloc(23, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range fresh {
		if c != 0 {
			t.Fatalf("byte %d of fresh allocation is %q, expected zero", i, c)
		}
	}
}

func TestReset_BumpsGenerationAndReleasesOverflow(t *testing.T) {
	a := New(Options{ChunkSize: 8})

	if _, err := a.Alloc(64, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Chunks() != 2 {
		t.Fatalf("expected overflow chunk, got %d chunks", a.Chunks())
	}
	gen := a.Generation()

	a.Reset()

	if a.Chunks() != 1 {
		t.Errorf("expected overflow chunks released, got %d", a.Chunks())
	}
	if a.Generation() != gen+1 {
		t.Errorf("expected generation %d, got %d", gen+1, a.Generation())
	}
	if a.Allocated() != 0 {
		t.Errorf("expected allocation counter reset, got %d", a.Allocated())
	}
}

func TestCopyString(t *testing.T) {
	a := New(Options{})

	s, err := a.CopyString("hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != "hello" {
		t.Errorf("expected %q, got %q", "hello", s)
	}

	empty, err := a.CopyString("")
	if err != nil || empty != "" {
		t.Errorf("expected empty string with nil error, got %q, %v", empty, err)
	}
}
