// Package arena implements a bump allocator scoped to a single request.
//
// Allocation advances a monotonic cursor through a chunked byte region.
// There is no per-allocation free: the whole arena is invalidated at once
// by Reset when the owning pipeline state is destroyed. This trades
// fine-grained reclaim for allocation speed, which is valid here because
// every allocation's lifetime equals the request's lifetime.
package arena

import (
	"errors"
	"sync/atomic"
	"unsafe"
)

// ErrOutOfArenaMemory is returned when a fixed-capacity arena is exhausted.
// It is fatal to the current request only.
var ErrOutOfArenaMemory = errors.New("arena: out of memory")

// GrowthPolicy controls what happens when the active chunk is exhausted.
type GrowthPolicy int

const (
	// Chunked appends a new chunk and keeps allocating.
	Chunked GrowthPolicy = iota
	// Fixed fails with ErrOutOfArenaMemory once the initial chunk is full.
	Fixed
)

// DefaultChunkSize is the capacity of the first chunk when none is configured.
const DefaultChunkSize = 4096

// Options configures a new Arena.
type Options struct {
	// ChunkSize is the capacity of the initial chunk. Zero means DefaultChunkSize.
	ChunkSize int
	// Policy selects Chunked growth (default) or Fixed capacity.
	Policy GrowthPolicy
	// ZeroOnReset scrubs all chunks during Reset so a reused arena can never
	// leak a previous request's bytes. Off by default; tests and debug
	// builds turn it on.
	ZeroOnReset bool
}

// Arena is a monotonic bump allocator. It is not safe for concurrent use;
// each pipeline state owns exactly one and the executor guarantees a single
// goroutine touches it at a time.
type Arena struct {
	chunks    [][]byte
	off       int // cursor into the active (last) chunk
	chunkSize int
	policy    GrowthPolicy
	zero      bool

	generation uint64
	allocated  atomic.Int64 // total bytes handed out since last Reset
}

// New creates an arena with one chunk of the configured capacity.
func New(opts Options) *Arena {
	size := opts.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	a := &Arena{
		chunks:    [][]byte{make([]byte, size)},
		chunkSize: size,
		policy:    opts.Policy,
		zero:      opts.ZeroOnReset,
	}
	return a
}

// Alloc carves size bytes aligned to align out of the arena and advances the
// cursor. The returned slice has len == cap == size so appends cannot bleed
// into a neighbouring allocation. align must be a power of two; zero means 1.
func (a *Arena) Alloc(size, align int) ([]byte, error) {
	if size < 0 {
		panic("arena: negative allocation size")
	}
	if align <= 0 {
		align = 1
	}
	if align&(align-1) != 0 {
		panic("arena: alignment must be a power of two")
	}

	cur := a.chunks[len(a.chunks)-1]
	off := (a.off + align - 1) &^ (align - 1)
	if off+size > len(cur) {
		if a.policy == Fixed {
			return nil, ErrOutOfArenaMemory
		}
		next := a.chunkSize
		for next < size+align {
			next *= 2
		}
		cur = make([]byte, next)
		a.chunks = append(a.chunks, cur)
		off = 0
	}
	a.off = off + size
	a.allocated.Add(int64(size))
	return cur[off:a.off:a.off], nil
}

// Copy allocates a byte-aligned region and copies b into it.
func (a *Arena) Copy(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, nil
	}
	dst, err := a.Alloc(len(b), 1)
	if err != nil {
		return nil, err
	}
	copy(dst, b)
	return dst, nil
}

// CopyString allocates a copy of s inside the arena and returns it as a
// string aliasing arena memory. The result must not outlive the arena:
// after Reset the bytes behind it are recycled.
func (a *Arena) CopyString(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	dst, err := a.Alloc(len(s), 1)
	if err != nil {
		return "", err
	}
	copy(dst, s)
	return unsafe.String(&dst[0], len(dst)), nil
}

// Reset invalidates all prior allocations and restores the cursor to empty.
// Overflow chunks are released; the initial chunk is retained for reuse.
// The caller must guarantee no live references remain: the arena performs
// no reference counting. Each Reset bumps the generation so debug handles
// taken before the reset can be detected as stale.
func (a *Arena) Reset() {
	if a.zero {
		for _, c := range a.chunks {
			clear(c)
		}
	}
	a.chunks = a.chunks[:1]
	a.off = 0
	a.generation++
	a.allocated.Store(0)
}

// Allocated reports the total bytes handed out since the last Reset.
func (a *Arena) Allocated() int64 { return a.allocated.Load() }

// Generation returns the reset counter. A handle stamped with an older
// generation refers to memory that has since been recycled.
func (a *Arena) Generation() uint64 { return a.generation }

// Chunks reports how many chunks back the arena, useful for sizing the
// initial capacity from observed traffic.
func (a *Arena) Chunks() int { return len(a.chunks) }
