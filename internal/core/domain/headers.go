package domain

import "strings"

// Header is a single name/value pair.
type Header struct {
	Name  string
	Value string
}

// Headers is an insertion-ordered header list. Lookups are case-insensitive
// but the original spelling of each name is preserved for output, and
// duplicate names are kept in arrival order.
type Headers struct {
	entries []Header
}

// NewHeaders creates an empty header list.
func NewHeaders() *Headers {
	return &Headers{}
}

// Add appends a header, preserving duplicates.
func (h *Headers) Add(name, value string) {
	h.entries = append(h.entries, Header{Name: name, Value: value})
}

// Set replaces every header matching name with a single entry. The new
// entry keeps the caller's spelling and takes the position of the first
// match, or appends when the name is new.
func (h *Headers) Set(name, value string) {
	idx := -1
	kept := h.entries[:0]
	for _, e := range h.entries {
		if strings.EqualFold(e.Name, name) {
			if idx < 0 {
				idx = len(kept)
				kept = append(kept, Header{Name: name, Value: value})
			}
			continue
		}
		kept = append(kept, e)
	}
	h.entries = kept
	if idx < 0 {
		h.entries = append(h.entries, Header{Name: name, Value: value})
	}
}

// Get returns the first value for name, or "" when absent.
func (h *Headers) Get(name string) string {
	for _, e := range h.entries {
		if strings.EqualFold(e.Name, name) {
			return e.Value
		}
	}
	return ""
}

// Has reports whether at least one header matches name.
func (h *Headers) Has(name string) bool {
	for _, e := range h.entries {
		if strings.EqualFold(e.Name, name) {
			return true
		}
	}
	return false
}

// Values returns every value for name in arrival order.
func (h *Headers) Values(name string) []string {
	var vals []string
	for _, e := range h.entries {
		if strings.EqualFold(e.Name, name) {
			vals = append(vals, e.Value)
		}
	}
	return vals
}

// Del removes every header matching name.
func (h *Headers) Del(name string) {
	kept := h.entries[:0]
	for _, e := range h.entries {
		if !strings.EqualFold(e.Name, name) {
			kept = append(kept, e)
		}
	}
	h.entries = kept
}

// Len returns the number of entries.
func (h *Headers) Len() int { return len(h.entries) }

// All returns the entries in insertion order. The slice is shared; callers
// must not mutate it.
func (h *Headers) All() []Header { return h.entries }

// Clone returns a deep copy.
func (h *Headers) Clone() *Headers {
	c := &Headers{entries: make([]Header, len(h.entries))}
	copy(c.entries, h.entries)
	return c
}
