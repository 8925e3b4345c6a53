package workflow

import (
	"strings"
	"sync"
)

// Router persists the active tab as a URL hash fragment.
type Router interface {
	Hash() string
	Push(hash string)
	Replace(hash string)
}

// HashFor returns the fragment for a tab, e.g. "#client-12".
func HashFor(id TabID) string {
	return "#" + string(id)
}

// TabFromHash parses a fragment produced by HashFor.
func TabFromHash(hash string) TabID {
	return TabID(strings.TrimPrefix(hash, "#"))
}

// MemoryRouter is an in-process history stack with back/forward navigation.
type MemoryRouter struct {
	mu      sync.Mutex
	entries []string
	pos     int
}

// NewMemoryRouter creates a router whose history starts at initial.
func NewMemoryRouter(initial string) *MemoryRouter {
	return &MemoryRouter{entries: []string{initial}}
}

// Hash returns the current history entry.
func (r *MemoryRouter) Hash() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[r.pos]
}

// Push adds a history entry and discards any forward history.
func (r *MemoryRouter) Push(hash string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[r.pos] == hash {
		return
	}
	r.entries = append(r.entries[:r.pos+1], hash)
	r.pos++
}

// Replace overwrites the current history entry.
func (r *MemoryRouter) Replace(hash string) {
	r.mu.Lock()
	r.entries[r.pos] = hash
	r.mu.Unlock()
}

// Back moves one entry back and returns the new hash.
func (r *MemoryRouter) Back() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pos == 0 {
		return "", false
	}
	r.pos--
	return r.entries[r.pos], true
}

// Forward moves one entry forward and returns the new hash.
func (r *MemoryRouter) Forward() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pos >= len(r.entries)-1 {
		return "", false
	}
	r.pos++
	return r.entries[r.pos], true
}
