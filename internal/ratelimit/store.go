package ratelimit

import "time"

// WindowState is the counter for one key in its current fixed window. It is
// created on the first request for a key, incremented by every allowed request
// until the window expires, and replaced by a fresh window on the first
// request after ResetAt.
type WindowState struct {
	Count   int
	ResetAt time.Time
}

// Expired reports whether the window has rolled over at time now. An expired
// entry is treated as absent.
func (s WindowState) Expired(now time.Time) bool {
	return !s.ResetAt.After(now)
}

// Store is the keyed counter storage behind the fixed-window consumer. The
// default is an in-process map; a networked implementation can be substituted
// for deployments that need shared quotas across instances. Implementations
// are not required to be safe for concurrent use on their own: FixedWindow
// serializes all access.
type Store interface {
	Get(key string) (WindowState, bool)
	Set(key string, state WindowState)
	Delete(key string)
	Len() int

	// Range calls fn for each entry until fn returns false. Iteration order
	// is unspecified, and fn may delete the entry it was called with.
	Range(fn func(key string, state WindowState) bool)
}

// MemoryStore is a map-backed Store. Counter state lives for the process
// lifetime; horizontally scaled deployments each enforce their own quota,
// multiplying the effective limit by instance count. Use the Redis-backed
// consumer when that matters.
type MemoryStore struct {
	entries map[string]WindowState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]WindowState)}
}

func (m *MemoryStore) Get(key string) (WindowState, bool) {
	state, ok := m.entries[key]
	return state, ok
}

func (m *MemoryStore) Set(key string, state WindowState) {
	m.entries[key] = state
}

func (m *MemoryStore) Delete(key string) {
	delete(m.entries, key)
}

func (m *MemoryStore) Len() int {
	return len(m.entries)
}

func (m *MemoryStore) Range(fn func(key string, state WindowState) bool) {
	for key, state := range m.entries {
		if !fn(key, state) {
			return
		}
	}
}
