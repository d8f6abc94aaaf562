package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Eviction thresholds for the backing store. Sweeping only starts once the
// store holds evictHighWater entries and stops as soon as it drops below
// evictLowWater, bounding the sweep's own cost on the hot path.
const (
	evictHighWater = 5000
	evictLowWater  = 3000
)

// FixedWindow is a Consumer that applies fixed-window accounting over a Store.
// A single mutex is held across the whole read-modify-write, so two concurrent
// requests for the same key cannot both slip under the cap.
type FixedWindow struct {
	mu    sync.Mutex
	store Store
	now   func() time.Time
}

// NewFixedWindow creates a fixed-window consumer over the given store.
func NewFixedWindow(store Store) *FixedWindow {
	return &FixedWindow{
		store: store,
		now:   time.Now,
	}
}

// Consume applies one request to the window for key. The first request for a
// key, or the first after the previous window expired, opens a fresh window
// with count 1. A full window leaves the counter untouched.
func (f *FixedWindow) Consume(_ context.Context, key string, max int, window time.Duration) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	f.maybeEvict(now)

	state, ok := f.store.Get(key)
	if !ok || state.Expired(now) {
		state = WindowState{Count: 1, ResetAt: now.Add(window)}
		f.store.Set(key, state)
		return Result{Allowed: true, Remaining: max - 1, ResetAt: state.ResetAt}, nil
	}

	if state.Count >= max {
		return Result{Allowed: false, Remaining: 0, ResetAt: state.ResetAt}, nil
	}

	state.Count++
	f.store.Set(key, state)
	return Result{Allowed: true, Remaining: max - state.Count, ResetAt: state.ResetAt}, nil
}

// Close implements Consumer. The in-memory consumer holds no resources.
func (f *FixedWindow) Close() error {
	return nil
}

// maybeEvict reclaims expired entries once the store has grown past the
// high-water mark. Best effort: a flood of distinct still-active keys can keep
// the store above the mark, but stale entries are eventually reclaimed under
// load while the common path stays O(1).
func (f *FixedWindow) maybeEvict(now time.Time) {
	if f.store.Len() < evictHighWater {
		return
	}
	f.store.Range(func(key string, state WindowState) bool {
		if state.Expired(now) {
			f.store.Delete(key)
		}
		return f.store.Len() >= evictLowWater
	})
}
