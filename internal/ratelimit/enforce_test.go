package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnforcer wires an enforcer, its consumer, and store to one controllable
// clock.
func testEnforcer(policies *PolicyTable) (*Enforcer, *MemoryStore, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	fw := NewFixedWindow(store)
	fw.now = func() time.Time { return now }
	e := NewEnforcer(fw, policies)
	e.now = fw.now
	return e, store, &now
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/profile", nil)
	r.Header.Set("X-Forwarded-For", " 203.0.113.50 , 70.41.3.18")
	assert.Equal(t, "203.0.113.50", ClientIP(r))

	r = httptest.NewRequest("GET", "/api/profile", nil)
	r.Header.Set("X-Real-IP", "203.0.113.60")
	assert.Equal(t, "203.0.113.60", ClientIP(r))

	// X-Forwarded-For wins over X-Real-IP.
	r = httptest.NewRequest("GET", "/api/profile", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.50")
	r.Header.Set("X-Real-IP", "203.0.113.60")
	assert.Equal(t, "203.0.113.50", ClientIP(r))

	r = httptest.NewRequest("GET", "/api/profile", nil)
	assert.Equal(t, UnknownIP, ClientIP(r))
}

func TestEnforcer_AllowsUnderCap(t *testing.T) {
	e, _, _ := testEnforcer(NewPolicyTable(0, 0, 0))

	r := httptest.NewRequest("GET", "/api/profile", nil)
	r.Header.Set("X-Forwarded-For", "1.2.3.4")

	verdict := e.Enforce(context.Background(), r, "")
	assert.True(t, verdict.Allowed)
	assert.Zero(t, verdict.RetryAfter)
}

func TestEnforcer_UnknownIPsSharePool(t *testing.T) {
	e, _, _ := testEnforcer(NewPolicyTable(3, 0, 0))

	// No forwarded headers: every unidentifiable client lands in the same
	// shared quota rather than being exempted.
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest("POST", "/api/tryon/generate", nil)
		verdict := e.Enforce(context.Background(), r, "")
		require.True(t, verdict.Allowed, "request %d", i+1)
	}

	r := httptest.NewRequest("POST", "/api/tryon/generate", nil)
	verdict := e.Enforce(context.Background(), r, "")
	assert.False(t, verdict.Allowed)
	assert.Equal(t, BucketTryon, verdict.Bucket)
}

func TestEnforcer_UserCheckDeniesDespiteFreshIP(t *testing.T) {
	e, _, _ := testEnforcer(NewPolicyTable(0, 0, 0))

	// Spread 20 login attempts for one user over several IPs so no single
	// IP hits its cap of 10, exhausting the per-user cap of 20.
	for i := 0; i < 20; i++ {
		r := httptest.NewRequest("POST", "/api/auth/login", nil)
		r.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i%4+1))
		verdict := e.Enforce(context.Background(), r, "user-1")
		require.True(t, verdict.Allowed, "request %d", i+1)
	}

	r := httptest.NewRequest("POST", "/api/auth/login", nil)
	r.Header.Set("X-Forwarded-For", "10.0.0.99")
	verdict := e.Enforce(context.Background(), r, "user-1")
	assert.False(t, verdict.Allowed, "user dimension must deny even from a fresh IP")
	assert.Equal(t, BucketAuth, verdict.Bucket)
}

func TestEnforcer_IPCheckDeniesDespiteFreshUser(t *testing.T) {
	e, _, _ := testEnforcer(NewPolicyTable(0, 0, 0))

	for i := 0; i < 10; i++ {
		r := httptest.NewRequest("POST", "/api/auth/login", nil)
		r.Header.Set("X-Forwarded-For", "10.0.0.1")
		verdict := e.Enforce(context.Background(), r, "")
		require.True(t, verdict.Allowed, "request %d", i+1)
	}

	r := httptest.NewRequest("POST", "/api/auth/login", nil)
	r.Header.Set("X-Forwarded-For", "10.0.0.1")
	verdict := e.Enforce(context.Background(), r, "fresh-user")
	assert.False(t, verdict.Allowed, "IP dimension must deny even for a fresh user")
}

func TestEnforcer_AnonymousSkipsUserDimension(t *testing.T) {
	e, store, _ := testEnforcer(NewPolicyTable(0, 0, 0))

	r := httptest.NewRequest("GET", "/api/profile", nil)
	r.Header.Set("X-Forwarded-For", "1.2.3.4")
	e.Enforce(context.Background(), r, "")

	assert.Equal(t, 1, store.Len(), "anonymous requests must only create the IP-keyed entry")
	_, ok := store.Get("ip:1.2.3.4:read:GET")
	assert.True(t, ok)
}

func TestEnforcer_HourlyTierDeniesIndependently(t *testing.T) {
	// Minute cap high enough that only the hourly IP ceiling of 5 can fire.
	e, _, _ := testEnforcer(NewPolicyTable(10, 18, 5))

	for i := 0; i < 5; i++ {
		r := httptest.NewRequest("POST", "/api/tryon/generate", nil)
		r.Header.Set("X-Forwarded-For", "1.2.3.4")
		verdict := e.Enforce(context.Background(), r, "user-1")
		require.True(t, verdict.Allowed, "request %d", i+1)
	}

	r := httptest.NewRequest("POST", "/api/tryon/generate", nil)
	r.Header.Set("X-Forwarded-For", "1.2.3.4")
	verdict := e.Enforce(context.Background(), r, "user-1")
	assert.False(t, verdict.Allowed)
	assert.Equal(t, "tryon-hour", verdict.Bucket, "hourly tier must be tagged distinctly")
	assert.Equal(t, 3600, verdict.RetryAfter)
}

func TestEnforcer_HourlyTierOnlyAppliesToTryon(t *testing.T) {
	e, store, _ := testEnforcer(NewPolicyTable(0, 0, 0))

	r := httptest.NewRequest("POST", "/api/ads/generate", nil)
	r.Header.Set("X-Forwarded-For", "1.2.3.4")
	e.Enforce(context.Background(), r, "user-1")

	_, ok := store.Get("ip:1.2.3.4:ai:hour")
	assert.False(t, ok, "non-tryon buckets must not create hourly entries")
}

func TestEnforcer_DenyReportsLatestReset(t *testing.T) {
	e, store, now := testEnforcer(NewPolicyTable(0, 0, 0))

	// Both dimensions full, with different reset times: the verdict carries
	// the later one so the client waits out the longer window.
	store.Set("ip:1.2.3.4:read:GET", WindowState{Count: 120, ResetAt: now.Add(10 * time.Second)})
	store.Set("uid:user-1:read:GET", WindowState{Count: 240, ResetAt: now.Add(40 * time.Second)})

	r := httptest.NewRequest("GET", "/api/profile", nil)
	r.Header.Set("X-Forwarded-For", "1.2.3.4")
	verdict := e.Enforce(context.Background(), r, "user-1")

	require.False(t, verdict.Allowed)
	assert.Equal(t, now.Add(40*time.Second), verdict.ResetAt)
	assert.Equal(t, 40, verdict.RetryAfter)
}

func TestEnforcer_RetryAfterFlooredAtOne(t *testing.T) {
	e, store, now := testEnforcer(NewPolicyTable(0, 0, 0))

	store.Set("ip:1.2.3.4:read:GET", WindowState{Count: 120, ResetAt: now.Add(100 * time.Millisecond)})

	r := httptest.NewRequest("GET", "/api/profile", nil)
	r.Header.Set("X-Forwarded-For", "1.2.3.4")
	verdict := e.Enforce(context.Background(), r, "")

	require.False(t, verdict.Allowed)
	assert.Equal(t, 1, verdict.RetryAfter)
}

func TestEnforcer_MethodsCountedSeparately(t *testing.T) {
	e, store, _ := testEnforcer(NewPolicyTable(0, 0, 0))

	r := httptest.NewRequest("PATCH", "/api/profile", nil)
	r.Header.Set("X-Forwarded-For", "1.2.3.4")
	e.Enforce(context.Background(), r, "")

	r = httptest.NewRequest("DELETE", "/api/profile", nil)
	r.Header.Set("X-Forwarded-For", "1.2.3.4")
	e.Enforce(context.Background(), r, "")

	_, patchOK := store.Get("ip:1.2.3.4:write:PATCH")
	_, deleteOK := store.Get("ip:1.2.3.4:write:DELETE")
	assert.True(t, patchOK)
	assert.True(t, deleteOK)
}

// failingConsumer simulates a networked consumer whose backend is down.
type failingConsumer struct{}

func (failingConsumer) Consume(context.Context, string, int, time.Duration) (Result, error) {
	return Result{}, errors.New("connection refused")
}

func (failingConsumer) Close() error { return nil }

func TestEnforcer_FailsOpenOnConsumerError(t *testing.T) {
	e := NewEnforcer(failingConsumer{}, NewPolicyTable(0, 0, 0))

	r := httptest.NewRequest("POST", "/api/tryon/generate", nil)
	r.Header.Set("X-Forwarded-For", "1.2.3.4")
	verdict := e.Enforce(context.Background(), r, "user-1")

	assert.True(t, verdict.Allowed, "a store outage must not reject legitimate traffic")
}
