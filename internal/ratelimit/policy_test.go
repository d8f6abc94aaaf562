package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicyTable_FixedBuckets(t *testing.T) {
	p := NewPolicyTable(0, 0, 0)

	tests := []struct {
		bucket     string
		maxPerIP   int
		maxPerUser int
	}{
		{BucketAuth, 10, 20},
		{BucketAI, 20, 30},
		{BucketWrite, 60, 120},
		{BucketRead, 120, 240},
	}

	for _, tt := range tests {
		limits := p.LimitsFor(tt.bucket, "POST")
		assert.Equal(t, time.Minute, limits.Window, tt.bucket)
		assert.Equal(t, tt.maxPerIP, limits.MaxPerIP, tt.bucket)
		assert.Equal(t, tt.maxPerUser, limits.MaxPerUser, tt.bucket)
	}
}

func TestPolicyTable_TryonDefaults(t *testing.T) {
	p := NewPolicyTable(0, 0, 0)

	limits := p.LimitsFor(BucketTryon, "POST")
	assert.Equal(t, time.Minute, limits.Window)
	assert.Equal(t, DefaultTryonPerMinute, limits.MaxPerIP)
	assert.Equal(t, DefaultTryonPerMinute, limits.MaxPerUser, "tryon caps are intentionally symmetric")

	hourly := p.TryonHourly()
	assert.Equal(t, DefaultTryonPerIPHourly, hourly.MaxPerIP)
	assert.Equal(t, DefaultTryonPerUserHourly, hourly.MaxPerUser)
}

func TestPolicyTable_TryonConfiguredFallbacks(t *testing.T) {
	p := NewPolicyTable(5, 30, 40)

	limits := p.LimitsFor(BucketTryon, "POST")
	assert.Equal(t, 5, limits.MaxPerIP)

	hourly := p.TryonHourly()
	assert.Equal(t, 40, hourly.MaxPerIP)
	assert.Equal(t, 30, hourly.MaxPerUser)
}

func TestPolicyTable_TryonEnvOverride(t *testing.T) {
	p := NewPolicyTable(0, 0, 0)

	t.Setenv(EnvTryonPerMinute, "7")
	t.Setenv(EnvTryonPerUserHourly, "50")
	t.Setenv(EnvTryonPerIPHourly, "60")

	// Consulted per lookup, so the override takes effect immediately on a
	// table built before the variables were set.
	limits := p.LimitsFor(BucketTryon, "POST")
	assert.Equal(t, 7, limits.MaxPerIP)
	assert.Equal(t, 7, limits.MaxPerUser)

	hourly := p.TryonHourly()
	assert.Equal(t, 60, hourly.MaxPerIP)
	assert.Equal(t, 50, hourly.MaxPerUser)
}

func TestPolicyTable_IgnoresInvalidEnvValues(t *testing.T) {
	p := NewPolicyTable(0, 0, 0)

	t.Setenv(EnvTryonPerMinute, "not-a-number")
	assert.Equal(t, DefaultTryonPerMinute, p.LimitsFor(BucketTryon, "POST").MaxPerIP)

	t.Setenv(EnvTryonPerMinute, "-3")
	assert.Equal(t, DefaultTryonPerMinute, p.LimitsFor(BucketTryon, "POST").MaxPerIP)

	t.Setenv(EnvTryonPerMinute, "0")
	assert.Equal(t, DefaultTryonPerMinute, p.LimitsFor(BucketTryon, "POST").MaxPerIP)
}

func TestPolicyTable_UserCapNeverBelowIPCap(t *testing.T) {
	p := NewPolicyTable(0, 0, 0)

	// A single user behind NAT must not be punished harder than an
	// anonymous caller.
	for _, bucket := range []string{BucketAuth, BucketTryon, BucketAI, BucketWrite, BucketRead} {
		limits := p.LimitsFor(bucket, "POST")
		assert.GreaterOrEqual(t, limits.MaxPerUser, limits.MaxPerIP, bucket)
	}
}
