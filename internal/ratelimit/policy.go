package ratelimit

import (
	"os"
	"strconv"
	"time"
)

// Limits are the quota parameters for one bucket. MaxPerUser >= MaxPerIP is a
// deliberate convention: a single user behind NAT with several IPs should not
// be punished harder than an anonymous caller. The try-on bucket is the
// intentional exception, with symmetric caps, because it fronts the most
// expensive operation in the system.
type Limits struct {
	Window     time.Duration
	MaxPerIP   int
	MaxPerUser int
}

// HourlyLimits are the second-tier ceilings applied to the try-on bucket.
type HourlyLimits struct {
	MaxPerIP   int
	MaxPerUser int
}

// Default try-on caps, overridable via config and environment.
const (
	DefaultTryonPerMinute     = 3
	DefaultTryonPerUserHourly = 18
	DefaultTryonPerIPHourly   = 24
)

// Environment variables consulted on every policy lookup, so the try-on caps
// can be retuned on a running process.
const (
	EnvTryonPerMinute     = "GATEKEEPER_TRYON_PER_MINUTE"
	EnvTryonPerUserHourly = "GATEKEEPER_TRYON_PER_USER_HOURLY"
	EnvTryonPerIPHourly   = "GATEKEEPER_TRYON_PER_IP_HOURLY"
)

// PolicyTable maps buckets to quota parameters. All caps other than the
// try-on ones are fixed; the try-on caps fall back to the configured values
// when the corresponding environment variable is unset.
type PolicyTable struct {
	tryonPerMinute     int
	tryonPerUserHourly int
	tryonPerIPHourly   int
}

// NewPolicyTable creates a policy table with the given try-on fallback caps.
// Zero or negative values select the defaults.
func NewPolicyTable(tryonPerMinute, tryonPerUserHourly, tryonPerIPHourly int) *PolicyTable {
	if tryonPerMinute <= 0 {
		tryonPerMinute = DefaultTryonPerMinute
	}
	if tryonPerUserHourly <= 0 {
		tryonPerUserHourly = DefaultTryonPerUserHourly
	}
	if tryonPerIPHourly <= 0 {
		tryonPerIPHourly = DefaultTryonPerIPHourly
	}
	return &PolicyTable{
		tryonPerMinute:     tryonPerMinute,
		tryonPerUserHourly: tryonPerUserHourly,
		tryonPerIPHourly:   tryonPerIPHourly,
	}
}

// LimitsFor returns the quota parameters for one bucket. The method parameter
// is part of the contract for future method-specific policies; today every
// bucket applies the same caps to all methods. Queried fresh per request so
// environment overrides take effect without a restart.
func (p *PolicyTable) LimitsFor(bucket, method string) Limits {
	switch bucket {
	case BucketAuth:
		// Tight: the primary defense against credential stuffing and
		// account enumeration.
		return Limits{Window: time.Minute, MaxPerIP: 10, MaxPerUser: 20}
	case BucketTryon:
		n := envInt(EnvTryonPerMinute, p.tryonPerMinute)
		return Limits{Window: time.Minute, MaxPerIP: n, MaxPerUser: n}
	case BucketAI:
		return Limits{Window: time.Minute, MaxPerIP: 20, MaxPerUser: 30}
	case BucketWrite:
		return Limits{Window: time.Minute, MaxPerIP: 60, MaxPerUser: 120}
	default:
		return Limits{Window: time.Minute, MaxPerIP: 120, MaxPerUser: 240}
	}
}

// TryonHourly returns the hourly-tier ceilings for the try-on bucket.
func (p *PolicyTable) TryonHourly() HourlyLimits {
	return HourlyLimits{
		MaxPerIP:   envInt(EnvTryonPerIPHourly, p.tryonPerIPHourly),
		MaxPerUser: envInt(EnvTryonPerUserHourly, p.tryonPerUserHourly),
	}
}

func envInt(name string, fallback int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
