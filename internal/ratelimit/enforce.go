package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"
)

// UnknownIP pools every request with no derivable client IP into one shared
// quota. Unidentifiable clients share a bucket rather than being exempted,
// the safer default for an abuse-prevention component.
const UnknownIP = "unknown"

// Verdict is the outcome of one enforcement pass. A zero RetryAfter with
// Allowed true means continue to the protected handler.
type Verdict struct {
	Allowed    bool
	Bucket     string    // bucket that denied, hourly tier suffixed "-hour"
	ResetAt    time.Time // latest reset among the denying checks
	RetryAfter int       // whole seconds until ResetAt, at least 1
}

// Enforcer combines the classifier, policy table, and window consumer into a
// per-request admission decision. Requests are counted under two independent
// identity dimensions, client IP and authenticated user, and both must pass.
// The try-on bucket additionally runs a second pair of checks against hourly
// ceilings: the minute and hour tiers are independent, and either alone can
// deny.
type Enforcer struct {
	consumer Consumer
	policies *PolicyTable
	now      func() time.Time
}

// NewEnforcer creates an enforcer over the given consumer and policy table.
func NewEnforcer(consumer Consumer, policies *PolicyTable) *Enforcer {
	return &Enforcer{
		consumer: consumer,
		policies: policies,
		now:      time.Now,
	}
}

// ClientIP extracts the client IP from forwarded headers: the first
// comma-separated entry of X-Forwarded-For, else X-Real-IP, else UnknownIP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return UnknownIP
}

type check struct {
	key string
	max int
}

// Enforce runs one admission pass for the request. An empty userID means the
// caller is anonymous and only the IP dimension is counted.
func (e *Enforcer) Enforce(ctx context.Context, r *http.Request, userID string) Verdict {
	ip := ClientIP(r)
	bucket := Classify(r.URL.Path, r.Method)
	limits := e.policies.LimitsFor(bucket, r.Method)

	checks := []check{
		{key: fmt.Sprintf("ip:%s:%s:%s", ip, bucket, r.Method), max: limits.MaxPerIP},
	}
	if userID != "" {
		checks = append(checks, check{key: fmt.Sprintf("uid:%s:%s:%s", userID, bucket, r.Method), max: limits.MaxPerUser})
	}
	if denied, resetAt := e.run(ctx, checks, limits.Window); denied {
		return e.deny(bucket, resetAt)
	}

	if bucket == BucketTryon {
		hourly := e.policies.TryonHourly()
		checks = []check{
			{key: fmt.Sprintf("ip:%s:%s:hour", ip, bucket), max: hourly.MaxPerIP},
		}
		if userID != "" {
			checks = append(checks, check{key: fmt.Sprintf("uid:%s:%s:hour", userID, bucket), max: hourly.MaxPerUser})
		}
		// Quota already consumed by the minute tier is not refunded when the
		// hourly tier denies.
		if denied, resetAt := e.run(ctx, checks, time.Hour); denied {
			return e.deny(bucket+"-hour", resetAt)
		}
	}

	return Verdict{Allowed: true}
}

// run consumes every check and reports whether any denied, with the latest
// reset time among the denying checks. All checks run even after a denial so
// each dimension's window advances independently of the others.
func (e *Enforcer) run(ctx context.Context, checks []check, window time.Duration) (bool, time.Time) {
	var denied bool
	var resetAt time.Time
	for _, c := range checks {
		res, err := e.consumer.Consume(ctx, c.key, c.max, window)
		if err != nil {
			// A networked consumer can fail in transit. Fail open rather
			// than reject legitimate traffic on a store outage.
			slog.Error("rate limit check failed", "key", c.key, "error", err)
			continue
		}
		if !res.Allowed {
			denied = true
			if res.ResetAt.After(resetAt) {
				resetAt = res.ResetAt
			}
		}
	}
	return denied, resetAt
}

func (e *Enforcer) deny(bucket string, resetAt time.Time) Verdict {
	retry := int(math.Ceil(resetAt.Sub(e.now()).Seconds()))
	if retry < 1 {
		retry = 1
	}
	return Verdict{Bucket: bucket, ResetAt: resetAt, RetryAfter: retry}
}
