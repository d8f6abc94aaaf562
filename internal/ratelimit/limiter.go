// Package ratelimit implements admission control for the gateway using
// fixed-window counters. Incoming requests are classified into named buckets,
// counted independently per client IP and per authenticated user, and the
// try-on bucket carries an additional hourly ceiling on top of the per-minute
// one. The package includes HTTP middleware that turns a denial into a 429
// response with machine-readable retry guidance.
//
// The windows are fixed, not sliding: a burst of max requests at the end of
// one window followed by another burst at the start of the next is permitted,
// up to twice the nominal rate over a short span. That trade-off is part of
// the observable contract and must not be changed without changing the
// contract.
package ratelimit

import (
	"context"
	"time"
)

// Consumer is the single entry point for window accounting. Implementations
// must be safe for concurrent use.
type Consumer interface {
	// Consume records one request against key unless the current window is
	// already full. A denied request does not consume quota, so a client
	// retrying after the window rolls is not penalized for earlier denials.
	Consume(ctx context.Context, key string, max int, window time.Duration) (Result, error)

	// Close releases resources held by the consumer.
	Close() error
}

// Result reports the outcome of one Consume call.
type Result struct {
	Allowed   bool      // whether the request fits in the current window
	Remaining int       // requests left in the window, 0 when denied
	ResetAt   time.Time // when the current window expires
}
