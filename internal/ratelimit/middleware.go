package ratelimit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"gatekeeper/internal/models"
)

// Response headers set on a denial. The bucket header lets operators tell
// which policy fired; the hourly tier reports "<bucket>-hour".
const (
	HeaderBucket = "X-RateLimit-Bucket"
	HeaderReset  = "X-RateLimit-Reset"
)

type contextKey string

const userIDKey contextKey = "ratelimit.user_id"

// ContextWithUserID attaches the authenticated user id for the limiter to
// read. Used when the gateway is embedded behind an in-process auth layer.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFrom returns the user id attached by ContextWithUserID, or "".
func UserIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// UserResolver extracts the authenticated user id from a request. An empty
// result means the caller is anonymous. The limiter never authenticates
// anyone itself; it trusts whatever the resolver reports.
type UserResolver func(r *http.Request) string

// ContextUserResolver reads the user id from the request context.
func ContextUserResolver(r *http.Request) string {
	return UserIDFrom(r.Context())
}

// HeaderUserResolver reads the user id from a trusted header set by an
// upstream auth proxy, falling back to the request context. Only wire this up
// when the header is stripped from untrusted traffic at the edge.
func HeaderUserResolver(header string) UserResolver {
	return func(r *http.Request) string {
		if id := strings.TrimSpace(r.Header.Get(header)); id != "" {
			return id
		}
		return UserIDFrom(r.Context())
	}
}

// Middleware returns HTTP middleware that enforces admission control. Allowed
// requests pass through untouched; the absence of a verdict is the allow
// signal. Denied requests are answered with a 429 and never reach the next
// handler. A nil resolver treats every request as anonymous unless the
// context carries a user id.
func Middleware(enforcer *Enforcer, resolve UserResolver) func(http.Handler) http.Handler {
	if resolve == nil {
		resolve = ContextUserResolver
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			verdict := enforcer.Enforce(r.Context(), r, resolve(r))
			if verdict.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Retry-After", strconv.Itoa(verdict.RetryAfter))
			w.Header().Set(HeaderBucket, verdict.Bucket)
			w.Header().Set(HeaderReset, strconv.FormatInt(verdict.ResetAt.UnixMilli(), 10))
			w.Header().Set("Cache-Control", "no-store")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(models.NewRateLimitedResponse(verdict.RetryAfter))

			slog.Warn("rate limit exceeded",
				"bucket", verdict.Bucket,
				"path", r.URL.Path,
				"method", r.Method,
				"retry_after", verdict.RetryAfter,
			)
		})
	}
}
