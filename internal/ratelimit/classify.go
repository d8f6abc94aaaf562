package ratelimit

import (
	"net/http"
	"strings"
)

// Bucket names. Each bucket shares one rate-limit policy across the endpoints
// it covers.
const (
	BucketAuth  = "auth"  // login, registration, password reset
	BucketTryon = "tryon" // try-on image generation, the most expensive operation
	BucketAI    = "ai"    // ad generation, campaign chat, assistant chat
	BucketWrite = "write" // uncategorized mutations
	BucketRead  = "read"  // uncategorized GET/HEAD
)

// identityCheckPaths are read-only "am I logged in" endpoints under the auth
// namespace. They are classified as reads so routine session polling is not
// throttled as aggressively as login attempts.
var identityCheckPaths = map[string]bool{
	"/api/auth/me":      true,
	"/api/auth/session": true,
	"/api/auth/status":  true,
}

// aiPrefixes cover every namespace whose handlers call a paid model API.
var aiPrefixes = []string{
	"/api/ads",
	"/api/campaign-chat",
	"/api/assistant",
}

// Classify maps a request path and method to its rate-limit bucket. Rules are
// evaluated in order, first match wins. Pure function of its inputs.
func Classify(path, method string) string {
	if strings.HasPrefix(path, "/api/auth") {
		if identityCheckPaths[path] {
			return BucketRead
		}
		return BucketAuth
	}
	if strings.HasPrefix(path, "/api/tryon") {
		return BucketTryon
	}
	for _, prefix := range aiPrefixes {
		if strings.HasPrefix(path, prefix) {
			return BucketAI
		}
	}
	if method == http.MethodGet || method == http.MethodHead {
		return BucketRead
	}
	return BucketWrite
}
