package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path   string
		method string
		want   string
	}{
		{"/api/auth/login", "POST", BucketAuth},
		{"/api/auth/register", "POST", BucketAuth},
		{"/api/auth/reset-password", "POST", BucketAuth},
		// Read-only identity checks are deliberately not throttled like
		// login attempts.
		{"/api/auth/me", "GET", BucketRead},
		{"/api/auth/session", "GET", BucketRead},
		{"/api/auth/status", "GET", BucketRead},
		{"/api/tryon/generate", "POST", BucketTryon},
		{"/api/tryon/history", "GET", BucketTryon},
		{"/api/ads/generate", "POST", BucketAI},
		{"/api/campaign-chat/send", "POST", BucketAI},
		{"/api/assistant/chat", "POST", BucketAI},
		{"/api/profile", "GET", BucketRead},
		{"/api/profile", "HEAD", BucketRead},
		{"/api/profile", "PATCH", BucketWrite},
		{"/api/orders", "POST", BucketWrite},
		{"/api/orders", "DELETE", BucketWrite},
		{"/api/products", "GET", BucketRead},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.path, tt.method))
		})
	}
}
