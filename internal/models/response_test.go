package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimitedResponse(t *testing.T) {
	resp := NewRateLimitedResponse(42)

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	// The field names and message text are a public contract: clients and
	// dashboards key off them.
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "Rate limit exceeded. Please slow down and try again.", decoded["error"])
	assert.Equal(t, float64(42), decoded["retryAfterSeconds"])
	assert.Len(t, decoded, 2, "the rejection body carries exactly two fields")
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("upstream connection refused", ErrorCodeUpstreamUnavailable)

	assert.Equal(t, "error", resp.Error)
	assert.Equal(t, "upstream connection refused", resp.Message)
	assert.Equal(t, ErrorCodeUpstreamUnavailable, resp.Code)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestNewHealthCheckResponse(t *testing.T) {
	resp := NewHealthCheckResponse(StatusHealthy)

	assert.Equal(t, StatusHealthy, resp.Status)
	assert.False(t, resp.Timestamp.IsZero())

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "version", "empty optional fields are omitted")
}
