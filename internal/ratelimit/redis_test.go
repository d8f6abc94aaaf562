package ratelimit

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisConsumer_ConsumeErrorWhenUnreachable(t *testing.T) {
	// Port 1 is never listening; the client fails fast with a dial error.
	c := NewRedisConsumer("127.0.0.1:1", "", 0)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := c.Consume(ctx, "ip:1.2.3.4:read:GET", 10, time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ip:1.2.3.4:read:GET", "errors carry the key for the log line")
}

func TestRedisConsumer_EnforcerFailsOpenWhenUnreachable(t *testing.T) {
	c := NewRedisConsumer("127.0.0.1:1", "", 0)
	defer c.Close()

	e := NewEnforcer(c, NewPolicyTable(0, 0, 0))

	r := httptest.NewRequest("POST", "/api/tryon/generate", nil)
	r.Header.Set("X-Forwarded-For", "1.2.3.4")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	verdict := e.Enforce(ctx, r, "user-1")
	assert.True(t, verdict.Allowed, "an unreachable backend must not reject traffic")
}

func TestRedisConsumer_Close(t *testing.T) {
	c := NewRedisConsumer("127.0.0.1:1", "", 0)
	assert.NoError(t, c.Close())
}
