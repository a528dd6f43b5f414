package httpapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPLimiter(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	l := newIPLimiter(6, 2)
	require.NotNil(t, l)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "buckets are per ip")

	now = now.Add(10 * time.Second)
	assert.True(t, l.Allow("10.0.0.1"), "one token refills every 10s")
	assert.False(t, l.Allow("10.0.0.1"))
}

func TestIPLimiter_PrunesIdle(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	l := newIPLimiter(1, 1)
	l.now = func() time.Time { return now }

	l.Allow("10.0.0.1")
	l.Allow("10.0.0.2")
	assert.Len(t, l.entries, 2)

	now = now.Add(idleLimiterTTL)
	l.Allow("10.0.0.3")
	assert.Len(t, l.entries, 1)
}

func TestIPLimiter_Disabled(t *testing.T) {
	l := newIPLimiter(0, 5)
	assert.Nil(t, l)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("10.0.0.1"))
	}
}
