package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_AllowsUpToLimit(t *testing.T) {
	l := NewMemoryLimiter()
	p := Policy{Limit: 3, Window: time.Minute}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		dec, err := l.Check(ctx, "user-a", p)
		require.NoError(t, err)
		assert.True(t, dec.Allowed, "call %d", i)
		assert.Equal(t, 2-i, dec.Remaining)
	}

	dec, err := l.Check(ctx, "user-a", p)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Greater(t, dec.RetryAfter, time.Duration(0))
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l := NewMemoryLimiter()
	p := Policy{Limit: 1, Window: time.Minute}
	ctx := context.Background()

	dec, _ := l.Check(ctx, "user-a", p)
	assert.True(t, dec.Allowed)
	dec, _ = l.Check(ctx, "user-a", p)
	assert.False(t, dec.Allowed)

	dec, _ = l.Check(ctx, "user-b", p)
	assert.True(t, dec.Allowed)
}

func TestMemoryLimiter_WindowResets(t *testing.T) {
	now := time.Now()
	l := NewMemoryLimiter()
	l.now = func() time.Time { return now }
	p := Policy{Limit: 1, Window: time.Minute}
	ctx := context.Background()

	dec, _ := l.Check(ctx, "user-a", p)
	assert.True(t, dec.Allowed)
	dec, _ = l.Check(ctx, "user-a", p)
	assert.False(t, dec.Allowed)

	now = now.Add(61 * time.Second)
	dec, _ = l.Check(ctx, "user-a", p)
	assert.True(t, dec.Allowed)
}

func TestMemoryLimiter_ZeroPolicyMeansUnlimited(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		dec, err := l.Check(ctx, "user-a", Policy{})
		require.NoError(t, err)
		assert.True(t, dec.Allowed)
	}
}
