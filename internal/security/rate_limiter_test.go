package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandRateLimiter_AllowRespectsBurstThenThrottles(t *testing.T) {
	l := NewCommandRateLimiter(1, 2, nil)

	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow(), "third request within the same instant should exceed the burst")
}

func TestCommandRateLimiter_SetLimitWidensBurstImmediately(t *testing.T) {
	l := NewCommandRateLimiter(1, 1, nil)
	require.True(t, l.Allow())
	assert.False(t, l.Allow())

	l.SetLimit(1000, 3)
	time.Sleep(10 * time.Millisecond)
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
}

func TestCommandRateLimiter_WaitUnblocksOnTokenAvailability(t *testing.T) {
	l := NewCommandRateLimiter(1000, 1, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, l.Wait(ctx))
}

func TestCommandRateLimiter_WaitRespectsContextCancellation(t *testing.T) {
	l := NewCommandRateLimiter(0.001, 1, nil)
	require.True(t, l.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx))
}
