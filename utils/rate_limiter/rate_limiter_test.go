package rate_limiter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitZeroIntervalNeverBlocks(t *testing.T) {
	h := NewHostRateLimiter(0)
	for i := 0; i < 100; i++ {
		require.NoError(t, h.Wait(context.Background(), "example.com"))
	}
}

func TestWaitEmptyHostNeverBlocks(t *testing.T) {
	h := NewHostRateLimiter(time.Hour)
	require.NoError(t, h.Wait(context.Background(), ""))
}

func TestWaitBurstThenBlocks(t *testing.T) {
	h := NewHostRateLimiter(time.Hour)
	ctx := context.Background()

	// The burst passes immediately.
	for i := 0; i < 4; i++ {
		require.NoError(t, h.Wait(ctx, "example.com"))
	}

	// The fifth request is over the limit; a cancelled context unblocks it.
	cancelled, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.Error(t, h.Wait(cancelled, "example.com"))
}

func TestWaitIsPerHost(t *testing.T) {
	h := NewHostRateLimiter(time.Hour)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, h.Wait(ctx, "a.example.com"))
	}
	require.NoError(t, h.Wait(ctx, "b.example.com"))
}

func TestConcurrentLimiterCreation(t *testing.T) {
	h := NewHostRateLimiter(time.Millisecond)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Wait(context.Background(), "example.com")
		}()
	}
	wg.Wait()
}
