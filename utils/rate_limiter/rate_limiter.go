// Package rate_limiter provides a per-host politeness limiter for
// upstream image fetches, so mirror probing never hammers a single CDN.
package rate_limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostRateLimiter spaces out requests per upstream host. Limiters are
// created lazily on first use.
type HostRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	interval time.Duration
	burst    int
}

// NewHostRateLimiter creates a limiter allowing one request per interval
// per host, with a small burst to keep the mirror ladder responsive.
func NewHostRateLimiter(interval time.Duration) *HostRateLimiter {
	return &HostRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		interval: interval,
		burst:    4,
	}
}

// Wait blocks until the host's limiter permits a request or the context
// is cancelled.
func (h *HostRateLimiter) Wait(ctx context.Context, host string) error {
	if h.interval <= 0 || host == "" {
		return nil
	}
	return h.limiterFor(host).Wait(ctx)
}

func (h *HostRateLimiter) limiterFor(host string) *rate.Limiter {
	h.mu.RLock()
	limiter, exists := h.limiters[host]
	h.mu.RUnlock()

	if exists {
		return limiter
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Double-check pattern
	if limiter, exists := h.limiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Every(h.interval), h.burst)
	h.limiters[host] = limiter
	return limiter
}
