package quota_gateway

import (
	"context"
	"time"

	"imagehoster/driver/rediskv"
	"imagehoster/port/quota_port"
	"imagehoster/utils/logger"
)

// QuotaGateway implements the UploadQuota port over the redis window
// counter. When redis is unavailable the limiter is bypassed with a
// logged warning; the signature check remains the primary defense.
type QuotaGateway struct {
	driver *rediskv.QuotaDriver
	window time.Duration
	max    int
}

// NewQuotaGateway creates a quota gateway. A nil driver disables the
// limiter entirely.
func NewQuotaGateway(driver *rediskv.QuotaDriver, window time.Duration, max int) *QuotaGateway {
	return &QuotaGateway{driver: driver, window: window, max: max}
}

// Consume counts one upload against the account's fixed window.
func (g *QuotaGateway) Consume(ctx context.Context, account string) (*quota_port.QuotaStatus, error) {
	windowMs := g.window.Milliseconds()
	nowMs := time.Now().UnixMilli()
	windowStart := nowMs - nowMs%windowMs
	reset := time.UnixMilli(windowStart + windowMs)

	if g.driver == nil {
		return &quota_port.QuotaStatus{Remaining: g.max, Reset: reset}, nil
	}

	count, err := g.driver.IncrementWindow(ctx, account, windowStart, g.window)
	if err != nil {
		logger.SafeWarnContext(ctx, "quota store unavailable, bypassing rate limit",
			"account", account, "error", err)
		return &quota_port.QuotaStatus{Remaining: g.max, Reset: reset}, nil
	}

	return &quota_port.QuotaStatus{
		Remaining: g.max - int(count),
		Reset:     reset,
	}, nil
}
