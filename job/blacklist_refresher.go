// Package job hosts the background loops that run beside the HTTP server.
package job

import (
	"context"
	"time"

	"imagehoster/gateway/blacklist_gateway"
	"imagehoster/utils/logger"
)

// BlacklistRefreshJobRunner keeps the blacklist snapshot current. It runs
// one refresh immediately, then ticks at the configured TTL; the gateway
// itself handles failure backoff.
func BlacklistRefreshJobRunner(ctx context.Context, blacklist *blacklist_gateway.BlacklistGateway, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	blacklist.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.SafeInfoContext(ctx, "stopping blacklist refresh job")
			return
		case <-ticker.C:
			blacklist.Refresh(ctx)
		}
	}
}
