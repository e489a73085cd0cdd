// Package rediskv holds the redis-backed key-value driver used by the
// upload quota window.
package rediskv

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// QuotaDriver performs the raw window-counter operations against redis.
type QuotaDriver struct {
	client *redis.Client
}

// NewQuotaDriver creates a driver around an existing client.
func NewQuotaDriver(client *redis.Client) *QuotaDriver {
	return &QuotaDriver{client: client}
}

// NewQuotaDriverWithURL creates a driver from a redis URL.
func NewQuotaDriverWithURL(url string) (*QuotaDriver, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &QuotaDriver{client: redis.NewClient(opts)}, nil
}

// IncrementWindow atomically increments the counter for the account's
// current window and returns the new count. The key expires with the
// window so stale counters clean themselves up.
func (d *QuotaDriver) IncrementWindow(ctx context.Context, account string, windowStart int64, window time.Duration) (int64, error) {
	key := fmt.Sprintf("upload_quota:%s:%d", account, windowStart)

	pipe := d.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.PExpire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("increment quota window: %w", err)
	}
	return incr.Val(), nil
}

// Close releases the underlying client.
func (d *QuotaDriver) Close() error {
	return d.client.Close()
}
