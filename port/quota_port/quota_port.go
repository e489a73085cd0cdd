package quota_port

import (
	"context"
	"time"
)

// QuotaStatus reports the remaining budget in the current window.
type QuotaStatus struct {
	Remaining int
	Reset     time.Time
}

// UploadQuota is the per-account upload rate limit. Consume counts one
// upload against the account's window and reports what is left.
type UploadQuota interface {
	Consume(ctx context.Context, account string) (*QuotaStatus, error)
}
