package purge_port

import "context"

// CDNPurger invalidates a URL at the CDN in front of this service.
// Purging is best effort; callers log and continue on failure.
type CDNPurger interface {
	Purge(ctx context.Context, url string) error
}
