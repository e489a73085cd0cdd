// Package cloudflare implements the CDN purge hook.
package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const purgeEndpoint = "https://api.cloudflare.com/client/v4/zones/%s/purge_cache"

// Purger purges individual URLs from the Cloudflare cache. With no token
// or zone configured, purging is a no-op.
type Purger struct {
	httpClient *http.Client
	token      string
	zone       string
	endpoint   string
}

// NewPurger creates a purge client.
func NewPurger(token, zone string) *Purger {
	return &Purger{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		token:      token,
		zone:       zone,
		endpoint:   purgeEndpoint,
	}
}

// Purge invalidates a single URL at the CDN.
func (p *Purger) Purge(ctx context.Context, url string) error {
	if p.token == "" || p.zone == "" {
		return nil
	}

	body, err := json.Marshal(map[string][]string{"files": {url}})
	if err != nil {
		return fmt.Errorf("marshal purge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf(p.endpoint, p.zone), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build purge request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("purge %s: %w", url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("purge %s: status %d", url, resp.StatusCode)
	}
	return nil
}
