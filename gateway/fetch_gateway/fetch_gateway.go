// Package fetch_gateway implements the upstream fetcher: an ordered
// mirror ladder tried sequentially, with a configured default image as
// the final fallback.
package fetch_gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"imagehoster/domain"
	"imagehoster/port/fetch_port"
	"imagehoster/utils/logger"
	"imagehoster/utils/metrics"
	"imagehoster/utils/rate_limiter"
)

const (
	maxRedirects   = 5
	defaultTimeout = 10 * time.Second
	// readCap bounds a single response body; larger images are refused
	// rather than buffered.
	readCap = 64 << 20
)

// ErrAllFallbacksFailed is returned when every mirror and the default
// image all failed.
var ErrAllFallbacksFailed = errors.New("all fallbacks failed")

// FetchGateway implements the UpstreamFetcher port.
type FetchGateway struct {
	httpClient  *http.Client
	hostLimiter *rate_limiter.HostRateLimiter
	userAgent   string
	timeout     time.Duration

	candidatesFn func(urlString, urlParams string) []string
}

// NewFetchGateway creates a fetcher. hostLimiter may be nil to disable
// per-host politeness.
func NewFetchGateway(timeout time.Duration, userAgent string, hostLimiter *rate_limiter.HostRateLimiter) *FetchGateway {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &FetchGateway{
		httpClient: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		hostLimiter:  hostLimiter,
		userAgent:    userAgent,
		timeout:      timeout,
		candidatesFn: candidates,
	}
}

// candidates builds the ordered mirror ladder for a remote image.
func candidates(urlString, urlParams string) []string {
	list := []string{
		urlString,
		"https://images.hive.blog/0x0/" + urlString,
		"https://steemitimages.com/0x0/" + urlString,
		"https://wsrv.nl/?url=" + urlString,
		"https://img.leopedia.io/0x0/" + urlString,
	}
	if urlParams != "" {
		list = append(list,
			"https://images.hive.blog/p/"+urlParams,
			"https://steemitimages.com/p/"+urlParams,
		)
	}
	return list
}

// Fetch tries each mirror in order and returns the first 2xx non-empty
// body. Mirrors are attempted strictly sequentially: the order encodes a
// preference and parallel fan-out would amplify load on every mirror.
func (g *FetchGateway) Fetch(ctx context.Context, urlString, urlParams, defaultURL string, opts fetch_port.FetchOptions) (*fetch_port.FetchResult, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = g.timeout
	}

	skip := make(map[string]bool, len(opts.SkipURLs))
	for _, s := range opts.SkipURLs {
		skip[s] = true
	}

	for _, candidate := range g.candidatesFn(urlString, urlParams) {
		if skip[candidate] {
			continue
		}
		data, err := g.fetchOne(ctx, candidate, timeout)
		if err != nil {
			logger.SafeWarnContext(ctx, "mirror fetch failed", "url", candidate, "error", err)
			metrics.FetchAttempts.WithLabelValues("miss").Inc()
			continue
		}
		metrics.FetchAttempts.WithLabelValues("hit").Inc()
		return &fetch_port.FetchResult{Data: data, SourceURL: candidate}, nil
	}

	if defaultURL != "" {
		data, err := g.fetchOne(ctx, defaultURL, timeout)
		if err == nil {
			metrics.FetchAttempts.WithLabelValues("fallback").Inc()
			return &fetch_port.FetchResult{Data: data, SourceURL: defaultURL, IsFallback: true}, nil
		}
		logger.SafeWarnContext(ctx, "default image fetch failed", "url", defaultURL, "error", err)
	}

	return nil, domain.WrapError(domain.KindInvalidImage, ErrAllFallbacksFailed)
}

// fetchOne performs a single GET with the per-attempt timeout.
func (g *FetchGateway) fetchOne(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	if g.hostLimiter != nil {
		if u, err := url.Parse(rawURL); err == nil {
			if err := g.hostLimiter.Wait(ctx, u.Host); err != nil {
				return nil, err
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, readCap))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty body")
	}
	return data, nil
}
