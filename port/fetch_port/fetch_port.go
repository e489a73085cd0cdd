package fetch_port

import (
	"context"
	"time"
)

// FetchOptions tunes a single upstream fetch.
type FetchOptions struct {
	// Timeout bounds each candidate attempt. Zero means the fetcher's
	// configured default.
	Timeout time.Duration
	// SkipURLs removes matching candidates from the mirror ladder.
	SkipURLs []string
}

// FetchResult is the outcome of a successful fetch.
type FetchResult struct {
	Data []byte
	// SourceURL is the candidate that produced the bytes.
	SourceURL string
	// IsFallback marks bytes served from the configured default image
	// after every mirror failed.
	IsFallback bool
}

// UpstreamFetcher tries an ordered list of mirrors for a remote image and
// falls back to a configured default image when all of them fail.
type UpstreamFetcher interface {
	Fetch(ctx context.Context, urlString, urlParams, defaultURL string, opts FetchOptions) (*FetchResult, error)
}
