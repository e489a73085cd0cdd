// Package proxy_usecase implements the transform cache: key derivation,
// store probes, upstream fetch, pipeline invocation, and write-back.
package proxy_usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"sync"

	"golang.org/x/sync/singleflight"

	"imagehoster/domain"
	"imagehoster/port/blacklist_port"
	"imagehoster/port/fetch_port"
	"imagehoster/port/processing_port"
	"imagehoster/port/purge_port"
	"imagehoster/port/store_port"
	"imagehoster/utils/logger"
	"imagehoster/utils/metrics"
	"imagehoster/utils/sniff"
)

const (
	// sniffHead is how much of a cached artifact is read up front to
	// recover its content type.
	sniffHead = 16 << 10

	CacheControlImmutable = "public,max-age=31536000,immutable"
	CacheControlNormal    = "public,max-age=3600,stale-while-revalidate=86400"
	CacheControlFallback  = "public,max-age=600"
	CacheControlBypass    = "no-cache,must-revalidate"
)

// Request is one resolved proxy request.
type Request struct {
	// Target is the unwrapped remote image URL.
	Target *url.URL
	// Options must already have format negotiation applied.
	Options domain.TransformOptions
	// RequestURL is the externally visible URL, used for CDN purges.
	RequestURL  string
	Refetch     bool
	Invalidate  bool
	IgnoreCache bool
}

// Bypass reports whether any cache-bypass flag is set.
func (r Request) Bypass() bool {
	return r.IgnoreCache || r.Invalidate || r.Refetch
}

// Result carries the response bytes and the caching headers chosen for
// them. Reader is non-nil for cache hits (streamed); Data otherwise.
type Result struct {
	Reader       io.ReadCloser
	Data         []byte
	ContentType  string
	CacheControl string
	FromCache    bool
	IsFallback   bool
}

type missResult struct {
	data        []byte
	contentType string
	isFallback  bool
}

// ProxyUsecase coordinates the §store probe order: transformed artifact,
// cached original, upstream fetch.
type ProxyUsecase struct {
	proxyStore store_port.BlobStore
	fetcher    fetch_port.UpstreamFetcher
	processor  processing_port.ImageProcessor
	blacklist  blacklist_port.Blacklist
	purger     purge_port.CDNPurger

	defaultImageURL string
	maxImageSize    int

	group singleflight.Group
}

// NewProxyUsecase creates the transform-cache usecase. defaultImageURL is
// the fallback image served when every mirror fails.
func NewProxyUsecase(
	proxyStore store_port.BlobStore,
	fetcher fetch_port.UpstreamFetcher,
	processor processing_port.ImageProcessor,
	blacklist blacklist_port.Blacklist,
	purger purge_port.CDNPurger,
	defaultImageURL string,
	maxImageSize int,
) *ProxyUsecase {
	return &ProxyUsecase{
		proxyStore:      proxyStore,
		fetcher:         fetcher,
		processor:       processor,
		blacklist:       blacklist,
		purger:          purger,
		defaultImageURL: defaultImageURL,
		maxImageSize:    maxImageSize,
	}
}

// ResolveKeys canonicalizes the target and derives its store keys. The
// canonical URL excludes the cache-control query parameters so bypass
// flags never change what is addressed.
func (u *ProxyUsecase) ResolveKeys(target *url.URL, opts domain.TransformOptions) (canonical, origKey, imageKey string) {
	canonical = domain.CanonicalizeImageURL(target.String())
	keyURL := canonical
	if parsed, err := url.Parse(canonical); err == nil {
		keyURL = domain.StripCacheParams(parsed).String()
	}
	origKey = domain.ProxyOrigKey(keyURL)
	imageKey = domain.ImageKey(origKey, opts)
	return canonical, origKey, imageKey
}

// GetImage runs the transform-cache flow for one request.
func (u *ProxyUsecase) GetImage(ctx context.Context, req Request) (*Result, error) {
	canonical, origKey, imageKey := u.ResolveKeys(req.Target, req.Options)

	// A blacklisted target serves the default image with a short TTL
	// instead of an error page: embeds keep rendering.
	if u.blacklist != nil && u.blacklist.IsImageBlacklisted(canonical, req.Target.String(), origKey) {
		logger.SafeInfoContext(ctx, "blacklisted proxy target", "url", canonical)
		fetched, err := u.fetcher.Fetch(ctx, u.defaultImageURL, "", "", fetch_port.FetchOptions{})
		if err != nil {
			return nil, err
		}
		return &Result{
			Data:         fetched.Data,
			ContentType:  sniff.DetectImageType(fetched.Data),
			CacheControl: CacheControlFallback,
			IsFallback:   true,
		}, nil
	}

	if req.Refetch {
		u.evict(ctx, imageKey)
		u.evict(ctx, origKey)
		u.purge(ctx, req.RequestURL)
	} else if req.Invalidate {
		u.purge(ctx, req.RequestURL)
	}
	bypass := req.Bypass()

	if !bypass {
		if res := u.cachedArtifact(ctx, imageKey); res != nil {
			metrics.StoreHits.WithLabelValues("proxy").Inc()
			return res, nil
		}
		metrics.StoreMisses.WithLabelValues("proxy").Inc()
	}

	v, err, _ := u.group.Do(imageKey, func() (any, error) {
		return u.produce(ctx, canonical, origKey, imageKey, req.Options, bypass)
	})
	if err != nil {
		return nil, err
	}
	miss := v.(*missResult)

	cc := CacheControlNormal
	switch {
	case bypass:
		cc = CacheControlBypass
	case miss.isFallback:
		cc = CacheControlFallback
	}
	return &Result{
		Data:         miss.data,
		ContentType:  miss.contentType,
		CacheControl: cc,
		IsFallback:   miss.isFallback,
	}, nil
}

// cachedArtifact streams a stored transform back if present. A blob whose
// head cannot be read is evicted and treated as a miss.
func (u *ProxyUsecase) cachedArtifact(ctx context.Context, imageKey string) *Result {
	rc, err := u.proxyStore.OpenRead(ctx, imageKey)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.SafeWarnContext(ctx, "artifact read failed, treating as missing", "key", imageKey, "error", err)
		}
		return nil
	}

	head := make([]byte, sniffHead)
	n, err := io.ReadFull(rc, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		rc.Close()
		u.evict(ctx, imageKey)
		return nil
	}
	head = head[:n]
	if n == 0 {
		rc.Close()
		u.evict(ctx, imageKey)
		return nil
	}

	reader := &evictOnError{
		Reader: io.MultiReader(bytes.NewReader(head), rc),
		closer: rc,
		onError: func() {
			u.evict(context.WithoutCancel(ctx), imageKey)
		},
	}
	return &Result{
		Reader:       reader,
		ContentType:  sniff.DetectImageType(head),
		CacheControl: CacheControlImmutable,
		FromCache:    true,
	}
}

// produce builds the transformed bytes on a cache miss: cached original
// first, upstream fetch otherwise, then the pipeline, then write-back.
func (u *ProxyUsecase) produce(ctx context.Context, canonical, origKey, imageKey string, opts domain.TransformOptions, bypass bool) (*missResult, error) {
	var (
		data        []byte
		contentType string
		sourceURL   = canonical
		isFallback  bool
		fromOrig    bool
	)

	if !bypass {
		if ok, err := u.proxyStore.Exists(ctx, origKey); err == nil && ok {
			stored, err := u.proxyStore.ReadAll(ctx, origKey)
			if err == nil {
				t := sniff.DetectImageType(stored)
				if domain.AcceptedImageTypes[t] {
					data = stored
					contentType = t
					fromOrig = true
					metrics.StoreHits.WithLabelValues("orig").Inc()
				} else {
					u.evict(ctx, origKey)
				}
			}
		}
	}

	if data == nil {
		metrics.StoreMisses.WithLabelValues("orig").Inc()
		fetched, err := u.fetcher.Fetch(ctx, canonical, domain.Base58Enc(canonical), u.defaultImageURL, fetch_port.FetchOptions{})
		if err != nil {
			return nil, err
		}
		data = fetched.Data
		contentType = sniff.DetectImageType(data)
		sourceURL = fetched.SourceURL
		isFallback = fetched.IsFallback

		// The original goes in before the transform so a concurrent
		// request for another size can reuse it.
		if !isFallback && len(data) <= u.maxImageSize {
			if err := u.proxyStore.Write(ctx, origKey, data); err != nil {
				logger.SafeWarnContext(ctx, "original write failed", "key", origKey, "error", err)
			}
		}
	}

	processed, err := u.processor.Process(ctx, processing_port.ProcessRequest{
		Data:        data,
		ContentType: contentType,
		OriginalURL: sourceURL,
		URLParams:   domain.Base58Enc(canonical),
		DefaultURL:  u.defaultImageURL,
		Options:     opts,
	})
	if err != nil {
		if fromOrig {
			u.evict(ctx, origKey)
		}
		return nil, err
	}
	isFallback = isFallback || processed.IsFallback

	if !isFallback {
		if err := u.proxyStore.Write(ctx, imageKey, processed.Data); err != nil {
			logger.SafeWarnContext(ctx, "artifact write failed", "key", imageKey, "error", err)
		}
	}

	return &missResult{
		data:        processed.Data,
		contentType: processed.ContentType,
		isFallback:  isFallback,
	}, nil
}

func (u *ProxyUsecase) evict(ctx context.Context, key string) {
	if err := u.proxyStore.Remove(ctx, key); err != nil {
		logger.SafeWarnContext(ctx, "evict failed", "key", key, "error", err)
	}
}

func (u *ProxyUsecase) purge(ctx context.Context, rawURL string) {
	if u.purger == nil || rawURL == "" {
		return
	}
	if err := u.purger.Purge(ctx, rawURL); err != nil {
		logger.SafeWarnContext(ctx, "cdn purge failed", "url", rawURL, "error", err)
	}
}

// evictOnError evicts the backing blob when the stream fails mid-read.
type evictOnError struct {
	io.Reader
	closer  io.Closer
	once    sync.Once
	onError func()
}

func (r *evictOnError) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	if err != nil && err != io.EOF {
		r.once.Do(r.onError)
		err = fmt.Errorf("artifact stream: %w", err)
	}
	return n, err
}

func (r *evictOnError) Close() error {
	return r.closer.Close()
}
