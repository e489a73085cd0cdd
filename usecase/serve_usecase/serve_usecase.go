// Package serve_usecase serves stored uploads by content hash, with a
// mirror write-through on miss.
package serve_usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"imagehoster/domain"
	"imagehoster/port/store_port"
	"imagehoster/utils/logger"
	"imagehoster/utils/metrics"
	"imagehoster/utils/sniff"
)

// mirrorBases are public CDNs holding the same content-addressed uploads.
// A local miss is backfilled from them.
var mirrorBases = []string{
	"https://images.hive.blog",
	"https://steemitimages.com",
}

const (
	CacheControlImmutable = "public,max-age=31536000,immutable"
	mirrorReadCap         = 64 << 20
)

// Result is a served upload.
type Result struct {
	Data         []byte
	ContentType  string
	CacheControl string
}

// ServeUsecase reads uploads from the store.
type ServeUsecase struct {
	uploadStore store_port.BlobStore
	httpClient  *http.Client
}

// NewServeUsecase creates the serve usecase.
func NewServeUsecase(uploadStore store_port.BlobStore) *ServeUsecase {
	return &ServeUsecase{
		uploadStore: uploadStore,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Serve returns the stored bytes for key. On a local miss it backfills the
// store from the mirrors but still reports NotFound: the client is
// expected to retry through the proxy path, which can transform.
func (u *ServeUsecase) Serve(ctx context.Context, key string) (*Result, error) {
	data, err := u.uploadStore.ReadAll(ctx, key)
	if err == nil && len(data) > 0 {
		metrics.StoreHits.WithLabelValues("upload").Inc()
		return &Result{
			Data:         data,
			ContentType:  sniff.DetectImageType(data),
			CacheControl: CacheControlImmutable,
		}, nil
	}
	metrics.StoreMisses.WithLabelValues("upload").Inc()

	for _, base := range mirrorBases {
		mirrored, err := u.fetchMirror(ctx, base+"/"+key)
		if err != nil {
			continue
		}
		if err := u.uploadStore.Write(ctx, key, mirrored); err != nil {
			logger.SafeWarnContext(ctx, "mirror write-through failed", "key", key, "error", err)
		}
		break
	}

	return nil, domain.ErrorWithInfo(domain.KindNotFound, map[string]any{"key": key})
}

func (u *ServeUsecase) fetchMirror(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, mirrorReadCap))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty body")
	}
	return data, nil
}
