// Package metrics holds the Prometheus collectors for the image service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreHits counts cache hits per blob store ("upload" or "proxy").
	StoreHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imagehoster_store_hits_total",
		Help: "Blob store read hits by store name.",
	}, []string{"store"})

	// StoreMisses counts cache misses per blob store.
	StoreMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imagehoster_store_misses_total",
		Help: "Blob store read misses by store name.",
	}, []string{"store"})

	// FetchAttempts counts upstream fetch attempts by outcome
	// ("hit", "miss", "fallback").
	FetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imagehoster_fetch_attempts_total",
		Help: "Upstream fetch attempts by outcome.",
	}, []string{"outcome"})

	// Transforms counts completed image transformations by output format.
	Transforms = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imagehoster_transforms_total",
		Help: "Completed image transformations by output format.",
	}, []string{"format"})

	// Uploads counts accepted uploads.
	Uploads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imagehoster_uploads_total",
		Help: "Accepted image uploads.",
	})

	// UploadRejections counts rejected uploads by error kind.
	UploadRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imagehoster_upload_rejections_total",
		Help: "Rejected image uploads by error kind.",
	}, []string{"kind"})
)
