package processing_port

import (
	"context"

	"imagehoster/domain"
)

// ProcessRequest carries the inputs for one transformation.
type ProcessRequest struct {
	Data        []byte
	ContentType string
	// OriginalURL is excluded from the mirror ladder when the metadata
	// probe fails and the pipeline refetches.
	OriginalURL string
	// URLParams is the base58 token form of the original URL, used by
	// mirror candidates that take a /p/ parameter.
	URLParams  string
	DefaultURL string
	Options    domain.TransformOptions
}

// ProcessResult is a transformed artifact ready for storage and serving.
type ProcessResult struct {
	Data        []byte
	ContentType string
	// IsFallback marks output produced from fallback bytes rather than
	// the requested original.
	IsFallback bool
}

// ImageProcessor decodes, resizes, and re-encodes image bytes.
type ImageProcessor interface {
	Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error)
}
