// Package processing_gateway implements the decode, resize, and
// re-encode pipeline for proxied and uploaded images.
package processing_gateway

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/bmp"

	"imagehoster/domain"
	"imagehoster/port/fetch_port"
	"imagehoster/port/processing_port"
	"imagehoster/utils/logger"
	"imagehoster/utils/metrics"
	"imagehoster/utils/sniff"
)

const (
	jpegQuality = 80
	webpQuality = 80
	avifQuality = 50
	// libavif speed runs opposite to libvips effort: speed 6 matches
	// effort 4 (speed = 10 - effort).
	avifSpeed = 6
)

// passthroughTypes are animated or container formats that a resize would
// flatten to a still; they are served unchanged when possible.
var passthroughTypes = map[string]bool{
	"image/gif":  true,
	"image/apng": true,
	"video/mp4":  true,
}

// Limits carries the dimension policy bounds from configuration.
type Limits struct {
	MaxWidth        int
	MaxHeight       int
	MaxCustomWidth  int
	MaxCustomHeight int
}

// ProcessingGateway implements the ImageProcessor port. It needs the
// upstream fetcher for the single metadata-probe retry.
type ProcessingGateway struct {
	fetcher fetch_port.UpstreamFetcher
	limits  Limits
}

// NewProcessingGateway creates a processing gateway.
func NewProcessingGateway(fetcher fetch_port.UpstreamFetcher, limits Limits) *ProcessingGateway {
	return &ProcessingGateway{fetcher: fetcher, limits: limits}
}

// Process runs the full pipeline: sniff, probe, clamp, orient, resize,
// encode.
func (g *ProcessingGateway) Process(ctx context.Context, req processing_port.ProcessRequest) (*processing_port.ProcessResult, error) {
	data := req.Data
	contentType := req.ContentType
	if contentType == "" {
		contentType = sniff.DetectImageType(data)
	}
	isFallback := false

	// Animated sources keep their motion: resizing would flatten them to
	// a still frame.
	if passthroughTypes[contentType] && req.Options.Mode == domain.ModeFit &&
		(req.Options.Format == domain.FormatMatch || req.Options.Format == domain.FormatWEBP || req.Options.Format == domain.FormatAVIF) {
		return &processing_port.ProcessResult{Data: data, ContentType: contentType}, nil
	}

	decoded, orientation, err := g.decode(data, contentType)
	if err != nil {
		// One retry through the mirror ladder, skipping the source that
		// produced the broken bytes.
		if g.fetcher == nil {
			return nil, domain.WrapError(domain.KindInvalidImage, err)
		}
		logger.SafeWarnContext(ctx, "image decode failed, refetching", "url", req.OriginalURL, "error", err)
		refetched, ferr := g.fetcher.Fetch(ctx, req.OriginalURL, req.URLParams, req.DefaultURL, fetch_port.FetchOptions{
			SkipURLs: []string{req.OriginalURL},
		})
		if ferr != nil {
			return nil, domain.WrapError(domain.KindInvalidImage, err)
		}
		data = refetched.Data
		contentType = sniff.DetectImageType(data)
		isFallback = true
		decoded, orientation, err = g.decode(data, contentType)
		if err != nil {
			return nil, domain.WrapError(domain.KindInvalidImage, err)
		}
	}

	decoded = orient(decoded, orientation)
	bounds := decoded.Bounds()

	w, h := g.clampDimensions(req.Options.Width, req.Options.Height, bounds.Dx(), bounds.Dy())
	resized := g.resize(decoded, req.Options.Mode, w, h)

	outFormat := req.Options.Format
	encoded, outType, err := g.encode(resized, outFormat, contentType)
	if err != nil {
		return nil, domain.WrapError(domain.KindInvalidImage, err)
	}

	metrics.Transforms.WithLabelValues(outFormat.String()).Inc()

	return &processing_port.ProcessResult{
		Data:        encoded,
		ContentType: outType,
		IsFallback:  isFallback,
	}, nil
}

// decode parses the image bytes and reads the EXIF orientation.
func (g *ProcessingGateway) decode(data []byte, contentType string) (image.Image, int, error) {
	if sniff.IsSVG(contentType) {
		img, err := rasterizeSVG(data)
		return img, 1, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 1, fmt.Errorf("decode image: %w", err)
	}

	orientation := 1
	if x, err := exif.Decode(bytes.NewReader(data)); err == nil {
		if tag, err := x.Get(exif.Orientation); err == nil {
			if v, err := tag.Int(0); err == nil {
				orientation = v
			}
		}
	}
	return img, orientation, nil
}

// clampDimensions applies the dimension policy: requested sizes clamp to
// the custom caps; with nothing requested, oversized originals clamp to
// the default caps.
func (g *ProcessingGateway) clampDimensions(w, h, origW, origH int) (int, int) {
	if w > g.limits.MaxCustomWidth {
		w = g.limits.MaxCustomWidth
	}
	if h > g.limits.MaxCustomHeight {
		h = g.limits.MaxCustomHeight
	}
	if w == 0 && h == 0 {
		if origW > g.limits.MaxWidth {
			w = g.limits.MaxWidth
		}
		if origH > g.limits.MaxHeight {
			h = g.limits.MaxHeight
		}
	}
	return w, h
}

// resize applies the scaling mode. With no dimensions set the fit bounds
// default to the configured maximums, which leaves already-small images
// untouched.
func (g *ProcessingGateway) resize(img image.Image, mode domain.ScalingMode, w, h int) image.Image {
	bounds := img.Bounds()
	ow, oh := bounds.Dx(), bounds.Dy()

	if mode == domain.ModeCover && w > 0 && h > 0 {
		return coverCrop(img, w, h)
	}

	bw, bh := w, h
	if bw == 0 && bh == 0 {
		bw, bh = g.limits.MaxWidth, g.limits.MaxHeight
	}
	nw, nh := fitDims(ow, oh, bw, bh)
	if nw == ow && nh == oh {
		return img
	}
	return scaleTo(img, nw, nh)
}

// encode serializes the image in the requested output format. Match keeps
// the source format, except SVG input which becomes PNG.
func (g *ProcessingGateway) encode(img image.Image, format domain.OutputFormat, srcType string) ([]byte, string, error) {
	var buf bytes.Buffer

	if format == domain.FormatMatch {
		switch {
		case srcType == "image/jpeg":
			format = domain.FormatJPEG
		case srcType == "image/png" || srcType == "image/apng" || sniff.IsSVG(srcType):
			format = domain.FormatPNG
		case srcType == "image/webp":
			format = domain.FormatWEBP
		case srcType == "image/avif":
			format = domain.FormatAVIF
		case srcType == "image/gif":
			if err := gif.Encode(&buf, img, nil); err != nil {
				return nil, "", fmt.Errorf("encode gif: %w", err)
			}
			return buf.Bytes(), "image/gif", nil
		case srcType == "image/bmp":
			if err := bmp.Encode(&buf, img); err != nil {
				return nil, "", fmt.Errorf("encode bmp: %w", err)
			}
			return buf.Bytes(), "image/bmp", nil
		default:
			format = domain.FormatJPEG
		}
	}

	switch format {
	case domain.FormatJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, "", fmt.Errorf("encode jpeg: %w", err)
		}
		return buf.Bytes(), "image/jpeg", nil
	case domain.FormatPNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("encode png: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	case domain.FormatWEBP:
		if err := webp.Encode(&buf, img, webp.Options{Quality: webpQuality}); err != nil {
			return nil, "", fmt.Errorf("encode webp: %w", err)
		}
		return buf.Bytes(), "image/webp", nil
	case domain.FormatAVIF:
		if err := avif.Encode(&buf, img, avif.Options{Quality: avifQuality, Speed: avifSpeed}); err != nil {
			return nil, "", fmt.Errorf("encode avif: %w", err)
		}
		return buf.Bytes(), "image/avif", nil
	default:
		return nil, "", fmt.Errorf("unsupported output format %v", format)
	}
}
