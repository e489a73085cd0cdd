package domain

import (
	"fmt"
	"strings"
)

// ScalingMode selects how requested dimensions are applied.
type ScalingMode int

const (
	// ModeCover resizes to the exact requested dimensions, cropping to fill.
	ModeCover ScalingMode = iota
	// ModeFit resizes inside the requested dimensions preserving aspect
	// ratio, never enlarging.
	ModeFit
)

// String returns the normative mode name used in image keys.
func (m ScalingMode) String() string {
	switch m {
	case ModeCover:
		return "Cover"
	default:
		return "Fit"
	}
}

// ParseScalingMode parses a query-parameter mode value.
func ParseScalingMode(s string) (ScalingMode, error) {
	switch strings.ToLower(s) {
	case "", "fit":
		return ModeFit, nil
	case "cover":
		return ModeCover, nil
	default:
		return ModeFit, ErrorWithInfo(KindInvalidParam, map[string]any{"param": "mode", "value": s})
	}
}

// OutputFormat selects the encoding of the transformed artifact.
type OutputFormat int

const (
	// FormatMatch keeps the decoded format (SVG input becomes PNG).
	FormatMatch OutputFormat = iota
	FormatJPEG
	FormatPNG
	FormatWEBP
	FormatAVIF
)

// String returns the normative format name used in image keys.
func (f OutputFormat) String() string {
	switch f {
	case FormatJPEG:
		return "JPEG"
	case FormatPNG:
		return "PNG"
	case FormatWEBP:
		return "WEBP"
	case FormatAVIF:
		return "AVIF"
	default:
		return "Match"
	}
}

// ParseOutputFormat parses a query-parameter format value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(s) {
	case "", "match":
		return FormatMatch, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWEBP, nil
	case "avif":
		return FormatAVIF, nil
	default:
		return FormatMatch, ErrorWithInfo(KindInvalidParam, map[string]any{"param": "format", "value": s})
	}
}

// TransformOptions describes a requested transformation. Width and Height
// of zero mean unspecified: auto from aspect ratio, or left unchanged.
type TransformOptions struct {
	Width  int
	Height int
	Mode   ScalingMode
	Format OutputFormat
}

// ImageKey derives the deterministic artifact key for an original and its
// transform options. The compact "{orig}_{W}x{H}" form for fit/match is
// normative: existing stored artifacts use it.
func ImageKey(origKey string, opts TransformOptions) string {
	if opts.Mode == ModeFit && opts.Format == FormatMatch {
		return fmt.Sprintf("%s_%dx%d", origKey, opts.Width, opts.Height)
	}
	parts := []string{origKey, opts.Mode.String(), opts.Format.String()}
	if opts.Width > 0 {
		parts = append(parts, fmt.Sprintf("%d", opts.Width))
	}
	if opts.Height > 0 {
		parts = append(parts, fmt.Sprintf("%d", opts.Height))
	}
	return strings.Join(parts, "_")
}

// AcceptedImageTypes is the set of content types accepted for uploads and
// for cached originals read back from the store.
var AcceptedImageTypes = map[string]bool{
	"image/gif":     true,
	"image/jpeg":    true,
	"image/png":     true,
	"image/webp":    true,
	"image/svg+xml": true,
	"image/svg":     true,
	"image/bmp":     true,
	"image/apng":    true,
	"image/avif":    true,
}
