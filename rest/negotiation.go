package rest

import (
	"strings"

	"imagehoster/domain"
)

// supportsWebP reports whether the Accept header admits WEBP. The test is
// a case-insensitive substring match: real-world Accept headers vary too
// much in parameter formatting for strict parsing to be worth it.
func supportsWebP(accept string) bool {
	return strings.Contains(strings.ToLower(accept), "image/webp")
}

// supportsAvif reports whether the Accept header admits AVIF.
func supportsAvif(accept string) bool {
	return strings.Contains(strings.ToLower(accept), "image/avif")
}

// negotiateFormat upgrades a Match request to the best format the client
// accepts: AVIF, then WEBP, then whatever the source decodes to. Explicit
// format requests are never overridden.
func negotiateFormat(requested domain.OutputFormat, accept string) domain.OutputFormat {
	if requested != domain.FormatMatch {
		return requested
	}
	switch {
	case supportsAvif(accept):
		return domain.FormatAVIF
	case supportsWebP(accept):
		return domain.FormatWEBP
	default:
		return domain.FormatMatch
	}
}

// negotiateWebP upgrades a Match request to WEBP only.
func negotiateWebP(requested domain.OutputFormat, accept string) domain.OutputFormat {
	if requested == domain.FormatMatch && supportsWebP(accept) {
		return domain.FormatWEBP
	}
	return requested
}
