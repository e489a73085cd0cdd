package blacklist_port

// Blacklist answers synchronous membership queries over the union of the
// static seed list and the periodically refreshed remote sets.
type Blacklist interface {
	// IsImageBlacklisted reports whether any of the given identifiers
	// (canonical URL, cache keys) is listed.
	IsImageBlacklisted(identifiers ...string) bool
	IsAccountBlacklisted(name string) bool
}
