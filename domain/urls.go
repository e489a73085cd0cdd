package domain

import (
	"net/url"
	"strings"
)

// domainReplacements is the ordered prefix-replacement table applied by
// CanonicalizeImageURL. Order matters: entries are tried top to bottom.
var domainReplacements = [][2]string{
	{"https://img.3speakcontent.online/", "https://img.3speakcontent.co/"},
	{"https://img.inleo.io/D", "https://img.leopedia.io/D"},
}

// pathReplacements maps a domain prefix to a single path substitution
// applied only when the (post-replacement) URL starts with that prefix.
var pathReplacements = []struct {
	domainPrefix string
	from, to     string
}{
	{"https://img.3speakcontent.co/", "/post.png", "/thumbnails/default.png"},
}

const esteemPrefix = "https://img.esteem.ws/"
const esteemWrapPrefix = "https://steemitimages.com/0x0/"

// CanonicalizeImageURL rewrites known dead or relocated image hosts to
// their live equivalents. Domain replacement runs before path replacement,
// and path matching uses the post-replacement domain. The function is
// idempotent on its own output.
func CanonicalizeImageURL(rawURL string) string {
	for _, r := range domainReplacements {
		if strings.HasPrefix(rawURL, r[0]) {
			rawURL = r[1] + rawURL[len(r[0]):]
			break
		}
	}
	for _, p := range pathReplacements {
		if strings.HasPrefix(rawURL, p.domainPrefix) {
			rawURL = strings.Replace(rawURL, p.from, p.to, 1)
		}
	}
	if strings.Contains(rawURL, esteemPrefix) && !strings.HasPrefix(rawURL, esteemWrapPrefix) {
		rawURL = esteemWrapPrefix + rawURL
	}
	return rawURL
}

// ParsePlainURL parses an absolute URL, failing with InvalidProxyUrl.
func ParsePlainURL(s string) (*url.URL, error) {
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, ErrorWithInfo(KindInvalidProxyUrl, map[string]any{"url": s})
	}
	return u, nil
}

// ParseProxiedURL base58-decodes a /p/ path token, strips trailing
// slashes, and parses it as an absolute URL. Failures soft-fail to the
// configured fallback image URL: the proxy path prefers serving a default
// image over erroring on garbled tokens.
func ParseProxiedURL(token string, fallbackURL *url.URL) *url.URL {
	decoded, err := Base58Dec(token)
	if err != nil {
		return fallbackURL
	}
	decoded = strings.TrimRight(decoded, "/")
	u, err := url.Parse(decoded)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fallbackURL
	}
	return u
}

// StripCacheParams removes the cache-control query parameters that must
// not influence the original's store key. Idempotent.
func StripCacheParams(u *url.URL) *url.URL {
	q := u.Query()
	q.Del("ignorecache")
	q.Del("invalidate")
	q.Del("refetch")
	stripped := *u
	stripped.RawQuery = q.Encode()
	return &stripped
}

// IsEmptyImageURL reports whether s is exactly the service's 0x0 sentinel.
func IsEmptyImageURL(s string, serviceURL *url.URL) bool {
	base := strings.TrimRight(serviceURL.String(), "/")
	return s == base+"/0x0" || s == base+"/0x0/"
}

// StartsWithEmptyImagePrefix reports whether s begins with the service's
// 0x0 sentinel prefix.
func StartsWithEmptyImagePrefix(s string, serviceURL *url.URL) bool {
	base := strings.TrimRight(serviceURL.String(), "/")
	return strings.HasPrefix(s, base+"/0x0/") || s == base+"/0x0"
}

// maxProxyUnwrapDepth bounds the double-proxy unwrap loop against
// pathological self-referential tokens.
const maxProxyUnwrapDepth = 4

// UnwrapProxiedURL iteratively unwraps URLs that point back at our own
// /p/ endpoint until the target no longer does, at most
// maxProxyUnwrapDepth times.
func UnwrapProxiedURL(u *url.URL, serviceURL *url.URL, fallbackURL *url.URL) *url.URL {
	for i := 0; i < maxProxyUnwrapDepth; i++ {
		if u.Host != serviceURL.Host || !strings.HasPrefix(u.Path, "/p/") {
			return u
		}
		token := strings.TrimPrefix(u.Path, "/p/")
		token = strings.TrimRight(token, "/")
		// Redirect targets may carry an extension suffix; base58 never
		// contains a dot.
		if dot := strings.IndexByte(token, '.'); dot >= 0 {
			token = token[:dot]
		}
		u = ParseProxiedURL(token, fallbackURL)
	}
	return u
}
