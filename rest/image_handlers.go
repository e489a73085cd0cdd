package rest

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"

	"imagehoster/domain"
)

// legacyDimsPattern matches the first path segment of the historical
// /WxH/<url> form.
var legacyDimsPattern = regexp.MustCompile(`^(\d+)x(\d+)$`)

// DispatchGet handles the catch-all GET routes: the legacy /WxH/<url>
// redirect and content-hash serving share the top of the path space.
func (h *Handler) DispatchGet(c echo.Context) error {
	// The raw request URI keeps the embedded target URL byte-exact.
	raw := strings.TrimPrefix(c.Request().RequestURI, "/")
	seg, rest, _ := strings.Cut(raw, "/")

	if m := legacyDimsPattern.FindStringSubmatch(seg); m != nil {
		return h.legacyRedirect(c, m[1], m[2], rest)
	}

	if q := strings.IndexByte(seg, '?'); q >= 0 {
		seg = seg[:q]
	}
	return h.serveUpload(c, seg)
}

// legacyRedirect 301s /WxH/<url> to the base58 proxy form.
func (h *Handler) legacyRedirect(c echo.Context, width, height, rawURL string) error {
	if rawURL == "" {
		return respondError(c, domain.ErrorWithInfo(domain.KindMissingParam, map[string]any{"param": "url"}))
	}
	location := fmt.Sprintf("/p/%s.png?format=match&mode=fit&width=%s&height=%s",
		domain.Base58Enc(rawURL), width, height)
	return c.Redirect(http.StatusMovedPermanently, location)
}

// serveUpload returns stored upload bytes for a content hash. The
// trailing filename segment is decorative.
func (h *Handler) serveUpload(c echo.Context, key string) error {
	if key == "" {
		return respondError(c, domain.NewError(domain.KindNotFound))
	}
	res, err := h.serve.Serve(c.Request().Context(), key)
	if err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set("Cache-Control", res.CacheControl)
	return c.Blob(http.StatusOK, res.ContentType, res.Data)
}

// WebPRedirect 301s the historical /webp/ prefix to the plain equivalent.
func (h *Handler) WebPRedirect(c echo.Context) error {
	target := "/" + c.Param("*")
	if q := c.Request().URL.RawQuery; q != "" {
		target += "?" + q
	}
	return c.Redirect(http.StatusMovedPermanently, target)
}
