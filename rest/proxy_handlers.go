package rest

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"imagehoster/domain"
	"imagehoster/usecase/proxy_usecase"
)

// ProxyImage handles GET /p/:url.
func (h *Handler) ProxyImage(c echo.Context) error {
	token := c.Param("url")
	// Redirect targets carry a cosmetic extension; base58 has no dots.
	if dot := strings.IndexByte(token, '.'); dot >= 0 {
		token = token[:dot]
	}

	target := domain.ParseProxiedURL(token, h.fallbackURL)
	target = domain.UnwrapProxiedURL(target, h.serviceURL, h.fallbackURL)

	opts, err := parseTransformOptions(c)
	if err != nil {
		return respondError(c, err)
	}
	opts.Format = negotiateFormat(opts.Format, c.Request().Header.Get(echo.HeaderAccept))

	return h.renderProxied(c, target, opts)
}

// renderProxied runs the transform-cache flow and writes the image
// response. Shared by the proxy, avatar, and cover endpoints.
func (h *Handler) renderProxied(c echo.Context, target *url.URL, opts domain.TransformOptions) error {
	req := proxy_usecase.Request{
		Target:      target,
		Options:     opts,
		RequestURL:  h.externalURL(c),
		Refetch:     cacheFlag(c, "refetch"),
		Invalidate:  cacheFlag(c, "invalidate"),
		IgnoreCache: cacheFlag(c, "ignorecache"),
	}

	_, _, imageKey := h.proxy.ResolveKeys(target, opts)
	etag := `W/"` + imageKey + `"`

	header := c.Response().Header()
	header.Set("Vary", echo.HeaderAccept)
	header.Set("ETag", etag)

	if !req.Bypass() && ifNoneMatchHas(c.Request().Header.Get("If-None-Match"), etag) {
		return c.NoContent(http.StatusNotModified)
	}

	res, err := h.proxy.GetImage(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	header.Set("Cache-Control", res.CacheControl)

	if res.Reader != nil {
		defer res.Reader.Close()
		return c.Stream(http.StatusOK, res.ContentType, res.Reader)
	}
	return c.Blob(http.StatusOK, res.ContentType, res.Data)
}

// externalURL reconstructs the externally visible request URL for CDN
// purges.
func (h *Handler) externalURL(c echo.Context) string {
	return strings.TrimRight(h.serviceURL.String(), "/") + c.Request().RequestURI
}
