package rest

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"imagehoster/domain"
	"imagehoster/utils/logger"
)

// respondError maps an error to the JSON error body and its HTTP status.
func respondError(c echo.Context, err error) error {
	apiErr := domain.AsAPIError(err)
	if apiErr == nil {
		apiErr = domain.WrapError(domain.KindInternalError, err)
	}
	status := apiErr.HTTPStatus()
	ctx := c.Request().Context()
	if status >= 500 {
		logger.SafeErrorContext(ctx, "request failed", "kind", string(apiErr.Kind), "error", err)
	} else {
		logger.SafeInfoContext(ctx, "request rejected", "kind", string(apiErr.Kind), "error", err)
	}
	return c.JSON(status, apiErr.ToResponse())
}

// parseTransformOptions reads width/height/mode/format query parameters.
func parseTransformOptions(c echo.Context) (domain.TransformOptions, error) {
	var opts domain.TransformOptions
	var err error

	if opts.Width, err = parseDimension("width", c.QueryParam("width")); err != nil {
		return opts, err
	}
	if opts.Height, err = parseDimension("height", c.QueryParam("height")); err != nil {
		return opts, err
	}
	if opts.Mode, err = domain.ParseScalingMode(c.QueryParam("mode")); err != nil {
		return opts, err
	}
	if opts.Format, err = domain.ParseOutputFormat(c.QueryParam("format")); err != nil {
		return opts, err
	}
	return opts, nil
}

// parseDimension parses a non-negative integer parameter; empty means
// unspecified.
func parseDimension(name, value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, domain.ErrorWithInfo(domain.KindInvalidParam, map[string]any{"param": name, "value": value})
	}
	return n, nil
}

// cacheFlag treats a present parameter as set, matching the historical
// ?refetch and ?refetch=1 forms, unless explicitly disabled.
func cacheFlag(c echo.Context, name string) bool {
	values, ok := c.QueryParams()[name]
	if !ok || len(values) == 0 {
		return false
	}
	v := values[0]
	return v != "0" && !strings.EqualFold(v, "false")
}

// ifNoneMatchHas reports whether the If-None-Match header names the etag.
func ifNoneMatchHas(header, etag string) bool {
	if header == "" {
		return false
	}
	if strings.TrimSpace(header) == "*" {
		return true
	}
	for _, candidate := range strings.Split(header, ",") {
		if strings.TrimSpace(candidate) == etag {
			return true
		}
	}
	return false
}
