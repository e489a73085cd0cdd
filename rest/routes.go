package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"imagehoster/config"
	"imagehoster/di"
	"imagehoster/domain"
	middleware_custom "imagehoster/middleware"
	"imagehoster/utils/logger"
)

func RegisterRoutes(e *echo.Echo, container *di.ApplicationComponents, cfg *config.Config) {
	h := NewHandler(container, cfg)

	e.HTTPErrorHandler = errorHandler

	// 1. Request ID middleware first so every log line carries one
	e.Use(middleware_custom.RequestIDMiddleware())

	// 2. Recovery middleware early
	e.Use(middleware.Recover())

	// 3. Security headers
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
	}))

	// 4. CORS: images and uploads are consumed cross-origin
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.OPTIONS},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		MaxAge:       86400,
	}))

	// 5. Logging middleware
	e.Use(middleware_custom.LoggingMiddleware(logger.Logger))

	// 6. Compression for the JSON surface; image bytes are already
	// compressed by their codec
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return !(p == "/" || strings.HasPrefix(p, "/healthcheck") ||
				strings.HasPrefix(p, "/.well-known/") || p == "/metrics")
		},
	}))

	e.GET("/", h.Healthcheck)
	e.GET("/healthcheck", h.Healthcheck)
	e.GET("/.well-known/healthcheck.json", h.Healthcheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/p/:url", h.ProxyImage)
	e.GET("/u/:username/avatar", h.Avatar)
	e.GET("/u/:username/avatar/:size", h.Avatar)
	e.GET("/u/:username/cover", h.Cover)
	e.GET("/webp/*", h.WebPRedirect)

	e.POST("/hs/:token", h.UploadWithToken)
	e.POST("/:username/:signature", h.Upload)

	// Legacy /WxH/<url> redirects and /:hash/:filename serving share the
	// rest of the GET path space.
	e.GET("/*", h.DispatchGet)
}

// errorHandler shapes router-level errors (unmatched routes, bad methods)
// into the standard error body.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		kind := domain.KindInternalError
		switch httpErr.Code {
		case http.StatusNotFound:
			kind = domain.KindNotFound
		case http.StatusMethodNotAllowed:
			kind = domain.KindInvalidMethod
		case http.StatusBadRequest:
			kind = domain.KindBadRequest
		}
		_ = c.JSON(httpErr.Code, domain.NewError(kind).ToResponse())
		return
	}

	_ = respondError(c, err)
}
