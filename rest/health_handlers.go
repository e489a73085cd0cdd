package rest

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Version is stamped at build time.
var Version = "dev"

// HealthResponse is the healthcheck body.
type HealthResponse struct {
	OK      bool      `json:"ok"`
	Version string    `json:"version"`
	Date    time.Time `json:"date"`
}

// Healthcheck handles GET /, /healthcheck, and
// /.well-known/healthcheck.json.
func (h *Handler) Healthcheck(c echo.Context) error {
	c.Response().Header().Set("Cache-Control", "no-cache")
	return c.JSON(http.StatusOK, HealthResponse{
		OK:      true,
		Version: Version,
		Date:    time.Now().UTC(),
	})
}
