package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"forca-proxy-go/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	version Version
	localIP LocalIP
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version, ip LocalIP) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v, localIP: ip}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status returns proxy status information.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":      "ok",
		"version":     string(h.version),
		"backend_url": h.cfg.Backend.BaseURL,
		"local_ip":    string(h.localIP),
	})
}
