package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"forca-proxy-go/internal/config"
	"forca-proxy-go/internal/metrics"
	"forca-proxy-go/internal/web"
)

// proxyMethods are the methods forwarded to the backend.
var proxyMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete}

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, renderer *web.Renderer, page *PageHandler, proxy *ProxyHandler, health *HealthHandler) {
	e.Renderer = renderer

	e.GET("/", page.Index)
	e.StaticFS("/static", web.Static())

	e.GET("/healthz", health.Healthz)
	e.GET("/proxy/status", health.Status)

	e.Match(proxyMethods, ProxyPrefix+"/*", proxy.Handle)
}

// RegisterMetrics exposes the Prometheus registry when metrics are enabled.
func RegisterMetrics(e *echo.Echo, cfg *config.Config, m *metrics.Metrics) {
	if !cfg.Metrics.Enabled || m == nil {
		return
	}
	e.GET(cfg.Metrics.Path, echo.WrapHandler(m.Handler()))
}
