package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"forca-proxy-go/internal/config"
	"forca-proxy-go/internal/web"
)

// LocalIP is the LAN address shown on the landing page, resolved once at startup.
type LocalIP string

// PageHandler serves the landing page.
type PageHandler struct {
	data web.IndexData
}

// NewPageHandler creates a PageHandler.
func NewPageHandler(cfg *config.Config, ip LocalIP) *PageHandler {
	return &PageHandler{data: web.IndexData{
		LocalIP: string(ip),
		Port:    cfg.Server.Port,
	}}
}

// Index renders the landing page.
func (h *PageHandler) Index(c echo.Context) error {
	return c.Render(http.StatusOK, web.IndexTemplate, h.data)
}
