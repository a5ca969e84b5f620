package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"forca-proxy-go/internal/metrics"
	"forca-proxy-go/internal/model"
	"forca-proxy-go/internal/service"
)

// ProxyPrefix is the inbound path under which requests are forwarded.
const ProxyPrefix = "/api/proxy"

// ProxyHandler forwards game API requests to the backend.
type ProxyHandler struct {
	service *service.ProxyService
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewProxyHandler creates a ProxyHandler. The metrics parameter is optional.
func NewProxyHandler(svc *service.ProxyService, logger *slog.Logger, m *metrics.Metrics) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		logger:  logger.With("component", "proxy_handler"),
		metrics: m,
	}
}

// Handle forwards the request to the backend and writes the translated response.
// It always answers with a JSON body; errors are never returned to echo.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	// A client that goes away does not abort the backend call; the backend
	// timeout still bounds it.
	pr := &model.ProxyRequest{
		Ctx:      context.WithoutCancel(req.Context()),
		Method:   req.Method,
		Suffix:   c.Param("*"),
		RawQuery: req.URL.RawQuery,
	}
	if req.Method == http.MethodPost {
		pr.Payload = h.readPayload(req)
	}

	resp, err := h.service.Forward(pr)
	if err != nil {
		return h.mapError(c, err)
	}

	if !bodyAllowed(resp.StatusCode) {
		return c.NoContent(resp.StatusCode)
	}
	body, err := resp.Body.Bytes()
	if err != nil {
		return h.mapError(c, &service.ForwardError{Kind: service.KindInternal, Err: err})
	}
	return c.JSONBlob(resp.StatusCode, body)
}

// readPayload returns the inbound JSON body, or nil when it is missing,
// unreadable or malformed.
func (h *ProxyHandler) readPayload(req *http.Request) []byte {
	if req.Body == nil {
		return nil
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		h.logger.Warn("reading request body", "err", err, "path", req.URL.Path)
		return nil
	}
	return service.DecodePayload(data)
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	kind := service.KindInternal
	cause := err
	var fe *service.ForwardError
	if errors.As(err, &fe) {
		kind, cause = fe.Kind, fe.Err
	}

	if h.metrics != nil {
		h.metrics.ProxyFailures.WithLabelValues(kind.String()).Inc()
	}

	switch kind {
	case service.KindUnreachable:
		h.logger.Error("backend unavailable",
			"err", err,
			"backend", h.service.BackendURL(),
			"path", c.Request().URL.Path,
		)
		return c.JSON(http.StatusBadGateway, map[string]string{
			"detail": "backend unavailable at " + h.service.BackendURL(),
		})
	case service.KindTimeout:
		h.logger.Error("backend timed out",
			"err", err,
			"path", c.Request().URL.Path,
		)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"detail": "proxy error: backend request timed out",
		})
	default: // service.KindInternal
		h.logger.Error("proxy error",
			"err", err,
			"path", c.Request().URL.Path,
		)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"detail": "proxy error: " + cause.Error(),
		})
	}
}

// bodyAllowed reports whether a response with the given status may carry a body.
func bodyAllowed(status int) bool {
	return status >= http.StatusOK && status != http.StatusNoContent && status != http.StatusNotModified
}
