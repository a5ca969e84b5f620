package middleware

import (
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogger returns an Echo middleware that logs each request with slog.
// Server errors log at error level, client errors at warn, static assets at debug.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	logger = logger.With("component", "http")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()
			status := responseStatus(c, err)

			logger.LogAttrs(req.Context(), requestLevel(req.URL.Path, status), "request",
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", status),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
				slog.String("remote_ip", c.RealIP()),
				slog.Int64("bytes_out", res.Size),
			)

			return err
		}
	}
}

func requestLevel(path string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case strings.HasPrefix(path, "/static/"):
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
