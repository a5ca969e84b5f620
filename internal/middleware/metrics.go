package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"forca-proxy-go/internal/metrics"
)

// MetricsMiddleware returns an Echo middleware that records Prometheus metrics
// for each inbound request. A nil m disables recording.
func MetricsMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if m == nil {
			return next
		}
		return func(c echo.Context) error {
			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()

			err := next(c)

			labels := []string{
				metrics.NormalizeMethod(c.Request().Method),
				strconv.Itoa(responseStatus(c, err)),
				metrics.NormalizePath(c.Request().URL.Path),
			}
			m.RequestsTotal.WithLabelValues(labels...).Inc()
			m.RequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())

			return err
		}
	}
}
