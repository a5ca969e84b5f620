package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RateLimiter limits each client IP to rps requests per second with a burst of
// one second's worth of requests. Rejections use the same JSON error shape as
// the proxy endpoint.
func RateLimiter(rps float64) echo.MiddlewareFunc {
	burst := max(int(rps), 1)
	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:  rate.Limit(rps),
		Burst: burst,
	})

	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, _ error) error {
			return c.JSON(http.StatusForbidden, map[string]string{"detail": "rate limiter: unable to identify client"})
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"detail": "too many requests"})
		},
	})
}
