package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityHeaders returns an Echo middleware that adds security headers to every
// response and marks proxied game responses as non-cacheable.
func SecurityHeaders(proxyPrefix string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "same-origin")

			// Game state changes on every move.
			p := c.Request().URL.Path
			if p == proxyPrefix || strings.HasPrefix(p, proxyPrefix+"/") {
				h.Set(echo.HeaderCacheControl, "no-store")
			}

			return next(c)
		}
	}
}
