// Package middleware provides Echo middleware for logging, metrics and response headers.
package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// responseStatus returns the status the client will see. When a handler returns
// an *echo.HTTPError the response has not been written yet; echo's central error
// handler writes it later, so the code is taken from the error.
func responseStatus(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	if c.Response().Committed {
		return c.Response().Status
	}
	return http.StatusInternalServerError
}
