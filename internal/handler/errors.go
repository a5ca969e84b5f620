package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HTTPErrorHandler writes errors that reach echo (unknown routes, disallowed
// methods, oversized bodies, panics) as {"detail": message}, the same shape the
// proxy endpoint uses for backend failures.
func HTTPErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	logger = logger.With("component", "http_error")

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		detail := http.StatusText(code)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			switch m := he.Message.(type) {
			case string:
				detail = m
			case error:
				detail = m.Error()
			case nil:
				detail = http.StatusText(code)
			default:
				detail = fmt.Sprint(m)
			}
		} else {
			logger.Error("unhandled error",
				"err", err,
				"path", c.Request().URL.Path,
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, map[string]string{"detail": detail})
		}
		if err != nil {
			logger.Error("writing error response", "err", err)
		}
	}
}
