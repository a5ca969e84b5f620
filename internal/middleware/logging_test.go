package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	e := echo.New()
	e.Use(RequestLogger(logger))
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	out := buf.String()
	for _, want := range []string{"level=INFO", "msg=request", "method=GET", "path=/test", "status=200", "component=http"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestRequestLogger_HTTPErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	e := echo.New()
	e.Use(RequestLogger(logger))

	req := httptest.NewRequest(http.MethodGet, "/missing", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	out := buf.String()
	if !strings.Contains(out, "status=404") || !strings.Contains(out, "level=WARN") {
		t.Errorf("log output %q, want status=404 at WARN", out)
	}
}

func TestRequestLevel(t *testing.T) {
	tests := []struct {
		path   string
		status int
		want   slog.Level
	}{
		{"/api/proxy/game/1", 200, slog.LevelInfo},
		{"/api/proxy/game/1", 404, slog.LevelWarn},
		{"/api/proxy/game/1", 502, slog.LevelError},
		{"/static/script.js", 200, slog.LevelDebug},
		{"/static/missing.js", 404, slog.LevelWarn},
		{"/", 200, slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := requestLevel(tt.path, tt.status); got != tt.want {
			t.Errorf("requestLevel(%q, %d) = %v, want %v", tt.path, tt.status, got, tt.want)
		}
	}
}
