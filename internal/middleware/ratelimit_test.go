package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestRateLimiter_RejectsAfterBurst(t *testing.T) {
	e := echo.New()

	// 1 request per second, burst of 1: the burst is spent by the first request.
	e.Use(RateLimiter(1))
	e.GET("/api/proxy/*", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/proxy/game", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d, want %d", rec.Code, http.StatusOK)
	}

	var denied *httptest.ResponseRecorder
	for range 10 {
		req = httptest.NewRequest(http.MethodGet, "/api/proxy/game", http.NoBody)
		rec = httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			denied = rec
			break
		}
	}
	if denied == nil {
		t.Fatal("expected at least one 429 response after burst, got none")
	}
	assert.Equal(t, "too many requests", gjson.Get(denied.Body.String(), "detail").String())
}

func TestRateLimiter_PerClient(t *testing.T) {
	e := echo.New()
	e.Use(RateLimiter(1))
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	for _, addr := range []string{"10.0.0.1:1234", "10.0.0.2:1234"} {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "first request from %s", addr)
	}
}

func TestRateLimiter_FractionalRate(t *testing.T) {
	e := echo.New()
	e.Use(RateLimiter(0.5))
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
