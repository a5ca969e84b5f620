// Package client provides the HTTP client used to reach the backend API.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptrace"
	"strconv"
	"sync/atomic"
	"time"

	"forca-proxy-go/internal/config"
	"forca-proxy-go/internal/metrics"
)

// Response is a fully read backend response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ConnectError reports a request that failed before any connection to the
// backend was obtained: refused, unresolvable, or still dialing at the deadline.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string {
	return "connect to backend: " + e.Err.Error()
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// BodyError reports a failure while reading a backend body whose status line
// and headers were already received.
type BodyError struct {
	Err error
}

func (e *BodyError) Error() string {
	return "read backend body: " + e.Err.Error()
}

func (e *BodyError) Unwrap() error {
	return e.Err
}

// BackendClient sends requests to the backend API.
type BackendClient struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewBackendClient creates a BackendClient whose calls, body included, are
// bounded by the configured backend timeout. The metrics parameter is optional;
// pass nil to disable backend metrics recording.
func NewBackendClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *BackendClient {
	timeout := cfg.Backend.Timeout()

	transport := &http.Transport{
		MaxIdleConns:        cfg.Backend.IdleConnections,
		MaxIdleConnsPerHost: cfg.Backend.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &BackendClient{
		httpClient: &http.Client{Transport: transport},
		timeout:    timeout,
		logger:  logger.With("component", "backend_client"),
		metrics: m,
	}
}

// Do executes an HTTP request against the backend and reads the whole body.
// Failures before a connection was obtained are returned as *ConnectError,
// failures while reading the body as *BodyError.
func (c *BackendClient) Do(req *http.Request) (*Response, error) {
	c.logger.Debug("backend request",
		"method", req.Method,
		"path", req.URL.Path,
	)

	ctx := req.Context()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var connected atomic.Bool
	ctx = httptrace.WithClientTrace(ctx, &httptrace.ClientTrace{
		GotConn: func(httptrace.GotConnInfo) { connected.Store(true) },
	})

	start := time.Now()
	resp, err := c.httpClient.Do(req.WithContext(ctx))
	method := metrics.NormalizeMethod(req.Method)

	if err != nil {
		c.observe(method, "", start)
		err = fmt.Errorf("backend request: %w", err)
		if !connected.Load() {
			return nil, &ConnectError{Err: err}
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	c.observe(method, strconv.Itoa(resp.StatusCode), start)
	if err != nil {
		return nil, &BodyError{Err: err}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// Send builds a request for method and url and executes it. A nil body sends
// no payload; otherwise the body is sent as application/json.
func (c *BackendClient) Send(ctx context.Context, method, url string, body []byte) (*Response, error) {
	var r io.Reader = http.NoBody
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, fmt.Errorf("build backend request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.Do(req)
}

func (c *BackendClient) observe(method, status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.UpstreamDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if status != "" {
		c.metrics.UpstreamResponses.WithLabelValues(method, status).Inc()
	}
}
