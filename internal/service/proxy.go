// Package service implements the core proxy forwarding logic.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"github.com/tidwall/gjson"

	"forca-proxy-go/internal/client"
	"forca-proxy-go/internal/config"
	"forca-proxy-go/internal/model"
)

// logPreviewBytes caps how much of a backend body is written to the log.
const logPreviewBytes = 200

// ErrorKind classifies why a forward failed.
type ErrorKind int

const (
	// KindInternal is any failure that is neither of the kinds below.
	KindInternal ErrorKind = iota
	// KindUnreachable means no connection to the backend could be made.
	KindUnreachable
	// KindTimeout means the backend accepted the connection but did not answer in time.
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindTimeout:
		return "timeout"
	default:
		return "internal"
	}
}

// ForwardError is returned by Forward for every failure.
type ForwardError struct {
	Kind ErrorKind
	Err  error
}

func (e *ForwardError) Error() string {
	return fmt.Sprintf("forward (%s): %v", e.Kind, e.Err)
}

func (e *ForwardError) Unwrap() error {
	return e.Err
}

// ProxyService handles the forwarding logic for proxy requests.
type ProxyService struct {
	client *client.BackendClient
	logger *slog.Logger
	// origin is the configured backend base URL; prefix is origin plus the API path.
	origin string
	prefix string
}

// NewProxyService creates a ProxyService.
func NewProxyService(c *client.BackendClient, cfg *config.Config, logger *slog.Logger) (*ProxyService, error) {
	u, err := url.Parse(cfg.Backend.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend base_url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend base_url %q must be an absolute URL", cfg.Backend.BaseURL)
	}

	origin := strings.TrimRight(cfg.Backend.BaseURL, "/")
	return &ProxyService{
		client: c,
		logger: logger.With("component", "proxy_service"),
		origin: origin,
		prefix: origin + strings.TrimRight(cfg.Backend.APIPath, "/"),
	}, nil
}

// BackendURL returns the configured backend origin.
func (s *ProxyService) BackendURL() string {
	return s.origin
}

// TargetURL returns the backend URL for a wildcard suffix: {origin}{api path}/{suffix}.
func (s *ProxyService) TargetURL(suffix, rawQuery string) string {
	target := s.prefix + "/" + strings.TrimPrefix(suffix, "/")
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	return target
}

// Forward sends a ProxyRequest to the backend and translates the answer.
// Every error returned is a *ForwardError.
func (s *ProxyService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	target := s.TargetURL(pr.Suffix, pr.RawQuery)

	s.logger.Info("proxy request",
		"method", pr.Method,
		"path", pr.Suffix,
		"target", target,
	)

	var body []byte
	switch pr.Method {
	case http.MethodGet, http.MethodDelete:
	case http.MethodPost:
		body = pr.Payload
		s.logger.Debug("proxy payload", "payload", string(pr.Payload))
	default:
		return nil, &ForwardError{Kind: KindInternal, Err: fmt.Errorf("unsupported method %q", pr.Method)}
	}

	resp, err := s.client.Send(pr.Ctx, pr.Method, target, body)
	if err != nil {
		return nil, &ForwardError{Kind: classify(err), Err: err}
	}

	out := &model.ProxyResponse{
		StatusCode: resp.StatusCode,
		Body:       translateBody(resp.Body),
	}

	s.logger.Info("proxy response",
		"status", out.StatusCode,
		"kind", out.Body.Kind.String(),
		"body", out.Body.Preview(logPreviewBytes),
	)

	return out, nil
}

// DecodePayload returns the inbound body as forwardable JSON, or nil when the
// body is empty or not valid JSON.
func DecodePayload(body []byte) []byte {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return nil
	}
	return body
}

// translateBody passes JSON through and keeps anything else as text.
func translateBody(body []byte) model.Body {
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && gjson.ValidBytes(trimmed) {
		return model.JSONBody(trimmed)
	}
	return model.TextBody(string(body))
}

// classify maps a transport error onto an ErrorKind. Anything that went wrong
// before a connection was obtained, or a backend that hung up before sending a
// response, counts as unreachable; dial timeouts included.
func classify(err error) ErrorKind {
	var bodyErr *client.BodyError
	if errors.As(err, &bodyErr) {
		if isTimeout(err) {
			return KindTimeout
		}
		return KindInternal
	}

	var connErr *client.ConnectError
	if errors.As(err, &connErr) {
		return KindUnreachable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return KindUnreachable
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindUnreachable
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return KindUnreachable
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return KindUnreachable
	}

	if isTimeout(err) {
		return KindTimeout
	}
	return KindInternal
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
