// Package model defines shared types for the proxy.
package model

import (
	"context"
	"encoding/json"
)

// ProxyRequest represents a client request to be forwarded to the backend.
type ProxyRequest struct {
	Ctx    context.Context
	Method string
	// Suffix is the wildcard part of the inbound path after the proxy prefix.
	Suffix   string
	RawQuery string
	// Payload is the JSON body to forward; nil means no body.
	Payload json.RawMessage
}

// ProxyResponse is the translated backend response returned to the client.
type ProxyResponse struct {
	StatusCode int
	Body       Body
}

// BodyKind tells how a backend response body was interpreted.
type BodyKind int

const (
	// BodyJSON is a body that parsed as JSON and is passed through unchanged.
	BodyJSON BodyKind = iota
	// BodyText is a body that did not parse as JSON.
	BodyText
)

func (k BodyKind) String() string {
	switch k {
	case BodyJSON:
		return "json"
	case BodyText:
		return "text"
	default:
		return "unknown"
	}
}

// MessageKey is the key raw-text backend bodies are wrapped under.
const MessageKey = "message"

// Body is either raw backend JSON or raw backend text.
type Body struct {
	Kind BodyKind
	JSON json.RawMessage
	Text string
}

// JSONBody returns a Body holding backend JSON.
func JSONBody(raw []byte) Body {
	return Body{Kind: BodyJSON, JSON: json.RawMessage(raw)}
}

// TextBody returns a Body holding non-JSON backend text.
func TextBody(text string) Body {
	return Body{Kind: BodyText, Text: text}
}

// Bytes returns the JSON document sent to the client: backend JSON unchanged, or
// the text wrapped as {"message": text}.
func (b Body) Bytes() ([]byte, error) {
	if b.Kind == BodyJSON {
		return b.JSON, nil
	}
	return json.Marshal(map[string]string{MessageKey: b.Text})
}

// Preview returns at most n bytes of the body for logging.
func (b Body) Preview(n int) string {
	s := b.Text
	if b.Kind == BodyJSON {
		s = string(b.JSON)
	}
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
