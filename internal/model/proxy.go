// Package model defines shared types for the relay.
package model

import (
	"context"
	"io"
	"net/http"
)

// ProxyRequest represents a client request to be forwarded upstream.
type ProxyRequest struct {
	Ctx       context.Context
	Method    string
	PathQuery string // inbound path plus raw query, exactly as received
	Header    http.Header
	Body      io.ReadCloser
}

// ProxyResponse represents the upstream response to be streamed back.
// The consumer owns Body and must close it.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}
