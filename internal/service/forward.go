// Package service implements the HTTP forwarding path of the relay.
package service

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"relay-proxy-go/internal/client"
	"relay-proxy-go/internal/model"
	"relay-proxy-go/internal/proxy"
)

// hopByHopHeaders must not cross the proxy in either direction: they describe
// a single transport connection, not the request itself.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"TE",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// wsHandshakePrefix marks WebSocket handshake headers, which are owned by
// whichever endpoint performs the handshake and never forwarded.
const wsHandshakePrefix = "sec-websocket-"

// ForwardService implements the plain-HTTP forwarding path: rewrite the URI,
// issue exactly one upstream call, relay the response back.
type ForwardService struct {
	client *client.UpstreamClient
	cfg    *proxy.Config
	logger *slog.Logger
}

// NewForwardService creates a ForwardService bound to a frozen proxy config.
func NewForwardService(c *client.UpstreamClient, cfg *proxy.Config, logger *slog.Logger) *ForwardService {
	return &ForwardService{
		client: c,
		cfg:    cfg,
		logger: logger.With("component", "forward_service"),
	}
}

// Forward sends a ProxyRequest to the upstream and returns its response.
// The caller is responsible for closing the response body. No retries, no
// caching: one inbound request maps to exactly one upstream call.
func (s *ForwardService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	uri, err := proxy.RewriteURI(s.cfg, pr.PathQuery, proxy.ProtocolHTTP)
	if err != nil {
		return nil, err
	}

	header := ForwardHeaders(pr.Header)

	s.logger.Debug("forwarding request",
		"method", pr.Method,
		"path", pr.PathQuery,
	)

	resp, err := s.client.DoStream(pr.Ctx, pr.Method, uri, header, pr.Body)
	if err != nil {
		return nil, fmt.Errorf("forward to upstream: %w", err)
	}

	resp.Header = ForwardHeaders(resp.Header)
	return resp, nil
}

// ForwardHeaders copies headers for forwarding, dropping hop-by-hop and
// WebSocket handshake headers. Everything else passes through verbatim; the
// Host header is rewritten to the target authority by the HTTP transport.
func ForwardHeaders(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for key, vals := range src {
		if isHopByHop(key) || strings.HasPrefix(strings.ToLower(key), wsHandshakePrefix) {
			continue
		}
		dst[http.CanonicalHeaderKey(key)] = vals
	}
	return dst
}

func isHopByHop(key string) bool {
	for _, h := range hopByHopHeaders {
		if strings.EqualFold(key, h) {
			return true
		}
	}
	return false
}
