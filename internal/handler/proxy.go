package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"relay-proxy-go/internal/model"
	"relay-proxy-go/internal/proxy"
	"relay-proxy-go/internal/relay"
	"relay-proxy-go/internal/service"
)

// ProxyHandler is the dispatch gate: it classifies each inbound request as a
// WebSocket upgrade or a plain exchange and hands it to the relay or the
// forwarder accordingly.
type ProxyHandler struct {
	forwarder *service.ForwardService
	relay     *relay.Relay
	logger    *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(fwd *service.ForwardService, rl *relay.Relay, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		forwarder: fwd,
		relay:     rl,
		logger:    logger.With("component", "proxy_handler"),
	}
}

// Handle classifies and serves one inbound request. Upgrade handshakes are
// detected by header inspection before any body bytes are read; plain
// requests are limited to GET and POST.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	if websocket.IsWebSocketUpgrade(req) {
		if err := h.relay.Serve(c.Response(), req); err != nil {
			return h.mapError(c, err)
		}
		return nil
	}

	if req.Method != http.MethodGet && req.Method != http.MethodPost {
		return h.mapError(c, proxy.ErrUnsupportedMethod)
	}

	pr := &model.ProxyRequest{
		Ctx:       req.Context(),
		Method:    req.Method,
		PathQuery: req.URL.RequestURI(),
		Header:    req.Header,
		Body:      req.Body,
	}

	resp, err := h.forwarder.Forward(pr)
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	for key, vals := range resp.Header {
		for _, v := range vals {
			c.Response().Header().Add(key, v)
		}
	}

	c.Response().WriteHeader(resp.StatusCode)

	// Stream the upstream body directly to the client. If io.Copy fails
	// mid-stream (e.g. client disconnect, network error), the HTTP status
	// code has already been sent, so the client receives a truncated
	// response with the original status. This is an inherent trade-off of
	// streaming proxies — we log the error for observability.
	if _, err := io.Copy(c.Response(), resp.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", err,
			"path", req.URL.Path,
		)
	}

	return nil
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	h.logger.Error("proxy error",
		"err", err,
		"method", c.Request().Method,
		"path", c.Request().URL.Path,
	)

	if errors.Is(err, proxy.ErrUnsupportedMethod) {
		return c.JSON(http.StatusMethodNotAllowed, map[string]string{
			"error": "method not allowed: only GET and POST are forwarded",
		})
	}

	if errors.Is(err, proxy.ErrInvalidTarget) {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "proxy misconfigured: invalid upstream target",
		})
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return c.JSON(http.StatusGatewayTimeout, map[string]string{
			"error": "upstream request timed out",
		})
	}

	if errors.Is(err, context.Canceled) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "client disconnected",
		})
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "upstream host unreachable",
		})
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "upstream connection failed",
		})
	}

	return c.JSON(http.StatusBadGateway, map[string]string{
		"error": "upstream request failed",
	})
}
