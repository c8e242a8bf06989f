package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"relay-proxy-go/internal/config"
	"relay-proxy-go/internal/metrics"
)

// WSDialer opens WebSocket connections to the upstream target.
type WSDialer struct {
	dialer  *websocket.Dialer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewWSDialer creates a WSDialer. The metrics parameter is optional; pass nil
// to disable dial-failure metrics recording.
func NewWSDialer(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *WSDialer {
	return &WSDialer{
		dialer: &websocket.Dialer{
			HandshakeTimeout: time.Duration(cfg.Relay.HandshakeTimeoutSeconds) * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		logger:  logger.With("component", "ws_dialer"),
		metrics: m,
	}
}

// Dial opens a WebSocket connection to the given ws:// or wss:// URL, sending
// the provided headers with the handshake. On failure the upstream's HTTP
// handshake response (if any) is returned alongside the error so callers can
// surface its status code.
func (d *WSDialer) Dial(ctx context.Context, url string, header http.Header) (*websocket.Conn, *http.Response, error) {
	d.logger.Debug("upstream websocket dial", "url", url)

	conn, resp, err := d.dialer.DialContext(ctx, url, header)
	if err != nil {
		if d.metrics != nil {
			d.metrics.RelayDialFailures.Inc()
		}
		return nil, resp, fmt.Errorf("upstream websocket dial: %w", err)
	}

	return conn, resp, nil
}
