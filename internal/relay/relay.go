// Package relay implements the WebSocket half of the proxy: it completes the
// upgrade handshake with the client, opens a paired connection to the
// upstream, and pumps frames in both directions until either side goes away.
package relay

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"relay-proxy-go/internal/client"
	"relay-proxy-go/internal/config"
	"relay-proxy-go/internal/metrics"
	"relay-proxy-go/internal/proxy"
)

// Relay serves WebSocket upgrade requests by pairing each client connection
// with a new upstream connection. The metrics field is optional.
type Relay struct {
	cfg      *proxy.Config
	dialer   *client.WSDialer
	upgrader websocket.Upgrader
	logger   *slog.Logger
	metrics  *metrics.Metrics

	readLimit int64

	mu       sync.Mutex
	sessions map[*session]struct{}
	closed   bool
}

// New creates a Relay bound to a frozen proxy config.
func New(cfg *config.Config, pcfg *proxy.Config, dialer *client.WSDialer, logger *slog.Logger, m *metrics.Metrics) *Relay {
	return &Relay{
		cfg:    pcfg,
		dialer: dialer,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: time.Duration(cfg.Relay.HandshakeTimeoutSeconds) * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			// Origin policy is the upstream's concern; the relay is transparent.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:    logger.With("component", "relay"),
		metrics:   m,
		readLimit: cfg.Relay.ReadLimitBytes,
		sessions:  make(map[*session]struct{}),
	}
}

// Serve handles one WebSocket upgrade request end to end. It dials the
// upstream before upgrading the client, so a dead upstream produces a plain
// HTTP error instead of a silently dead socket; on success it blocks until
// the session's pumps have both exited and the sockets are released.
func (r *Relay) Serve(w http.ResponseWriter, req *http.Request) error {
	uri, err := proxy.RewriteURI(r.cfg, req.URL.RequestURI(), proxy.ProtocolWebSocket)
	if err != nil {
		return err
	}

	upstream, resp, err := r.dialer.Dial(req.Context(), uri, handshakeHeaders(req.Header))
	if err != nil {
		if resp != nil {
			r.logger.Warn("upstream rejected websocket handshake",
				"url", uri,
				"status", resp.StatusCode,
			)
		}
		return fmt.Errorf("%w: %v", proxy.ErrUpstreamUnreachable, err)
	}

	clientConn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// Upgrade has already written its own error response.
		_ = upstream.Close()
		r.logger.Warn("client upgrade failed", "err", err)
		return nil
	}

	s := newSession(clientConn, upstream, r.readLimit)
	if !r.track(s) {
		s.close()
		return nil
	}
	defer r.untrack(s)

	if r.metrics != nil {
		r.metrics.RelaySessionsTotal.Inc()
		r.metrics.RelaySessionsActive.Inc()
		defer r.metrics.RelaySessionsActive.Dec()
	}

	r.logger.Info("relay session opened",
		"remote", req.RemoteAddr,
		"url", uri,
	)
	s.run(r.logger, r.metrics)
	r.logger.Info("relay session closed", "remote", req.RemoteAddr)

	return nil
}

// Close terminates all live sessions by closing their sockets, which
// unblocks any pump waiting on a read. Subsequent upgrades are refused.
func (r *Relay) Close() {
	r.mu.Lock()
	r.closed = true
	live := make([]*session, 0, len(r.sessions))
	for s := range r.sessions {
		live = append(live, s)
	}
	r.mu.Unlock()

	for _, s := range live {
		s.close()
	}
}

func (r *Relay) track(s *session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.sessions[s] = struct{}{}
	return true
}

func (r *Relay) untrack(s *session) {
	r.mu.Lock()
	delete(r.sessions, s)
	r.mu.Unlock()
}

// handshakeHeaders copies the inbound headers for the upstream dial, dropping
// the fields gorilla/websocket generates itself (it rejects duplicates rather
// than ignoring them).
func handshakeHeaders(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for key, vals := range src {
		switch {
		case strings.EqualFold(key, "Upgrade"),
			strings.EqualFold(key, "Connection"),
			strings.HasPrefix(strings.ToLower(key), "sec-websocket-"):
			continue
		}
		dst[http.CanonicalHeaderKey(key)] = vals
	}
	return dst
}
