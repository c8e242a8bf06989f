package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"relay-proxy-go/internal/metrics"
)

// closeGracePeriod bounds how long a close frame write may block during
// teardown.
const closeGracePeriod = time.Second

// session is one active relay pair: a client-facing connection and an
// upstream connection with a pump per direction.
type session struct {
	client   *websocket.Conn
	upstream *websocket.Conn

	closeOnce sync.Once
}

func newSession(clientConn, upstreamConn *websocket.Conn, readLimit int64) *session {
	if readLimit > 0 {
		clientConn.SetReadLimit(readLimit)
		upstreamConn.SetReadLimit(readLimit)
	}
	return &session{client: clientConn, upstream: upstreamConn}
}

// run operates both pumps and blocks until the session is fully torn down.
//
// The two pumps share one cancellation scope. Whichever pump exits first —
// read error, write error, or stream end — cancels the scope; cancellation
// closes both sockets, which unblocks the sibling's pending read within one
// iteration. run returns only after both pumps have exited, so no frame is
// ever forwarded on a dead session and the sockets are released exactly once.
func (s *session) run(logger *slog.Logger, m *metrics.Metrics) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-ctx.Done()
		s.close()
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer cancel()
		pump(s.client, s.upstream, metrics.DirectionClientToUpstream, logger, m)
	}()
	go func() {
		defer wg.Done()
		defer cancel()
		pump(s.upstream, s.client, metrics.DirectionUpstreamToClient, logger, m)
	}()
	wg.Wait()
}

// close shuts both sockets. Safe to call from any goroutine, effective once.
func (s *session) close() {
	s.closeOnce.Do(func() {
		_ = s.client.Close()
		_ = s.upstream.Close()
	})
}

// pump forwards frames from src to dst until src ends or a write fails.
// Frame order within the direction is preserved: each frame is written before
// the next read. On a clean close from src, the close frame is propagated to
// dst so the peer endpoint sees a graceful shutdown rather than a cut socket.
func pump(src, dst *websocket.Conn, direction string, logger *slog.Logger, m *metrics.Metrics) {
	for {
		msgType, msg, err := src.ReadMessage()
		if err != nil {
			if isUnexpectedClose(err) {
				logger.Debug("relay read ended", "direction", direction, "err", err)
			}
			writeClose(dst, err)
			return
		}

		if err := dst.WriteMessage(msgType, msg); err != nil {
			logger.Debug("relay write failed", "direction", direction, "err", err)
			return
		}

		if m != nil {
			m.RelayFrames.WithLabelValues(direction).Inc()
		}
	}
}

// writeClose propagates a close frame to conn, deriving the close code from
// the read error that ended the pump.
func writeClose(conn *websocket.Conn, readErr error) {
	code := websocket.CloseNormalClosure
	if ce, ok := readErr.(*websocket.CloseError); ok && ce.Code != websocket.CloseNoStatusReceived {
		code = ce.Code
	}
	msg := websocket.FormatCloseMessage(code, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
}

func isUnexpectedClose(err error) bool {
	return websocket.IsUnexpectedCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}
