package proxy

import "fmt"

// Protocol selects which scheme pair the rewriter uses.
type Protocol string

// Protocols understood by RewriteURI.
const (
	ProtocolHTTP      Protocol = "http"
	ProtocolWebSocket Protocol = "websocket"
)

// RewriteURI maps an inbound request's path and query to the fully-qualified
// upstream URI. The scheme is derived from the config's secure flags and the
// protocol kind; the authority is the config target. When nesting is enabled
// the inbound path and query are appended verbatim, otherwise they are
// discarded.
//
// The function is pure: it performs no I/O and the same inputs always yield
// the same URI.
func RewriteURI(cfg *Config, pathAndQuery string, protocol Protocol) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("%w: nil config", ErrInvalidTarget)
	}
	authority, err := normalizeTarget(cfg.target)
	if err != nil {
		return "", err
	}

	var scheme string
	switch protocol {
	case ProtocolWebSocket:
		scheme = "ws"
		if cfg.wsSecure {
			scheme = "wss"
		}
	default:
		scheme = "http"
		if cfg.webSecure {
			scheme = "https"
		}
	}

	uri := scheme + "://" + authority
	if cfg.supportNesting {
		uri += pathAndQuery
	}

	return uri, nil
}
