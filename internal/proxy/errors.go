package proxy

import "errors"

// ErrInvalidTarget is returned when the configured upstream target cannot be
// parsed as a URI authority. It is fatal at startup: a proxy with an invalid
// target must not serve traffic.
var ErrInvalidTarget = errors.New("invalid upstream target: not a valid URI authority")

// ErrUnsupportedMethod is returned for non-upgrade requests with a method
// other than GET or POST. Maps to HTTP 405.
var ErrUnsupportedMethod = errors.New("unsupported method: only GET and POST are forwarded")

// ErrUpstreamUnreachable is returned when the upstream cannot be reached at
// all (connection refused, DNS failure, timeout). Maps to HTTP 502 for plain
// requests; for WebSocket upgrades it aborts the handshake before the client
// connection is upgraded.
var ErrUpstreamUnreachable = errors.New("upstream unreachable")
