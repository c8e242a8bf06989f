// Package proxy holds the forwarding core: the frozen upstream configuration
// and the pure URI rewriter shared by the HTTP forwarder and the WebSocket
// relay.
package proxy

import (
	"fmt"
	"net/url"
	"strings"
)

// Config describes the single upstream target. It is built once at startup
// via Builder, immutable afterwards, and shared by reference across all
// concurrently handled requests and relay sessions.
type Config struct {
	target         string
	webSecure      bool
	wsSecure       bool
	supportNesting bool
}

// Target returns the upstream authority (host[:port], no scheme).
func (c *Config) Target() string { return c.target }

// WebSecure reports whether plain HTTP traffic is forwarded over https.
func (c *Config) WebSecure() bool { return c.webSecure }

// WSSecure reports whether WebSocket traffic is forwarded over wss.
func (c *Config) WSSecure() bool { return c.wsSecure }

// SupportNesting reports whether the inbound path and query are appended to
// the target when building the upstream URI.
func (c *Config) SupportNesting() bool { return c.supportNesting }

// Builder accumulates proxy settings before freezing them into a Config.
// All setters return the builder for chaining and must only be called before
// Build; the Config produced by Build is never mutated.
type Builder struct {
	target         string
	webSecure      bool
	wsSecure       bool
	supportNesting bool
}

// NewBuilder creates a Builder for the given upstream target. All flags
// default to false: plain http, plain ws, nesting disabled.
func NewBuilder(target string) *Builder {
	return &Builder{target: target}
}

// WebSecure forwards plain HTTP traffic over https.
func (b *Builder) WebSecure() *Builder {
	b.webSecure = true
	return b
}

// WebInsecure forwards plain HTTP traffic over http.
func (b *Builder) WebInsecure() *Builder {
	b.webSecure = false
	return b
}

// WSSecure forwards WebSocket traffic over wss.
func (b *Builder) WSSecure() *Builder {
	b.wsSecure = true
	return b
}

// WSInsecure forwards WebSocket traffic over ws.
func (b *Builder) WSInsecure() *Builder {
	b.wsSecure = false
	return b
}

// EnableNesting appends the inbound path and query to the target when
// building the upstream URI.
func (b *Builder) EnableNesting() *Builder {
	b.supportNesting = true
	return b
}

// DisableNesting discards the inbound path and query; the bare target is
// used for every upstream URI.
func (b *Builder) DisableNesting() *Builder {
	b.supportNesting = false
	return b
}

// Build validates the target and freezes the configuration. A scheme prefix
// in the target is stripped, never duplicated. Returns ErrInvalidTarget when
// the target is not a bare URI authority.
func (b *Builder) Build() (*Config, error) {
	authority, err := normalizeTarget(b.target)
	if err != nil {
		return nil, err
	}

	return &Config{
		target:         authority,
		webSecure:      b.webSecure,
		wsSecure:       b.wsSecure,
		supportNesting: b.supportNesting,
	}, nil
}

// normalizeTarget strips any scheme prefix and validates that what remains
// is a plain authority (host with optional port).
func normalizeTarget(target string) (string, error) {
	t := strings.TrimSpace(target)
	if i := strings.Index(t, "://"); i >= 0 {
		t = t[i+len("://"):]
	}
	if t == "" {
		return "", fmt.Errorf("%w: empty target", ErrInvalidTarget)
	}

	u, err := url.Parse("//" + t)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidTarget, target, err)
	}
	if u.Host == "" || u.Hostname() == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrInvalidTarget, target)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return "", fmt.Errorf("%w: %q must be host[:port] only", ErrInvalidTarget, target)
	}

	return u.Host, nil
}
