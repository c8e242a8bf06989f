package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"relay-proxy-go/internal/client"
	"relay-proxy-go/internal/config"
	"relay-proxy-go/internal/model"
	"relay-proxy-go/internal/proxy"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testForwarder wires a ForwardService at an httptest upstream with nesting
// enabled so request paths reach the upstream handler.
func testForwarder(t *testing.T, upstreamURL string) *ForwardService {
	t.Helper()
	u, err := url.Parse(upstreamURL)
	if err != nil {
		t.Fatal(err)
	}

	pcfg, err := proxy.NewBuilder(u.Host).EnableNesting().Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	cfg := &config.Config{
		Upstream: config.UpstreamConfig{
			Target:          u.Host,
			TimeoutSeconds:  10,
			IdleConnections: 10,
		},
	}
	uc := client.NewUpstreamClient(cfg, discardLogger(), nil)
	return NewForwardService(uc, pcfg, discardLogger())
}

func TestForwardHeaders(t *testing.T) {
	src := http.Header{
		"Accept":                {"application/json"},
		"Content-Type":          {"application/json"},
		"Authorization":         {"Bearer token"},
		"X-Custom-Header":       {"kept"},
		"Connection":            {"keep-alive"},
		"Keep-Alive":            {"timeout=5"},
		"Proxy-Connection":      {"keep-alive"},
		"Te":                    {"trailers"},
		"Trailer":               {"Expires"},
		"Transfer-Encoding":     {"chunked"},
		"Upgrade":               {"websocket"},
		"Sec-Websocket-Key":     {"abc"},
		"Sec-Websocket-Version": {"13"},
	}

	dst := ForwardHeaders(src)

	tests := []struct {
		name    string
		key     string
		wantLen int
	}{
		{"Accept forwarded", "Accept", 1},
		{"Content-Type forwarded", "Content-Type", 1},
		{"Authorization forwarded", "Authorization", 1},
		{"X-Custom-Header forwarded", "X-Custom-Header", 1},
		{"Connection stripped", "Connection", 0},
		{"Keep-Alive stripped", "Keep-Alive", 0},
		{"Proxy-Connection stripped", "Proxy-Connection", 0},
		{"TE stripped", "Te", 0},
		{"Trailer stripped", "Trailer", 0},
		{"Transfer-Encoding stripped", "Transfer-Encoding", 0},
		{"Upgrade stripped", "Upgrade", 0},
		{"Sec-Websocket-Key stripped", "Sec-Websocket-Key", 0},
		{"Sec-Websocket-Version stripped", "Sec-Websocket-Version", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := len(dst.Values(tt.key))
			if got != tt.wantLen {
				t.Errorf("header %q: got %d values, want %d", tt.key, got, tt.wantLen)
			}
		})
	}
}

func TestForward_RoundTrip(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RequestURI() != "/echo?x=1" {
			t.Errorf("upstream URI = %q, want %q", r.URL.RequestURI(), "/echo?x=1")
		}
		w.Header().Set("X-Test", "1")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer upstream.Close()

	s := testForwarder(t, upstream.URL)

	resp, err := s.Forward(&model.ProxyRequest{
		Ctx:       context.Background(),
		Method:    http.MethodGet,
		PathQuery: "/echo?x=1",
		Header:    http.Header{},
		Body:      http.NoBody,
	})
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if got := resp.Header.Get("X-Test"); got != "1" {
		t.Errorf("X-Test = %q, want %q", got, "1")
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("body = %q, want %q", string(body), "ok")
	}
}

func TestForward_PostBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "payload" {
			t.Errorf("upstream body = %q, want %q", string(body), "payload")
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer upstream.Close()

	s := testForwarder(t, upstream.URL)

	resp, err := s.Forward(&model.ProxyRequest{
		Ctx:       context.Background(),
		Method:    http.MethodPost,
		PathQuery: "/submit",
		Header:    http.Header{"Content-Type": {"text/plain"}},
		Body:      io.NopCloser(strings.NewReader("payload")),
	})
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
}

func TestForward_NestingDisabledIgnoresPath(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RequestURI() != "/" {
			t.Errorf("upstream URI = %q, want %q (nesting disabled)", r.URL.RequestURI(), "/")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	u, err := url.Parse(upstream.URL)
	if err != nil {
		t.Fatal(err)
	}
	pcfg, err := proxy.NewBuilder(u.Host).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	cfg := &config.Config{
		Upstream: config.UpstreamConfig{Target: u.Host, TimeoutSeconds: 10, IdleConnections: 10},
	}
	uc := client.NewUpstreamClient(cfg, discardLogger(), nil)
	s := NewForwardService(uc, pcfg, discardLogger())

	resp, err := s.Forward(&model.ProxyRequest{
		Ctx:       context.Background(),
		Method:    http.MethodGet,
		PathQuery: "/deeply/nested?x=1",
		Header:    http.Header{},
		Body:      http.NoBody,
	})
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestForward_UpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	s := testForwarder(t, upstream.URL)
	upstream.Close()

	_, err := s.Forward(&model.ProxyRequest{
		Ctx:       context.Background(),
		Method:    http.MethodGet,
		PathQuery: "/",
		Header:    http.Header{},
		Body:      http.NoBody,
	})
	if err == nil {
		t.Fatal("Forward() expected error for closed upstream, got nil")
	}
}
