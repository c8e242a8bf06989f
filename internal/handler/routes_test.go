package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"relay-proxy-go/internal/config"
	"relay-proxy-go/internal/metrics"
	"relay-proxy-go/internal/proxy"
)

func newTestServer(t *testing.T, target string, metricsEnabled bool) *echo.Echo {
	t.Helper()

	cfg := &config.Config{
		Upstream: config.UpstreamConfig{
			Target:          target,
			SupportNesting:  true,
			TimeoutSeconds:  10,
			IdleConnections: 10,
		},
		Relay:   config.RelayConfig{HandshakeTimeoutSeconds: 2},
		Metrics: config.MetricsConfig{Enabled: metricsEnabled, Path: "/metrics"},
	}
	pcfg, err := proxy.NewBuilder(target).EnableNesting().Build()
	if err != nil {
		t.Fatal(err)
	}

	e := echo.New()
	m := metrics.New()
	ph := newTestHandler(t, target)
	hh := NewHealthHandler(pcfg, "test")
	RegisterRoutes(e, cfg, m, ph, hh)
	return e
}

func TestRegisterRoutes_InfraEndpoints(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer upstream.Close()

	e := newTestServer(t, hostOf(t, upstream.URL), true)

	tests := []struct {
		path     string
		wantCode int
	}{
		{"/healthz", http.StatusOK},
		{"/proxy/status", http.StatusOK},
		{"/metrics", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.wantCode)
			}
			// Infra endpoints must be served locally, never relayed.
			if rec.Code == http.StatusTeapot {
				t.Errorf("GET %s reached the upstream", tt.path)
			}
		})
	}
}

func TestRegisterRoutes_MetricsDisabled(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer upstream.Close()

	e := newTestServer(t, hostOf(t, upstream.URL), false)

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	// With no local metrics route the catch-all relays the path upstream.
	if rec.Code != http.StatusTeapot {
		t.Errorf("GET /metrics = %d, want %d (relayed)", rec.Code, http.StatusTeapot)
	}
}

func TestRegisterRoutes_CatchAll(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("from:" + r.URL.RequestURI()))
	}))
	defer upstream.Close()

	e := newTestServer(t, hostOf(t, upstream.URL), true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items?limit=5", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got, want := rec.Body.String(), "from:/api/v1/items?limit=5"; !strings.HasPrefix(got, want) {
		t.Errorf("body = %q, want prefix %q", got, want)
	}
}
