package metrics

import "testing"

func TestNormalizeMethod(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{"GET", "GET"},
		{"POST", "POST"},
		{"DELETE", "DELETE"},
		{"PROPFIND", "other"},
		{"get", "other"},
		{"", "other"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			if got := NormalizeMethod(tt.method); got != tt.want {
				t.Errorf("NormalizeMethod(%q) = %q, want %q", tt.method, got, tt.want)
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/healthz", "/healthz"},
		{"/proxy/status", "/proxy/status"},
		{"/metrics", "/metrics"},
		{"/", "relayed"},
		{"/api/v1/items", "relayed"},
		{"/healthzz", "relayed"},
		{"/proxy/statuses", "relayed"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := NormalizePath(tt.path); got != tt.want {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestNew_RegistersCollectors(t *testing.T) {
	m := New()

	m.RequestsTotal.WithLabelValues("GET", "200", "relayed").Inc()
	m.RelayFrames.WithLabelValues(DirectionClientToUpstream).Inc()
	m.RelaySessionsActive.Inc()
	m.RelaySessionsActive.Dec()

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	seen := make(map[string]bool, len(families))
	for _, f := range families {
		seen[f.GetName()] = true
	}
	for _, name := range []string{
		"relay_proxy_http_requests_total",
		"relay_proxy_ws_frames_relayed_total",
	} {
		if !seen[name] {
			t.Errorf("metric %s not gathered", name)
		}
	}
}
