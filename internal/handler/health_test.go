package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"relay-proxy-go/internal/proxy"
)

func TestHealthz(t *testing.T) {
	pcfg, err := proxy.NewBuilder("localhost:3000").Build()
	if err != nil {
		t.Fatal(err)
	}
	h := NewHealthHandler(pcfg, "test")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Healthz(c); err != nil {
		t.Fatalf("Healthz() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want %q", body["status"], "ok")
	}
}

func TestStatus(t *testing.T) {
	pcfg, err := proxy.NewBuilder("api.example.com:8443").
		WebSecure().
		WSSecure().
		EnableNesting().
		Build()
	if err != nil {
		t.Fatal(err)
	}
	h := NewHealthHandler(pcfg, "1.2.3")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/proxy/status", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Status(c); err != nil {
		t.Fatalf("Status() error = %v", err)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if body["version"] != "1.2.3" {
		t.Errorf("version = %v, want %q", body["version"], "1.2.3")
	}
	if body["upstream_target"] != "api.example.com:8443" {
		t.Errorf("upstream_target = %v, want %q", body["upstream_target"], "api.example.com:8443")
	}
	for _, key := range []string{"web_secure", "ws_secure", "support_nesting"} {
		if body[key] != true {
			t.Errorf("%s = %v, want true", key, body[key])
		}
	}
}
