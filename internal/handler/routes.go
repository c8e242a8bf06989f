package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"relay-proxy-go/internal/config"
	"relay-proxy-go/internal/metrics"
	"relay-proxy-go/internal/middleware"
)

// RegisterRoutes wires all route handlers onto the Echo instance. The
// catch-all route makes every path outside the reserved infra endpoints flow
// through the dispatch gate.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, m *metrics.Metrics, proxy *ProxyHandler, health *HealthHandler) {
	e.Use(middleware.MetricsMiddleware(m))

	e.GET("/healthz", health.Healthz)
	e.GET("/proxy/status", health.Status)

	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(
			promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}),
		))
	}

	e.Any("/*", proxy.Handle)
}
