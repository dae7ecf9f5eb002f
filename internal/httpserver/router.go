package httpserver

import (
	"errors"

	"storefront-cart/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps holds the collaborators the router needs.
type Deps struct {
	CartSvc CartService
	// DB is pinged by /readyz; nil when running on the ephemeral store.
	DB          Pinger
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTP
	CORSOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, deps Deps) (*gin.Engine, error) {
	if deps.CartSvc == nil {
		return nil, errors.New("cart service is required")
	}
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		requestIDMiddleware(),
		recoveryMiddleware(logger),
		accessLogMiddleware(logger, deps.HTTPMetrics),
		corsMiddleware(deps.CORSOrigins),
		traceContextMiddleware(),
	)

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.DB))
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	carts := &cartHandler{svc: deps.CartSvc, logger: logger}
	carts.register(router.Group("/", identityMiddleware()))

	return router, nil
}
