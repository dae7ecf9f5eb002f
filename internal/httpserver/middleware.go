package httpserver

import (
	"net/http"
	"strings"
	"time"

	"storefront-cart/internal/metrics"
	"storefront-cart/internal/service/identity"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

const (
	headerRequestID     = "X-Request-ID"
	headerCartItemCount = "X-Cart-Item-Count"

	requestIDKey    = "requestID"
	cartIdentityKey = "cartIdentity"
)

// requestIDMiddleware echoes the caller's X-Request-ID or assigns a new one.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(headerRequestID)
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Header(headerRequestID, rid)
		c.Next()
	}
}

// traceContextMiddleware extracts W3C trace context so service spans join the caller's trace.
func traceContextMiddleware() gin.HandlerFunc {
	prop := otel.GetTextMapPropagator()
	return func(c *gin.Context) {
		ctx := prop.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// accessLogMiddleware writes one line per request and records HTTP metrics
// against the route template.
func accessLogMiddleware(logger *zap.Logger, m *metrics.HTTP) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		status := c.Writer.Status()
		elapsed := time.Since(start)
		m.Observe(c.Request.Method, route, status, elapsed)

		fields := []zap.Field{
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case status >= http.StatusBadRequest:
			logger.Info("request", fields...)
		default:
			logger.Debug("request", fields...)
		}
	}
}

func recoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Any("panic", recovered),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{
			Success: false,
			Message: "internal server error",
			Code:    codeInternal,
		})
	})
}

// identityMiddleware resolves the cart identity from the bearer credential.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(cartIdentityKey, identity.FromAuthorization(c.GetHeader("Authorization")))
		c.Next()
	}
}

func cartIdentity(c *gin.Context) string {
	if v := c.GetString(cartIdentityKey); v != "" {
		return v
	}
	return identity.Guest
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", headerRequestID},
		ExposeHeaders: []string{headerRequestID, headerCartItemCount},
		MaxAge:        12 * time.Hour,
	}
	var allowed []string
	for _, o := range origins {
		o = strings.TrimSpace(o)
		switch o {
		case "":
		case "*":
			cfg.AllowAllOrigins = true
			return cors.New(cfg)
		default:
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 {
		cfg.AllowAllOrigins = true
		return cors.New(cfg)
	}
	cfg.AllowOrigins = allowed
	return cors.New(cfg)
}
