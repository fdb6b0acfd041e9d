package logger

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jose32011/beatbazaar/pkg/correlation"
	"go.uber.org/zap"
)

// GinMiddleware logs each request with a correlation ID and safe fields.
// The correlation ID is echoed back in X-Request-Id so payment-provider
// callbacks and support tickets can be matched to log lines.
func GinMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		ctx := c.Request.Context()
		if requestID := strings.TrimSpace(c.GetHeader("X-Request-Id")); requestID != "" {
			ctx = correlation.WithCorrelationID(ctx, requestID)
		}
		ctx, cid := correlation.Ensure(ctx)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-Id", cid)

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}

		fields := []zap.Field{
			zap.String("request_id", cid),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		if lastErr := c.Errors.Last(); lastErr != nil {
			fields = append(fields, zap.String("error", lastErr.Err.Error()))
		}

		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}
