package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lumber-labs/lumber-agent/pkg/types"
)

// ContextTraceID is the gin context key holding the request trace id.
const ContextTraceID = "trace_id"

// Logger returns a middleware that logs requests. Every request gets the
// trace id the caller sent, or a generated one, so access logs and operation
// logs can be correlated.
func Logger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		traceID := c.GetHeader(types.TraceIDHeader)
		if traceID == "" {
			traceID = types.GenerateTraceID()
		}
		c.Set(ContextTraceID, traceID)

		c.Next()

		latency := time.Since(start)

		log.Info("request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", latency,
			"trace_id", traceID,
		)
	}
}

// TraceID returns the trace id assigned to the request by Logger.
func TraceID(c *gin.Context) string {
	return c.GetString(ContextTraceID)
}
