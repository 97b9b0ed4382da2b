package middleware

import (
	"net/http"
	"time"

	"campuslive/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TracingMiddleware opens a span per HTTP request. Handler errors attached
// via c.Error land on the span, so a failed login or history read shows up
// in the same trace as the relay events around it.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.TraceHTTPRequest(c.Request.Context(), c.Request.Method, c.FullPath())
		defer span.End()

		span.SetAttributes(
			attribute.String("http.client_ip", c.ClientIP()),
			attribute.String("http.user_agent", c.Request.UserAgent()),
		)

		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		span.SetAttributes(
			attribute.Int("http.status_code", c.Writer.Status()),
			attribute.Int64("http.duration_ms", time.Since(start).Milliseconds()),
		)

		switch {
		case len(c.Errors) > 0:
			tracing.RecordError(ctx, c.Errors.Last().Err)
		case c.Writer.Status() >= http.StatusBadRequest:
			span.SetStatus(codes.Error, http.StatusText(c.Writer.Status()))
		default:
			span.SetStatus(codes.Ok, "")
		}
	}
}
