package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// GinMiddleware traces each API request and records request metrics by
// route template, so run ids do not blow up cardinality. Either argument
// may be nil.
func GinMiddleware(metrics *Metrics, tracer trace.Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		var span trace.Span
		if tracer != nil {
			ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
			ctx, span = tracer.Start(ctx, SpanHTTPRequest+" "+c.Request.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", c.Request.Method),
					attribute.String("http.route", route),
				),
			)
			c.Request = c.Request.WithContext(ctx)
		}

		c.Next()

		status := c.Writer.Status()
		if span != nil {
			span.SetAttributes(attribute.Int("http.status_code", status))
			if status >= 500 {
				span.SetStatus(codes.Error, "server error")
			}
			span.End()
		}
		if metrics != nil {
			metrics.RecordRequest(c.Request.Context(), c.Request.Method, route, status, time.Since(start))
		}
	}
}
