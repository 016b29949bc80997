// Package middleware provides HTTP middleware for the catalog import API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength bounds request IDs copied into span attributes
const MaxRequestIDLength = 128

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// DefaultTracingConfig returns default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "catalogsync-backend",
		Enabled:     true,
	}
}

// TracingWithConfig returns otelgin middleware. Spans are named
// "METHOD route_pattern", e.g. "GET /api/v1/imports/:id".
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return otelgin.Middleware(cfg.ServiceName)
}

// TracingAttributeInjector copies the request and owner IDs onto the active
// span. It belongs after RequestID and the JWT middleware.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if requestID := spanRequestID(c); requestID != "" {
				span.SetAttributes(attribute.String("request_id", requestID))
			}
			if ownerID := GetOwnerID(c); ownerID != "" {
				span.SetAttributes(attribute.String("owner_id", ownerID))
			}
		}
		c.Next()
	}
}

func spanRequestID(c *gin.Context) string {
	id := c.GetString(RequestIDKey)
	if id == "" {
		id = c.GetHeader(RequestIDHeader)
	}
	if len(id) > MaxRequestIDLength {
		return id[:MaxRequestIDLength]
	}
	return id
}

// SpanErrorMarker marks spans of 4xx/5xx responses with an error status.
// It belongs after TracingWithConfig.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		statusCode := c.Writer.Status()
		if statusCode < http.StatusBadRequest {
			return
		}

		var description string
		switch {
		case statusCode >= http.StatusInternalServerError:
			description = "Internal Server Error"
		case statusCode == http.StatusUnauthorized:
			description = "Unauthorized"
		case statusCode == http.StatusNotFound:
			description = "Not Found"
		case statusCode == http.StatusRequestEntityTooLarge:
			description = "Payload Too Large"
		default:
			description = "Client Error"
		}
		span.SetStatus(codes.Error, description)
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
	}
}
