package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Fachryxyf/felisa-userside/pkg/logger"
)

// Span attributes that tie a request span to the review it belongs to.
const (
	AttrSessionID     = attribute.Key("review.session_id")
	AttrCriterion     = attribute.Key("review.criterion")
	AttrCorrelationID = attribute.Key("review.correlation_id")
)

// Tracing starts a server span per request, continuing any W3C trace context
// the storefront page sent. After routing the span is renamed to the chi
// pattern and tagged with the review session and criterion from the path.
func Tracing(serviceName string) func(http.Handler) http.Handler {
	tracer := otel.Tracer("github.com/Fachryxyf/felisa-userside/" + serviceName)
	propagator := otel.GetTextMapPropagator()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			attrs := []attribute.KeyValue{
				semconv.HTTPMethod(r.Method),
				semconv.HTTPTarget(r.URL.RequestURI()),
				semconv.HTTPScheme(scheme(r)),
				semconv.UserAgentOriginal(r.UserAgent()),
			}
			if id := logger.CorrelationIDFromContext(ctx); id != "" {
				attrs = append(attrs, AttrCorrelationID.String(id))
			}

			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			// The storefront page reads traceparent to attach it to bug reports.
			propagator.Inject(ctx, propagation.HeaderCarrier(w.Header()))

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r.WithContext(ctx))

			annotateRoute(span, r)
			span.SetAttributes(semconv.HTTPStatusCode(rw.statusCode))
			if rw.statusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rw.statusCode))
			}
		})
	}
}

// annotateRoute reads what chi resolved while routing. A request without an
// {id} segment falls back to the session header the host UI sends.
func annotateRoute(span trace.Span, r *http.Request) {
	sessionID := r.Header.Get(SessionIDHeader)

	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			span.SetName(r.Method + " " + pattern)
			span.SetAttributes(semconv.HTTPRoute(pattern))
		}
		if id := rctx.URLParam("id"); id != "" {
			sessionID = id
		}
		if criterion := rctx.URLParam("criterion"); criterion != "" {
			span.SetAttributes(AttrCriterion.String(criterion))
		}
	}

	if sessionID != "" {
		span.SetAttributes(AttrSessionID.String(sessionID))
	}
}

// scheme honours X-Forwarded-Proto from the ingress.
func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "http"
}
