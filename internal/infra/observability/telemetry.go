package observability

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// TelemetryProvider hands out the tracer/meter handles the HTTP layer and
// engine instrument with. It is deliberately backend-agnostic: without a
// registered SDK TracerProvider/MeterProvider (a deployment-time decision,
// not this package's), tracer.Start and meter instruments are no-ops, the
// same behavior the otel API guarantees for any uninstrumented process.
type TelemetryProvider struct {
	cfg    *Config
	tracer trace.Tracer
	meter  metric.Meter
	logger *slog.Logger
}

// NewTelemetryProvider builds a provider bound to the global otel API under
// the configured service name.
func NewTelemetryProvider(cfg *Config, logger *slog.Logger) *TelemetryProvider {
	return &TelemetryProvider{
		cfg:    cfg,
		tracer: otel.Tracer(cfg.ServiceName),
		meter:  otel.Meter(cfg.ServiceName),
		logger: logger,
	}
}

// GetTracer returns the bound tracer.
func (tp *TelemetryProvider) GetTracer() trace.Tracer {
	if tp == nil || tp.tracer == nil {
		return otel.Tracer("")
	}
	return tp.tracer
}

// GetMeter returns the bound meter.
func (tp *TelemetryProvider) GetMeter() metric.Meter {
	if tp == nil || tp.meter == nil {
		return otel.Meter("")
	}
	return tp.meter
}

// CreateSpan starts a span, or returns ctx/a no-op span unchanged when
// tracing is disabled.
func (tp *TelemetryProvider) CreateSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if tp == nil || tp.cfg == nil || !tp.cfg.Enabled {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tp.GetTracer().Start(ctx, name, opts...)
}

// TelemetryMiddleware wraps every HTTP request in a span named after its
// sanitized route, matching the teacher's request-scoped instrumentation.
func (tp *TelemetryProvider) TelemetryMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tp == nil || tp.cfg == nil || !tp.cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx, span := tp.GetTracer().Start(r.Context(), sanitizeEndpoint(r.URL.Path),
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.route", sanitizeEndpoint(r.URL.Path)),
				),
			)
			defer span.End()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r.WithContext(ctx))

			span.SetAttributes(attribute.Int("http.status_code", rw.statusCode))
		})
	}
}

// Shutdown is a placeholder for a future exporter's flush/close; there is
// none configured today, so this never errors.
func (tp *TelemetryProvider) Shutdown(_ context.Context) error {
	return nil
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// sanitizeEndpoint collapses numeric path segments to {id} so routes group
// into one span/metric series regardless of the concrete floor/elevator ID.
func sanitizeEndpoint(path string) string {
	if path == "" {
		return ""
	}
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		path = path[:idx]
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg != "" && isNumeric(seg) {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil
}
