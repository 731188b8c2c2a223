// Package otelsetup builds the process-wide trace.TracerProvider the Job
// Worker's per-stage spans and the Recall Engine's per-lane spans
// (internal/worker/pipeline.go, internal/recall/recall.go) record onto.
// Grounded on internal/platform/logger and internal/platform/searchindex's
// env-gated client construction: one exported Setup(ctx, log) that reads
// OTEL_* env vars and returns a shutdown func the entrypoint defers.
package otelsetup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/yungbote/streemm-backend/internal/platform/envutil"
	"github.com/yungbote/streemm-backend/internal/platform/logger"
)

// Shutdown flushes and stops the configured exporter. Safe to call on a
// nil-returning Setup (no-op tracer provider installed).
type Shutdown func(context.Context) error

// Setup installs a global trace.TracerProvider per OTEL_EXPORTER:
//
//	"otlp"   - OTLP/HTTP to OTEL_EXPORTER_OTLP_ENDPOINT (default localhost:4318)
//	"stdout" - spans written to stdout, for local debugging
//	"none"   - (default) a provider with no real exporter; spans are
//	           created and sampled but go nowhere, so pipeline.go/recall.go's
//	           Start/End calls stay cheap no-ops when tracing isn't configured
func Setup(ctx context.Context, log *logger.Logger, serviceName string) (Shutdown, error) {
	exporterKind := strings.ToLower(strings.TrimSpace(envutil.GetEnv("OTEL_EXPORTER", "none")))

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	var opts []sdktrace.TracerProviderOption
	opts = append(opts, sdktrace.WithResource(res))

	switch exporterKind {
	case "none", "":
		log.Info("otel tracing disabled (OTEL_EXPORTER unset)")
		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		return tp.Shutdown, nil

	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("stdout trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		log.Info("otel tracing enabled", "exporter", "stdout")
		return tp.Shutdown, nil

	case "otlp":
		endpoint := envutil.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")
		connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		exp, err := otlptracehttp.New(connCtx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("otlp trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		log.Info("otel tracing enabled", "exporter", "otlp", "endpoint", endpoint)
		return tp.Shutdown, nil

	default:
		return nil, fmt.Errorf("unknown OTEL_EXPORTER %q (want none|stdout|otlp)", exporterKind)
	}
}
