package apm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/swap-aggregator/internal/logger"
)

type Provider string

const (
	ZipkinProvider   Provider = "zipkin"
	OTLPGRPCProvider Provider = "otlp-grpc"
	OTLPHTTPProvider Provider = "otlp-http"
	ConsoleProvider  Provider = "console"
	EmptyProvider    Provider = "empty"
)

type TraceProvider interface {
	Stop() error
}

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

// Settings selects and configures the span exporter.
type Settings struct {
	Provider    Provider
	ServiceName string
	Endpoint    string
	// Headers in key=value[,key=value] form, as OTEL_EXPORTER_OTLP_HEADERS.
	Headers string
}

// ParseHeaders parses key=value pairs separated by commas. Malformed pairs are skipped.
func ParseHeaders(s string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func newExporter(ctx context.Context, s Settings) (sdktrace.SpanExporter, error) {
	switch s.Provider {
	case ZipkinProvider:
		return zipkin.New(s.Endpoint)
	case OTLPGRPCProvider:
		return otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpointURL(s.Endpoint),
			otlptracegrpc.WithHeaders(ParseHeaders(s.Headers)),
		)
	case OTLPHTTPProvider:
		return otlptracehttp.New(ctx,
			otlptracehttp.WithEndpointURL(s.Endpoint),
			otlptracehttp.WithHeaders(ParseHeaders(s.Headers)),
		)
	case ConsoleProvider:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unknown trace provider %q", s.Provider)
	}
}

// NewTraceProvider installs a global tracer provider for s. Unknown or empty
// providers and exporter failures fall back to a no-op provider, logged as a warning.
func NewTraceProvider(ctx context.Context, log logger.LoggerInterface, s Settings) TraceProvider {
	if s.Provider == "" || s.Provider == EmptyProvider {
		return NewEmptyTraceProvider()
	}

	exp, err := newExporter(ctx, s)
	if err != nil {
		log.Warn(ctx, "trace exporter unavailable, tracing disabled",
			"provider", string(s.Provider), "error", err)
		return NewEmptyTraceProvider()
	}

	rsrc, _ := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(s.ServiceName),
			attribute.String("otel.provider", string(s.Provider)),
		))

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(rsrc),
	)

	// Set global trace provider
	otel.SetTracerProvider(tp)

	// Set trace propagator
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	log.Info(ctx, "tracing enabled", "provider", string(s.Provider), "endpoint", s.Endpoint)

	return &traceProvider{
		tp,
	}
}

func (o *traceProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
	defer cancel()

	return o.tp.Shutdown(ctx)
}
