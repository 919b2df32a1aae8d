// Package telemetry installs the OpenTelemetry tracer provider and traces
// pipeline stages.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sweetpotato0/govassist/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// EndpointEnv is consulted when Config.Endpoint is empty.
const EndpointEnv = "OTEL_EXPORTER_OTLP_ENDPOINT"

const flushTimeout = 5 * time.Second

// Config selects where spans are exported.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// Endpoint is an OTLP gRPC collector address. Without one, spans are
	// written to stderr.
	Endpoint string
	Disable  bool
	Logger   *slog.Logger
}

// ShutdownFunc flushes pending spans.
type ShutdownFunc func(context.Context) error

func noop(context.Context) error { return nil }

// Init registers a global tracer provider and the W3C trace-context propagator.
func Init(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	if cfg.Disable {
		return noop, nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.WithComponent("telemetry")
	}

	res, err := serviceResource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	exp, err := exporter(ctx, cfg.Endpoint, logger)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, flushTimeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("flush spans", "error", err)
			return err
		}
		return nil
	}, nil
}

func serviceResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "govassist"
	}
	opts := []resource.Option{
		resource.WithAttributes(semconv.ServiceNameKey.String(name)),
		resource.WithFromEnv(),
		resource.WithProcess(),
	}
	if cfg.ServiceVersion != "" {
		opts = append(opts, resource.WithAttributes(semconv.ServiceVersionKey.String(cfg.ServiceVersion)))
	}
	res, err := resource.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}
	return res, nil
}

func exporter(ctx context.Context, endpoint string, logger *slog.Logger) (sdktrace.SpanExporter, error) {
	if endpoint == "" {
		endpoint = os.Getenv(EndpointEnv)
	}
	if endpoint == "" {
		logger.Warn("no collector endpoint, writing spans to stderr")
		return stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
	}

	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}
	logger.Info("exporting spans", "endpoint", endpoint)
	return exp, nil
}
