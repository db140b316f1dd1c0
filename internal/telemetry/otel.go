package telemetry

import (
	"context"
	"crypto/x509"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/gondar-software/domain-manager/internal/version"
)

const ServiceName = "domain-manager"

type Config struct {
	Endpoint    string // host:port of an OTLP gRPC collector; empty disables export
	Insecure    bool
	Environment string
}

// Tracer returns the tracer used for provisioning spans.
func Tracer() trace.Tracer {
	return otel.Tracer(ServiceName)
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithOSDescription(),
		resource.WithAttributes(
			attribute.String("service.name", ServiceName),
			attribute.String("service.version", version.Version),
			attribute.String("env", cfg.Environment),
		),
	)
}

func dialOption(cfg Config) (grpc.DialOption, error) {
	if cfg.Insecure {
		return grpc.WithTransportCredentials(insecure.NewCredentials()), nil
	}
	pool, err := x509.SystemCertPool()
	if err != nil {
		return nil, err
	}
	return grpc.WithTransportCredentials(credentials.NewClientTLSFromCert(pool, "")), nil
}

// Setup installs the global propagator and, when an endpoint is configured,
// a batching OTLP trace exporter. The returned shutdown flushes pending spans
// and must be called on exit.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opt, err := dialOption(cfg)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithDialOption(opt),
	)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return func(ctx context.Context) error {
		return errors.Join(provider.ForceFlush(ctx), provider.Shutdown(ctx))
	}, nil
}
