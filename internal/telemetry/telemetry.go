package telemetry

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
)

// Config holds OTLP/HTTP export settings
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string // host[:port], no scheme
	PathPrefix     string // prepended to /v1/traces and /v1/metrics
	Insecure       bool
	Username       string
	Password       string
	Enabled        bool
	Logger         *zap.Logger
}

// Provider owns the tracer and meter providers installed as globals
type Provider struct {
	tracers *trace.TracerProvider
	meters  *metric.MeterProvider
	logger  *zap.Logger
}

// Initialize installs OTLP trace and metric exporters.
// It returns a nil Provider when telemetry is disabled.
func Initialize(ctx context.Context, cfg Config) (*Provider, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if !cfg.Enabled {
		log.Info("opentelemetry disabled")
		return nil, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	headers := exporterHeaders(cfg.Username, cfg.Password)

	traceOpts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithURLPath(exporterPath(cfg.PathPrefix, "traces")),
		otlptracehttp.WithHeaders(headers),
	}
	metricOpts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
		otlpmetrichttp.WithURLPath(exporterPath(cfg.PathPrefix, "metrics")),
		otlpmetrichttp.WithHeaders(headers),
	}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
	}

	traceExporter, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	tracers := trace.NewTracerProvider(
		trace.WithBatcher(traceExporter, trace.WithBatchTimeout(5*time.Second)),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(tracers)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metricExporter, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		_ = tracers.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	meters := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(metricExporter, metric.WithInterval(30*time.Second))),
		metric.WithResource(res),
	)
	otel.SetMeterProvider(meters)

	log.Info("opentelemetry initialized",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("path_prefix", cfg.PathPrefix),
	)
	return &Provider{tracers: tracers, meters: meters, logger: log}, nil
}

// exporterPath joins an optional gateway prefix with the OTLP signal path
func exporterPath(prefix, signal string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix + "/v1/" + signal
}

// exporterHeaders returns a Basic auth header, or nil when no credentials are set
func exporterHeaders(username, password string) map[string]string {
	if username == "" && password == "" {
		return nil
	}
	creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return map[string]string{"Authorization": "Basic " + creds}
}

// Shutdown flushes and stops both providers
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}

	var errs []error
	if err := p.tracers.Shutdown(ctx); err != nil {
		p.logger.Error("failed to shut down tracer provider", zap.Error(err))
		errs = append(errs, err)
	}
	if err := p.meters.Shutdown(ctx); err != nil {
		p.logger.Error("failed to shut down meter provider", zap.Error(err))
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
