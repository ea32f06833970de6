// Package otel wires OpenTelemetry trace, metric and log providers exporting over OTLP gRPC.
package otel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

const metricExportInterval = 10 * time.Second

// Providers holds the OpenTelemetry providers and a shutdown function.
type Providers struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *metric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
	Shutdown       func(context.Context) error
}

// Endpoint is a parsed OTLP gRPC collector address.
type Endpoint struct {
	Target   string
	Insecure bool
}

// ParseEndpoint accepts host:port or a URL. Any path is dropped since the gRPC dial only needs host:port.
// Plain http and scheme-less endpoints are insecure; https uses TLS unless forceInsecure is set.
func ParseEndpoint(raw string, forceInsecure bool) (Endpoint, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid OTLP endpoint %q: %w", raw, err)
	}
	if u.Host == "" {
		return Endpoint{}, fmt.Errorf("invalid OTLP endpoint %q: missing host", raw)
	}
	return Endpoint{Target: u.Host, Insecure: forceInsecure || u.Scheme != "https"}, nil
}

// NewProviders creates providers exporting to endpoint. An empty endpoint yields SDK providers with no
// exporters and a no-op Shutdown.
func NewProviders(ctx context.Context, endpoint, serviceName string, forceInsecure bool, log zerolog.Logger) (*Providers, error) {
	if strings.TrimSpace(endpoint) == "" {
		return &Providers{
			TracerProvider: sdktrace.NewTracerProvider(),
			MeterProvider:  metric.NewMeterProvider(),
			LoggerProvider: sdklog.NewLoggerProvider(),
			Shutdown:       func(context.Context) error { return nil },
		}, nil
	}
	ep, err := ParseEndpoint(endpoint, forceInsecure)
	if err != nil {
		return nil, err
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	var shutdownFns []func(context.Context) error
	unwind := func() {
		for i := len(shutdownFns) - 1; i >= 0; i-- {
			_ = shutdownFns[i](ctx)
		}
	}

	tp, err := newTracerProvider(ctx, ep, res)
	if err != nil {
		return nil, err
	}
	shutdownFns = append(shutdownFns, tp.Shutdown)

	mp, err := newMeterProvider(ctx, ep, res)
	if err != nil {
		unwind()
		return nil, err
	}
	shutdownFns = append(shutdownFns, mp.Shutdown)

	lp, err := newLoggerProvider(ctx, ep, res)
	if err != nil {
		unwind()
		return nil, err
	}
	shutdownFns = append(shutdownFns, lp.Shutdown)

	log.Info().Str("endpoint", ep.Target).Bool("insecure", ep.Insecure).Msg("otel export enabled")

	return &Providers{
		TracerProvider: tp,
		MeterProvider:  mp,
		LoggerProvider: lp,
		Shutdown: func(ctx context.Context) error {
			var errs []error
			for i := len(shutdownFns) - 1; i >= 0; i-- {
				if err := shutdownFns[i](ctx); err != nil {
					log.Warn().Err(err).Msg("otel shutdown")
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}, nil
}

func newTracerProvider(ctx context.Context, ep Endpoint, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(ep.Target)}
	if ep.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exp, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res)), nil
}

func newMeterProvider(ctx context.Context, ep Endpoint, res *resource.Resource) (*metric.MeterProvider, error) {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(ep.Target)}
	if ep.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp metric exporter: %w", err)
	}
	reader := metric.NewPeriodicReader(exp, metric.WithInterval(metricExportInterval))
	return metric.NewMeterProvider(metric.WithResource(res), metric.WithReader(reader)), nil
}

func newLoggerProvider(ctx context.Context, ep Endpoint, res *resource.Resource) (*sdklog.LoggerProvider, error) {
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(ep.Target)}
	if ep.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exp, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp log exporter: %w", err)
	}
	return sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)), sdklog.WithResource(res)), nil
}

// SetGlobal installs the tracer and meter providers and the W3C propagators globally so otelhttp and
// otelgrpc pick them up. The LoggerProvider is passed explicitly where needed.
func (p *Providers) SetGlobal() {
	if p.TracerProvider != nil {
		otel.SetTracerProvider(p.TracerProvider)
	}
	if p.MeterProvider != nil {
		otel.SetMeterProvider(p.MeterProvider)
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
}
