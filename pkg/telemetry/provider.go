// ABOUTME: OpenTelemetry provider implementation with metric and trace provider setup for table telemetry
// ABOUTME: Handles provider lifecycle, resource attributes, sampling and lazily created instruments

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/KevoDB/blocktable"

// Option customizes a TelemetryProvider beyond what Config expresses
type Option func(*providerOptions)

type providerOptions struct {
	out           io.Writer
	readers       []sdkmetric.Reader
	spanExporters []sdktrace.SpanExporter
}

// WithOutput sets where stdout exporters write. Defaults to os.Stdout.
func WithOutput(out io.Writer) Option {
	return func(o *providerOptions) {
		o.out = out
	}
}

// WithMetricReader registers an additional metric reader, such as a manual
// reader used to inspect recorded metrics
func WithMetricReader(reader sdkmetric.Reader) Option {
	return func(o *providerOptions) {
		o.readers = append(o.readers, reader)
	}
}

// WithSpanExporter registers an additional span exporter, invoked
// synchronously as spans end
func WithSpanExporter(exporter sdktrace.SpanExporter) Option {
	return func(o *providerOptions) {
		o.spanExporters = append(o.spanExporters, exporter)
	}
}

// TelemetryProvider implements the Telemetry interface using OpenTelemetry SDK.
type TelemetryProvider struct {
	config         Config
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          metric.Meter
	tracer         oteltrace.Tracer
	metricsServer  *metricsServer

	histograms sync.Map // name -> metric.Float64Histogram
	counters   sync.Map // name -> metric.Int64Counter
}

// New creates a new TelemetryProvider with the given configuration.
// A disabled configuration yields the no-op implementation.
func New(cfg Config, opts ...Option) (Telemetry, error) {
	if !cfg.Enabled {
		return NewNoop(), nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}

	po := providerOptions{out: os.Stdout}
	for _, opt := range opts {
		opt(&po)
	}

	resource := sdkresource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	readers, err := createMetricReaders(cfg, po.out)
	if err != nil {
		return nil, err
	}
	readers = append(readers, po.readers...)

	var ms *metricsServer
	if cfg.HasExporter(ExporterPrometheus) {
		var reader sdkmetric.Reader
		reader, ms, err = startPrometheus(cfg)
		if err != nil {
			return nil, err
		}
		readers = append(readers, reader)
	}

	spanExporters, err := createTraceExporters(cfg, po.out)
	if err != nil {
		if ms != nil {
			ms.Shutdown(context.Background())
		}
		return nil, err
	}

	meterOpts := []sdkmetric.Option{sdkmetric.WithResource(resource)}
	for _, reader := range readers {
		meterOpts = append(meterOpts, sdkmetric.WithReader(reader))
	}

	traceOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	}
	for _, exporter := range spanExporters {
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exporter,
			sdktrace.WithExportTimeout(cfg.ExportTimeout)))
	}
	for _, exporter := range po.spanExporters {
		traceOpts = append(traceOpts, sdktrace.WithSyncer(exporter))
	}

	meterProvider := sdkmetric.NewMeterProvider(meterOpts...)
	tracerProvider := sdktrace.NewTracerProvider(traceOpts...)

	return &TelemetryProvider{
		config:         cfg,
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
		meter:          meterProvider.Meter(instrumentationName),
		tracer:         tracerProvider.Tracer(instrumentationName),
		metricsServer:  ms,
	}, nil
}

// RecordHistogram records value on the histogram called name, creating it on first use
func (p *TelemetryProvider) RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) {
	h, ok := p.histograms.Load(name)
	if !ok {
		created, err := p.meter.Float64Histogram(name)
		if err != nil {
			return
		}
		h, _ = p.histograms.LoadOrStore(name, created)
	}
	h.(metric.Float64Histogram).Record(contextOrBackground(ctx), value, metric.WithAttributes(attrs...))
}

// RecordCounter adds value to the counter called name, creating it on first use
func (p *TelemetryProvider) RecordCounter(ctx context.Context, name string, value int64, attrs ...attribute.KeyValue) {
	c, ok := p.counters.Load(name)
	if !ok {
		created, err := p.meter.Int64Counter(name)
		if err != nil {
			return
		}
		c, _ = p.counters.LoadOrStore(name, created)
	}
	c.(metric.Int64Counter).Add(contextOrBackground(ctx), value, metric.WithAttributes(attrs...))
}

// StartSpan creates a new tracing span with the given name and attributes.
func (p *TelemetryProvider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	return p.tracer.Start(contextOrBackground(ctx), name, oteltrace.WithAttributes(attrs...))
}

// MetricsAddr returns the address serving prometheus scrapes, or "" when
// the prometheus exporter is not configured
func (p *TelemetryProvider) MetricsAddr() string {
	if p.metricsServer == nil {
		return ""
	}
	return p.metricsServer.Addr()
}

// Shutdown flushes pending metrics and spans and stops both providers.
func (p *TelemetryProvider) Shutdown(ctx context.Context) error {
	ctx = contextOrBackground(ctx)
	var serverErr error
	if p.metricsServer != nil {
		serverErr = p.metricsServer.Shutdown(ctx)
	}
	return errors.Join(
		serverErr,
		p.meterProvider.Shutdown(ctx),
		p.tracerProvider.Shutdown(ctx),
	)
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

var _ Telemetry = (*TelemetryProvider)(nil)
