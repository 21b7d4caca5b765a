// ABOUTME: OpenTelemetry exporter factory turning configured exporter names into metric readers and span exporters
// ABOUTME: stdout serves metrics and traces, otlp ships traces over gRPC and prometheus exposes a scrape endpoint

package telemetry

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// createMetricReaders creates a periodic reader per push exporter.
// Prometheus is pull based and handled by startPrometheus; otlp only carries
// traces in this setup.
func createMetricReaders(cfg Config, out io.Writer) ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader

	for _, exporterName := range cfg.Exporters {
		switch exporterName {
		case ExporterStdout:
			exporter, err := stdoutmetric.New(
				stdoutmetric.WithWriter(out),
				stdoutmetric.WithPrettyPrint(),
			)
			if err != nil {
				return nil, fmt.Errorf("failed to create stdout metric exporter: %w", err)
			}
			readers = append(readers, sdkmetric.NewPeriodicReader(exporter,
				sdkmetric.WithInterval(cfg.ExportInterval),
				sdkmetric.WithTimeout(cfg.ExportTimeout),
			))
		}
	}

	return readers, nil
}

// createTraceExporters creates span exporters based on configuration.
func createTraceExporters(cfg Config, out io.Writer) ([]sdktrace.SpanExporter, error) {
	var exporters []sdktrace.SpanExporter

	for _, exporterName := range cfg.Exporters {
		switch exporterName {
		case ExporterOTLP:
			exporter, err := otlptracegrpc.New(
				context.Background(),
				otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
				otlptracegrpc.WithInsecure(),
				otlptracegrpc.WithTimeout(cfg.ExportTimeout),
			)
			if err != nil {
				return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
			}
			exporters = append(exporters, exporter)

		case ExporterStdout:
			exporter, err := stdouttrace.New(
				stdouttrace.WithWriter(out),
				stdouttrace.WithPrettyPrint(),
			)
			if err != nil {
				return nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
			}
			exporters = append(exporters, exporter)
		}
	}

	return exporters, nil
}

// metricsServer serves a prometheus registry over HTTP
type metricsServer struct {
	server   *http.Server
	listener net.Listener
}

// startPrometheus creates a prometheus exporter backed by its own registry
// and starts serving it at /metrics on cfg.PrometheusPort.
func startPrometheus(cfg Config) (sdkmetric.Reader, *metricsServer, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.PrometheusPort))
	if err != nil {
		exporter.Shutdown(context.Background())
		return nil, nil, fmt.Errorf("failed to listen for prometheus scrapes: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	ms := &metricsServer{
		server:   &http.Server{Handler: mux},
		listener: listener,
	}
	go ms.server.Serve(listener)

	return exporter, ms, nil
}

// Addr returns the address the server listens on
func (m *metricsServer) Addr() string {
	return m.listener.Addr().String()
}

// Shutdown stops accepting scrapes and waits for in-flight ones
func (m *metricsServer) Shutdown(ctx context.Context) error {
	return m.server.Shutdown(ctx)
}
