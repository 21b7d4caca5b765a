// ABOUTME: Tests for telemetry provider creation, instrument recording and span export
// ABOUTME: Uses a manual metric reader and an in-memory span exporter to observe real provider output

package telemetry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func enabledConfig() Config {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Exporters = nil
	return cfg
}

func TestNewDisabledReturnsNoop(t *testing.T) {
	tel, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := tel.(*NoopTelemetry); !ok {
		t.Errorf("expected no-op telemetry for disabled config, got %T", tel)
	}
}

func TestNewWithInvalidConfigs(t *testing.T) {
	invalidConfigs := []Config{
		{Enabled: true, ServiceName: ""},
		{Enabled: true, ServiceName: "test", ServiceVersion: ""},
		{Enabled: true, ServiceName: "test", ServiceVersion: "1.0.0", SampleRate: 1.1},
	}

	for i, cfg := range invalidConfigs {
		t.Run(fmt.Sprintf("invalid_config_%d", i), func(t *testing.T) {
			tel, err := New(cfg)
			if err == nil {
				t.Error("Expected error for invalid config but got none")
			}
			if tel != nil {
				t.Error("Expected nil telemetry for invalid config but got instance")
			}
		})
	}
}

func TestProviderRecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	tel, err := New(enabledConfig(), WithMetricReader(reader))
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	ctx := context.Background()
	defer tel.Shutdown(ctx)

	tel.RecordCounter(ctx, MetricBytesRead, 100, attribute.Int64(AttrTableID, 1))
	tel.RecordCounter(ctx, MetricBytesRead, 50, attribute.Int64(AttrTableID, 1))
	tel.RecordHistogram(ctx, MetricOperationDuration, 0.5, attribute.String(AttrOperationType, OpTypeGet))
	tel.RecordHistogram(ctx, MetricOperationDuration, 1.5, attribute.String(AttrOperationType, OpTypeGet))

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if m.Name != MetricBytesRead {
					continue
				}
				if len(data.DataPoints) != 1 || data.DataPoints[0].Value != 150 {
					t.Errorf("expected one data point of 150 bytes, got %+v", data.DataPoints)
				}
				found[m.Name] = true
			case metricdata.Histogram[float64]:
				if m.Name != MetricOperationDuration {
					continue
				}
				if len(data.DataPoints) != 1 || data.DataPoints[0].Count != 2 {
					t.Errorf("expected one data point with 2 samples, got %+v", data.DataPoints)
				}
				found[m.Name] = true
			}
		}
	}

	for _, name := range []string{MetricBytesRead, MetricOperationDuration} {
		if !found[name] {
			t.Errorf("metric %s not collected", name)
		}
	}
}

func TestProviderExportsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tel, err := New(enabledConfig(), WithSpanExporter(exporter))
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	ctx, span := tel.StartSpan(context.Background(), "sstable.build", attribute.Int64(AttrTableID, 3))
	if !span.SpanContext().IsValid() {
		t.Error("expected a sampled span")
	}
	_, child := tel.StartSpan(ctx, "sstable.write")
	child.End()
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name != "sstable.write" || spans[1].Name != "sstable.build" {
		t.Errorf("unexpected span order: %s, %s", spans[0].Name, spans[1].Name)
	}
	if spans[0].Parent.SpanID() != spans[1].SpanContext.SpanID() {
		t.Error("expected child span to reference its parent")
	}

	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestProviderStdoutExporter(t *testing.T) {
	var out bytes.Buffer
	cfg := enabledConfig()
	cfg.Exporters = []string{ExporterStdout}

	tel, err := New(cfg, WithOutput(&out))
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	ctx := context.Background()
	tel.RecordCounter(ctx, MetricBlocksFlushed, 3)
	_, span := tel.StartSpan(ctx, "sstable.open")
	span.End()

	// Shutdown flushes both the periodic reader and the span batcher
	if err := tel.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	for _, want := range []string{MetricBlocksFlushed, "sstable.open"} {
		if !bytes.Contains(out.Bytes(), []byte(want)) {
			t.Errorf("expected %q in stdout export", want)
		}
	}
}

func TestProviderPrometheusExporter(t *testing.T) {
	cfg := enabledConfig()
	cfg.Exporters = []string{ExporterPrometheus}
	cfg.PrometheusPort = 0

	tel, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	ctx := context.Background()
	defer tel.Shutdown(ctx)

	provider, ok := tel.(*TelemetryProvider)
	if !ok {
		t.Fatalf("expected *TelemetryProvider, got %T", tel)
	}
	addr := provider.MetricsAddr()
	if addr == "" {
		t.Fatal("expected a metrics address")
	}

	tel.RecordCounter(ctx, MetricBlocksFlushed, 4, attribute.Int64(AttrTableID, 9))

	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("unexpected metrics address %q: %v", addr, err)
	}
	resp, err := http.Get("http://127.0.0.1:" + port + "/metrics")
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read scrape: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "blocktable_sstable_blocks_flushed") {
		t.Errorf("expected flushed blocks counter in scrape, got:\n%s", body)
	}
}
