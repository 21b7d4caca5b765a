// ABOUTME: Core telemetry abstraction over OpenTelemetry used to instrument table building and reading
// ABOUTME: Provides metric recording, tracing and lifecycle management with a no-op implementation

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry provides the core abstraction over OpenTelemetry.
// Components use this interface to record metrics and spans without depending directly on OpenTelemetry.
type Telemetry interface {
	// RecordHistogram records a histogram value with optional attributes.
	RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue)

	// RecordCounter records a counter increment with optional attributes.
	RecordCounter(ctx context.Context, name string, value int64, attrs ...attribute.KeyValue)

	// StartSpan creates a new tracing span with the given name and attributes.
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)

	// Shutdown gracefully shuts down all telemetry providers and exports remaining data.
	Shutdown(ctx context.Context) error
}

// NoopTelemetry provides a no-operation implementation of Telemetry for testing or disabled scenarios.
type NoopTelemetry struct{}

// NewNoop creates a new no-operation telemetry instance.
func NewNoop() Telemetry {
	return &NoopTelemetry{}
}

// RecordHistogram is a no-op.
func (n *NoopTelemetry) RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) {
}

// RecordCounter is a no-op.
func (n *NoopTelemetry) RecordCounter(ctx context.Context, name string, value int64, attrs ...attribute.KeyValue) {
}

// StartSpan returns the original context and a no-op span.
func (n *NoopTelemetry) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx = contextOrBackground(ctx)
	return ctx, trace.SpanFromContext(ctx)
}

// Shutdown is a no-op.
func (n *NoopTelemetry) Shutdown(ctx context.Context) error {
	return nil
}

// RecordDuration records the seconds elapsed since start in a histogram.
func RecordDuration(ctx context.Context, tel Telemetry, name string, start time.Time, attrs ...attribute.KeyValue) {
	duration := time.Since(start).Seconds()
	tel.RecordHistogram(ctx, name, duration, attrs...)
}

// RecordBytes records a byte count in a counter.
func RecordBytes(ctx context.Context, tel Telemetry, name string, bytes int64, attrs ...attribute.KeyValue) {
	tel.RecordCounter(ctx, name, bytes, attrs...)
}

// Metric names
const (
	MetricOperationDuration = "blocktable.sstable.operation.duration"
	MetricBytesRead         = "blocktable.sstable.bytes.read"
	MetricBytesWritten      = "blocktable.sstable.bytes.written"
	MetricBlocksFlushed     = "blocktable.sstable.blocks.flushed"
	MetricCacheLookups      = "blocktable.sstable.cache.lookups"
	MetricErrors            = "blocktable.sstable.errors"
)

// Common attribute keys for consistent naming across components
const (
	AttrOperationType = "operation.type"
	AttrComponent     = "component"
	AttrStatus        = "status"
	AttrErrorType     = "error.type"
	AttrTableID       = "table.id"
	AttrBlockIndex    = "block.index"
	AttrCacheResult   = "cache.result"
)

// Common attribute values
const (
	// Operation types
	OpTypeGet       = "get"
	OpTypeSeek      = "seek"
	OpTypeScan      = "scan"
	OpTypeBlockRead = "block_read"
	OpTypeBuild     = "build"
	OpTypeOpen      = "open"

	// Status values
	StatusSuccess  = "success"
	StatusNotFound = "not_found"
	StatusError    = "error"

	// Cache results
	CacheHit  = "hit"
	CacheMiss = "miss"

	// Component names
	ComponentSSTable    = "sstable"
	ComponentBlockCache = "block_cache"
)
