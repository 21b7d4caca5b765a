package sstable

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/KevoDB/blocktable/pkg/common/errs"
	"github.com/KevoDB/blocktable/pkg/common/log"
	"github.com/KevoDB/blocktable/pkg/config"
	"github.com/KevoDB/blocktable/pkg/sstable/block"
	"github.com/KevoDB/blocktable/pkg/sstable/footer"
	"github.com/KevoDB/blocktable/pkg/sstable/meta"
	"github.com/KevoDB/blocktable/pkg/sstable/store"
	"github.com/KevoDB/blocktable/pkg/stats"
	"github.com/KevoDB/blocktable/pkg/telemetry"
)

// BuilderOption configures a Builder
type BuilderOption func(*Builder)

// WithBlockSize sets the encoded size budget of every block
func WithBlockSize(size int) BuilderOption {
	return func(b *Builder) {
		b.blockSize = size
	}
}

// WithOptions takes the block size from loaded options
func WithOptions(opts *config.Options) BuilderOption {
	return func(b *Builder) {
		b.blockSize = opts.BlockSize
	}
}

// WithLogger sets the logger used by the builder
func WithLogger(logger log.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithBuilderStats records block flushes and table builds in collector
func WithBuilderStats(collector stats.Collector) BuilderOption {
	return func(b *Builder) {
		b.stats = collector
	}
}

// WithBuilderTelemetry exports build metrics and spans through tel
func WithBuilderTelemetry(tel telemetry.Telemetry) BuilderOption {
	return func(b *Builder) {
		b.tel = tel
	}
}

// Builder accumulates sorted entries into blocks and produces a table.
// Keys must be added in strictly increasing order. Once Finish succeeds the
// builder is finalized and rejects further use.
type Builder struct {
	blockSize int
	block     *block.Builder
	firstKey  []byte // first key of the open block
	lastKey   []byte
	data      []byte // finished blocks
	metas     []meta.BlockMeta
	entries   int
	finalized bool
	logger    log.Logger
	stats     stats.Collector
	tel       telemetry.Telemetry
}

// NewBuilder creates a table builder
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		blockSize: DefaultBlockSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = log.Default()
	}
	b.logger = b.logger.WithField("component", "sstable_builder")
	if b.stats == nil {
		b.stats = stats.NewAtomicCollector()
	}
	if b.tel == nil {
		b.tel = telemetry.NewNoop()
	}
	b.block = block.NewBuilder(b.blockSize)
	return b
}

// Add appends a key-value pair, starting a new block when the open one is full.
//
// An entry too large for an empty block fails with errs.ErrCapacityExceeded:
// no block size could hold it, so the table cannot be built as configured.
func (b *Builder) Add(key, value []byte) error {
	if b.finalized {
		return fmt.Errorf("%w: table already finished", errs.ErrInvalidState)
	}
	if b.lastKey != nil && bytes.Compare(key, b.lastKey) <= 0 {
		return fmt.Errorf("%w: keys must be added in strictly increasing order, got %q after %q",
			errs.ErrInvalidArgument, key, b.lastKey)
	}

	ok, err := b.block.Add(key, value)
	if err != nil {
		return err
	}
	if !ok {
		if b.block.Empty() {
			return fmt.Errorf("%w: entry of %d bytes does not fit a %d byte block",
				errs.ErrCapacityExceeded, block.EntrySize(key, value), b.blockSize)
		}
		if err := b.finishBlock(); err != nil {
			return err
		}
		if ok, err = b.block.Add(key, value); err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: entry of %d bytes does not fit a %d byte block",
				errs.ErrCapacityExceeded, block.EntrySize(key, value), b.blockSize)
		}
	}

	if b.block.Len() == 1 {
		b.firstKey = append([]byte(nil), key...)
	}
	b.lastKey = append(b.lastKey[:0], key...)
	b.entries++

	return nil
}

// finishBlock encodes the open block onto the table data and records its meta
func (b *Builder) finishBlock() error {
	if b.block.Empty() {
		return nil
	}

	offset := len(b.data)
	entries := b.block.Len()
	blk, err := b.block.Build()
	if err != nil {
		return err
	}

	encoded := blk.Encode()
	if uint64(offset)+uint64(len(encoded)) > math.MaxUint32 {
		return fmt.Errorf("%w: table data exceeds %d bytes", errs.ErrCapacityExceeded, uint64(math.MaxUint32))
	}

	b.data = append(b.data, encoded...)
	b.metas = append(b.metas, meta.BlockMeta{
		Offset:   uint32(offset),
		FirstKey: b.firstKey,
	})
	b.firstKey = nil
	b.block = block.NewBuilder(b.blockSize)

	b.stats.TrackOperation(stats.OpBlockFlush)
	b.tel.RecordCounter(context.Background(), telemetry.MetricBlocksFlushed, 1)
	b.logger.Debug("finished block %d at offset %d: %d entries, %d bytes",
		len(b.metas)-1, offset, entries, len(encoded))

	return nil
}

// EstimatedSize returns the bytes taken by finished blocks. The open block
// is not counted.
func (b *Builder) EstimatedSize() int {
	return len(b.data)
}

// NumEntries returns the number of entries added
func (b *Builder) NumEntries() int {
	return b.entries
}

// NumBlocks returns the number of finished blocks
func (b *Builder) NumBlocks() int {
	return len(b.metas)
}

// Finish flushes the open block, appends the meta sequence and footer, and
// returns the encoded table. The builder is finalized afterwards.
func (b *Builder) Finish() ([]byte, error) {
	if b.finalized {
		return nil, fmt.Errorf("%w: table already finished", errs.ErrInvalidState)
	}
	if b.entries == 0 {
		return nil, fmt.Errorf("%w: cannot finish an empty table", errs.ErrInvalidState)
	}

	start := time.Now()
	if err := b.finishBlock(); err != nil {
		return nil, err
	}

	metaOffset := len(b.data)
	total := uint64(metaOffset) + uint64(meta.EncodedSize(b.metas)) + footer.Size
	if total > math.MaxUint32 {
		return nil, fmt.Errorf("%w: table of %d bytes exceeds %d",
			errs.ErrCapacityExceeded, total, uint64(math.MaxUint32))
	}

	data, err := meta.Encode(b.data, b.metas)
	if err != nil {
		return nil, fmt.Errorf("failed to encode block metas: %w", err)
	}
	data = footer.Encode(data, uint32(metaOffset))

	b.finalized = true
	b.data = nil
	b.block = nil

	b.stats.TrackOperationWithLatency(stats.OpBuild, uint64(time.Since(start).Nanoseconds()))
	b.stats.TrackBytes(true, uint64(len(data)))
	ctx := context.Background()
	telemetry.RecordDuration(ctx, b.tel, telemetry.MetricOperationDuration, start,
		attribute.String(telemetry.AttrOperationType, telemetry.OpTypeBuild))
	telemetry.RecordBytes(ctx, b.tel, telemetry.MetricBytesWritten, int64(len(data)))
	b.logger.Debug("finished table: %d entries in %d blocks, meta at %d, %d bytes",
		b.entries, len(b.metas), metaOffset, len(data))

	return data, nil
}

// Build finishes the table and opens it over an in-memory store
func (b *Builder) Build(id uint64, opts ...TableOption) (*Table, error) {
	data, err := b.Finish()
	if err != nil {
		return nil, err
	}

	st, err := store.NewMemStore(data)
	if err != nil {
		return nil, err
	}

	return Open(id, st, opts...)
}

// BuildFile finishes the table, writes it atomically to path and opens it
// over the resulting file. Closing the file store is up to the caller, via
// Table.Close.
func (b *Builder) BuildFile(id uint64, path string, opts ...TableOption) (t *Table, err error) {
	_, span := b.tel.StartSpan(context.Background(), "sstable.build_file",
		attribute.Int64(telemetry.AttrTableID, int64(id)),
		attribute.String("file.path", path))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	data, err := b.Finish()
	if err != nil {
		return nil, err
	}

	if err := store.WriteFile(path, data); err != nil {
		return nil, err
	}

	st, err := store.OpenFileStore(path)
	if err != nil {
		return nil, err
	}

	t, err = Open(id, st, opts...)
	if err != nil {
		st.Close()
		return nil, err
	}

	b.logger.Info("wrote table %d to %s: %d entries, %d blocks, %d bytes",
		id, path, b.entries, len(b.metas), len(data))

	return t, nil
}
