package sstable

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/KevoDB/blocktable/pkg/common/errs"
	"github.com/KevoDB/blocktable/pkg/common/log"
	"github.com/KevoDB/blocktable/pkg/sstable/block"
	"github.com/KevoDB/blocktable/pkg/sstable/footer"
	"github.com/KevoDB/blocktable/pkg/sstable/meta"
	"github.com/KevoDB/blocktable/pkg/sstable/store"
	"github.com/KevoDB/blocktable/pkg/stats"
	"github.com/KevoDB/blocktable/pkg/telemetry"
)

// TableOption configures an opened Table
type TableOption func(*Table)

// WithBlockCache shares cache between tables; blocks are cached by table ID
func WithBlockCache(cache *BlockCache) TableOption {
	return func(t *Table) {
		t.cache = cache
	}
}

// WithTableLogger sets the logger used by the table
func WithTableLogger(logger log.Logger) TableOption {
	return func(t *Table) {
		t.logger = logger
	}
}

// WithStats records reads in collector, which may be shared between tables
func WithStats(collector stats.Collector) TableOption {
	return func(t *Table) {
		t.stats = collector
	}
}

// WithTelemetry exports read metrics through tel
func WithTelemetry(tel telemetry.Telemetry) TableOption {
	return func(t *Table) {
		t.tel = tel
	}
}

// Table is an opened, immutable table. The meta sequence is held in memory
// and blocks are read from the store on demand. A Table is safe for
// concurrent use.
type Table struct {
	id         uint64
	store      store.Store
	metas      []meta.BlockMeta
	metaOffset uint32
	cache      *BlockCache
	logger     log.Logger
	stats      stats.Collector
	tel        telemetry.Telemetry
	tableAttr  attribute.KeyValue
}

// Open reads the footer and block metas of the table held by st
func Open(id uint64, st store.Store, opts ...TableOption) (*Table, error) {
	t := &Table{
		id:    id,
		store: st,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = log.Default()
	}
	t.logger = t.logger.WithField("table", id)
	if t.stats == nil {
		t.stats = stats.NewAtomicCollector()
	}
	if t.tel == nil {
		t.tel = telemetry.NewNoop()
	}
	t.tableAttr = attribute.Int64(telemetry.AttrTableID, int64(id))

	start := time.Now()
	if err := t.load(); err != nil {
		t.recordError("open")
		return nil, err
	}

	t.stats.TrackOperationWithLatency(stats.OpOpen, uint64(time.Since(start).Nanoseconds()))
	telemetry.RecordDuration(context.Background(), t.tel, telemetry.MetricOperationDuration, start,
		t.tableAttr, attribute.String(telemetry.AttrOperationType, telemetry.OpTypeOpen))
	t.logger.Debug("opened table: %d blocks, meta at %d, %d bytes", len(t.metas), t.metaOffset, st.Size())

	return t, nil
}

// load reads and validates the footer and the block metas
func (t *Table) load() error {
	st := t.store
	size := st.Size()
	if size < footer.Size {
		return fmt.Errorf("%w: table of %d bytes is too small for a footer", errs.ErrCorrupt, size)
	}

	tail, err := st.Read(size-footer.Size, footer.Size)
	if err != nil {
		return fmt.Errorf("failed to read footer: %w", err)
	}
	metaOffset, err := footer.Decode(tail)
	if err != nil {
		return fmt.Errorf("failed to decode footer: %w", err)
	}
	if metaOffset > size-footer.Size {
		return fmt.Errorf("%w: meta offset %d beyond footer at %d",
			errs.ErrCorrupt, metaOffset, size-footer.Size)
	}

	raw, err := st.Read(metaOffset, size-footer.Size-metaOffset)
	if err != nil {
		return fmt.Errorf("failed to read block metas: %w", err)
	}
	metas, err := meta.Decode(raw)
	if err != nil {
		return fmt.Errorf("failed to decode block metas: %w", err)
	}
	if err := meta.Validate(metas, metaOffset); err != nil {
		return err
	}

	t.metas = metas
	t.metaOffset = metaOffset
	return nil
}

// ID returns the table identifier
func (t *Table) ID() uint64 {
	return t.id
}

// MetaOffset returns the offset at which the block data ends
func (t *Table) MetaOffset() uint32 {
	return t.metaOffset
}

// NumBlocks returns the number of blocks in the table
func (t *Table) NumBlocks() int {
	return len(t.metas)
}

// BlockMetas returns a copy of the block metas
func (t *Table) BlockMetas() []meta.BlockMeta {
	out := make([]meta.BlockMeta, len(t.metas))
	copy(out, t.metas)
	return out
}

// Store returns the backing store
func (t *Table) Store() store.Store {
	return t.store
}

// Stats returns the read statistics of the table
func (t *Table) Stats() stats.Provider {
	return t.stats
}

// FindBlock returns the index of the only block that can hold key
func (t *Table) FindBlock(key []byte) int {
	return meta.Search(t.metas, key)
}

// BlockRange returns the byte range of block i
func (t *Table) BlockRange(i int) (offset, length uint32, err error) {
	if i < 0 || i >= len(t.metas) {
		return 0, 0, fmt.Errorf("%w: block %d of %d", errs.ErrOutOfBounds, i, len(t.metas))
	}

	end := t.metaOffset
	if i+1 < len(t.metas) {
		end = t.metas[i+1].Offset
	}
	offset = t.metas[i].Offset
	return offset, end - offset, nil
}

// ReadBlock returns decoded block i, from the block cache when present
func (t *Table) ReadBlock(i int) (*block.Block, error) {
	if t.cache != nil {
		blk, ok := t.cache.Get(t.id, i)
		t.recordCacheLookup(ok)
		if ok {
			return blk, nil
		}
	}

	start := time.Now()
	offset, length, err := t.BlockRange(i)
	if err != nil {
		return nil, err
	}

	raw, err := t.store.Read(offset, length)
	if err != nil {
		t.recordError("block_read")
		return nil, fmt.Errorf("failed to read block %d: %w", i, err)
	}

	blk, err := block.Decode(raw)
	if err == nil {
		err = t.checkFirstKey(i, blk)
	}
	if err != nil {
		t.recordError("corrupt_block")
		t.logger.Error("block %d at offset %d is corrupt: %v", i, offset, err)
		return nil, fmt.Errorf("failed to decode block %d: %w", i, err)
	}

	t.stats.TrackOperationWithLatency(stats.OpBlockRead, uint64(time.Since(start).Nanoseconds()))
	t.stats.TrackBytes(false, uint64(length))
	ctx := context.Background()
	telemetry.RecordDuration(ctx, t.tel, telemetry.MetricOperationDuration, start,
		t.tableAttr, attribute.String(telemetry.AttrOperationType, telemetry.OpTypeBlockRead))
	telemetry.RecordBytes(ctx, t.tel, telemetry.MetricBytesRead, int64(length), t.tableAttr)

	if t.cache != nil {
		t.cache.Put(t.id, i, blk)
	}

	return blk, nil
}

// checkFirstKey verifies a decoded block starts with the key its meta records
func (t *Table) checkFirstKey(i int, blk *block.Block) error {
	key, _, err := blk.EntryAt(0)
	if err != nil {
		return err
	}
	if !bytes.Equal(key, t.metas[i].FirstKey) {
		return fmt.Errorf("%w: block starts at %q, meta records %q",
			errs.ErrCorrupt, key, t.metas[i].FirstKey)
	}
	return nil
}

// Seek returns an iterator positioned at the first entry whose key is >= key.
// The iterator is invalid when every key is smaller.
func (t *Table) Seek(key []byte) (*Iterator, error) {
	it := t.NewIterator()
	it.Seek(key)
	if err := it.Err(); err != nil {
		return nil, err
	}
	return it, nil
}

// Get returns the value stored for key, or ErrNotFound. The value aliases
// block memory that may be shared through the cache and must not be modified.
func (t *Table) Get(key []byte) ([]byte, error) {
	start := time.Now()
	value, err := t.get(key)

	status := telemetry.StatusSuccess
	switch {
	case err == ErrNotFound:
		status = telemetry.StatusNotFound
	case err != nil:
		status = telemetry.StatusError
	}
	t.stats.TrackOperationWithLatency(stats.OpGet, uint64(time.Since(start).Nanoseconds()))
	telemetry.RecordDuration(context.Background(), t.tel, telemetry.MetricOperationDuration, start,
		t.tableAttr,
		attribute.String(telemetry.AttrOperationType, telemetry.OpTypeGet),
		attribute.String(telemetry.AttrStatus, status))

	return value, err
}

func (t *Table) get(key []byte) ([]byte, error) {
	blk, err := t.ReadBlock(t.FindBlock(key))
	if err != nil {
		return nil, err
	}

	it := block.SeekToKeyIterator(blk, key)
	if err := it.Err(); err != nil {
		return nil, err
	}
	if !it.Valid() || !bytes.Equal(it.Key(), key) {
		return nil, ErrNotFound
	}

	return it.Value(), nil
}

// Fingerprint returns the xxhash of the table bytes
func (t *Table) Fingerprint() (uint64, error) {
	const chunk = 64 * 1024

	digest := xxhash.New()
	size := t.store.Size()
	for offset := uint32(0); offset < size; {
		n := uint32(chunk)
		if size-offset < n {
			n = size - offset
		}
		buf, err := t.store.Read(offset, n)
		if err != nil {
			return 0, fmt.Errorf("failed to read table: %w", err)
		}
		digest.Write(buf)
		offset += n
	}

	return digest.Sum64(), nil
}

func (t *Table) recordCacheLookup(hit bool) {
	t.stats.TrackCache(hit)

	result := telemetry.CacheMiss
	if hit {
		result = telemetry.CacheHit
	}
	t.tel.RecordCounter(context.Background(), telemetry.MetricCacheLookups, 1,
		t.tableAttr, attribute.String(telemetry.AttrCacheResult, result))
}

func (t *Table) recordError(kind string) {
	t.stats.TrackError(kind)
	t.tel.RecordCounter(context.Background(), telemetry.MetricErrors, 1,
		t.tableAttr, attribute.String(telemetry.AttrErrorType, kind))
}

// Close releases the backing store when it holds resources
func (t *Table) Close() error {
	if closer, ok := t.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
