package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/KevoDB/blocktable/pkg/common/log"
	"github.com/KevoDB/blocktable/pkg/sstable"
	"github.com/KevoDB/blocktable/pkg/sstable/block"
	"github.com/KevoDB/blocktable/pkg/stats"
)

// benchConfig holds the parameters shared by every benchmark run
type benchConfig struct {
	NumKeys     int
	ValueSize   int
	BlockSize   int
	CacheBlocks int
	Duration    time.Duration
	DataDir     string
	Seed        int64
}

// validate checks that a single entry fits an empty block
func (c benchConfig) validate() error {
	if c.NumKeys <= 0 {
		return fmt.Errorf("number of keys must be positive, got %d", c.NumKeys)
	}
	if c.ValueSize < 0 || c.ValueSize > block.MaxValueSize {
		return fmt.Errorf("value size %d outside [0, %d]", c.ValueSize, block.MaxValueSize)
	}
	need := block.TrailerSize + block.EntrySize(benchKey(0), make([]byte, c.ValueSize))
	if need > c.BlockSize {
		return fmt.Errorf("block size %d cannot hold an entry of %d bytes", c.BlockSize, need)
	}
	return nil
}

// benchKey returns the key for index i. Tables hold the even indices only,
// so odd indices are guaranteed misses.
func benchKey(i int) []byte {
	return []byte(fmt.Sprintf("key%010d", i))
}

func benchValue(r *rand.Rand, size int) []byte {
	value := make([]byte, size)
	r.Read(value)
	return value
}

// benchTable is a built table together with its cache hit counters
type benchTable struct {
	table     *sstable.Table
	collector *stats.AtomicCollector
	path      string
	size      int64
}

func (bt *benchTable) Close() error {
	return bt.table.Close()
}

// cacheHitRate returns the percentage of block reads served by the cache
func (bt *benchTable) cacheHitRate() float64 {
	snapshot := bt.collector.GetStats()
	hits, _ := snapshot["cache_hits"].(uint64)
	misses, _ := snapshot["cache_misses"].(uint64)
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses) * 100
}

// buildTable writes cfg.NumKeys entries to a fresh table file under the
// data directory and opens it
func buildTable(cfg benchConfig, name string) (*benchTable, time.Duration, error) {
	r := rand.New(rand.NewSource(cfg.Seed))
	builder := sstable.NewBuilder(
		sstable.WithBlockSize(cfg.BlockSize),
		sstable.WithLogger(log.Discard()),
	)

	start := time.Now()
	for i := 0; i < cfg.NumKeys; i++ {
		if err := builder.Add(benchKey(i*2), benchValue(r, cfg.ValueSize)); err != nil {
			return nil, 0, fmt.Errorf("failed to add entry %d: %w", i, err)
		}
	}

	path := filepath.Join(cfg.DataDir, name)
	collector := stats.NewAtomicCollector()
	opts := []sstable.TableOption{
		sstable.WithTableLogger(log.Discard()),
		sstable.WithStats(collector),
	}
	if cfg.CacheBlocks > 0 {
		opts = append(opts, sstable.WithBlockCache(sstable.NewBlockCache(cfg.CacheBlocks, defaults.BlockCacheShards)))
	}

	table, err := builder.BuildFile(1, path, opts...)
	if err != nil {
		return nil, 0, err
	}
	elapsed := time.Since(start)

	info, err := os.Stat(path)
	if err != nil {
		table.Close()
		return nil, 0, err
	}

	return &benchTable{table: table, collector: collector, path: path, size: info.Size()}, elapsed, nil
}

func newResult(cfg benchConfig, name string, ops int, elapsed time.Duration) BenchmarkResult {
	result := BenchmarkResult{
		BenchmarkType: name,
		NumKeys:       cfg.NumKeys,
		ValueSize:     cfg.ValueSize,
		BlockSize:     cfg.BlockSize,
		Operations:    ops,
		Duration:      elapsed.Seconds(),
		Timestamp:     time.Now(),
	}
	if elapsed > 0 {
		result.Throughput = float64(ops) / elapsed.Seconds()
	}
	if ops > 0 {
		result.Latency = float64(elapsed.Microseconds()) / float64(ops)
	}
	return result
}

// runBuildBenchmark measures how long it takes to build and persist a table
func runBuildBenchmark(cfg benchConfig) (BenchmarkResult, error) {
	bt, elapsed, err := buildTable(cfg, "build.sst")
	if err != nil {
		return BenchmarkResult{}, err
	}
	defer bt.Close()

	result := newResult(cfg, "Build", cfg.NumKeys, elapsed)
	result.TableBytes = bt.size
	return result, nil
}

// runReadBenchmark performs point lookups until cfg.Duration elapses. The
// sequential variant only asks for stored keys; the random one draws from
// the whole key space, so about half the lookups miss.
func runReadBenchmark(bt *benchTable, cfg benchConfig, random bool) (BenchmarkResult, error) {
	r := rand.New(rand.NewSource(cfg.Seed + 1))
	name := "Read"
	if random {
		name = "Random Read"
	}

	var ops, hits int
	deadline := time.Now().Add(cfg.Duration)
	start := time.Now()
	for time.Now().Before(deadline) {
		for batch := 0; batch < 100; batch++ {
			var idx int
			if random {
				idx = r.Intn(cfg.NumKeys * 2)
			} else {
				idx = (ops % cfg.NumKeys) * 2
			}

			_, err := bt.table.Get(benchKey(idx))
			switch err {
			case nil:
				hits++
			case sstable.ErrNotFound:
			default:
				return BenchmarkResult{}, fmt.Errorf("read failed: %w", err)
			}
			ops++
		}
	}

	result := newResult(cfg, name, ops, time.Since(start))
	result.HitRate = float64(hits) / float64(ops) * 100
	result.CacheHitRate = bt.cacheHitRate()
	result.TableBytes = bt.size
	return result, nil
}

// runSeekBenchmark positions iterators at random targets, present or not
func runSeekBenchmark(bt *benchTable, cfg benchConfig) (BenchmarkResult, error) {
	r := rand.New(rand.NewSource(cfg.Seed + 2))
	it := bt.table.NewIterator()

	var ops int
	deadline := time.Now().Add(cfg.Duration)
	start := time.Now()
	for time.Now().Before(deadline) {
		for batch := 0; batch < 100; batch++ {
			it.Seek(benchKey(r.Intn(cfg.NumKeys * 2)))
			if err := it.Err(); err != nil {
				return BenchmarkResult{}, fmt.Errorf("seek failed: %w", err)
			}
			ops++
		}
	}

	result := newResult(cfg, "Seek", ops, time.Since(start))
	result.CacheHitRate = bt.cacheHitRate()
	result.TableBytes = bt.size
	return result, nil
}

// runScanBenchmark repeats full table scans until cfg.Duration elapses
func runScanBenchmark(bt *benchTable, cfg benchConfig) (BenchmarkResult, error) {
	var scans, entries int
	deadline := time.Now().Add(cfg.Duration)
	start := time.Now()
	for scans == 0 || time.Now().Before(deadline) {
		it := bt.table.NewIterator()
		for it.SeekToFirst(); it.Valid(); it.Next() {
			entries++
		}
		if err := it.Err(); err != nil {
			return BenchmarkResult{}, fmt.Errorf("scan failed: %w", err)
		}
		scans++
	}
	elapsed := time.Since(start)

	result := newResult(cfg, "Scan", scans, elapsed)
	if elapsed > 0 {
		result.EntriesPerSec = float64(entries) / elapsed.Seconds()
	}
	result.TableBytes = bt.size
	return result, nil
}
