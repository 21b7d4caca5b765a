package stats

import (
	"sync"
	"testing"
)

func TestCollector_TrackOperation(t *testing.T) {
	collector := NewAtomicCollector()

	collector.TrackOperation(OpGet)
	collector.TrackOperation(OpGet)
	collector.TrackOperation(OpSeek)

	stats := collector.GetStats()

	if stats["get_ops"].(uint64) != 2 {
		t.Errorf("Expected 2 get operations, got %v", stats["get_ops"])
	}

	if stats["seek_ops"].(uint64) != 1 {
		t.Errorf("Expected 1 seek operation, got %v", stats["seek_ops"])
	}

	if _, exists := stats["last_get_time"]; !exists {
		t.Errorf("Expected last_get_time to exist in stats")
	}

	if collector.Count(OpGet) != 2 || collector.Count(OpScan) != 0 {
		t.Errorf("Unexpected counts: get=%d scan=%d", collector.Count(OpGet), collector.Count(OpScan))
	}
}

func TestCollector_TrackOperationWithLatency(t *testing.T) {
	collector := NewAtomicCollector()

	collector.TrackOperationWithLatency(OpBlockRead, 100)
	collector.TrackOperationWithLatency(OpBlockRead, 200)
	collector.TrackOperationWithLatency(OpBlockRead, 300)

	stats := collector.GetStats()

	latencyStats, ok := stats["block_read_latency"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected block_read_latency to be a map, got %T", stats["block_read_latency"])
	}

	if count := latencyStats["count"].(uint64); count != 3 {
		t.Errorf("Expected 3 latency records, got %v", count)
	}

	if avg := latencyStats["avg_ns"].(uint64); avg != 200 {
		t.Errorf("Expected average latency 200ns, got %v", avg)
	}

	if min := latencyStats["min_ns"].(uint64); min != 100 {
		t.Errorf("Expected min latency 100ns, got %v", min)
	}

	if max := latencyStats["max_ns"].(uint64); max != 300 {
		t.Errorf("Expected max latency 300ns, got %v", max)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	collector := NewAtomicCollector()
	const numGoroutines = 10
	const opsPerGoroutine = 999

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()

			for j := 0; j < opsPerGoroutine; j++ {
				switch j % 3 {
				case 0:
					collector.TrackOperation(OpGet)
				case 1:
					collector.TrackCache(j%2 == 0)
				case 2:
					collector.TrackOperationWithLatency(OpBlockRead, uint64(j))
				}
			}
		}()
	}

	wg.Wait()

	expectedOps := uint64(numGoroutines * opsPerGoroutine / 3)
	stats := collector.GetStats()

	if ops := stats["get_ops"].(uint64); ops != expectedOps {
		t.Errorf("Expected %d get operations, got %v", expectedOps, ops)
	}

	if ops := stats["block_read_ops"].(uint64); ops != expectedOps {
		t.Errorf("Expected %d block reads, got %v", expectedOps, ops)
	}

	hits := stats["cache_hits"].(uint64)
	misses := stats["cache_misses"].(uint64)
	if hits+misses != expectedOps {
		t.Errorf("Expected %d cache lookups, got %d", expectedOps, hits+misses)
	}
}

func TestCollector_GetStatsFiltered(t *testing.T) {
	collector := NewAtomicCollector()

	collector.TrackOperation(OpGet)
	collector.TrackOperation(OpBuild)
	collector.TrackOperationWithLatency(OpGet, 50)

	filtered := collector.GetStatsFiltered("get")

	if _, exists := filtered["get_ops"]; !exists {
		t.Errorf("Expected get_ops in filtered stats")
	}

	if _, exists := filtered["get_latency"]; !exists {
		t.Errorf("Expected get_latency in filtered stats")
	}

	if _, exists := filtered["build_ops"]; exists {
		t.Errorf("Did not expect build_ops in filtered stats")
	}
}

func TestCollector_TrackBytesAndErrors(t *testing.T) {
	collector := NewAtomicCollector()

	collector.TrackBytes(false, 4096)
	collector.TrackBytes(false, 100)
	collector.TrackBytes(true, 512)
	collector.TrackError("corrupt_block")
	collector.TrackError("corrupt_block")

	stats := collector.GetStats()

	if read := stats["total_bytes_read"].(uint64); read != 4196 {
		t.Errorf("Expected 4196 bytes read, got %d", read)
	}

	if written := stats["total_bytes_written"].(uint64); written != 512 {
		t.Errorf("Expected 512 bytes written, got %d", written)
	}

	errors := stats["errors"].(map[string]uint64)
	if errors["corrupt_block"] != 2 {
		t.Errorf("Expected 2 corrupt_block errors, got %d", errors["corrupt_block"])
	}
}
