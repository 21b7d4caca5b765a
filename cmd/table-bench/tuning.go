package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// TuningResults stores the results of a block size sweep
type TuningResults struct {
	Timestamp  time.Time         `json:"timestamp"`
	Parameters string            `json:"parameters"`
	Results    []TuningBenchmark `json:"results"`
}

// TuningBenchmark stores the result of a single block size
type TuningBenchmark struct {
	BlockSize   int              `json:"block_size"`
	NumBlocks   int              `json:"num_blocks"`
	TableBytes  int64            `json:"table_bytes"`
	BuildResult BenchmarkMetrics `json:"build_results"`
	ReadResult  BenchmarkMetrics `json:"read_results"`
	ScanResult  BenchmarkMetrics `json:"scan_results"`
}

// BenchmarkMetrics stores the key metrics from a benchmark
type BenchmarkMetrics struct {
	Throughput float64 `json:"throughput"`
	Latency    float64 `json:"latency"`
	Duration   float64 `json:"duration"`
	Operations int     `json:"operations"`
	HitRate    float64 `json:"hit_rate,omitempty"`
}

func metricsOf(r BenchmarkResult) BenchmarkMetrics {
	return BenchmarkMetrics{
		Throughput: r.Throughput,
		Latency:    r.Latency,
		Duration:   r.Duration,
		Operations: r.Operations,
		HitRate:    r.HitRate,
	}
}

// tuningBlockSizes are the candidates tried by RunBlockSizeTuning
var tuningBlockSizes = []int{1024, 4 * 1024, 16 * 1024, 64 * 1024}

// RunBlockSizeTuning builds the same data set once per candidate block size
// and measures random reads and full scans against each table. Sizes that
// cannot hold a single entry are skipped. Results are written as JSON to
// the data directory.
func RunBlockSizeTuning(w io.Writer, cfg benchConfig) (*TuningResults, error) {
	tuningDir := filepath.Join(cfg.DataDir, fmt.Sprintf("tuning-%d", time.Now().Unix()))
	if err := os.MkdirAll(tuningDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create tuning directory: %w", err)
	}

	results := &TuningResults{
		Timestamp: time.Now(),
		Parameters: fmt.Sprintf("Keys: %d, ValueSize: %d bytes, Duration: %s",
			cfg.NumKeys, cfg.ValueSize, cfg.Duration),
	}

	for _, size := range tuningBlockSizes {
		run := cfg
		run.BlockSize = size
		run.DataDir = tuningDir
		if err := run.validate(); err != nil {
			fmt.Fprintf(w, "  Skipping block size %d: %v\n", size, err)
			continue
		}

		fmt.Fprintf(w, "  Testing block size %d\n", size)
		benchmark, err := runTuningStep(run)
		if err != nil {
			return nil, fmt.Errorf("block size %d: %w", size, err)
		}
		results.Results = append(results.Results, *benchmark)
	}

	if len(results.Results) == 0 {
		return nil, fmt.Errorf("no candidate block size fits values of %d bytes", cfg.ValueSize)
	}

	resultPath := filepath.Join(tuningDir, "tuning_results.json")
	resultData, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(resultPath, resultData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write results: %w", err)
	}

	fmt.Fprintf(w, "Tuning complete. Results saved to %s\n", resultPath)
	return results, nil
}

func runTuningStep(cfg benchConfig) (*TuningBenchmark, error) {
	bt, elapsed, err := buildTable(cfg, fmt.Sprintf("table-%d.sst", cfg.BlockSize))
	if err != nil {
		return nil, err
	}
	defer bt.Close()

	build := newResult(cfg, "Build", cfg.NumKeys, elapsed)
	read, err := runReadBenchmark(bt, cfg, true)
	if err != nil {
		return nil, err
	}
	scan, err := runScanBenchmark(bt, cfg)
	if err != nil {
		return nil, err
	}

	return &TuningBenchmark{
		BlockSize:   cfg.BlockSize,
		NumBlocks:   bt.table.NumBlocks(),
		TableBytes:  bt.size,
		BuildResult: metricsOf(build),
		ReadResult:  metricsOf(read),
		ScanResult:  metricsOf(scan),
	}, nil
}

// PrintTuningSummary reports the best block size for each workload
func PrintTuningSummary(w io.Writer, results *TuningResults) {
	var bestBuild, bestRead, bestScan, smallest int
	for i, b := range results.Results {
		if b.BuildResult.Throughput > results.Results[bestBuild].BuildResult.Throughput {
			bestBuild = i
		}
		if b.ReadResult.Throughput > results.Results[bestRead].ReadResult.Throughput {
			bestRead = i
		}
		if b.ScanResult.Throughput > results.Results[bestScan].ScanResult.Throughput {
			bestScan = i
		}
		if b.TableBytes < results.Results[smallest].TableBytes {
			smallest = i
		}
	}

	fmt.Fprintln(w, "\nBest Block Size Summary:")
	fmt.Fprintf(w, "  Best for builds: %d (%.2f ops/sec)\n",
		results.Results[bestBuild].BlockSize, results.Results[bestBuild].BuildResult.Throughput)
	fmt.Fprintf(w, "  Best for reads:  %d (%.2f ops/sec)\n",
		results.Results[bestRead].BlockSize, results.Results[bestRead].ReadResult.Throughput)
	fmt.Fprintf(w, "  Best for scans:  %d (%.2f scans/sec)\n",
		results.Results[bestScan].BlockSize, results.Results[bestScan].ScanResult.Throughput)
	fmt.Fprintf(w, "  Smallest table:  %d (%d bytes in %d blocks)\n",
		results.Results[smallest].BlockSize, results.Results[smallest].TableBytes,
		results.Results[smallest].NumBlocks)
}
