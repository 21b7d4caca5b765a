package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/KevoDB/blocktable/pkg/config"
)

const (
	defaultValueSize = 100
	defaultKeyCount  = 100000
)

var defaults = config.NewDefaultOptions()

var (
	benchmarkType = flag.String("type", "all", "Type of benchmark to run (build, read, random-read, seek, scan, tune, or all)")
	duration      = flag.Duration("duration", 10*time.Second, "Duration to run each read benchmark")
	numKeys       = flag.Int("keys", defaultKeyCount, "Number of keys to write")
	valueSize     = flag.Int("value-size", defaultValueSize, "Size of values in bytes")
	blockSize     = flag.Int("block-size", defaults.BlockSize, "Target encoded block size in bytes")
	cacheBlocks   = flag.Int("cache-blocks", defaults.BlockCacheBlocks, "Blocks held by the block cache (0 disables it)")
	dataDir       = flag.String("data-dir", "./benchmark-data", "Directory to store benchmark data")
	seed          = flag.Int64("seed", 1, "Seed for generated values and random keys")
	cpuProfile    = flag.String("cpu-profile", "", "Write CPU profile to file")
	memProfile    = flag.String("mem-profile", "", "Write memory profile to file")
	resultsFile   = flag.String("results", "", "CSV file to write results to (in addition to stdout)")
)

func main() {
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	// Remove any existing benchmark data before starting
	if _, err := os.Stat(*dataDir); err == nil {
		fmt.Println("Cleaning previous benchmark data...")
		if err := os.RemoveAll(*dataDir); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to clean benchmark directory: %v\n", err)
		}
	}
	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create benchmark directory: %v\n", err)
		os.Exit(1)
	}

	cfg := benchConfig{
		NumKeys:     *numKeys,
		ValueSize:   *valueSize,
		BlockSize:   *blockSize,
		CacheBlocks: *cacheBlocks,
		Duration:    *duration,
		DataDir:     *dataDir,
		Seed:        *seed,
	}

	fmt.Printf("Benchmark Report (%s)\n", time.Now().Format(time.RFC3339))
	fmt.Printf("Keys: %d, Value Size: %d bytes, Block Size: %d, Cache: %d blocks, Duration: %s\n",
		cfg.NumKeys, cfg.ValueSize, cfg.BlockSize, cfg.CacheBlocks, cfg.Duration)

	results, err := runBenchmarks(os.Stdout, cfg, strings.Split(*benchmarkType, ","))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Benchmark failed: %v\n", err)
		os.Exit(1)
	}

	if len(results) > 0 {
		PrintResultTable(os.Stdout, results)
	}

	if *resultsFile != "" && len(results) > 0 {
		if err := SaveResultCSV(results, *resultsFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write results to file: %v\n", err)
		} else {
			fmt.Printf("Results saved to %s\n", *resultsFile)
		}
	}

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create memory profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not write memory profile: %v\n", err)
			os.Exit(1)
		}
	}
}

// runBenchmarks runs each requested benchmark type in order. The read
// benchmarks share one table, built on first use.
func runBenchmarks(w io.Writer, cfg benchConfig, types []string) ([]BenchmarkResult, error) {
	var results []BenchmarkResult
	var shared *benchTable
	defer func() {
		if shared != nil {
			shared.Close()
		}
	}()

	table := func() (*benchTable, error) {
		if shared == nil {
			fmt.Fprintln(w, "Building table for read benchmarks...")
			bt, _, err := buildTable(cfg, "read.sst")
			if err != nil {
				return nil, err
			}
			shared = bt
		}
		return shared, nil
	}

	for _, typ := range types {
		typ = strings.ToLower(strings.TrimSpace(typ))
		if typ == "tune" {
			fmt.Fprintln(w, "Running block size tuning benchmarks...")
			tuning, err := RunBlockSizeTuning(w, cfg)
			if err != nil {
				return nil, err
			}
			PrintTuningSummary(w, tuning)
			continue
		}

		if err := cfg.validate(); err != nil {
			return nil, err
		}

		var steps []string
		switch typ {
		case "all":
			steps = []string{"build", "read", "random-read", "seek", "scan"}
		case "build", "read", "random-read", "seek", "scan":
			steps = []string{typ}
		default:
			return nil, fmt.Errorf("unknown benchmark type: %s", typ)
		}

		for _, step := range steps {
			fmt.Fprintf(w, "Running %s benchmark...\n", step)

			var result BenchmarkResult
			var err error
			if step == "build" {
				result, err = runBuildBenchmark(cfg)
			} else {
				var bt *benchTable
				if bt, err = table(); err != nil {
					return nil, err
				}
				switch step {
				case "read":
					result, err = runReadBenchmark(bt, cfg, false)
				case "random-read":
					result, err = runReadBenchmark(bt, cfg, true)
				case "seek":
					result, err = runSeekBenchmark(bt, cfg)
				case "scan":
					result, err = runScanBenchmark(bt, cfg)
				}
			}
			if err != nil {
				return nil, fmt.Errorf("%s: %w", step, err)
			}
			results = append(results, result)
		}
	}

	return results, nil
}
