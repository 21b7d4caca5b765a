package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// BenchmarkResult stores the results of a benchmark
type BenchmarkResult struct {
	BenchmarkType string
	NumKeys       int
	ValueSize     int
	BlockSize     int
	Operations    int
	Duration      float64
	Throughput    float64
	Latency       float64
	HitRate       float64 // For point reads
	CacheHitRate  float64 // For point reads
	EntriesPerSec float64 // For scan benchmarks
	TableBytes    int64
	Timestamp     time.Time
}

var csvHeader = []string{
	"Timestamp", "BenchmarkType", "NumKeys", "ValueSize", "BlockSize",
	"Operations", "Duration", "Throughput", "Latency", "HitRate",
	"CacheHitRate", "EntriesPerSec", "TableBytes",
}

// SaveResultCSV saves benchmark results to a CSV file
func SaveResultCSV(results []BenchmarkResult, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range results {
		record := []string{
			r.Timestamp.Format(time.RFC3339),
			r.BenchmarkType,
			strconv.Itoa(r.NumKeys),
			strconv.Itoa(r.ValueSize),
			strconv.Itoa(r.BlockSize),
			strconv.Itoa(r.Operations),
			fmt.Sprintf("%.2f", r.Duration),
			fmt.Sprintf("%.2f", r.Throughput),
			fmt.Sprintf("%.3f", r.Latency),
			fmt.Sprintf("%.2f", r.HitRate),
			fmt.Sprintf("%.2f", r.CacheHitRate),
			fmt.Sprintf("%.2f", r.EntriesPerSec),
			strconv.FormatInt(r.TableBytes, 10),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// LoadResultCSV loads benchmark results from a CSV file
func LoadResultCSV(filename string) ([]BenchmarkResult, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}

	// Skip header
	if len(records) <= 1 {
		return []BenchmarkResult{}, nil
	}
	records = records[1:]

	results := make([]BenchmarkResult, 0, len(records))
	for _, record := range records {
		if len(record) < len(csvHeader) {
			continue
		}

		timestamp, _ := time.Parse(time.RFC3339, record[0])
		numKeys, _ := strconv.Atoi(record[2])
		valueSize, _ := strconv.Atoi(record[3])
		blockSize, _ := strconv.Atoi(record[4])
		operations, _ := strconv.Atoi(record[5])
		duration, _ := strconv.ParseFloat(record[6], 64)
		throughput, _ := strconv.ParseFloat(record[7], 64)
		latency, _ := strconv.ParseFloat(record[8], 64)
		hitRate, _ := strconv.ParseFloat(record[9], 64)
		cacheHitRate, _ := strconv.ParseFloat(record[10], 64)
		entriesPerSec, _ := strconv.ParseFloat(record[11], 64)
		tableBytes, _ := strconv.ParseInt(record[12], 10, 64)

		results = append(results, BenchmarkResult{
			Timestamp:     timestamp,
			BenchmarkType: record[1],
			NumKeys:       numKeys,
			ValueSize:     valueSize,
			BlockSize:     blockSize,
			Operations:    operations,
			Duration:      duration,
			Throughput:    throughput,
			Latency:       latency,
			HitRate:       hitRate,
			CacheHitRate:  cacheHitRate,
			EntriesPerSec: entriesPerSec,
			TableBytes:    tableBytes,
		})
	}

	return results, nil
}

// PrintResultTable writes a formatted table of benchmark results to w
func PrintResultTable(w io.Writer, results []BenchmarkResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results to display")
		return
	}

	const rule = "+-----------------+--------+---------+-------+------------+----------+----------+"
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "| Benchmark Type  | Keys   | ValSize | Block | Throughput | Latency  | Hit Rate |")
	fmt.Fprintln(w, rule)

	for _, r := range results {
		hitRateStr := "-"
		switch r.BenchmarkType {
		case "Read", "Random Read":
			hitRateStr = fmt.Sprintf("%.2f%%", r.HitRate)
		case "Scan":
			hitRateStr = fmt.Sprintf("%.0f/s", r.EntriesPerSec)
		}

		latencyUnit := "µs"
		latency := r.Latency
		if latency > 1000 {
			latencyUnit = "ms"
			latency /= 1000
		}

		fmt.Fprintf(w, "| %-15s | %6d | %7d | %5d | %10.2f | %6.2f%s | %8s |\n",
			r.BenchmarkType,
			r.NumKeys,
			r.ValueSize,
			r.BlockSize,
			r.Throughput,
			latency, latencyUnit,
			hitRateStr)
	}
	fmt.Fprintln(w, rule)
}
