package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/KevoDB/blocktable/pkg/common/iterator"
	"github.com/KevoDB/blocktable/pkg/common/iterator/bounded"
	"github.com/KevoDB/blocktable/pkg/common/iterator/filtered"
	"github.com/KevoDB/blocktable/pkg/common/log"
	"github.com/KevoDB/blocktable/pkg/config"
	"github.com/KevoDB/blocktable/pkg/sstable"
	"github.com/KevoDB/blocktable/pkg/sstable/store"
	"github.com/KevoDB/blocktable/pkg/stats"
	"github.com/KevoDB/blocktable/pkg/telemetry"
)

const helpText = `
sstsh - inspect and build sorted table files

Usage:
  sstsh [options] [table_path]  - Start with an optional table file

Commands:
  .help                   - Show this help message
  .open PATH              - Open the table file at PATH
  .close                  - Close the current table
  .build SRC DST          - Build a table at DST from SRC, one key<TAB>value per line, and open it
  .info                   - Show table size, block count, meta offset and fingerprint
  .blocks                 - List every block with its byte range and first key
  .stats                  - Show read statistics
  .exit                   - Exit the program

  GET key                 - Retrieve a value by key
  SEEK key                - Show the first entry whose key is >= key

  SCAN                    - Scan all key-value pairs
  SCAN prefix             - Scan key-value pairs with given prefix
  SCAN SUFFIX suffix      - Scan key-value pairs with given suffix
  SCAN RANGE start end    - Scan key-value pairs in range [start, end)
`

// shell holds the state of one interactive session
type shell struct {
	opts      *config.Options
	out       io.Writer
	logger    log.Logger
	tel       telemetry.Telemetry
	cache     *sstable.BlockCache
	collector *stats.AtomicCollector

	table  *sstable.Table
	path   string
	nextID uint64
}

func newShell(opts *config.Options, tel telemetry.Telemetry, out io.Writer) *shell {
	return &shell{
		opts:      opts,
		out:       out,
		logger:    log.Default().WithField("component", "sstsh"),
		tel:       tel,
		cache:     sstable.NewBlockCacheFromOptions(opts),
		collector: stats.NewAtomicCollector(),
		nextID:    1,
	}
}

func (s *shell) prompt() string {
	if s.path != "" {
		return fmt.Sprintf("sstsh:%s> ", s.path)
	}
	return "sstsh> "
}

// execute runs one command line and returns false when the session should end
func (s *shell) execute(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToUpper(parts[0])

	if strings.HasPrefix(cmd, ".") {
		switch strings.ToLower(cmd) {
		case ".help":
			fmt.Fprint(s.out, helpText)

		case ".exit":
			return false

		case ".open":
			if len(parts) < 2 {
				fmt.Fprintln(s.out, "Error: Missing path argument")
				return true
			}
			if err := s.open(parts[1]); err != nil {
				fmt.Fprintf(s.out, "Error: %s\n", err)
				return true
			}
			fmt.Fprintf(s.out, "Table opened at %s\n", s.path)

		case ".close":
			if s.table == nil {
				fmt.Fprintln(s.out, "No table open")
				return true
			}
			s.close()
			fmt.Fprintln(s.out, "Table closed")

		case ".build":
			if len(parts) < 3 {
				fmt.Fprintln(s.out, "Error: .build requires source and destination paths")
				return true
			}
			n, err := s.build(parts[1], parts[2])
			if err != nil {
				fmt.Fprintf(s.out, "Error: %s\n", err)
				return true
			}
			fmt.Fprintf(s.out, "Built %s with %d entries in %d blocks\n", s.path, n, s.table.NumBlocks())

		case ".info":
			if !s.requireTable() {
				return true
			}
			s.info()

		case ".blocks":
			if !s.requireTable() {
				return true
			}
			s.blocks()

		case ".stats":
			s.stats()

		default:
			fmt.Fprintf(s.out, "Unknown command: %s\n", parts[0])
		}
		return true
	}

	if !s.requireTable() {
		return true
	}

	switch cmd {
	case "GET":
		if len(parts) != 2 {
			fmt.Fprintln(s.out, "Error: GET requires a key")
			return true
		}
		value, err := s.table.Get([]byte(parts[1]))
		if errors.Is(err, sstable.ErrNotFound) {
			fmt.Fprintln(s.out, "Key not found")
			return true
		}
		if err != nil {
			fmt.Fprintf(s.out, "Error: %s\n", err)
			return true
		}
		fmt.Fprintf(s.out, "%s\n", value)

	case "SEEK":
		if len(parts) != 2 {
			fmt.Fprintln(s.out, "Error: SEEK requires a key")
			return true
		}
		it, err := s.table.Seek([]byte(parts[1]))
		if err != nil {
			fmt.Fprintf(s.out, "Error: %s\n", err)
			return true
		}
		if !it.Valid() {
			fmt.Fprintln(s.out, "No key at or after target")
			return true
		}
		fmt.Fprintf(s.out, "%s: %s (block %d)\n", it.Key(), it.Value(), it.BlockIndex())

	case "SCAN":
		var iter iterator.Iterator
		switch {
		case len(parts) == 1:
			iter = s.table.NewIterator()
		case len(parts) == 3 && strings.ToUpper(parts[1]) == "SUFFIX":
			iter = filtered.NewSuffix(s.table.NewIterator(), []byte(parts[2]))
		case len(parts) == 4 && strings.ToUpper(parts[1]) == "RANGE":
			iter = bounded.New(s.table.NewIterator(), []byte(parts[2]), []byte(parts[3]))
		case len(parts) == 2:
			iter = bounded.NewPrefix(s.table.NewIterator(), []byte(parts[1]))
		default:
			fmt.Fprintln(s.out, "Error: Invalid SCAN syntax. See .help for usage")
			return true
		}
		s.scan(iter)

	default:
		fmt.Fprintf(s.out, "Unknown command: %s\n", parts[0])
	}

	return true
}

func (s *shell) requireTable() bool {
	if s.table == nil {
		fmt.Fprintln(s.out, "Error: No table open")
		return false
	}
	return true
}

func (s *shell) tableOptions() []sstable.TableOption {
	opts := []sstable.TableOption{
		sstable.WithTableLogger(s.logger),
		sstable.WithStats(s.collector),
		sstable.WithTelemetry(s.tel),
	}
	if s.cache != nil {
		opts = append(opts, sstable.WithBlockCache(s.cache))
	}
	return opts
}

func (s *shell) open(path string) error {
	st, err := store.OpenFileStore(path)
	if err != nil {
		return err
	}

	table, err := sstable.Open(s.nextID, st, s.tableOptions()...)
	if err != nil {
		st.Close()
		return err
	}

	s.close()
	s.table = table
	s.path = path
	s.nextID++
	return nil
}

func (s *shell) close() {
	if s.table == nil {
		return
	}
	if s.cache != nil {
		s.cache.Evict(s.table.ID())
	}
	if err := s.table.Close(); err != nil {
		s.logger.Warn("failed to close table %s: %v", s.path, err)
	}
	s.table = nil
	s.path = ""
}

// build reads tab-separated pairs from src, sorts them and writes a table to dst
func (s *shell) build(src, dst string) (int, error) {
	f, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var entries [][2][]byte
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*64*1024+1)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := scanner.Text()
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "\t")
		if !ok {
			return 0, fmt.Errorf("%s:%d: expected key<TAB>value", src, lineNo)
		}
		entries = append(entries, [2][]byte{[]byte(key), []byte(value)})
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", src, err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return bytes.Compare(entries[i][0], entries[j][0]) < 0
	})

	builder := sstable.NewBuilder(
		sstable.WithOptions(s.opts),
		sstable.WithLogger(s.logger),
		sstable.WithBuilderTelemetry(s.tel),
	)
	for _, e := range entries {
		if err := builder.Add(e[0], e[1]); err != nil {
			return 0, err
		}
	}

	table, err := builder.BuildFile(s.nextID, dst, s.tableOptions()...)
	if err != nil {
		return 0, err
	}

	s.close()
	s.table = table
	s.path = dst
	s.nextID++
	return builder.NumEntries(), nil
}

func (s *shell) info() {
	fingerprint, err := s.table.Fingerprint()
	if err != nil {
		fmt.Fprintf(s.out, "Error: %s\n", err)
		return
	}

	fmt.Fprintf(s.out, "Path:         %s\n", s.path)
	fmt.Fprintf(s.out, "Table ID:     %d\n", s.table.ID())
	fmt.Fprintf(s.out, "Size:         %d bytes\n", s.table.Store().Size())
	fmt.Fprintf(s.out, "Blocks:       %d\n", s.table.NumBlocks())
	fmt.Fprintf(s.out, "Meta offset:  %d\n", s.table.MetaOffset())
	fmt.Fprintf(s.out, "Fingerprint:  %016x\n", fingerprint)
}

func (s *shell) blocks() {
	for i, m := range s.table.BlockMetas() {
		_, length, err := s.table.BlockRange(i)
		if err != nil {
			fmt.Fprintf(s.out, "Error: %s\n", err)
			return
		}
		fmt.Fprintf(s.out, "%6d  offset=%-10d length=%-6d first=%s\n", i, m.Offset, length, m.FirstKey)
	}
}

func (s *shell) stats() {
	all := s.collector.GetStats()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(s.out, "%s: %v\n", name, all[name])
	}
}

func (s *shell) scan(iter iterator.Iterator) {
	count := 0
	for iter.SeekToFirst(); iter.Valid(); iter.Next() {
		fmt.Fprintf(s.out, "%s: %s\n", iter.Key(), iter.Value())
		count++
	}
	if err := iter.Err(); err != nil {
		fmt.Fprintf(s.out, "Error: %s\n", err)
		return
	}
	fmt.Fprintf(s.out, "%d entries found\n", count)
}
