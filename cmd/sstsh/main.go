package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/KevoDB/blocktable/pkg/common/log"
	"github.com/KevoDB/blocktable/pkg/config"
	"github.com/KevoDB/blocktable/pkg/telemetry"
)

// Command completer for readline
var completer = readline.NewPrefixCompleter(
	readline.PcItem(".help"),
	readline.PcItem(".open"),
	readline.PcItem(".close"),
	readline.PcItem(".build"),
	readline.PcItem(".info"),
	readline.PcItem(".blocks"),
	readline.PcItem(".stats"),
	readline.PcItem(".exit"),
	readline.PcItem("GET"),
	readline.PcItem("SEEK"),
	readline.PcItem("SCAN",
		readline.PcItem("RANGE"),
		readline.PcItem("SUFFIX"),
	),
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "sstsh - inspect and build sorted table files\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: sstsh [options] [table_path]\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(flag.CommandLine.Output(), "\nType .help inside the shell for commands\n")
	}

	optionsPath := flag.String("options", "", "Path to an OPTIONS file")
	blockSize := flag.Int("block-size", 0, "Block size used by .build (overrides the options file)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error or off")
	enableTelemetry := flag.Bool("telemetry", false, "Export metrics and traces (see BLOCKTABLE_TELEMETRY_* variables)")
	flag.Parse()

	opts, err := loadOptions(*optionsPath, *blockSize, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	log.SetDefaultLogger(log.NewStandardLogger(log.WithLevel(opts.Level())))

	telCfg := telemetry.DefaultConfig()
	telCfg.LoadFromEnv()
	if *enableTelemetry {
		telCfg.Enabled = true
	}
	tel, err := telemetry.New(telCfg, telemetry.WithOutput(os.Stderr))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	defer tel.Shutdown(context.Background())
	if p, ok := tel.(*telemetry.TelemetryProvider); ok && p.MetricsAddr() != "" {
		fmt.Fprintf(os.Stderr, "Serving metrics at http://%s/metrics\n", p.MetricsAddr())
	}

	sh := newShell(opts, tel, os.Stdout)
	defer sh.close()

	fmt.Println("sstsh version 1.0.0")
	fmt.Println("Enter .help for usage hints.")

	if flag.NArg() > 0 {
		sh.execute(".open " + flag.Arg(0))
	}

	historyFile := filepath.Join(os.TempDir(), ".sstsh_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "sstsh> ",
		HistoryFile:     historyFile,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing readline: %s\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	for {
		rl.SetPrompt(sh.prompt())

		line, readErr := rl.Readline()
		if readErr != nil {
			if readErr == readline.ErrInterrupt {
				if len(line) == 0 {
					break
				}
				continue
			} else if readErr == io.EOF {
				fmt.Println("Goodbye!")
				break
			}
			fmt.Fprintf(os.Stderr, "Error reading input: %s\n", readErr)
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if !sh.execute(line) {
			break
		}
	}
}

// loadOptions reads the options file when given and applies flag overrides
func loadOptions(path string, blockSize int, logLevel string) (*config.Options, error) {
	opts := config.NewDefaultOptions()
	if path != "" {
		loaded, err := config.LoadOptions(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load options from %s: %w", path, err)
		}
		opts = loaded
	}

	opts.Update(func(o *config.Options) {
		if blockSize > 0 {
			o.BlockSize = blockSize
		}
		if logLevel != "" {
			o.LogLevel = logLevel
		}
	})

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}
