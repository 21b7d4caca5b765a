package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KevoDB/blocktable/pkg/common/log"
)

func TestNewDefaultOptions(t *testing.T) {
	opts := NewDefaultOptions()

	if opts.Version != CurrentOptionsVersion {
		t.Errorf("expected version %d, got %d", CurrentOptionsVersion, opts.Version)
	}

	if opts.BlockSize != DefaultBlockSize {
		t.Errorf("expected block size %d, got %d", DefaultBlockSize, opts.BlockSize)
	}

	if opts.Level() != log.LevelInfo {
		t.Errorf("expected info level, got %v", opts.Level())
	}

	if err := opts.Validate(); err != nil {
		t.Errorf("expected default options to be valid, got: %v", err)
	}
}

func TestOptionsValidate(t *testing.T) {
	testCases := []struct {
		name     string
		mutate   func(*Options)
		expected string
	}{
		{
			name: "invalid version",
			mutate: func(o *Options) {
				o.Version = 0
			},
			expected: "invalid configuration: invalid version 0",
		},
		{
			name: "block size too small",
			mutate: func(o *Options) {
				o.BlockSize = MinBlockSize - 1
			},
			expected: "invalid configuration: block size 15 outside [16, 65536]",
		},
		{
			name: "block size too large",
			mutate: func(o *Options) {
				o.BlockSize = MaxBlockSize + 1
			},
			expected: "invalid configuration: block size 65537 outside [16, 65536]",
		},
		{
			name: "negative cache",
			mutate: func(o *Options) {
				o.BlockCacheBlocks = -1
			},
			expected: "invalid configuration: block cache size must not be negative",
		},
		{
			name: "cache without shards",
			mutate: func(o *Options) {
				o.BlockCacheShards = 0
			},
			expected: "invalid configuration: block cache shards must be positive",
		},
		{
			name: "unknown log level",
			mutate: func(o *Options) {
				o.LogLevel = "loud"
			},
			expected: `invalid configuration: unknown log level "loud"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts := NewDefaultOptions()
			tc.mutate(opts)

			err := opts.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			if err.Error() != tc.expected {
				t.Errorf("expected error %q, got %q", tc.expected, err.Error())
			}
		})
	}

	// Shards are irrelevant once the cache is disabled
	opts := NewDefaultOptions()
	opts.BlockCacheBlocks = 0
	opts.BlockCacheShards = 0
	if err := opts.Validate(); err != nil {
		t.Errorf("expected disabled cache to validate, got: %v", err)
	}
}

func TestOptionsSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", DefaultOptionsFileName)

	opts := NewDefaultOptions()
	opts.BlockSize = 8 * 1024
	opts.LogLevel = "debug"

	if err := opts.Save(path); err != nil {
		t.Fatalf("failed to save options: %v", err)
	}

	loaded, err := LoadOptions(path)
	if err != nil {
		t.Fatalf("failed to load options: %v", err)
	}

	if loaded.BlockSize != opts.BlockSize {
		t.Errorf("expected block size %d, got %d", opts.BlockSize, loaded.BlockSize)
	}

	if loaded.Level() != log.LevelDebug {
		t.Errorf("expected debug level, got %v", loaded.Level())
	}

	if _, err := LoadOptions(filepath.Join(dir, "missing")); err != ErrOptionsNotFound {
		t.Errorf("expected ErrOptionsNotFound, got %v", err)
	}
}

func TestLoadOptionsRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultOptionsFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if _, err := LoadOptions(path); err == nil {
		t.Fatal("expected error for malformed options")
	}

	// Fields absent from the file keep their defaults
	if err := os.WriteFile(path, []byte(`{"block_size": 512}`), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	opts, err := LoadOptions(path)
	if err != nil {
		t.Fatalf("failed to load partial options: %v", err)
	}
	if opts.BlockSize != 512 || opts.Version != CurrentOptionsVersion {
		t.Errorf("unexpected options: block size %d, version %d", opts.BlockSize, opts.Version)
	}
}

func TestOptionsUpdate(t *testing.T) {
	opts := NewDefaultOptions()

	opts.Update(func(o *Options) {
		o.BlockSize = 32 * 1024
		o.BlockCacheBlocks = 0
	})

	if opts.BlockSize != 32*1024 {
		t.Errorf("expected block size %d, got %d", 32*1024, opts.BlockSize)
	}

	if opts.BlockCacheBlocks != 0 {
		t.Errorf("expected cache disabled, got %d", opts.BlockCacheBlocks)
	}
}
