package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/KevoDB/blocktable/pkg/common/log"
)

const (
	DefaultOptionsFileName = "OPTIONS"
	CurrentOptionsVersion  = 1

	// MinBlockSize fits one entry with a single-byte key and empty value
	MinBlockSize = 16
	// MaxBlockSize keeps every entry offset and the offset count within a u16
	MaxBlockSize = 64 * 1024
	// DefaultBlockSize is the target encoded size of a data block
	DefaultBlockSize = 4 * 1024
)

var (
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrOptionsNotFound = errors.New("options file not found")
	ErrInvalidOptions  = errors.New("invalid options file")
)

// Options configures table building and reading
type Options struct {
	Version int `json:"version"`

	// Block configuration
	BlockSize int `json:"block_size"`

	// Read path configuration. A zero cache size disables the block cache.
	BlockCacheBlocks int `json:"block_cache_blocks"`
	BlockCacheShards int `json:"block_cache_shards"`

	LogLevel string `json:"log_level"`

	mu sync.RWMutex
}

// NewDefaultOptions creates Options with recommended default values
func NewDefaultOptions() *Options {
	return &Options{
		Version:          CurrentOptionsVersion,
		BlockSize:        DefaultBlockSize,
		BlockCacheBlocks: 1024,
		BlockCacheShards: 16,
		LogLevel:         "info",
	}
}

// Validate checks if the options are usable
func (o *Options) Validate() error {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.Version <= 0 {
		return fmt.Errorf("%w: invalid version %d", ErrInvalidConfig, o.Version)
	}

	if o.BlockSize < MinBlockSize || o.BlockSize > MaxBlockSize {
		return fmt.Errorf("%w: block size %d outside [%d, %d]",
			ErrInvalidConfig, o.BlockSize, MinBlockSize, MaxBlockSize)
	}

	if o.BlockCacheBlocks < 0 {
		return fmt.Errorf("%w: block cache size must not be negative", ErrInvalidConfig)
	}

	if o.BlockCacheBlocks > 0 && o.BlockCacheShards <= 0 {
		return fmt.Errorf("%w: block cache shards must be positive", ErrInvalidConfig)
	}

	if _, err := log.ParseLevel(o.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return nil
}

// Level returns the configured log level, falling back to info
func (o *Options) Level() log.Level {
	o.mu.RLock()
	defer o.mu.RUnlock()

	level, err := log.ParseLevel(o.LogLevel)
	if err != nil {
		return log.LevelInfo
	}
	return level
}

// LoadOptions reads and validates an options file
func LoadOptions(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrOptionsNotFound
		}
		return nil, fmt.Errorf("failed to read options: %w", err)
	}

	opts := NewDefaultOptions()
	if err := json.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return opts, nil
}

// Save validates the options and writes them to path via a temporary file
func (o *Options) Save(path string) error {
	if err := o.Validate(); err != nil {
		return err
	}

	o.mu.RLock()
	data, err := json.MarshalIndent(o, "", "  ")
	o.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal options: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write options: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename options: %w", err)
	}

	return nil
}

// Update applies the given function to modify the options
func (o *Options) Update(fn func(*Options)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(o)
}
