// Package sstable builds and reads immutable sorted tables: a run of blocks,
// the block meta sequence and a 4-byte footer holding the meta offset.
//
//	| block 0 | block 1 | ... | meta 0 | meta 1 | ... | u32 meta offset |
package sstable

import (
	"errors"

	"github.com/KevoDB/blocktable/pkg/config"
)

const (
	// DefaultBlockSize is the target encoded size of a block
	DefaultBlockSize = config.DefaultBlockSize
)

var (
	// ErrNotFound indicates a key was not found in the table
	ErrNotFound = errors.New("key not found in sstable")
)
