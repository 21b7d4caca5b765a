// Package store provides the byte-range-readable backing stores that hold a
// table's encoded bytes.
package store

import (
	"errors"
	"fmt"

	"github.com/KevoDB/blocktable/pkg/common/errs"
)

// ErrClosed is returned by reads from a closed store
var ErrClosed = errors.New("store is closed")

// Store is a read-only, byte-addressable view of one table.
// Implementations must be safe for concurrent reads.
type Store interface {
	// Read returns exactly length bytes starting at offset. Ranges that extend
	// past Size fail with errs.ErrOutOfBounds.
	Read(offset, length uint32) ([]byte, error)
	// Size returns the total number of bytes in the store
	Size() uint32
}

// checkRange validates [offset, offset+length) against size
func checkRange(offset, length, size uint32) error {
	if uint64(offset)+uint64(length) > uint64(size) {
		return fmt.Errorf("%w: read [%d, %d) of %d bytes",
			errs.ErrOutOfBounds, offset, uint64(offset)+uint64(length), size)
	}
	return nil
}

// MemStore serves reads from an in-memory buffer
type MemStore struct {
	data []byte
}

// NewMemStore wraps data, which must not be modified afterwards
func NewMemStore(data []byte) (*MemStore, error) {
	if uint64(len(data)) > uint64(^uint32(0)) {
		return nil, fmt.Errorf("%w: %d bytes exceed a u32 addressable store",
			errs.ErrCapacityExceeded, len(data))
	}
	return &MemStore{data: data}, nil
}

// Read returns a copy of the requested range
func (m *MemStore) Read(offset, length uint32) ([]byte, error) {
	if err := checkRange(offset, length, m.Size()); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, m.data[offset:])
	return out, nil
}

// Size returns the number of bytes held
func (m *MemStore) Size() uint32 {
	return uint32(len(m.data))
}

var (
	_ Store = (*MemStore)(nil)
	_ Store = (*FileStore)(nil)
)
