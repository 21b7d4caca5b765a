package block

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/KevoDB/blocktable/pkg/common/errs"
)

// Builder packs sorted entries into a buffer whose encoded size never exceeds
// the capacity it was created with.
type Builder struct {
	capacity int
	data     []byte
	offsets  []uint16
	firstKey []byte
	lastKey  []byte
	built    bool
}

// NewBuilder creates a new block builder targeting capacity encoded bytes
func NewBuilder(capacity int) *Builder {
	reserve := capacity
	if reserve < 0 || reserve > math.MaxUint16 {
		reserve = math.MaxUint16
	}
	return &Builder{
		capacity: capacity,
		data:     make([]byte, 0, reserve),
		offsets:  make([]uint16, 0, reserve/(EntryOverhead+2)+1),
	}
}

// Add appends a key-value pair. Keys must be added in strictly increasing order.
//
// It returns false with no error when the entry does not fit the remaining
// budget; the builder is left unchanged and the caller should start a new
// block. The budget applies to the first entry too, so an oversized entry is
// rejected even by an empty builder.
func (b *Builder) Add(key, value []byte) (bool, error) {
	if b.built {
		return false, fmt.Errorf("%w: block already built", errs.ErrInvalidState)
	}
	if len(key) == 0 {
		return false, fmt.Errorf("%w: key must not be empty", errs.ErrInvalidArgument)
	}
	if len(key) > MaxKeySize {
		return false, fmt.Errorf("%w: key of %d bytes exceeds %d",
			errs.ErrInvalidArgument, len(key), MaxKeySize)
	}
	if len(value) > MaxValueSize {
		return false, fmt.Errorf("%w: value of %d bytes exceeds %d",
			errs.ErrInvalidArgument, len(value), MaxValueSize)
	}
	if b.lastKey != nil && bytes.Compare(key, b.lastKey) <= 0 {
		return false, fmt.Errorf("%w: keys must be added in strictly increasing order, got %q after %q",
			errs.ErrInvalidArgument, key, b.lastKey)
	}

	if b.EstimatedSize()+EntrySize(key, value) > b.capacity {
		return false, nil
	}
	// The new offset and the offset count must both fit a u16
	if len(b.data) > math.MaxUint16 || len(b.offsets) >= math.MaxUint16 {
		return false, nil
	}

	offset := len(b.data)
	b.offsets = append(b.offsets, uint16(offset))

	b.data = binary.BigEndian.AppendUint16(b.data, uint16(len(key)))
	b.data = append(b.data, key...)
	b.data = binary.BigEndian.AppendUint16(b.data, uint16(len(value)))
	b.data = append(b.data, value...)

	b.lastKey = b.data[offset+SizeOfU16 : offset+SizeOfU16+len(key)]
	if len(b.offsets) == 1 {
		b.firstKey = b.lastKey
	}

	return true, nil
}

// EstimatedSize returns the size of the block if it were encoded now
func (b *Builder) EstimatedSize() int {
	return SizeOfU16*len(b.offsets) + len(b.data) + TrailerSize
}

// Len returns the number of entries added so far
func (b *Builder) Len() int {
	return len(b.offsets)
}

// Empty reports whether no entry has been added
func (b *Builder) Empty() bool {
	return len(b.offsets) == 0
}

// FirstKey returns the first key added, or nil for an empty builder
func (b *Builder) FirstKey() []byte {
	return b.firstKey
}

// Capacity returns the encoded size budget
func (b *Builder) Capacity() int {
	return b.capacity
}

// Build hands the accumulated entries to an immutable Block. The builder
// cannot be used afterwards.
func (b *Builder) Build() (*Block, error) {
	if b.built {
		return nil, fmt.Errorf("%w: block already built", errs.ErrInvalidState)
	}
	if len(b.offsets) == 0 {
		return nil, fmt.Errorf("%w: cannot build empty block", errs.ErrInvalidState)
	}

	blk := &Block{
		data:    b.data[:len(b.data):len(b.data)],
		offsets: b.offsets[:len(b.offsets):len(b.offsets)],
	}

	b.built = true
	b.data = nil
	b.offsets = nil
	b.firstKey = nil
	b.lastKey = nil

	return blk, nil
}
