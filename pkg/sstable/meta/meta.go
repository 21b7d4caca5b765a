// Package meta encodes the per-table index of block metadata.
//
// Each block of a table is described by a BlockMeta. The sequence is stored
// between the last data block and the footer:
//
//	+------------------+-------------------+-----------------+-----+
//	| offset 0 (u32 BE)| key len 0 (u16 BE)| first key 0     | ... |
//	+------------------+-------------------+-----------------+-----+
package meta

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/KevoDB/blocktable/pkg/common/errs"
)

const (
	// OffsetSize is the width of a block offset
	OffsetSize = 4
	// KeyLenSize is the width of the first-key length prefix
	KeyLenSize = 2
	// HeaderSize is the fixed part of one encoded BlockMeta
	HeaderSize = OffsetSize + KeyLenSize
)

// BlockMeta locates one data block within a table
type BlockMeta struct {
	// Offset is where the block starts within the table's data region
	Offset uint32
	// FirstKey is the first key stored in the block
	FirstKey []byte
}

// EncodedSize returns the number of bytes Encode appends for metas
func EncodedSize(metas []BlockMeta) int {
	size := 0
	for _, m := range metas {
		size += HeaderSize + len(m.FirstKey)
	}
	return size
}

// Encode appends the encoding of metas to dst and returns the extended buffer.
// The prior contents of dst are left untouched.
func Encode(dst []byte, metas []BlockMeta) ([]byte, error) {
	for i, m := range metas {
		if len(m.FirstKey) > math.MaxUint16 {
			return dst, fmt.Errorf("%w: block %d first key of %d bytes exceeds %d",
				errs.ErrInvalidArgument, i, len(m.FirstKey), math.MaxUint16)
		}
	}

	size := EncodedSize(metas)
	if cap(dst)-len(dst) < size {
		grown := make([]byte, len(dst), len(dst)+size)
		copy(grown, dst)
		dst = grown
	}

	start := len(dst)
	for i, m := range metas {
		before := len(dst)
		dst = binary.BigEndian.AppendUint32(dst, m.Offset)
		dst = binary.BigEndian.AppendUint16(dst, uint16(len(m.FirstKey)))
		dst = append(dst, m.FirstKey...)

		if written := len(dst) - before; written != HeaderSize+len(m.FirstKey) {
			return dst[:start], fmt.Errorf("%w: block %d meta wrote %d bytes, expected %d",
				errs.ErrCorrupt, i, written, HeaderSize+len(m.FirstKey))
		}
	}

	return dst, nil
}

// Decode parses a buffer produced by Encode. Keys are copied out of buf.
func Decode(buf []byte) ([]BlockMeta, error) {
	var metas []BlockMeta

	for pos := 0; pos < len(buf); {
		if len(buf)-pos < HeaderSize {
			return nil, fmt.Errorf("%w: block meta %d truncated at byte %d of %d",
				errs.ErrCorrupt, len(metas), pos, len(buf))
		}

		offset := binary.BigEndian.Uint32(buf[pos:])
		pos += OffsetSize
		keyLen := int(binary.BigEndian.Uint16(buf[pos:]))
		pos += KeyLenSize

		if len(buf)-pos < keyLen {
			return nil, fmt.Errorf("%w: block meta %d key of %d bytes exceeds %d remaining",
				errs.ErrCorrupt, len(metas), keyLen, len(buf)-pos)
		}

		metas = append(metas, BlockMeta{
			Offset:   offset,
			FirstKey: append([]byte(nil), buf[pos:pos+keyLen]...),
		})
		pos += keyLen
	}

	return metas, nil
}

// Search returns the index of the last block whose first key is <= key, the
// only block that can hold key. Keys before the first block map to block 0.
func Search(metas []BlockMeta, key []byte) int {
	i := sort.Search(len(metas), func(i int) bool {
		return bytes.Compare(metas[i].FirstKey, key) > 0
	})
	if i == 0 {
		return 0
	}
	return i - 1
}

// Validate checks the ordering invariants of a decoded sequence against the
// end of the data region: the first block starts at 0, offsets strictly
// increase, first keys strictly increase and every block starts before dataEnd.
func Validate(metas []BlockMeta, dataEnd uint32) error {
	if len(metas) == 0 {
		return fmt.Errorf("%w: table has no blocks", errs.ErrCorrupt)
	}
	if metas[0].Offset != 0 {
		return fmt.Errorf("%w: first block at offset %d", errs.ErrCorrupt, metas[0].Offset)
	}

	for i, m := range metas {
		if len(m.FirstKey) == 0 {
			return fmt.Errorf("%w: block %d has an empty first key", errs.ErrCorrupt, i)
		}
		if m.Offset >= dataEnd {
			return fmt.Errorf("%w: block %d offset %d not before data end %d",
				errs.ErrCorrupt, i, m.Offset, dataEnd)
		}
		if i == 0 {
			continue
		}
		prev := metas[i-1]
		if m.Offset <= prev.Offset {
			return fmt.Errorf("%w: block %d offset %d does not follow %d",
				errs.ErrCorrupt, i, m.Offset, prev.Offset)
		}
		if bytes.Compare(m.FirstKey, prev.FirstKey) <= 0 {
			return fmt.Errorf("%w: block %d first key %q does not follow %q",
				errs.ErrCorrupt, i, m.FirstKey, prev.FirstKey)
		}
	}

	return nil
}
