package block

import (
	"encoding/binary"
	"fmt"

	"github.com/KevoDB/blocktable/pkg/common/errs"
)

// Block is an immutable run of sorted entries plus the offset of each entry.
//
// Encoded layout:
//
//	+---------+-----+---------+----------+-----+----------+--------------+
//	| entry 0 | ... | entry n | offset 0 | ... | offset n | offset count |
//	+---------+-----+---------+----------+-----+----------+--------------+
//
// Each entry is u16 key length, key, u16 value length, value. Offsets and the
// count are u16, big-endian.
type Block struct {
	data    []byte
	offsets []uint16
}

// Len returns the number of entries
func (b *Block) Len() int {
	return len(b.offsets)
}

// Data returns the concatenated encoded entries. It must not be modified.
func (b *Block) Data() []byte {
	return b.data
}

// Offsets returns the start of each entry within Data. It must not be modified.
func (b *Block) Offsets() []uint16 {
	return b.offsets
}

// EncodedSize returns the length of Encode's output
func (b *Block) EncodedSize() int {
	return len(b.data) + SizeOfU16*len(b.offsets) + TrailerSize
}

// Encode serializes the block into a newly allocated buffer
func (b *Block) Encode() []byte {
	buf := make([]byte, 0, b.EncodedSize())
	buf = append(buf, b.data...)
	for _, offset := range b.offsets {
		buf = binary.BigEndian.AppendUint16(buf, offset)
	}
	return binary.BigEndian.AppendUint16(buf, uint16(len(b.offsets)))
}

// Decode parses an encoded block. The returned block references buf, which
// must not be modified afterwards.
func Decode(buf []byte) (*Block, error) {
	if len(buf) < TrailerSize {
		return nil, fmt.Errorf("%w: block of %d bytes has no trailer", errs.ErrOutOfBounds, len(buf))
	}

	count := int(binary.BigEndian.Uint16(buf[len(buf)-TrailerSize:]))
	dataEnd := len(buf) - TrailerSize - count*SizeOfU16
	if dataEnd < 0 {
		return nil, fmt.Errorf("%w: %d offsets do not fit in a %d byte block",
			errs.ErrCorrupt, count, len(buf))
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: block has no entries", errs.ErrCorrupt)
	}

	offsets := make([]uint16, count)
	for i := range offsets {
		offsets[i] = binary.BigEndian.Uint16(buf[dataEnd+i*SizeOfU16:])
	}

	if offsets[0] != 0 {
		return nil, fmt.Errorf("%w: first entry at offset %d", errs.ErrCorrupt, offsets[0])
	}
	for i := 1; i < count; i++ {
		if offsets[i] <= offsets[i-1] {
			return nil, fmt.Errorf("%w: offset %d (%d) does not follow %d",
				errs.ErrCorrupt, i, offsets[i], offsets[i-1])
		}
	}
	if int(offsets[count-1]) >= dataEnd {
		return nil, fmt.Errorf("%w: last offset %d beyond data end %d",
			errs.ErrCorrupt, offsets[count-1], dataEnd)
	}

	return &Block{
		data:    buf[:dataEnd:dataEnd],
		offsets: offsets,
	}, nil
}

// EntryAt decodes the i-th entry. The returned slices alias the block.
func (b *Block) EntryAt(i int) (key, value []byte, err error) {
	if i < 0 || i >= len(b.offsets) {
		return nil, nil, fmt.Errorf("%w: entry %d of %d", errs.ErrOutOfBounds, i, len(b.offsets))
	}

	start, end := int(b.offsets[i]), len(b.data)
	if i+1 < len(b.offsets) {
		end = int(b.offsets[i+1])
	}
	if start > end || end > len(b.data) {
		return nil, nil, fmt.Errorf("%w: entry %d spans [%d, %d) of %d bytes",
			errs.ErrCorrupt, i, start, end, len(b.data))
	}
	entry := b.data[start:end]

	if len(entry) < SizeOfU16 {
		return nil, nil, fmt.Errorf("%w: entry %d truncated before key length", errs.ErrCorrupt, i)
	}
	keyLen := int(binary.BigEndian.Uint16(entry))
	entry = entry[SizeOfU16:]
	if keyLen == 0 {
		return nil, nil, fmt.Errorf("%w: entry %d has an empty key", errs.ErrCorrupt, i)
	}
	if len(entry) < keyLen+SizeOfU16 {
		return nil, nil, fmt.Errorf("%w: entry %d key length %d exceeds %d remaining bytes",
			errs.ErrCorrupt, i, keyLen, len(entry))
	}
	key = entry[:keyLen:keyLen]
	entry = entry[keyLen:]

	valueLen := int(binary.BigEndian.Uint16(entry))
	entry = entry[SizeOfU16:]
	if len(entry) != valueLen {
		return nil, nil, fmt.Errorf("%w: entry %d value length %d, %d bytes remain",
			errs.ErrCorrupt, i, valueLen, len(entry))
	}
	value = entry[:valueLen:valueLen]

	return key, value, nil
}
