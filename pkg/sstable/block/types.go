package block

import "math"

// Entry represents a key-value pair within the block
type Entry struct {
	Key   []byte
	Value []byte
}

const (
	// SizeOfU16 is the width of every length prefix, offset and the trailer
	SizeOfU16 = 2
	// TrailerSize is the size of the trailing offset count
	TrailerSize = SizeOfU16
	// EntryOverhead is the fixed cost of one entry: key length, value length
	// and its slot in the offset index
	EntryOverhead = 3 * SizeOfU16
	// MaxKeySize is the largest key a u16 length prefix can describe
	MaxKeySize = math.MaxUint16
	// MaxValueSize is the largest value a u16 length prefix can describe
	MaxValueSize = math.MaxUint16
)

// EntrySize returns how many bytes adding key and value grows an encoded block by
func EntrySize(key, value []byte) int {
	return len(key) + len(value) + EntryOverhead
}
