package block

import (
	"bytes"

	"github.com/KevoDB/blocktable/pkg/common/iterator"
)

// Iterator is a read-only cursor over one Block. Several iterators may share a
// block; each keeps its own position.
//
// Key and Value alias the block's memory and must not be modified.
type Iterator struct {
	block *Block
	key   []byte
	value []byte
	index int
	err   error
}

// NewIterator returns an unpositioned iterator over b
func NewIterator(b *Block) *Iterator {
	return &Iterator{block: b, index: b.Len()}
}

// SeekToFirstIterator returns an iterator positioned at the first entry of b
func SeekToFirstIterator(b *Block) *Iterator {
	it := NewIterator(b)
	it.SeekToFirst()
	return it
}

// SeekToKeyIterator returns an iterator positioned at the first entry of b
// whose key is >= key
func SeekToKeyIterator(b *Block, key []byte) *Iterator {
	it := NewIterator(b)
	it.Seek(key)
	return it
}

// SeekToFirst positions the iterator at the first entry
func (it *Iterator) SeekToFirst() {
	it.seekTo(0)
}

// SeekToLast positions the iterator at the last entry
func (it *Iterator) SeekToLast() {
	it.seekTo(it.block.Len() - 1)
}

// Seek positions the iterator at target, or at the first key greater than
// target when it is absent. It returns false when every key is smaller.
func (it *Iterator) Seek(target []byte) bool {
	low, high := 0, it.block.Len()
	for low < high {
		mid := low + (high-low)/2
		it.seekTo(mid)
		if it.err != nil {
			return false
		}

		switch bytes.Compare(it.key, target) {
		case -1:
			low = mid + 1
		case 1:
			high = mid
		default:
			return true
		}
	}

	it.seekTo(low)
	return it.Valid()
}

// Next advances the iterator to the next entry
func (it *Iterator) Next() bool {
	if it.index >= it.block.Len() {
		return false
	}
	it.seekTo(it.index + 1)
	return it.Valid()
}

// Key returns the current key
func (it *Iterator) Key() []byte {
	return it.key
}

// Value returns the current value
func (it *Iterator) Value() []byte {
	return it.value
}

// Valid returns true if the iterator is positioned at a valid entry
func (it *Iterator) Valid() bool {
	return it.err == nil && len(it.key) > 0
}

// Index returns the position of the current entry, or Len() past the end
func (it *Iterator) Index() int {
	return it.index
}

// Err returns the decode error that invalidated the iterator, if any.
// Once set the iterator stays invalid.
func (it *Iterator) Err() error {
	return it.err
}

func (it *Iterator) seekTo(i int) {
	if it.err != nil || i < 0 || i >= it.block.Len() {
		it.invalidate()
		return
	}

	key, value, err := it.block.EntryAt(i)
	if err != nil {
		it.err = err
		it.invalidate()
		return
	}

	it.key = key
	it.value = value
	it.index = i
}

func (it *Iterator) invalidate() {
	it.key = nil
	it.value = nil
	it.index = it.block.Len()
}

var _ iterator.Iterator = (*Iterator)(nil)
