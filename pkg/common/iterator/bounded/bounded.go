// Package bounded restricts an iterator to a half-open key range.
package bounded

import (
	"bytes"

	"github.com/KevoDB/blocktable/pkg/common/iterator"
)

// Iterator wraps an iterator and limits it to keys in [start, end).
// A nil bound leaves that side of the range open.
type Iterator struct {
	iter  iterator.Iterator
	start []byte
	end   []byte
}

// New creates a bounded view over iter. The bounds are copied.
func New(iter iterator.Iterator, start, end []byte) *Iterator {
	b := &Iterator{iter: iter}
	b.SetBounds(start, end)
	return b
}

// NewPrefix creates a bounded view over the keys starting with prefix
func NewPrefix(iter iterator.Iterator, prefix []byte) *Iterator {
	return New(iter, prefix, PrefixEnd(prefix))
}

// PrefixEnd returns the smallest key greater than every key starting with
// prefix, or nil when no such key exists (empty or all-0xff prefix).
func PrefixEnd(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// SetBounds replaces the range; the current position is re-checked lazily
func (b *Iterator) SetBounds(start, end []byte) {
	b.start = cloneOrNil(start)
	b.end = cloneOrNil(end)
}

// SeekToFirst positions at the first key in the range
func (b *Iterator) SeekToFirst() {
	if b.start != nil {
		b.iter.Seek(b.start)
		return
	}
	b.iter.SeekToFirst()
}

// SeekToLast positions at the last key in the range.
// Without an end bound this is the wrapped iterator's last key; with one the
// range is scanned forward, since the wrapped iterators only move forward.
func (b *Iterator) SeekToLast() {
	if b.end == nil {
		b.iter.SeekToLast()
		return
	}

	var last []byte
	for b.SeekToFirst(); b.Valid(); b.iter.Next() {
		last = append(last[:0], b.iter.Key()...)
	}
	if last == nil {
		return
	}
	b.iter.Seek(last)
}

// Seek positions at the first key >= target within the range
func (b *Iterator) Seek(target []byte) bool {
	if b.start != nil && bytes.Compare(target, b.start) < 0 {
		target = b.start
	}
	b.iter.Seek(target)
	return b.Valid()
}

// Next advances to the next key within the range
func (b *Iterator) Next() bool {
	if !b.Valid() {
		return false
	}
	b.iter.Next()
	return b.Valid()
}

// Valid returns true if the wrapped iterator is positioned inside the range
func (b *Iterator) Valid() bool {
	if !b.iter.Valid() {
		return false
	}
	key := b.iter.Key()
	if b.start != nil && bytes.Compare(key, b.start) < 0 {
		return false
	}
	if b.end != nil && bytes.Compare(key, b.end) >= 0 {
		return false
	}
	return true
}

// Key returns the current key, or nil outside the range
func (b *Iterator) Key() []byte {
	if !b.Valid() {
		return nil
	}
	return b.iter.Key()
}

// Value returns the current value, or nil outside the range
func (b *Iterator) Value() []byte {
	if !b.Valid() {
		return nil
	}
	return b.iter.Value()
}

// Err returns the wrapped iterator's error
func (b *Iterator) Err() error {
	return b.iter.Err()
}

func cloneOrNil(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}

var _ iterator.Iterator = (*Iterator)(nil)
