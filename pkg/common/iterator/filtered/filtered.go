// Package filtered provides iterators that skip keys failing a predicate
package filtered

import (
	"bytes"

	"github.com/KevoDB/blocktable/pkg/common/iterator"
)

// KeyFilterFunc reports whether a key should be visible
type KeyFilterFunc func(key []byte) bool

// Iterator wraps an iterator and hides entries whose key fails the filter
type Iterator struct {
	iter   iterator.Iterator
	filter KeyFilterFunc
}

// New creates a filtered view over iter
func New(iter iterator.Iterator, filter KeyFilterFunc) *Iterator {
	return &Iterator{iter: iter, filter: filter}
}

// NewSuffix returns an iterator over the keys ending with suffix
func NewSuffix(iter iterator.Iterator, suffix []byte) *Iterator {
	s := append([]byte{}, suffix...)
	return New(iter, func(key []byte) bool {
		return bytes.HasSuffix(key, s)
	})
}

// NewContains returns an iterator over the keys containing sub
func NewContains(iter iterator.Iterator, sub []byte) *Iterator {
	s := append([]byte{}, sub...)
	return New(iter, func(key []byte) bool {
		return bytes.Contains(key, s)
	})
}

// skip advances the wrapped iterator until it rests on a visible key
func (f *Iterator) skip() bool {
	for f.iter.Valid() {
		if f.filter(f.iter.Key()) {
			return true
		}
		f.iter.Next()
	}
	return false
}

// SeekToFirst positions at the first visible key
func (f *Iterator) SeekToFirst() {
	f.iter.SeekToFirst()
	f.skip()
}

// SeekToLast positions at the last visible key
func (f *Iterator) SeekToLast() {
	f.iter.SeekToLast()
	if !f.iter.Valid() || f.filter(f.iter.Key()) {
		return
	}

	var last []byte
	for f.SeekToFirst(); f.Valid(); f.Next() {
		last = append(last[:0], f.iter.Key()...)
	}
	if last != nil {
		f.iter.Seek(last)
	}
}

// Seek positions at the first visible key >= target
func (f *Iterator) Seek(target []byte) bool {
	f.iter.Seek(target)
	return f.skip()
}

// Next advances to the next visible key
func (f *Iterator) Next() bool {
	if !f.iter.Valid() {
		return false
	}
	f.iter.Next()
	return f.skip()
}

// Valid returns true if positioned at a visible key
func (f *Iterator) Valid() bool {
	return f.iter.Valid() && f.filter(f.iter.Key())
}

// Key returns the current key
func (f *Iterator) Key() []byte {
	return f.iter.Key()
}

// Value returns the current value
func (f *Iterator) Value() []byte {
	return f.iter.Value()
}

// Err returns the wrapped iterator's error
func (f *Iterator) Err() error {
	return f.iter.Err()
}

var _ iterator.Iterator = (*Iterator)(nil)
