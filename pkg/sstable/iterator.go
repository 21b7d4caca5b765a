package sstable

import (
	"github.com/KevoDB/blocktable/pkg/common/iterator"
	"github.com/KevoDB/blocktable/pkg/sstable/block"
	"github.com/KevoDB/blocktable/pkg/stats"
)

// Iterator walks every entry of a table in key order, loading one block at a
// time. It is not safe for concurrent use; open one iterator per goroutine.
type Iterator struct {
	table     *Table
	blockIdx  int
	blockIter *block.Iterator
	err       error
}

// NewIterator returns an unpositioned iterator over the table
func (t *Table) NewIterator() *Iterator {
	return &Iterator{
		table:    t,
		blockIdx: len(t.metas),
	}
}

// SeekToFirst positions the iterator at the first key
func (it *Iterator) SeekToFirst() {
	it.err = nil
	it.table.stats.TrackOperation(stats.OpScan)

	if it.loadBlock(0) {
		it.blockIter.SeekToFirst()
		it.checkBlockErr()
	}
}

// SeekToLast positions the iterator at the last key
func (it *Iterator) SeekToLast() {
	it.err = nil

	if it.loadBlock(len(it.table.metas) - 1) {
		it.blockIter.SeekToLast()
		it.checkBlockErr()
	}
}

// Seek positions the iterator at the first key >= target
func (it *Iterator) Seek(target []byte) bool {
	it.err = nil
	it.table.stats.TrackOperation(stats.OpSeek)

	if !it.loadBlock(it.table.FindBlock(target)) {
		return false
	}
	if it.blockIter.Seek(target) {
		return true
	}
	if it.checkBlockErr() {
		return false
	}

	// Every key of the candidate block is smaller; the next block starts
	// above target.
	return it.nextBlock()
}

// Next advances the iterator to the next key
func (it *Iterator) Next() bool {
	if !it.Valid() {
		return false
	}
	if it.blockIter.Next() {
		return true
	}
	if it.checkBlockErr() {
		return false
	}
	return it.nextBlock()
}

// Key returns the current key
func (it *Iterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return it.blockIter.Key()
}

// Value returns the current value
func (it *Iterator) Value() []byte {
	if !it.Valid() {
		return nil
	}
	return it.blockIter.Value()
}

// Valid returns true if the iterator is positioned at a valid entry
func (it *Iterator) Valid() bool {
	return it.err == nil && it.blockIter != nil && it.blockIter.Valid()
}

// Err returns the error that invalidated the iterator, if any
func (it *Iterator) Err() error {
	return it.err
}

// BlockIndex returns the index of the block the iterator is in
func (it *Iterator) BlockIndex() int {
	return it.blockIdx
}

func (it *Iterator) nextBlock() bool {
	if !it.loadBlock(it.blockIdx + 1) {
		return false
	}
	it.blockIter.SeekToFirst()
	it.checkBlockErr()
	return it.Valid()
}

// loadBlock switches to block i, leaving the iterator exhausted when i is out
// of range or the block cannot be read
func (it *Iterator) loadBlock(i int) bool {
	it.blockIter = nil
	if i < 0 || i >= len(it.table.metas) {
		it.blockIdx = len(it.table.metas)
		return false
	}

	blk, err := it.table.ReadBlock(i)
	if err != nil {
		it.err = err
		it.blockIdx = len(it.table.metas)
		return false
	}

	it.blockIdx = i
	it.blockIter = block.NewIterator(blk)
	return true
}

// checkBlockErr moves a decode error from the block iterator onto it
func (it *Iterator) checkBlockErr() bool {
	if it.blockIter != nil && it.blockIter.Err() != nil {
		it.err = it.blockIter.Err()
		return true
	}
	return false
}

var _ iterator.Iterator = (*Iterator)(nil)
