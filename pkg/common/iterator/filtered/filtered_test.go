package filtered

import (
	"bytes"
	"sort"
	"testing"
)

type sliceIterator struct {
	keys []string
	pos  int
}

func newSliceIterator(keys ...string) *sliceIterator {
	sort.Strings(keys)
	return &sliceIterator{keys: keys, pos: len(keys)}
}

func (s *sliceIterator) SeekToFirst() { s.pos = 0 }
func (s *sliceIterator) SeekToLast()  { s.pos = len(s.keys) - 1 }
func (s *sliceIterator) Seek(target []byte) bool {
	s.pos = sort.SearchStrings(s.keys, string(target))
	return s.Valid()
}
func (s *sliceIterator) Next() bool {
	if s.Valid() {
		s.pos++
	}
	return s.Valid()
}
func (s *sliceIterator) Valid() bool { return s.pos >= 0 && s.pos < len(s.keys) }
func (s *sliceIterator) Key() []byte {
	if !s.Valid() {
		return nil
	}
	return []byte(s.keys[s.pos])
}
func (s *sliceIterator) Value() []byte { return bytes.ToUpper(s.Key()) }
func (s *sliceIterator) Err() error    { return nil }

func keys(it *Iterator) []string {
	var out []string
	for it.SeekToFirst(); it.Valid(); it.Next() {
		out = append(out, string(it.Key()))
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSuffix(t *testing.T) {
	it := NewSuffix(newSliceIterator("a.log", "b.sst", "c.log", "d.sst", "e.sst"), []byte(".sst"))

	if got, want := keys(it), []string{"b.sst", "d.sst", "e.sst"}; !equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	it.SeekToLast()
	if !it.Valid() || string(it.Key()) != "e.sst" {
		t.Errorf("expected last key e.sst, got %q", it.Key())
	}
}

func TestContains(t *testing.T) {
	it := NewContains(newSliceIterator("user:1", "order:1", "user:2", "item:9"), []byte(":1"))

	if got, want := keys(it), []string{"order:1", "user:1"}; !equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSeekAndSeekToLastSkipHiddenKeys(t *testing.T) {
	it := New(newSliceIterator("a1", "a2", "b1", "b2", "c"), func(key []byte) bool {
		return key[0] != 'b'
	})

	if !it.Seek([]byte("b")) || string(it.Key()) != "c" {
		t.Errorf("expected seek to skip to c, got %q", it.Key())
	}
	if it.Next() {
		t.Errorf("expected iterator exhausted after c, got %q", it.Key())
	}

	hideLast := New(newSliceIterator("a", "b", "c"), func(key []byte) bool {
		return !bytes.Equal(key, []byte("c"))
	})
	hideLast.SeekToLast()
	if !hideLast.Valid() || string(hideLast.Key()) != "b" {
		t.Errorf("expected last visible key b, got %q", hideLast.Key())
	}
	if string(hideLast.Value()) != "B" {
		t.Errorf("expected value B, got %q", hideLast.Value())
	}
}
