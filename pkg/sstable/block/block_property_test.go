package block

import (
	"bytes"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// sortedUnique drops empty keys and returns the rest sorted without duplicates
func sortedUnique(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// buildFrom adds keys (value = key reversed) until the block fills up and
// returns the block with the keys it accepted
func buildFrom(keys []string, capacity int) (*Block, []string) {
	builder := NewBuilder(capacity)
	accepted := make([]string, 0, len(keys))
	for _, k := range keys {
		ok, err := builder.Add([]byte(k), reversed(k))
		if err != nil || !ok {
			break
		}
		accepted = append(accepted, k)
	}
	if len(accepted) == 0 {
		return nil, nil
	}
	blk, err := builder.Build()
	if err != nil {
		return nil, nil
	}
	return blk, accepted
}

func reversed(s string) []byte {
	out := []byte(s)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func TestBlockProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("decode inverts encode", prop.ForAll(
		func(keys []string) bool {
			blk, accepted := buildFrom(sortedUnique(keys), 4096)
			if accepted == nil {
				return true
			}
			decoded, err := Decode(blk.Encode())
			if err != nil {
				return false
			}
			if !bytes.Equal(decoded.Data(), blk.Data()) || len(decoded.Offsets()) != len(blk.Offsets()) {
				return false
			}
			for i := range blk.Offsets() {
				if decoded.Offsets()[i] != blk.Offsets()[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("iteration returns entries in insertion order", prop.ForAll(
		func(keys []string) bool {
			blk, accepted := buildFrom(sortedUnique(keys), 4096)
			if accepted == nil {
				return true
			}
			it := SeekToFirstIterator(blk)
			for _, k := range accepted {
				if !it.Valid() || string(it.Key()) != k || !bytes.Equal(it.Value(), reversed(k)) {
					return false
				}
				it.Next()
			}
			return !it.Valid() && it.Err() == nil
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("seek lands on the lower bound", prop.ForAll(
		func(keys []string, target string) bool {
			blk, accepted := buildFrom(sortedUnique(keys), 4096)
			if accepted == nil {
				return true
			}
			want := sort.SearchStrings(accepted, target)
			it := SeekToKeyIterator(blk, []byte(target))
			if want == len(accepted) {
				return !it.Valid() && it.Index() == len(accepted)
			}
			return it.Valid() && it.Index() == want && string(it.Key()) == accepted[want]
		},
		gen.SliceOf(gen.AlphaString()),
		gen.AlphaString(),
	))

	properties.Property("estimated size never exceeds capacity", prop.ForAll(
		func(keys []string, capacity int) bool {
			builder := NewBuilder(capacity)
			for _, k := range sortedUnique(keys) {
				ok, err := builder.Add([]byte(k), reversed(k))
				if err != nil {
					return false
				}
				if !ok {
					break
				}
				if builder.EstimatedSize() > capacity {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
		gen.IntRange(16, 512),
	))

	properties.TestingRun(t)
}
