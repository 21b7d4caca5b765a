package sstable

import (
	"container/list"
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/KevoDB/blocktable/pkg/config"
	"github.com/KevoDB/blocktable/pkg/sstable/block"
)

// BlockCache is a sharded LRU cache of decoded blocks keyed by table ID and
// block index. Blocks are immutable, so one cached block may back any number
// of concurrent readers.
type BlockCache struct {
	shards []*cacheShard
}

type cacheKey struct {
	table uint64
	index int
}

type cacheEntry struct {
	key   cacheKey
	block *block.Block
}

type cacheShard struct {
	mu       sync.Mutex
	capacity int
	items    map[cacheKey]*list.Element
	lru      *list.List
}

// NewBlockCache creates a cache holding up to capacity blocks spread over
// shards independently locked shards
func NewBlockCache(capacity, shards int) *BlockCache {
	if shards < 1 {
		shards = 1
	}
	if capacity < shards {
		shards = max(capacity, 1)
	}
	perShard := (capacity + shards - 1) / shards

	c := &BlockCache{shards: make([]*cacheShard, shards)}
	for i := range c.shards {
		c.shards[i] = &cacheShard{
			capacity: perShard,
			items:    make(map[cacheKey]*list.Element),
			lru:      list.New(),
		}
	}
	return c
}

// NewBlockCacheFromOptions sizes a cache from opts, returning nil when the
// cache is disabled
func NewBlockCacheFromOptions(opts *config.Options) *BlockCache {
	if opts.BlockCacheBlocks <= 0 {
		return nil
	}
	return NewBlockCache(opts.BlockCacheBlocks, opts.BlockCacheShards)
}

// Get returns block index of table, marking it most recently used
func (c *BlockCache) Get(table uint64, index int) (*block.Block, bool) {
	key := cacheKey{table: table, index: index}
	s := c.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[key]
	if !ok {
		return nil, false
	}
	s.lru.MoveToFront(elem)
	return elem.Value.(*cacheEntry).block, true
}

// Put caches blk as block index of table, evicting the least recently used
// block of the shard when it is full
func (c *BlockCache) Put(table uint64, index int, blk *block.Block) {
	key := cacheKey{table: table, index: index}
	s := c.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capacity == 0 {
		return
	}

	if elem, ok := s.items[key]; ok {
		s.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).block = blk
		return
	}

	s.items[key] = s.lru.PushFront(&cacheEntry{key: key, block: blk})
	for s.lru.Len() > s.capacity {
		oldest := s.lru.Back()
		s.lru.Remove(oldest)
		delete(s.items, oldest.Value.(*cacheEntry).key)
	}
}

// Evict drops every cached block of table
func (c *BlockCache) Evict(table uint64) {
	for _, s := range c.shards {
		s.mu.Lock()
		for key, elem := range s.items {
			if key.table == table {
				s.lru.Remove(elem)
				delete(s.items, key)
			}
		}
		s.mu.Unlock()
	}
}

// Len returns the number of cached blocks
func (c *BlockCache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += s.lru.Len()
		s.mu.Unlock()
	}
	return n
}

func (c *BlockCache) shardFor(key cacheKey) *cacheShard {
	if len(c.shards) == 1 {
		return c.shards[0]
	}
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], key.table)
	binary.BigEndian.PutUint64(buf[8:], uint64(key.index))
	return c.shards[xxhash.Sum64(buf[:])%uint64(len(c.shards))]
}
