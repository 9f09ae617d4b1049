package content

import (
	"sync"

	"github.com/OneOfOne/xxhash"
)

// cache remembers responses by a hash of kind and request, evicting the
// oldest entry once full.
type cache struct {
	mu    sync.Mutex
	size  int
	items map[uint64]string
	order []uint64
}

func newCache(size int) *cache {
	if size <= 0 {
		return nil
	}
	return &cache{size: size, items: make(map[uint64]string, size)}
}

func cacheKey(kind, request string) uint64 {
	return xxhash.ChecksumString64(kind + "\x00" + request)
}

func (c *cache) get(kind, request string) (string, bool) {
	if c == nil {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[cacheKey(kind, request)]
	return v, ok
}

func (c *cache) put(kind, request, text string) {
	if c == nil {
		return
	}
	key := cacheKey(kind, request)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; ok {
		c.items[key] = text
		return
	}
	if len(c.order) >= c.size {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}
	c.items[key] = text
	c.order = append(c.order, key)
}

func (c *cache) len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
