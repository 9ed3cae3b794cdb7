package yard

import (
	"sync"

	"github.com/golang/groupcache/lru"

	"github.com/teranos/entityhub/model"
)

// repCache holds clones of recently read representations. Every
// invalidation advances the epoch; a read only fills the cache when no
// invalidation happened since it started.
type repCache struct {
	mu    sync.Mutex
	lru   *lru.Cache
	epoch uint64
}

// newRepCache returns nil for a non-positive size; a nil cache never hits
func newRepCache(size int) *repCache {
	if size <= 0 {
		return nil
	}
	return &repCache{lru: lru.New(size)}
}

func (c *repCache) get(id string) (*model.Representation, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*model.Representation).Clone(), true
}

// begin returns the epoch a read must pass to put
func (c *repCache) begin() uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// put caches r unless the cache was invalidated after epoch was taken
func (c *repCache) put(r *model.Representation, epoch uint64) {
	if c == nil || r == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return
	}
	c.lru.Add(r.ID(), r.Clone())
}

// remove drops id and must run after the write it follows has committed
func (c *repCache) remove(id string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.lru.Remove(id)
}

func (c *repCache) clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.lru.Clear()
}

func (c *repCache) len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
