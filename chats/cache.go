package chats

import (
	"container/list"
	"sync"
)

// lruCache is a small bounded input→ChatRef cache. Process lifetime only;
// entries are evicted least-recently-used and dropped on downstream
// not-found errors.
type lruCache struct {
	mu    sync.Mutex
	max   int
	ll    *list.List
	items map[string]*list.Element
}

type cacheEntry struct {
	key string
	ref ChatRef
}

func newLRUCache(max int) *lruCache {
	return &lruCache{
		max:   max,
		ll:    list.New(),
		items: make(map[string]*list.Element, max),
	}
}

func (c *lruCache) get(key string) (ChatRef, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return ChatRef{}, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*cacheEntry).ref, true
}

func (c *lruCache) put(key string, ref ChatRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry).ref = ref
		c.ll.MoveToFront(el)
		return
	}
	c.items[key] = c.ll.PushFront(&cacheEntry{key: key, ref: ref})
	for c.ll.Len() > c.max {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
}

func (c *lruCache) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
}

func (c *lruCache) removeByID(canonicalID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, el := range c.items {
		if el.Value.(*cacheEntry).ref.Peer.ID == canonicalID {
			c.ll.Remove(el)
			delete(c.items, key)
		}
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
