package collections

import "sync"

// Cache hands out one Store per user so every consumer in the process sees
// the same list.
type Cache struct {
	mu     sync.Mutex
	stores map[string]*Store
	newAPI func(userID string) API
}

func NewCache(newAPI func(userID string) API) *Cache {
	return &Cache{
		stores: make(map[string]*Store),
		newAPI: newAPI,
	}
}

func (c *Cache) For(userID string) *Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.stores[userID]; ok {
		return s
	}
	s := NewStore(c.newAPI(userID))
	c.stores[userID] = s
	return s
}

// Invalidate forgets the user's store; the next For starts unloaded.
func (c *Cache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.stores, userID)
}
