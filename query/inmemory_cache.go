package query

import "sync"

var _ CacheDriver = (*inMemoryCache)(nil)

type inMemoryCache struct {
	sync.Map
}

// InMemoryCache creates an unbounded CacheDriver backed by sync.Map
func InMemoryCache() CacheDriver {
	return &inMemoryCache{}
}

func (c *inMemoryCache) Add(key, value interface{}) {
	c.Map.Store(key, value)
}

func (c *inMemoryCache) Get(key interface{}) (value interface{}, ok bool) {
	return c.Map.Load(key)
}

func (c *inMemoryCache) Keys() []interface{} {
	var keys []interface{}
	c.Map.Range(func(key, _ interface{}) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}
