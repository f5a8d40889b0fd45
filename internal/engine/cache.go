package engine

import (
	"sync"

	"go.uber.org/zap"
)

// Cache holds at most one Engine so the expensive service handles behind it
// are built once per process. Invalidate after any document-set mutation;
// the next GetOrCreate rebuilds.
type Cache struct {
	mu     sync.Mutex
	engine *Engine
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// GetOrCreate returns the cached engine, building it with create on a miss.
// A failed create leaves the cache empty.
func (c *Cache) GetOrCreate(create func() (*Engine, error)) (*Engine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine != nil {
		return c.engine, nil
	}

	engine, err := create()
	if err != nil {
		return nil, err
	}
	c.engine = engine
	return engine, nil
}

// Invalidate drops the cached engine.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine != nil {
		zap.L().Debug("engine cache invalidated")
	}
	c.engine = nil
}
