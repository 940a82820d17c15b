package poller

import (
	"sync"
	"time"
)

// Cache holds the last successful poll result and the error of the most
// recent poll. It is owned by the caller and safe for concurrent readers.
type Cache[T any] struct {
	mu      sync.RWMutex
	value   T
	ok      bool
	err     error
	updated time.Time
}

// NewCache returns an empty cache.
func NewCache[T any]() *Cache[T] {
	return &Cache[T]{}
}

// Get returns the last successful value and whether there is one.
func (c *Cache[T]) Get() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value, c.ok
}

// Err returns the error of the most recent poll, nil after a success.
func (c *Cache[T]) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// UpdatedAt is when the value was last replaced.
func (c *Cache[T]) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updated
}

func (c *Cache[T]) store(v T, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value, c.ok, c.err, c.updated = v, true, nil, at
}

// fail records err and keeps the previous value.
func (c *Cache[T]) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}
