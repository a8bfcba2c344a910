package credits

import (
	"context"
	"sync"
	"time"
)

// Cell is a single cached value with an expiry. Last returns the most
// recent value regardless of expiry and backs the stale fallback.
type Cell[T any] interface {
	Get(ctx context.Context) (T, bool, error)
	Last(ctx context.Context) (T, bool, error)
	Set(ctx context.Context, v T, ttl time.Duration) error
}

// MemoryCell is an in-process Cell
type MemoryCell[T any] struct {
	mu      sync.RWMutex
	value   T
	set     bool
	expires time.Time
	now     func() time.Time
}

// NewMemoryCell creates an empty in-memory cell
func NewMemoryCell[T any]() *MemoryCell[T] {
	return &MemoryCell[T]{now: time.Now}
}

func (c *MemoryCell[T]) Get(ctx context.Context) (T, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.set || !c.now().Before(c.expires) {
		var zero T
		return zero, false, nil
	}
	return c.value, true, nil
}

func (c *MemoryCell[T]) Last(ctx context.Context) (T, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value, c.set, nil
}

func (c *MemoryCell[T]) Set(ctx context.Context, v T, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	c.set = true
	c.expires = c.now().Add(ttl)
	return nil
}
