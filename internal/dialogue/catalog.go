package dialogue

import (
	"context"
	"sync"
	"time"
)

// CachedCatalog wraps a Catalog and reuses its listing for ttl. A failed
// refresh falls back to the last good listing when there is one.
type CachedCatalog struct {
	src Catalog
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries []Exercise
	fetched time.Time
}

func NewCachedCatalog(src Catalog, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{src: src, ttl: ttl, now: time.Now}
}

func (c *CachedCatalog) ListExercises(ctx context.Context) ([]Exercise, error) {
	if c.ttl <= 0 {
		return c.src.ListExercises(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries != nil && c.now().Sub(c.fetched) < c.ttl {
		return c.snapshot(), nil
	}

	entries, err := c.src.ListExercises(ctx)
	if err != nil {
		if c.entries != nil {
			return c.snapshot(), nil
		}
		return nil, err
	}
	c.entries = entries
	c.fetched = c.now()
	return c.snapshot(), nil
}

// Invalidate forces the next call to hit the source.
func (c *CachedCatalog) Invalidate() {
	c.mu.Lock()
	c.entries = nil
	c.mu.Unlock()
}

func (c *CachedCatalog) snapshot() []Exercise {
	out := make([]Exercise, len(c.entries))
	copy(out, c.entries)
	return out
}
