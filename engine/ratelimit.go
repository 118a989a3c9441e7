package engine

import (
	"time"

	c "github.com/patrickmn/go-cache"
)

// Throttler decides whether a rate_limit node in throttle mode may fire. Keys are
// node ids and the table is shared process-wide across all running executions, so
// two flows using the same node id influence each other. Not distributed-safe.
type Throttler interface {
	TryAcquire(key string, interval time.Duration) bool
}

type cacheThrottler struct {
	cache *c.Cache
	now   func() time.Time
}

func NewThrottler() Throttler {
	return newThrottlerWithClock(time.Now)
}

func newThrottlerWithClock(now func() time.Time) *cacheThrottler {
	return &cacheThrottler{
		cache: c.New(c.NoExpiration, 10*time.Minute),
		now:   now,
	}
}

func (t *cacheThrottler) TryAcquire(key string, interval time.Duration) bool {
	n := t.now()
	if last, found := t.cache.Get(key); found {
		if n.Sub(last.(time.Time)) < interval {
			return false
		}
	}
	t.cache.Set(key, n, c.NoExpiration)
	return true
}

// defaultThrottler backs every engine that is not given an explicit Throttler.
var defaultThrottler = NewThrottler()
