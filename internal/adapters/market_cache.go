package adapters

import (
	"sync"
	"time"

	"github.com/synthetic-markets/agent-engine/internal/domain"
	"github.com/synthetic-markets/agent-engine/internal/observ"
)

// MarketCache holds the last successful market list by identity, the
// way the reference engine's QuoteCache holds the last successful
// quote: reads within the TTL return the same slice reference, reads
// past the TTL trigger a refresh, and a stale entry is still served if
// the refresh itself fails.
type MarketCache struct {
	mu       sync.RWMutex
	markets  []domain.Market
	cachedAt time.Time
	ttl      time.Duration
	hits     int64
	misses   int64
}

func NewMarketCache(ttl time.Duration) *MarketCache {
	return &MarketCache{ttl: ttl}
}

// Get returns the cached markets and whether they're still fresh.
func (c *MarketCache) Get() ([]domain.Market, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.markets == nil {
		c.recordMiss()
		return nil, false
	}
	fresh := time.Since(c.cachedAt) < c.ttl
	if fresh {
		c.recordHit()
	} else {
		c.recordMiss()
	}
	return c.markets, fresh
}

// Stale returns whatever is cached regardless of TTL, for the
// on-upstream-failure fallback path. ok is false only if nothing has
// ever been cached.
func (c *MarketCache) Stale() ([]domain.Market, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.markets, c.markets != nil
}

func (c *MarketCache) Set(markets []domain.Market) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markets = markets
	c.cachedAt = time.Now()
}

func (c *MarketCache) recordHit() {
	c.hits++
	observ.IncCounter("market_cache_hit_total", nil)
}

func (c *MarketCache) recordMiss() {
	c.misses++
	observ.IncCounter("market_cache_miss_total", nil)
}

// HitRatio returns hits/(hits+misses) so far, 0 before any lookup. The
// per-adapter hit/miss counters spec.md §4.16 requires are incremented
// in recordHit and recordMiss; nothing in the engine calls HitRatio.
func (c *MarketCache) HitRatio() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}
