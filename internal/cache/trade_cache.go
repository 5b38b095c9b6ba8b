// Package cache implements the per-agent memoized trade set described
// in spec.md §4.11, the same read-mostly TTL shape as the market and
// news caches but keyed additionally on the current market-id set so a
// hit can never hand back trades computed against a stale market list.
package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/synthetic-markets/agent-engine/internal/domain"
)

const (
	defaultTTL       = 30 * time.Second
	emptyGuardWindow = 10 * time.Second
)

// Store is the per-agent trade-set cache contract. TradeCache is the
// in-process implementation; RedisCache backs the same contract with a
// shared store so a hit survives process restarts, selected at startup
// via CacheConfig.Backend.
type Store interface {
	Get(agentID domain.AgentID, currentMarketIDs []string) ([]domain.Trade, bool)
	Set(agentID domain.AgentID, trades []domain.Trade, marketIDs []string, now time.Time)
	Invalidate(agentID domain.AgentID)
}

type entry struct {
	trades         []domain.Trade
	generatedAt    time.Time
	sortedMarketID []string
}

// TradeCache holds one entry per agent. Writes are serialized per key
// by the map mutex; reads are concurrent-safe.
type TradeCache struct {
	mu      sync.RWMutex
	entries map[domain.AgentID]entry
	ttl     time.Duration
}

func NewTradeCache(ttl time.Duration) *TradeCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &TradeCache{entries: make(map[domain.AgentID]entry), ttl: ttl}
}

// Get returns a hit only if the entry is within TTL and the stored
// sorted market-id list matches currentMarketIDs exactly. A cached
// empty trade set younger than the emptyGuardWindow is treated as
// transient and reported as a miss, per spec.md §4.11.
func (c *TradeCache) Get(agentID domain.AgentID, currentMarketIDs []string) ([]domain.Trade, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[agentID]
	if !ok {
		return nil, false
	}
	if time.Since(e.generatedAt) >= c.ttl {
		return nil, false
	}
	if !sameIDs(e.sortedMarketID, sortedCopy(currentMarketIDs)) {
		return nil, false
	}
	if len(e.trades) == 0 && time.Since(e.generatedAt) < emptyGuardWindow {
		return nil, false
	}
	return e.trades, true
}

// Set stores a freshly computed trade set against the market-id set it
// was computed from.
func (c *TradeCache) Set(agentID domain.AgentID, trades []domain.Trade, marketIDs []string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[agentID] = entry{
		trades:         trades,
		generatedAt:    now,
		sortedMarketID: sortedCopy(marketIDs),
	}
}

// Invalidate tightens an agent's entry to TTL-0 in response to a
// mutation event (new trade opened/closed) rather than deleting it
// outright, so a concurrent reader never observes a bare absence.
func (c *TradeCache) Invalidate(agentID domain.AgentID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[agentID]
	if !ok {
		return
	}
	e.generatedAt = time.Time{}
	c.entries[agentID] = e
}

func sortedCopy(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.Strings(out)
	return out
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
