package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/synthetic-markets/agent-engine/internal/config"
	"github.com/synthetic-markets/agent-engine/internal/domain"
)

// RedisCache backs the same Store contract as TradeCache against a
// shared Redis instance, selected by CacheConfig.Backend == "redis" so
// a hit survives an engine restart and is visible across processes.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

type redisEntry struct {
	Trades         []domain.Trade `json:"trades"`
	GeneratedAt    time.Time      `json:"generatedAt"`
	SortedMarketID []string       `json:"sortedMarketId"`
}

func NewRedisCache(addr string, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

func (c *RedisCache) key(agentID domain.AgentID) string {
	return "trade_cache:" + string(agentID)
}

// Get mirrors TradeCache.Get's freshness and market-id-set equality
// rules; Redis TTL already expires the key, so the explicit freshness
// check here only guards against clock skew between writer and reader.
func (c *RedisCache) Get(agentID domain.AgentID, currentMarketIDs []string) ([]domain.Trade, bool) {
	raw, err := c.client.Get(context.Background(), c.key(agentID)).Bytes()
	if err != nil {
		return nil, false
	}
	var e redisEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false
	}
	if time.Since(e.GeneratedAt) >= c.ttl {
		return nil, false
	}
	if !sameIDs(e.SortedMarketID, sortedCopy(currentMarketIDs)) {
		return nil, false
	}
	if len(e.Trades) == 0 && time.Since(e.GeneratedAt) < emptyGuardWindow {
		return nil, false
	}
	return e.Trades, true
}

func (c *RedisCache) Set(agentID domain.AgentID, trades []domain.Trade, marketIDs []string, now time.Time) {
	raw, err := json.Marshal(redisEntry{
		Trades:         trades,
		GeneratedAt:    now,
		SortedMarketID: sortedCopy(marketIDs),
	})
	if err != nil {
		return
	}
	c.client.Set(context.Background(), c.key(agentID), raw, c.ttl)
}

// Invalidate deletes the key outright rather than tightening it to
// immediate expiry like TradeCache does: a concurrent reader sees a
// clean miss either way, and a delete is one round trip instead of a
// read-modify-write.
func (c *RedisCache) Invalidate(agentID domain.AgentID) {
	c.client.Del(context.Background(), c.key(agentID))
}

// NewStoreFromConfig selects the trade cache backing named by
// cfg.Backend ("memory" | "redis"), defaulting to the in-process
// TradeCache when unset or when no RedisAddr is configured.
func NewStoreFromConfig(cfg config.CacheConfig) Store {
	ttl := time.Duration(cfg.AgentTradeSetTTLSeconds) * time.Second
	if cfg.Backend == "redis" && cfg.RedisAddr != "" {
		return NewRedisCache(cfg.RedisAddr, ttl)
	}
	return NewTradeCache(ttl)
}
