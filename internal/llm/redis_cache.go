package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/synthetic-markets/agent-engine/internal/domain"
)

// RedisDecisionCache backs the decision Cache contract against a
// shared Redis instance so a cache hit survives an engine restart and
// is shared across agent processes, mirroring cache.RedisCache's role
// for the trade cache.
type RedisDecisionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDecisionCache(addr string, ttl time.Duration) *RedisDecisionCache {
	return &RedisDecisionCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

func (c *RedisDecisionCache) decisionKey(key string) string {
	return "llm_decision:" + key
}

func (c *RedisDecisionCache) Get(key string) (domain.AITradeDecision, bool) {
	raw, err := c.client.Get(context.Background(), c.decisionKey(key)).Bytes()
	if err != nil {
		return domain.AITradeDecision{}, false
	}
	var d domain.AITradeDecision
	if err := json.Unmarshal(raw, &d); err != nil {
		return domain.AITradeDecision{}, false
	}
	return d, true
}

func (c *RedisDecisionCache) Set(key string, d domain.AITradeDecision) {
	raw, err := json.Marshal(d)
	if err != nil {
		return
	}
	c.client.Set(context.Background(), c.decisionKey(key), raw, c.ttl)
}
