package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/synthetic-markets/agent-engine/internal/config"
	"github.com/synthetic-markets/agent-engine/internal/domain"
	"github.com/synthetic-markets/agent-engine/internal/observ"
	"github.com/synthetic-markets/agent-engine/internal/websearch"
)

// Client is the per-agent capability interface, implemented by
// HTTPClient with one instance per LLM provider, selected by agentId
// through the registry below. Decide never returns an error; unavailability is
// signaled on the returned AITradeDecision per spec.md §9's
// "Success(value) | Unavailable(reason)" sum-type translation.
type Client interface {
	Decide(ctx context.Context, sm domain.ScoredMarket, newsContext []domain.NewsArticle, webSnippets []websearch.Result) domain.AITradeDecision
}

// HTTPClient calls one LLM provider's chat/completion endpoint. Every
// call has a hard 30s timeout and no retries, per spec.md §4.6/§5.
type HTTPClient struct {
	agentID    domain.AgentID
	client     *resty.Client
	model      string
	apiKey     string
	authHeader string
	breaker    *gobreaker.CircuitBreaker
}

func NewHTTPClient(cfg config.LLMProviderConfig, apiKey string) *HTTPClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     fmt.Sprintf("llm-%s", cfg.AgentID),
		Timeout:  30 * time.Second,
		Interval: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &HTTPClient{
		agentID:    cfg.AgentID,
		client:     resty.New().SetTimeout(timeout).SetBaseURL(cfg.BaseURL),
		model:      cfg.Model,
		apiKey:     apiKey,
		authHeader: cfg.AuthHeader,
		breaker:    breaker,
	}
}

type completionResponse struct {
	Content string `json:"content"`
}

func (c *HTTPClient) Decide(ctx context.Context, sm domain.ScoredMarket, newsContext []domain.NewsArticle, webSnippets []websearch.Result) domain.AITradeDecision {
	prompt := buildPrompt(sm, newsContext, webSnippets)

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var body completionResponse
		resp, err := c.client.R().
			SetContext(ctx).
			SetHeader(c.authHeader, "Bearer "+c.apiKey).
			SetBody(map[string]any{"model": c.model, "prompt": prompt}).
			SetResult(&body).
			Post("/v1/complete")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("%s returned status %d", c.agentID, resp.StatusCode())
		}
		return body.Content, nil
	})
	if err != nil {
		observ.LogWarn("llm_call_failed", map[string]any{
			"agent_id": string(c.agentID), "market_id": sm.MarketID, "error": err.Error(),
		})
		return domain.AITradeDecision{Unavailable: true, Reason: err.Error()}
	}

	return parseDecision(result.(string))
}

// Cache holds per-(agentId, marketId) decisions with a configurable
// TTL (default 5 min, up to 10 min to save credits per spec.md §4.6).
// MemoryCache is the in-process implementation; RedisDecisionCache backs the
// same contract with a shared store, selected via CacheConfig.Backend.
type Cache interface {
	Get(key string) (domain.AITradeDecision, bool)
	Set(key string, d domain.AITradeDecision)
}

type MemoryCache struct {
	mu  sync.RWMutex
	m   map[string]cacheEntry
	ttl time.Duration
}

type cacheEntry struct {
	decision domain.AITradeDecision
	cachedAt time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{m: make(map[string]cacheEntry), ttl: ttl}
}

func (c *MemoryCache) Get(key string) (domain.AITradeDecision, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.m[key]
	if !ok || time.Since(e.cachedAt) >= c.ttl {
		return domain.AITradeDecision{}, false
	}
	return e.decision, true
}

func (c *MemoryCache) Set(key string, d domain.AITradeDecision) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = cacheEntry{decision: d, cachedAt: time.Now()}
}

// NewCacheFromConfig selects the decision cache backing named by
// cfg.Backend ("memory" | "redis"), defaulting to MemoryCache when
// unset or when no RedisAddr is configured.
func NewCacheFromConfig(cfg config.CacheConfig) Cache {
	ttl := time.Duration(cfg.AIDecisionTTLSeconds) * time.Second
	if cfg.Backend == "redis" && cfg.RedisAddr != "" {
		return NewRedisDecisionCache(cfg.RedisAddr, ttl)
	}
	return NewMemoryCache(ttl)
}

// Registry dispatches per agent to its configured client, or nil if no
// credential is configured — nil means "unavailable immediately, no
// call made" per spec.md §4.6.
type Registry struct {
	clients map[domain.AgentID]Client
	cache   Cache
}

func NewRegistry(cfgs []config.LLMProviderConfig, cache Cache) *Registry {
	clients := make(map[domain.AgentID]Client)
	for _, cfg := range cfgs {
		if !config.EnvPresent(cfg.APIKeyEnv) {
			observ.Log("llm_provider_disabled", map[string]any{
				"agent_id": string(cfg.AgentID), "reason": "missing API key",
			})
			continue
		}
		clients[cfg.AgentID] = NewHTTPClient(cfg, config.EnvOrDefault(cfg.APIKeyEnv, ""))
	}
	return &Registry{clients: clients, cache: cache}
}

// Decide looks up the cache first, then dispatches to the agent's
// client if one is configured; otherwise returns Unavailable
// immediately with no network I/O.
func (r *Registry) Decide(ctx context.Context, agentID domain.AgentID, sm domain.ScoredMarket, newsContext []domain.NewsArticle, webSnippets []websearch.Result) domain.AITradeDecision {
	key := string(agentID) + ":" + sm.MarketID
	if cached, ok := r.cache.Get(key); ok {
		return cached
	}

	client, ok := r.clients[agentID]
	if !ok {
		return domain.AITradeDecision{Unavailable: true, Reason: "no credential configured"}
	}

	decision := client.Decide(ctx, sm, newsContext, webSnippets)
	if !decision.Unavailable {
		r.cache.Set(key, decision)
	}
	return decision
}
