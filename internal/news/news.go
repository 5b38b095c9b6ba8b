// Package news implements the news aggregator: concurrent fan-out to
// every configured provider, per-provider failure isolation, and
// title-based deduplication, behind a single freshness-windowed cache.
package news

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/synthetic-markets/agent-engine/internal/domain"
	"github.com/synthetic-markets/agent-engine/internal/observ"
	"github.com/synthetic-markets/agent-engine/internal/upstream"
)

// Provider is implemented once per news vendor.
type Provider interface {
	Name() string
	FetchLatest(ctx context.Context) ([]domain.NewsArticle, error)
}

// Cache holds the last successful aggregated article list by identity,
// the same TTL-plus-stale-fallback shape as adapters.MarketCache.
type Cache struct {
	mu       sync.RWMutex
	articles []domain.NewsArticle
	cachedAt time.Time
	ttl      time.Duration
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl}
}

func (c *Cache) Get() ([]domain.NewsArticle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.articles == nil {
		return nil, false
	}
	return c.articles, time.Since(c.cachedAt) < c.ttl
}

func (c *Cache) Stale() ([]domain.NewsArticle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.articles, c.articles != nil
}

func (c *Cache) Set(articles []domain.NewsArticle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.articles = articles
	c.cachedAt = time.Now()
}

// Aggregator fans out to every provider concurrently, each bounded by
// its own timeout, isolates per-provider failures, and deduplicates by
// normalized lowercased title (first occurrence wins).
type Aggregator struct {
	providers      []Provider
	cache          *Cache
	providerTimeout time.Duration
}

func NewAggregator(providers []Provider, cache *Cache, providerTimeout time.Duration) *Aggregator {
	if providerTimeout <= 0 {
		providerTimeout = 10 * time.Second
	}
	return &Aggregator{providers: providers, cache: cache, providerTimeout: providerTimeout}
}

type providerResult struct {
	provider string
	articles []domain.NewsArticle
	err      error
}

// FetchLatestNews returns the cached article list by identity within
// the freshness window; otherwise queries every provider concurrently.
func (a *Aggregator) FetchLatestNews(ctx context.Context) []domain.NewsArticle {
	if cached, fresh := a.cache.Get(); fresh {
		return cached
	}

	results := make(chan providerResult, len(a.providers))
	var wg sync.WaitGroup
	for _, p := range a.providers {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, a.providerTimeout)
			defer cancel()
			articles, err := p.FetchLatest(pctx)
			results <- providerResult{provider: p.Name(), articles: articles, err: err}
		}(p)
	}
	wg.Wait()
	close(results)

	var all []domain.NewsArticle
	failures := 0
	for r := range results {
		if r.err != nil {
			failures++
			uerr := upstream.Transient(r.provider, "news fetch failed", r.err)
			observ.LogWarn("news_provider_failed", map[string]any{
				"provider": r.provider, "error": uerr.Error(),
			})
			continue
		}
		all = append(all, r.articles...)
	}

	if failures == len(a.providers) && len(a.providers) > 0 {
		if stale, ok := a.cache.Stale(); ok {
			return stale
		}
		return []domain.NewsArticle{}
	}

	deduped := dedupe(all)
	a.cache.Set(deduped)
	return deduped
}

// dedupe removes articles sharing a normalized lowercased title;
// the first occurrence (in fan-out completion order) wins.
func dedupe(articles []domain.NewsArticle) []domain.NewsArticle {
	seen := make(map[string]struct{}, len(articles))
	out := make([]domain.NewsArticle, 0, len(articles))
	for _, a := range articles {
		key := strings.ToLower(strings.TrimSpace(a.Title))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}
