// Package adapters implements the market source adapter: it fetches
// binary prediction markets from an external provider, normalizes them
// into domain.Market, and caches the result behind a freshness window.
package adapters

import (
	"context"
	"strconv"
	"strings"

	"github.com/synthetic-markets/agent-engine/internal/domain"
	"github.com/synthetic-markets/agent-engine/internal/observ"
	"github.com/synthetic-markets/agent-engine/internal/upstream"
)

// MarketAdapter is implemented once per concrete upstream (live HTTP,
// mock). FetchAllMarkets owns its own TTL/staleness handling internally
// via MarketSource below; adapters only fetch one page at a time.
type MarketAdapter interface {
	FetchPage(ctx context.Context, page, pageSize int) ([]RawMarket, error)
	Name() string
}

// RawMarket is the adapter-local shape straight off the wire, before
// normalization. Fields are strings because upstream payloads are not
// trusted to be numeric; normalization coerces or rejects.
type RawMarket struct {
	MarketID           string
	Question           string
	Category           string
	VolumeUsd          string
	LiquidityUsd       string
	CurrentProbability string
	PriceChange24h     string
	Status             string
	ResolvedOutcome    string
}

// categoryMap is the fixed lowercase-keyed mapping from raw category
// strings to the closed Category set; unmapped values fall to Other.
var categoryMap = map[string]domain.Category{
	"crypto":        domain.CategoryCrypto,
	"cryptocurrency": domain.CategoryCrypto,
	"politics":      domain.CategoryPolitics,
	"election":      domain.CategoryPolitics,
	"sports":        domain.CategorySports,
	"tech":          domain.CategoryTech,
	"technology":    domain.CategoryTech,
	"economics":     domain.CategoryEconomics,
	"economy":       domain.CategoryEconomics,
	"finance":       domain.CategoryEconomics,
}

func mapCategory(raw string) domain.Category {
	c, ok := categoryMap[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return domain.CategoryOther
	}
	return c
}

func mapStatus(raw string) domain.MarketStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "RESOLVED", "CLOSED":
		return domain.MarketResolved
	case "FROZEN", "PAUSED":
		return domain.MarketFrozen
	case "INVALID", "VOID":
		return domain.MarketInvalid
	default:
		return domain.MarketActive
	}
}

// normalize maps one RawMarket into a domain.Market, or returns false
// if a required field is missing or non-numeric. Rejects are counted
// by the caller, never raised as errors.
func normalize(raw RawMarket) (domain.Market, bool) {
	if raw.MarketID == "" || raw.Question == "" {
		return domain.Market{}, false
	}
	volume, err := strconv.ParseFloat(raw.VolumeUsd, 64)
	if err != nil {
		return domain.Market{}, false
	}
	prob, err := strconv.ParseFloat(raw.CurrentProbability, 64)
	if err != nil {
		return domain.Market{}, false
	}
	liquidity, _ := strconv.ParseFloat(raw.LiquidityUsd, 64)
	priceChange, _ := strconv.ParseFloat(raw.PriceChange24h, 64)

	outcome := domain.OutcomeUnknown
	switch strings.TrimSpace(raw.ResolvedOutcome) {
	case "1", "yes", "YES":
		outcome = domain.OutcomeYes
	case "0", "no", "NO":
		outcome = domain.OutcomeNo
	}

	return domain.Market{
		MarketID:           raw.MarketID,
		Question:           raw.Question,
		Category:           mapCategory(raw.Category),
		VolumeUsd:          volume,
		LiquidityUsd:       liquidity,
		CurrentProbability: prob,
		PriceChange24h:     priceChange,
		Status:             mapStatus(raw.Status),
		ResolvedOutcome:    outcome,
	}, true
}

// MarketSource owns the market source adapter's public contract:
// fetchAllMarkets with a freshness window, bounded pagination, and
// stale-cache-on-failure behavior per spec.md §4.2.
type MarketSource struct {
	adapter  MarketAdapter
	cache    *MarketCache
	maxPages int
	pageSize int
}

func NewMarketSource(adapter MarketAdapter, cache *MarketCache, maxPages, pageSize int) *MarketSource {
	if maxPages <= 0 {
		maxPages = 5
	}
	if pageSize <= 0 || pageSize > 1000 {
		pageSize = 1000
	}
	return &MarketSource{adapter: adapter, cache: cache, maxPages: maxPages, pageSize: pageSize}
}

// FetchAllMarkets returns the cached list by identity within the
// freshness window; otherwise refreshes from the upstream, bounded to
// maxPages pages, dropping invalid records without failing the call.
func (s *MarketSource) FetchAllMarkets(ctx context.Context) []domain.Market {
	if cached, fresh := s.cache.Get(); fresh {
		return cached
	}

	var markets []domain.Market
	rejects := 0
	for page := 0; page < s.maxPages; page++ {
		raws, err := s.adapter.FetchPage(ctx, page, s.pageSize)
		if err != nil {
			return s.onUpstreamFailure(err)
		}
		if len(raws) == 0 {
			break
		}
		for _, raw := range raws {
			m, ok := normalize(raw)
			if !ok {
				rejects++
				continue
			}
			markets = append(markets, m)
		}
		if len(raws) < s.pageSize {
			break
		}
	}

	observ.Log("market_fetch_complete", map[string]any{
		"adapter": s.adapter.Name(),
		"count":   len(markets),
		"rejects": rejects,
	})
	s.cache.Set(markets)
	return markets
}

func (s *MarketSource) onUpstreamFailure(err error) []domain.Market {
	uerr := upstream.Transient(s.adapter.Name(), "market fetch failed", err)
	observ.LogWarn("market_fetch_failed", map[string]any{
		"adapter": s.adapter.Name(),
		"error":   uerr.Error(),
	})
	if cached, ok := s.cache.Stale(); ok {
		return cached
	}
	return []domain.Market{}
}
