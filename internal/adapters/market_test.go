package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthetic-markets/agent-engine/internal/domain"
)

func TestFetchAllMarketsNormalizesMockFixture(t *testing.T) {
	src := NewMarketSource(NewMockMarketAdapter(), NewMarketCache(60*time.Second), 5, 1000)
	markets := src.FetchAllMarkets(context.Background())
	require.Len(t, markets, 3)
	assert.Equal(t, "m1", markets[0].MarketID)
	assert.Equal(t, 120000.0, markets[0].VolumeUsd)
	assert.Equal(t, 0.55, markets[0].CurrentProbability)
}

func TestFetchAllMarketsReturnsCachedByIdentityWithinTTL(t *testing.T) {
	src := NewMarketSource(NewMockMarketAdapter(), NewMarketCache(60*time.Second), 5, 1000)
	first := src.FetchAllMarkets(context.Background())
	second := src.FetchAllMarkets(context.Background())
	require.Len(t, first, len(second))
	require.NotEmpty(t, first)
	assert.Same(t, &first[0], &second[0])
	for i := range first {
		assert.Equal(t, first[i].MarketID, second[i].MarketID)
	}
}

type failingAdapter struct{}

func (failingAdapter) Name() string { return "failing" }
func (failingAdapter) FetchPage(context.Context, int, int) ([]RawMarket, error) {
	return nil, assertErr
}

var assertErr = &testError{"upstream down"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

func TestFetchAllMarketsFallsBackToStaleCacheOnFailure(t *testing.T) {
	cache := NewMarketCache(time.Nanosecond)
	cache.Set([]domain.Market{{MarketID: "stale1", Question: "stale fixture"}})
	time.Sleep(2 * time.Millisecond) // ensure TTL has lapsed

	src := NewMarketSource(failingAdapter{}, cache, 5, 1000)
	markets := src.FetchAllMarkets(context.Background())
	require.Len(t, markets, 1)
	assert.Equal(t, "stale1", markets[0].MarketID)
}

func TestFetchAllMarketsReturnsEmptyWhenNoCacheAndUpstreamFails(t *testing.T) {
	src := NewMarketSource(failingAdapter{}, NewMarketCache(60*time.Second), 5, 1000)
	markets := src.FetchAllMarkets(context.Background())
	assert.Empty(t, markets)
}

func TestNormalizeDropsRecordsMissingRequiredFields(t *testing.T) {
	_, ok := normalize(RawMarket{MarketID: "", Question: "x", VolumeUsd: "1", CurrentProbability: "0.5"})
	assert.False(t, ok)

	_, ok = normalize(RawMarket{MarketID: "m1", Question: "x", VolumeUsd: "not-a-number", CurrentProbability: "0.5"})
	assert.False(t, ok)

	m, ok := normalize(RawMarket{MarketID: "m1", Question: "x", VolumeUsd: "1", CurrentProbability: "0.5", Status: "active"})
	assert.True(t, ok)
	assert.Equal(t, "ACTIVE", string(m.Status))
}

func TestMapCategoryFallsBackToOther(t *testing.T) {
	assert.Equal(t, "Crypto", string(mapCategory("Crypto")))
	assert.Equal(t, "Other", string(mapCategory("underwater-basket-weaving")))
}
