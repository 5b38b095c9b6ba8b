package adapters

import "context"

// MockMarketAdapter returns a small fixed set of markets, used for
// deterministic tests and local development, the same role the
// reference engine's MockQuotesAdapter plays for equities quotes.
type MockMarketAdapter struct {
	markets []RawMarket
}

func NewMockMarketAdapter() *MockMarketAdapter {
	return &MockMarketAdapter{
		markets: []RawMarket{
			{
				MarketID: "m1", Question: "Will X happen by 2026?", Category: "Crypto",
				VolumeUsd: "120000", LiquidityUsd: "30000", CurrentProbability: "0.55",
				PriceChange24h: "0.04", Status: "ACTIVE",
			},
			{
				MarketID: "m2", Question: "Will the committee approve the proposal?", Category: "Politics",
				VolumeUsd: "80000", LiquidityUsd: "20000", CurrentProbability: "0.62",
				PriceChange24h: "-0.02", Status: "ACTIVE",
			},
			{
				MarketID: "m3", Question: "Will the championship favorite win?", Category: "Sports",
				VolumeUsd: "250000", LiquidityUsd: "60000", CurrentProbability: "0.71",
				PriceChange24h: "0.01", Status: "ACTIVE",
			},
		},
	}
}

func (m *MockMarketAdapter) Name() string { return "mock" }

func (m *MockMarketAdapter) FetchPage(_ context.Context, page, pageSize int) ([]RawMarket, error) {
	start := page * pageSize
	if start >= len(m.markets) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(m.markets) {
		end = len(m.markets)
	}
	return m.markets[start:end], nil
}
