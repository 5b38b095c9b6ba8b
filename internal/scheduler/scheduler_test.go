package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/synthetic-markets/agent-engine/internal/adapters"
	"github.com/synthetic-markets/agent-engine/internal/cache"
	"github.com/synthetic-markets/agent-engine/internal/domain"
	"github.com/synthetic-markets/agent-engine/internal/llm"
	"github.com/synthetic-markets/agent-engine/internal/news"
	"github.com/synthetic-markets/agent-engine/internal/persistence"
	"github.com/synthetic-markets/agent-engine/internal/portfolio"
	"github.com/synthetic-markets/agent-engine/internal/websearch"
)

func testAgents() []domain.AgentProfile {
	return []domain.AgentProfile{
		{
			AgentID: domain.AgentGrok4, DisplayName: "Grok", Risk: domain.RiskHigh,
			MinVolumeUsd: 1000, MinLiquidityUsd: 1000, MaxTrades: 3,
			Weights: domain.Weights{Volume: 1, Liquidity: 1, PriceMovement: 1, News: 1, Probability: 1},
			Enabled: true,
		},
	}
}

func newTestScheduler(t *testing.T) (*Scheduler, *persistence.MemoryStore, *portfolio.Manager) {
	t.Helper()
	marketSource := adapters.NewMarketSource(adapters.NewMockMarketAdapter(), adapters.NewMarketCache(time.Minute), 1, 100)
	aggregator := news.NewAggregator([]news.Provider{news.NewMockProvider("mock")}, news.NewCache(time.Minute), 5*time.Second)
	webAdapter := websearch.NewAdapter(nil, 5, time.Second)
	registry := llm.NewRegistry(nil, llm.NewMemoryCache(time.Minute))
	agents := testAgents()
	mgr := portfolio.NewManager([]domain.AgentID{domain.AgentGrok4}, decimal.NewFromInt(3000))
	store := persistence.NewMemoryStore()
	tc := cache.NewTradeCache(30 * time.Second)

	s := New(Deps{
		Markets: marketSource, News: aggregator, WebSearch: webAdapter, LLM: registry,
		Agents: agents, Portfolios: mgr, Store: store, TradeCache: tc,
		Drawdown:      DrawdownConfig{TriggerPct: 0.40, RecoverPct: 0.30, CooldownFor: 24 * time.Hour},
		FlipThreshold: 0.60,
		Interval:      time.Minute,
	})
	return s, store, mgr
}

func TestRunCycleOpensTradesAndPersistsThem(t *testing.T) {
	s, store, mgr := newTestScheduler(t)
	s.runCycle(context.Background())

	snap, ok := mgr.Snapshot(domain.AgentGrok4)
	assert.True(t, ok)
	assert.NotEmpty(t, snap.OpenPositions)

	trades, err := store.LoadTrades(domain.AgentGrok4, time.Time{})
	assert.NoError(t, err)
	assert.NotEmpty(t, trades)
	for _, tr := range trades {
		assert.Equal(t, domain.TradeOpen, tr.Status)
	}
}

func TestRunCyclePopulatesTradeCache(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	s.runCycle(context.Background())

	_, ok := s.tradeCache.Get(domain.AgentGrok4, []string{"m1", "m2", "m3"})
	assert.True(t, ok)
}

func TestTickDropsOverlappingCycle(t *testing.T) {
	s, _, mgr := newTestScheduler(t)
	s.running.Lock()
	defer s.running.Unlock()

	s.tick(context.Background())
	snap, _ := mgr.Snapshot(domain.AgentGrok4)
	assert.Empty(t, snap.OpenPositions)

	acquired := s.running.TryLock()
	assert.False(t, acquired)
}

func TestProcessAgentSkipsDisabledAgent(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	s.agents[0].Enabled = false

	rec := s.processAgent(context.Background(), s.agents[0], nil, map[string]domain.Market{}, nil, time.Now())
	assert.Equal(t, 0, rec.CandidateMarkets)
	assert.Equal(t, 0, rec.NewTrades)
}

func TestSchedulerWiresAlertMonitorWithDrawdownTrigger(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	now := time.Now()

	assert.NotNil(t, s.alerts.RecordDrawdown(string(domain.AgentGrok4), 0.50, now))
	assert.Nil(t, s.alerts.RecordDrawdown(string(domain.AgentGrok4), 0.10, now))
}

func TestProcessAgentClosesPositionOnResolution(t *testing.T) {
	s, store, mgr := newTestScheduler(t)
	now := time.Now()
	mgr.Open(domain.AgentGrok4, domain.Trade{
		TradeID: "t1", AgentID: domain.AgentGrok4, MarketID: "m1", Side: domain.SideYes,
		SizeUsd: decimal.NewFromInt(100), EntryProbability: 0.5, EntryScore: 60, OpenedAt: now,
	}, domain.CategoryCrypto, now)
	_ = store.SaveTrade(domain.Trade{
		TradeID: "t1", AgentID: domain.AgentGrok4, MarketID: "m1", Side: domain.SideYes,
		SizeUsd: decimal.NewFromInt(100), EntryProbability: 0.5, Status: domain.TradeOpen, OpenedAt: now,
	})

	markets := []domain.Market{{MarketID: "m1", Status: domain.MarketResolved, ResolvedOutcome: domain.OutcomeYes}}
	byID := map[string]domain.Market{"m1": markets[0]}
	rec := s.processAgent(context.Background(), s.agents[0], markets, byID, nil, now)

	assert.Equal(t, 1, rec.ClosedTrades)
	trades, _ := store.LoadTrades(domain.AgentGrok4, time.Time{})
	assert.Len(t, trades, 1)
	assert.Equal(t, domain.TradeClosed, trades[0].Status)
	assert.Equal(t, "t1", trades[0].TradeID)
}
