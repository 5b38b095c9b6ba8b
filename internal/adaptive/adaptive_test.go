package adaptive

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/synthetic-markets/agent-engine/internal/domain"
)

func closedTrade(daysAgo int, category domain.Category, pnl float64) domain.Trade {
	closedAt := time.Now().Add(-time.Duration(daysAgo) * 24 * time.Hour)
	opened := closedAt.Add(-time.Hour)
	d := decimal.NewFromFloat(pnl)
	return domain.Trade{
		TradeID:  "t",
		Category: category,
		Status:   domain.TradeClosed,
		PnlUsd:   &d,
		OpenedAt: opened,
		ClosedAt: &closedAt,
	}
}

func TestClosedSinceExcludesOpenAndStaleTrades(t *testing.T) {
	now := time.Now()
	openTrade := domain.Trade{Status: domain.TradeOpen, ClosedAt: nil}
	staleTrade := closedTrade(45, domain.CategoryCrypto, 10)
	freshTrade := closedTrade(5, domain.CategoryCrypto, 10)

	out := closedSince([]domain.Trade{openTrade, staleTrade, freshTrade}, now.Add(-lookbackWindow))
	assert.Len(t, out, 1)
}

func TestClosedSinceSortsChronologically(t *testing.T) {
	later := closedTrade(1, domain.CategoryCrypto, 5)
	earlier := closedTrade(10, domain.CategoryCrypto, 5)

	out := closedSince([]domain.Trade{later, earlier}, time.Now().Add(-lookbackWindow))
	assert.Len(t, out, 2)
	assert.True(t, out[0].ClosedAt.Before(*out[1].ClosedAt))
}

func TestRiskMultiplierPenalizesDeepDrawdown(t *testing.T) {
	stats := Stats{MaxDrawdownPct30d: 0.40, PnlPct30d: 2}
	assert.Equal(t, penaltyMultiplier, riskMultiplier(stats))
}

func TestRiskMultiplierPenalizesLosingStreak(t *testing.T) {
	stats := Stats{MaxDrawdownPct30d: 0.10, PnlPct30d: -15}
	assert.Equal(t, penaltyMultiplier, riskMultiplier(stats))
}

func TestRiskMultiplierBonusesStrongPerformance(t *testing.T) {
	stats := Stats{MaxDrawdownPct30d: 0.10, PnlPct30d: 30}
	assert.Equal(t, bonusMultiplier, riskMultiplier(stats))
}

func TestRiskMultiplierNeutralInBetween(t *testing.T) {
	stats := Stats{MaxDrawdownPct30d: 0.10, PnlPct30d: 5}
	assert.Equal(t, 1.0, riskMultiplier(stats))
}

func TestRiskMultiplierClampsToBounds(t *testing.T) {
	stats := Stats{MaxDrawdownPct30d: 0.9, PnlPct30d: -50}
	assert.Equal(t, penaltyMultiplier, riskMultiplier(stats))
}

func TestCategoryBiasRewardsProfitableCategory(t *testing.T) {
	stats := Stats{CategoryPnl: map[domain.Category]categoryStat{
		domain.CategoryCrypto: {sumPnl: 100, count: 2}, // avg 50 -> raw 1.3 -> clamps to max
	}}
	bias := categoryBias(stats)
	assert.InDelta(t, categoryBiasMax, bias[domain.CategoryCrypto], 0.0001)
}

func TestCategoryBiasPenalizesLosingCategory(t *testing.T) {
	stats := Stats{CategoryPnl: map[domain.Category]categoryStat{
		domain.CategorySports: {sumPnl: -100, count: 2}, // avg -50 -> raw 0.7 -> clamps to min
	}}
	bias := categoryBias(stats)
	assert.InDelta(t, categoryBiasMin, bias[domain.CategorySports], 0.0001)
}

func TestCategoryBiasOmitsCategoriesWithNoTrades(t *testing.T) {
	stats := Stats{CategoryPnl: map[domain.Category]categoryStat{
		domain.CategoryTech: {sumPnl: 0, count: 0},
	}}
	bias := categoryBias(stats)
	_, ok := bias[domain.CategoryTech]
	assert.False(t, ok)
}

func TestComputeStatsTracksWorstPostPeakDip(t *testing.T) {
	// cumulative path: +100, +50 (dip of 50 off a peak of 100), +80 (still
	// down 20 from peak) -> worst dip is 50, normalized by starting capital.
	trades := []domain.Trade{
		closedTrade(20, domain.CategoryCrypto, 100),
		closedTrade(10, domain.CategoryCrypto, -50),
		closedTrade(5, domain.CategoryCrypto, 30),
	}
	stats := computeStats(trades, 1000)
	assert.InDelta(t, 0.05, stats.MaxDrawdownPct30d, 0.0001)
	assert.InDelta(t, 8.0, stats.PnlPct30d, 0.0001)
}

func TestComputeStatsZeroStartingCapitalIsSafe(t *testing.T) {
	stats := computeStats([]domain.Trade{closedTrade(1, domain.CategoryCrypto, 10)}, 0)
	assert.Equal(t, Stats{CategoryPnl: map[domain.Category]categoryStat{}}, stats)
}

func TestComputeProducesFullAdaptiveConfig(t *testing.T) {
	now := time.Now()
	trades := []domain.Trade{
		closedTrade(5, domain.CategoryCrypto, 200),
		closedTrade(3, domain.CategoryCrypto, 200),
		closedTrade(40, domain.CategorySports, -500), // outside the 30d window, ignored
	}

	cfg := Compute(domain.AgentGrok4, trades, 1000, now)
	assert.Equal(t, domain.AgentGrok4, cfg.AgentID)
	assert.Equal(t, now, cfg.ComputedAt)
	assert.InDelta(t, bonusMultiplier, cfg.RiskMultiplier, 0.0001)
	assert.InDelta(t, categoryBiasMax, cfg.BiasFor(domain.CategoryCrypto), 0.0001)
	assert.Equal(t, 1.0, cfg.BiasFor(domain.CategorySports))
}
