// Package adaptive implements the slow, daily background job that
// recomputes each agent's risk multiplier and per-category score bias
// from its last 30 days of closed trades, per spec.md §4.13.
package adaptive

import (
	"sort"
	"time"

	"github.com/synthetic-markets/agent-engine/internal/determinism"
	"github.com/synthetic-markets/agent-engine/internal/domain"
)

const (
	lookbackWindow       = 30 * 24 * time.Hour
	drawdownPenaltyPct   = 0.35
	pnlPenaltyPct        = -10.0
	pnlBonusPct          = 25.0
	drawdownBonusPct     = 0.25
	penaltyMultiplier    = 0.75
	bonusMultiplier      = 1.10
	riskMultiplierMin    = 0.5
	riskMultiplierMax    = 1.5
	categoryBiasScaleUsd = 50.0
	categoryBiasStrength = 0.3
	categoryBiasMin      = 0.7
	categoryBiasMax      = 1.3
)

// Stats is the intermediate computation over one agent's trailing
// 30-day window, used by Compute and by this package's tests.
type Stats struct {
	PnlPct30d         float64
	MaxDrawdownPct30d float64
	CategoryPnl       map[domain.Category]categoryStat
}

type categoryStat struct {
	sumPnl float64
	count  int
}

// Compute derives a fresh AdaptiveConfig for one agent from its closed
// trades, filtered to the trailing lookback window ending at now.
// startingCapitalUsd normalizes the cumulative realized-PnL path into
// a percentage, matching how the rest of the engine expresses
// drawdown against starting capital rather than an absolute NAV.
func Compute(agentID domain.AgentID, trades []domain.Trade, startingCapitalUsd float64, now time.Time) domain.AdaptiveConfig {
	since := now.Add(-lookbackWindow)
	window := closedSince(trades, since)

	stats := computeStats(window, startingCapitalUsd)

	return domain.AdaptiveConfig{
		AgentID:        agentID,
		RiskMultiplier: riskMultiplier(stats),
		CategoryBias:   categoryBias(stats),
		ComputedAt:     now,
	}
}

func closedSince(trades []domain.Trade, since time.Time) []domain.Trade {
	var out []domain.Trade
	for _, t := range trades {
		if t.Status != domain.TradeClosed || t.ClosedAt == nil {
			continue
		}
		if t.ClosedAt.Before(since) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClosedAt.Before(*out[j].ClosedAt) })
	return out
}

// computeStats walks the closed trades in chronological order,
// accumulating realized PnL and tracking the worst post-peak dip of
// that cumulative path, the same running-peak-vs-current idiom the
// reference engine's DrawdownManager applies to NAV.
func computeStats(trades []domain.Trade, startingCapitalUsd float64) Stats {
	stats := Stats{CategoryPnl: make(map[domain.Category]categoryStat)}
	if startingCapitalUsd <= 0 {
		return stats
	}

	var cumulative, peak, worstDip float64
	for _, t := range trades {
		if t.PnlUsd == nil {
			continue
		}
		pnl, _ := t.PnlUsd.Float64()
		cumulative += pnl
		if cumulative > peak {
			peak = cumulative
		}
		dip := peak - cumulative
		if dip > worstDip {
			worstDip = dip
		}

		cat := categoryOf(t)
		cs := stats.CategoryPnl[cat]
		cs.sumPnl += pnl
		cs.count++
		stats.CategoryPnl[cat] = cs
	}

	stats.PnlPct30d = cumulative / startingCapitalUsd * 100
	stats.MaxDrawdownPct30d = worstDip / startingCapitalUsd
	return stats
}

func categoryOf(t domain.Trade) domain.Category {
	if t.Category == "" {
		return domain.CategoryOther
	}
	return t.Category
}

func riskMultiplier(stats Stats) float64 {
	mult := 1.0
	switch {
	case stats.MaxDrawdownPct30d > drawdownPenaltyPct || stats.PnlPct30d < pnlPenaltyPct:
		mult = penaltyMultiplier
	case stats.PnlPct30d > pnlBonusPct && stats.MaxDrawdownPct30d < drawdownBonusPct:
		mult = bonusMultiplier
	}
	return determinism.Clamp(mult, riskMultiplierMin, riskMultiplierMax)
}

func categoryBias(stats Stats) map[domain.Category]float64 {
	bias := make(map[domain.Category]float64, len(stats.CategoryPnl))
	for cat, cs := range stats.CategoryPnl {
		if cs.count == 0 {
			continue
		}
		avgPnlPerTrade := cs.sumPnl / float64(cs.count)
		raw := 1 + (avgPnlPerTrade/categoryBiasScaleUsd)*categoryBiasStrength
		bias[cat] = determinism.Clamp(raw, categoryBiasMin, categoryBiasMax)
	}
	return bias
}
