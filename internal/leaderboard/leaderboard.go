// Package leaderboard is a pure read-side aggregator over persisted
// trades and current portfolio snapshots. It never mutates state and
// never calls an upstream adapter; the read API calls it directly
// against whatever the scheduler has already written.
package leaderboard

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/synthetic-markets/agent-engine/internal/domain"
)

type Window string

const (
	WindowAllTime Window = "all"
	Window30d     Window = "30d"
	Window7d      Window = "7d"
	Window24h     Window = "24h"
)

const conflictThreshold = 0.60

// AgentMetrics is one agent's performance snapshot over a single
// window, reported alongside its current (window-independent)
// capital since that figure only ever reflects the latest portfolio.
type AgentMetrics struct {
	AgentID           domain.AgentID
	Window            Window
	CurrentCapitalUsd decimal.Decimal
	PnlPct            float64
	WinRate           float64
	TradesCount       int
	BestCategory      domain.Category
	WorstCategory     domain.Category
	AvgHoldingMinutes float64
}

func windowSince(w Window, now time.Time) time.Time {
	switch w {
	case Window30d:
		return now.Add(-30 * 24 * time.Hour)
	case Window7d:
		return now.Add(-7 * 24 * time.Hour)
	case Window24h:
		return now.Add(-24 * time.Hour)
	default:
		return time.Time{}
	}
}

// ComputeMetrics aggregates one agent's closed trades within window
// against its current portfolio snapshot. trades need not be
// pre-filtered; ComputeMetrics applies the window itself so callers
// can share one LoadTrades call across all four windows.
func ComputeMetrics(agentID domain.AgentID, trades []domain.Trade, snap domain.AgentPortfolio, w Window, now time.Time) AgentMetrics {
	since := windowSince(w, now)
	closed := closedSince(trades, since)

	m := AgentMetrics{
		AgentID:           agentID,
		Window:            w,
		CurrentCapitalUsd: snap.CurrentCapitalUsd(),
		TradesCount:       len(closed),
	}

	if snap.StartingCapitalUsd.IsPositive() {
		pnl := snap.CurrentCapitalUsd().Sub(snap.StartingCapitalUsd)
		pct, _ := pnl.Div(snap.StartingCapitalUsd).Float64()
		m.PnlPct = pct * 100
	}

	if len(closed) == 0 {
		m.BestCategory, m.WorstCategory = domain.CategoryOther, domain.CategoryOther
		return m
	}

	var wins int
	var totalHoldingMinutes float64
	catPnl := make(map[domain.Category]float64)
	for _, t := range closed {
		if t.PnlUsd != nil {
			pnl, _ := t.PnlUsd.Float64()
			if pnl > 0 {
				wins++
			}
			cat := t.Category
			if cat == "" {
				cat = domain.CategoryOther
			}
			catPnl[cat] += pnl
		}
		if t.ClosedAt != nil {
			totalHoldingMinutes += t.ClosedAt.Sub(t.OpenedAt).Minutes()
		}
	}
	m.WinRate = float64(wins) / float64(len(closed))
	m.AvgHoldingMinutes = totalHoldingMinutes / float64(len(closed))
	m.BestCategory, m.WorstCategory = bestAndWorst(catPnl)
	return m
}

func closedSince(trades []domain.Trade, since time.Time) []domain.Trade {
	out := make([]domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Status != domain.TradeClosed || t.ClosedAt == nil {
			continue
		}
		if !since.IsZero() && t.ClosedAt.Before(since) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func bestAndWorst(catPnl map[domain.Category]float64) (best, worst domain.Category) {
	if len(catPnl) == 0 {
		return domain.CategoryOther, domain.CategoryOther
	}
	cats := make([]domain.Category, 0, len(catPnl))
	for c := range catPnl {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	best, worst = cats[0], cats[0]
	for _, c := range cats {
		if catPnl[c] > catPnl[best] {
			best = c
		}
		if catPnl[c] < catPnl[worst] {
			worst = c
		}
	}
	return best, worst
}

// ComputeConsensus takes the point-in-time snapshot of open positions
// across all agents' portfolios and derives one ConsensusRecord per
// market with at least one open position.
func ComputeConsensus(portfolios map[domain.AgentID]domain.AgentPortfolio) []domain.ConsensusRecord {
	type tally struct {
		yes, no         int
		confidenceSum   float64
		confidenceCount int
	}
	byMarket := make(map[string]*tally)

	for _, p := range portfolios {
		for marketID, pos := range p.OpenPositions {
			tl, ok := byMarket[marketID]
			if !ok {
				tl = &tally{}
				byMarket[marketID] = tl
			}
			if pos.Side == domain.SideYes {
				tl.yes++
			} else {
				tl.no++
			}
			tl.confidenceSum += pos.Confidence
			tl.confidenceCount++
		}
	}

	out := make([]domain.ConsensusRecord, 0, len(byMarket))
	for marketID, tl := range byMarket {
		total := tl.yes + tl.no
		rec := domain.ConsensusRecord{
			MarketID: marketID,
			YesCount: tl.yes,
			NoCount:  tl.no,
		}
		if total > 0 {
			majority := tl.yes
			rec.ConsensusSide = domain.SideYes
			if tl.no > tl.yes {
				majority = tl.no
				rec.ConsensusSide = domain.SideNo
			}
			rec.AgreementLevel = float64(majority) / float64(total)
		}
		if tl.confidenceCount > 0 {
			rec.AvgConfidence = tl.confidenceSum / float64(tl.confidenceCount)
		}
		rec.Conflict = rec.AgreementLevel < conflictThreshold && tl.yes > 0 && tl.no > 0
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].MarketID < out[j].MarketID })
	return out
}
