package httpapi

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/synthetic-markets/agent-engine/internal/domain"
	"github.com/synthetic-markets/agent-engine/internal/leaderboard"
)

func floatOf(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// AgentProfileView is the JSON-facing projection of domain.AgentProfile;
// USD fields cross the boundary as float64 per SPEC_FULL's clarification
// that decimal.Decimal stays internal.
type AgentProfileView struct {
	AgentID         string   `json:"agentId"`
	DisplayName     string   `json:"displayName"`
	Risk            string   `json:"risk"`
	MaxTrades       int      `json:"maxTrades"`
	FocusCategories []string `json:"focusCategories"`
	Enabled         bool     `json:"enabled"`
}

type TradeView struct {
	TradeID          string   `json:"tradeId"`
	MarketID         string   `json:"marketId"`
	Category         string   `json:"category"`
	Side             string   `json:"side"`
	SizeUsd          float64  `json:"sizeUsd"`
	EntryProbability float64  `json:"entryProbability"`
	EntryScore       float64  `json:"entryScore"`
	Confidence       float64  `json:"confidence"`
	Status           string   `json:"status"`
	PnlUsd           *float64 `json:"pnlUsd,omitempty"`
	OpenedAt         string   `json:"openedAt"`
	ClosedAt         *string  `json:"closedAt,omitempty"`
	ExitReason       *string  `json:"exitReason,omitempty"`
	Reasoning        []string `json:"reasoning,omitempty"`
}

type AgentTradesResponse struct {
	Agent  AgentProfileView `json:"agent"`
	Trades []TradeView      `json:"trades"`
}

type AgentSummaryView struct {
	AgentID           string  `json:"agentId"`
	DisplayName       string  `json:"displayName"`
	CurrentCapitalUsd float64 `json:"currentCapitalUsd"`
	PnlPct            float64 `json:"pnlPct"`
	WinRate           float64 `json:"winRate"`
	OpenCount         int     `json:"openCount"`
	ClosedCount       int     `json:"closedCount"`
	BestCategory      string  `json:"bestCategory"`
	WorstCategory     string  `json:"worstCategory"`
	AvgHoldingMinutes float64 `json:"avgHoldingMinutes"`
	Summary           string  `json:"summary"`
}

type TotalsView struct {
	TotalPnlUsd float64 `json:"totalPnlUsd"`
	OpenCount   int     `json:"openCount"`
	ClosedCount int     `json:"closedCount"`
	BestAgent   string  `json:"bestAgent"`
}

type AgentsSummaryResponse struct {
	Agents        []AgentSummaryView     `json:"agents"`
	TradesByAgent map[string][]TradeView `json:"tradesByAgent"`
	Totals        TotalsView             `json:"totals"`
}

func profileView(p domain.AgentProfile) AgentProfileView {
	cats := make([]string, 0, len(p.FocusCategories))
	for _, c := range p.FocusCategories {
		cats = append(cats, string(c))
	}
	return AgentProfileView{
		AgentID:         toFrontendID(p.AgentID),
		DisplayName:     p.DisplayName,
		Risk:            string(p.Risk),
		MaxTrades:       p.MaxTrades,
		FocusCategories: cats,
		Enabled:         p.Enabled,
	}
}

func tradeView(t domain.Trade) TradeView {
	v := TradeView{
		TradeID:          t.TradeID,
		MarketID:         t.MarketID,
		Category:         string(t.Category),
		Side:             string(t.Side),
		SizeUsd:          floatOf(t.SizeUsd),
		EntryProbability: t.EntryProbability,
		EntryScore:       t.EntryScore,
		Confidence:       t.Confidence,
		Status:           string(t.Status),
		OpenedAt:         t.OpenedAt.Format(time.RFC3339),
		Reasoning:        t.Reasoning,
	}
	if t.PnlUsd != nil {
		f := floatOf(*t.PnlUsd)
		v.PnlUsd = &f
	}
	if t.ClosedAt != nil {
		s := t.ClosedAt.Format(time.RFC3339)
		v.ClosedAt = &s
	}
	if t.ExitReason != nil {
		s := string(*t.ExitReason)
		v.ExitReason = &s
	}
	return v
}

func tradeViews(trades []domain.Trade) []TradeView {
	out := make([]TradeView, 0, len(trades))
	for _, t := range trades {
		out = append(out, tradeView(t))
	}
	return out
}

func summaryView(p domain.AgentProfile, m leaderboard.AgentMetrics, openCount int) AgentSummaryView {
	return AgentSummaryView{
		AgentID:           toFrontendID(p.AgentID),
		DisplayName:       p.DisplayName,
		CurrentCapitalUsd: floatOf(m.CurrentCapitalUsd),
		PnlPct:            m.PnlPct,
		WinRate:           m.WinRate,
		OpenCount:         openCount,
		ClosedCount:       m.TradesCount,
		BestCategory:      string(m.BestCategory),
		WorstCategory:     string(m.WorstCategory),
		AvgHoldingMinutes: m.AvgHoldingMinutes,
		Summary:           humanSummary(p.DisplayName, m, openCount),
	}
}

func humanSummary(displayName string, m leaderboard.AgentMetrics, openCount int) string {
	verb := "is up"
	pct := m.PnlPct
	if pct < 0 {
		verb = "is down"
		pct = -pct
	}
	return fmt.Sprintf("%s %s %.1f%% with %d open position(s) and a %.0f%% win rate.",
		displayName, verb, pct, openCount, m.WinRate*100)
}
