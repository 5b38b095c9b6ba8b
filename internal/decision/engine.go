// Package decision sizes a trade from an already-finalized decision and
// the agent's current portfolio state, per spec.md §4.9.
package decision

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/synthetic-markets/agent-engine/internal/domain"
)

const (
	singleMarketCapPct = 0.20
	categoryCapPct     = 0.40
	minSizePct         = 0.01
)

func baseBudgetPct(risk domain.RiskLevel) float64 {
	switch risk {
	case domain.RiskHigh:
		return 0.04
	case domain.RiskLow:
		return 0.015
	default:
		return 0.025
	}
}

func totalExposureCapPct(risk domain.RiskLevel) float64 {
	switch risk {
	case domain.RiskHigh:
		return 0.70
	case domain.RiskLow:
		return 0.50
	default:
		return 0.60
	}
}

// Reason records every value the sizing pipeline computed, mirroring
// the reference engine's Reason/ProposedAction explainability shape.
type Reason struct {
	BaseBudgetUsd         float64  `json:"base_budget_usd"`
	RiskMultiplier        float64  `json:"risk_multiplier"`
	ConfidenceWeight      float64  `json:"confidence_weight"`
	RawSizeUsd            float64  `json:"raw_size_usd"`
	PersonalityMultiplier float64  `json:"personality_multiplier"`
	FinalSizeUsd          float64  `json:"final_size_usd"`
	GatesPassed           []string `json:"gates_passed"`
	GatesBlocked          []string `json:"gates_blocked"`
}

// ProposedTrade is the sizing pipeline's output for one candidate.
// Intent is OPEN or REJECT; REJECT carries no SizeUsd.
type ProposedTrade struct {
	MarketID   string
	Intent     string
	SizeUsd    decimal.Decimal
	Reason     Reason
	ReasonJSON string
}

// SizingInput is everything the pipeline needs for one candidate. The
// portfolio must reflect exposure from any candidates already opened
// earlier in the same cycle, since caps are cumulative.
type SizingInput struct {
	Agent                     domain.AgentProfile
	MarketID                  string
	Category                  domain.Category
	Decision                  domain.AITradeDecision
	PersonalitySizeMultiplier float64
	Portfolio                 *domain.AgentPortfolio
	Adaptive                  *domain.AdaptiveConfig
	Now                       time.Time
}

// Size runs steps 1-5 of the sizing pipeline for one candidate: base
// budget, confidence weighting, personality multiplier, hard caps, and
// the minimum-size drop rule. The drawdown-cooldown gate (step 7) and
// maxTrades enforcement (step 6) are evaluated once per cycle, not per
// candidate — see ShouldCooldown and SelectTop.
func Size(in SizingInput) ProposedTrade {
	reason := Reason{GatesPassed: []string{}, GatesBlocked: []string{}}

	capitalUsd, _ := in.Portfolio.CurrentCapitalUsd().Float64()

	riskMultiplier := 1.0
	if in.Adaptive != nil && in.Adaptive.RiskMultiplier != 0 {
		riskMultiplier = in.Adaptive.RiskMultiplier
	}
	reason.RiskMultiplier = riskMultiplier

	baseBudgetUsd := baseBudgetPct(in.Agent.Risk) * riskMultiplier * capitalUsd
	reason.BaseBudgetUsd = baseBudgetUsd

	confWeight := 0.5 + in.Decision.Confidence/2
	reason.ConfidenceWeight = confWeight

	rawSizeUsd := baseBudgetUsd * confWeight
	reason.RawSizeUsd = rawSizeUsd

	personalityMultiplier := in.PersonalitySizeMultiplier
	if personalityMultiplier == 0 {
		personalityMultiplier = 1.0
	}
	reason.PersonalityMultiplier = personalityMultiplier

	sizeUsd := rawSizeUsd * personalityMultiplier

	singleCapUsd := singleMarketCapPct * capitalUsd
	if sizeUsd > singleCapUsd {
		sizeUsd = singleCapUsd
		reason.GatesBlocked = append(reason.GatesBlocked, "single_market_cap")
	} else {
		reason.GatesPassed = append(reason.GatesPassed, "single_market_cap_ok")
	}

	categoryExposure := categoryExposureUsd(in.Portfolio, in.Category)
	categoryRemaining := categoryCapPct*capitalUsd - categoryExposure
	if categoryRemaining < 0 {
		categoryRemaining = 0
	}
	if sizeUsd > categoryRemaining {
		sizeUsd = categoryRemaining
		reason.GatesBlocked = append(reason.GatesBlocked, "category_cap")
	} else {
		reason.GatesPassed = append(reason.GatesPassed, "category_cap_ok")
	}

	totalExposure := totalExposureUsd(in.Portfolio)
	totalRemaining := totalExposureCapPct(in.Agent.Risk)*capitalUsd - totalExposure
	if totalRemaining < 0 {
		totalRemaining = 0
	}
	if sizeUsd > totalRemaining {
		sizeUsd = totalRemaining
		reason.GatesBlocked = append(reason.GatesBlocked, "total_exposure_cap")
	} else {
		reason.GatesPassed = append(reason.GatesPassed, "total_exposure_cap_ok")
	}

	reason.FinalSizeUsd = sizeUsd

	minSizeUsd := minSizePct * capitalUsd
	if sizeUsd < minSizeUsd {
		reason.GatesBlocked = append(reason.GatesBlocked, "below_min_size")
		return reject(in.MarketID, reason)
	}

	rj, _ := json.Marshal(reason)
	return ProposedTrade{
		MarketID:   in.MarketID,
		Intent:     "OPEN",
		SizeUsd:    decimal.NewFromFloat(sizeUsd),
		Reason:     reason,
		ReasonJSON: string(rj),
	}
}

func reject(marketID string, reason Reason) ProposedTrade {
	rj, _ := json.Marshal(reason)
	return ProposedTrade{MarketID: marketID, Intent: "REJECT", Reason: reason, ReasonJSON: string(rj)}
}

func categoryExposureUsd(p *domain.AgentPortfolio, category domain.Category) float64 {
	var total float64
	for _, pos := range p.OpenPositions {
		if pos.Category == category {
			f, _ := pos.SizeUsd.Float64()
			total += f
		}
	}
	return total
}

func totalExposureUsd(p *domain.AgentPortfolio) float64 {
	var total float64
	for _, pos := range p.OpenPositions {
		f, _ := pos.SizeUsd.Float64()
		total += f
	}
	return total
}

// Scored pairs a proposed entry with the score that ranked it, so
// SelectTop can enforce maxTrades by taking the highest-scoring
// candidates first.
type Scored struct {
	Trade ProposedTrade
	Score float64
}

// SelectTop enforces step 6: openPositions.count <= agent.maxTrades,
// keeping the highest-scoring OPEN candidates and rejecting the rest.
// Existing open positions count against the budget before any new
// candidate is admitted.
func SelectTop(candidates []Scored, existingOpenCount, maxTrades int) []ProposedTrade {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	budget := maxTrades - existingOpenCount
	out := make([]ProposedTrade, 0, len(candidates))
	for _, c := range candidates {
		if c.Trade.Intent != "OPEN" {
			out = append(out, c.Trade)
			continue
		}
		if budget <= 0 {
			c.Trade.Reason.GatesBlocked = append(c.Trade.Reason.GatesBlocked, "max_trades_exceeded")
			c.Trade.Intent = "REJECT"
			rj, _ := json.Marshal(c.Trade.Reason)
			c.Trade.ReasonJSON = string(rj)
			out = append(out, c.Trade)
			continue
		}
		budget--
		out = append(out, c.Trade)
	}
	return out
}

// ShouldCooldown implements step 7: once maxDrawdownPct reaches the
// trigger, new entries are blocked until drawdown recovers below the
// recover threshold or the duration elapses. Exits are never affected
// by cooldown.
func ShouldCooldown(p *domain.AgentPortfolio, now time.Time, triggerPct, recoverPct float64) (enter bool, clear bool) {
	if p.InCooldown(now) {
		if p.MaxDrawdownPct() < recoverPct {
			return false, true
		}
		if p.CooldownUntil != nil && !now.Before(*p.CooldownUntil) {
			return false, true
		}
		return false, false
	}
	if p.MaxDrawdownPct() >= triggerPct {
		return true, false
	}
	return false, false
}
