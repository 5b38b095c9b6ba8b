// Package fallback implements the deterministic decision path used
// when the LLM is absent or fails, per spec.md §4.7. Every function
// here is pure and routes all randomness through internal/determinism.
package fallback

import (
	"fmt"

	"github.com/synthetic-markets/agent-engine/internal/determinism"
	"github.com/synthetic-markets/agent-engine/internal/domain"
)

// componentThresholds is the implementation-chosen bar ("exceed
// per-component thresholds") for a component to be cited in the
// generated reasoning: half of that component's stated maximum.
var componentThresholds = domain.ScoreComponents{
	VolumeScore:        15.0,
	LiquidityScore:     10.0,
	PriceMovementScore: 7.5,
	NewsScore:          12.5,
	ProbScore:          5.0,
}

func Decide(sm domain.ScoredMarket, agent domain.AgentProfile, seed string) domain.AITradeDecision {
	threshold := 0.4
	if sm.CurrentProbability > 0.5 {
		threshold = 0.6
	}
	side := domain.SideNo
	if determinism.Draw01(seed) < threshold {
		side = domain.SideYes
	}

	raw := sm.Score / 100
	var adjusted float64
	switch agent.Risk {
	case domain.RiskHigh:
		adjusted = minf(raw*1.10, 0.95)
	case domain.RiskLow:
		adjusted = maxf(raw*0.90, 0.40)
	default:
		adjusted = raw
	}

	jitter := (determinism.Draw01(determinism.Seed(seed, "jitter")) - 0.5) * 0.10
	confidence := determinism.Clamp(adjusted+jitter, 0.40, 0.95)

	return domain.AITradeDecision{
		Side:       side,
		Confidence: confidence,
		Reasoning:  reasoning(sm.Components),
	}
}

func reasoning(c domain.ScoreComponents) []string {
	var lines []string
	if c.VolumeScore > componentThresholds.VolumeScore {
		lines = append(lines, fmt.Sprintf("elevated volume (score %.1f)", c.VolumeScore))
	}
	if c.LiquidityScore > componentThresholds.LiquidityScore {
		lines = append(lines, fmt.Sprintf("strong liquidity (score %.1f)", c.LiquidityScore))
	}
	if c.PriceMovementScore > componentThresholds.PriceMovementScore {
		lines = append(lines, fmt.Sprintf("notable 24h price movement (score %.1f)", c.PriceMovementScore))
	}
	if c.NewsScore > componentThresholds.NewsScore {
		lines = append(lines, fmt.Sprintf("heavy recent news coverage (score %.1f)", c.NewsScore))
	}
	if c.ProbScore > componentThresholds.ProbScore {
		lines = append(lines, fmt.Sprintf("probability near the midpoint (score %.1f)", c.ProbScore))
	}
	if len(lines) == 0 {
		lines = []string{"no component exceeded its threshold; deterministic default"}
	}
	return lines
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
