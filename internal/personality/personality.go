// Package personality applies post-decision modifiers to an already
// computed AITradeDecision, per spec.md §4.8. Rules run in a fixed
// order, may only adjust already-computed values, and can never call
// an upstream.
package personality

import (
	"github.com/synthetic-markets/agent-engine/internal/domain"
)

const (
	minConfidence    = 0.40
	maxConfidence    = 0.95
	minSizeMultiplier = 0.5
	maxSizeMultiplier = 1.5
)

// Adjustment is the output of one rule: any zero-valued field leaves
// that aspect of the decision untouched.
type Adjustment struct {
	Side             domain.Side
	HasSide          bool
	ConfidenceDelta  float64
	SizeMultiplier   float64
	Note             string
}

// Rule is a pure function over the context already assembled for this
// (agent, market, decision) triple; it cannot fetch anything itself.
type Rule func(ctx Context) (Adjustment, bool)

// Context is everything a rule may read. It must not be mutated by a
// rule — rules communicate only through their returned Adjustment.
type Context struct {
	Market     domain.Market
	Components domain.ScoreComponents
	Agent      domain.AgentProfile
	Decision   domain.AITradeDecision
	NewsCount  int
}

// Result carries the decision after every applicable rule has run,
// plus the cumulative size multiplier the trade engine applies during
// sizing.
type Result struct {
	Decision       domain.AITradeDecision
	SizeMultiplier float64
}

// Rules is the fixed-order v1 rule set named in spec.md §4.8.
var Rules = []Rule{
	momentumNear50InCryptoOrTech,
	crowdedOneSidedPoliticalMarket,
	nearTermSportsEvent,
}

// Apply runs every rule in order, clamping each rule's contribution to
// the global bounds before accumulating it, and appends each applied
// rule's note to the decision's reasoning.
func Apply(ctx Context, rules []Rule) Result {
	decision := ctx.Decision
	sizeMultiplier := 1.0

	for _, rule := range rules {
		ctx.Decision = decision
		adj, applied := rule(ctx)
		if !applied {
			continue
		}

		if adj.HasSide {
			decision.Side = adj.Side
		}
		if adj.ConfidenceDelta != 0 {
			decision.Confidence = clamp(decision.Confidence+adj.ConfidenceDelta, minConfidence, maxConfidence)
		}
		if adj.SizeMultiplier != 0 {
			sizeMultiplier *= clamp(adj.SizeMultiplier, minSizeMultiplier, maxSizeMultiplier)
		}
		if adj.Note != "" {
			decision.Reasoning = append(decision.Reasoning, adj.Note)
		}
	}

	sizeMultiplier = clamp(sizeMultiplier, minSizeMultiplier, maxSizeMultiplier)
	return Result{Decision: decision, SizeMultiplier: sizeMultiplier}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// momentumNear50InCryptoOrTech boosts confidence and size when a
// Crypto/Tech market sits near the 50% line with meaningful price
// movement — the "still undecided but moving" setup these agents are
// tuned to chase.
func momentumNear50InCryptoOrTech(ctx Context) (Adjustment, bool) {
	if ctx.Market.Category != domain.CategoryCrypto && ctx.Market.Category != domain.CategoryTech {
		return Adjustment{}, false
	}
	nearFiftyBand := 0.10
	if abs(ctx.Market.CurrentProbability-0.5) > nearFiftyBand {
		return Adjustment{}, false
	}
	if ctx.Components.PriceMovementScore <= 0 {
		return Adjustment{}, false
	}
	return Adjustment{
		ConfidenceDelta: 0.05,
		SizeMultiplier:  1.2,
		Note:            "momentum near 50% in a Crypto/Tech market",
	}, true
}

// crowdedOneSidedPoliticalMarket reduces confidence and size for
// Politics markets that have drifted far from 50% on heavy news
// volume — a crowded trade this engine treats as lower-edge, not
// higher-conviction.
func crowdedOneSidedPoliticalMarket(ctx Context) (Adjustment, bool) {
	if ctx.Market.Category != domain.CategoryPolitics {
		return Adjustment{}, false
	}
	oneSided := 0.25
	if abs(ctx.Market.CurrentProbability-0.5) < oneSided {
		return Adjustment{}, false
	}
	heavyNews := 3
	if ctx.NewsCount < heavyNews {
		return Adjustment{}, false
	}
	return Adjustment{
		ConfidenceDelta: -0.05,
		SizeMultiplier:  0.8,
		Note:            "crowded one-sided political market with heavy news",
	}, true
}

// nearTermSportsEvent gives a moderate boost to Sports markets with
// strong volume, treating near-term settlement as a reason to lean in
// rather than wait.
func nearTermSportsEvent(ctx Context) (Adjustment, bool) {
	if ctx.Market.Category != domain.CategorySports {
		return Adjustment{}, false
	}
	if ctx.Components.VolumeScore <= 15 {
		return Adjustment{}, false
	}
	return Adjustment{
		ConfidenceDelta: 0.03,
		SizeMultiplier:  1.1,
		Note:            "near-term sports event",
	}, true
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
