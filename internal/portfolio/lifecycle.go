package portfolio

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/synthetic-markets/agent-engine/internal/domain"
)

const (
	takeProfitYes = 0.85
	takeProfitNo  = 0.15
	stopLossYes   = 0.35
	stopLossNo    = 0.65
	timeoutAge    = 72 * time.Hour
	scoreDecayPct = 0.5
)

// FrozenMarketBehavior selects what EvaluateExit does with an open
// position on a FROZEN market, per spec.md §4.10's "hold or flat-close
// per config" — the engine never trades into or out of a frozen market
// on price, so this is the only lever over a frozen position's fate.
type FrozenMarketBehavior string

const (
	FrozenHold      FrozenMarketBehavior = "hold"
	FrozenFlatClose FrozenMarketBehavior = "flat_close"
)

// ExitCheck is the result of evaluating one open position for an exit
// this cycle.
type ExitCheck struct {
	ShouldExit       bool
	Reason           domain.ExitReason
	ExitProbability  float64
	KnownOutcome     bool
	Outcome          domain.Outcome
}

// EvaluateExit runs the fixed exit checks from spec.md §4.10 in order:
// market status first (it can force a close regardless of price),
// then take-profit, stop-loss, timeout, score decay.
func EvaluateExit(pos *domain.Position, market domain.Market, latestScore float64, now time.Time, frozenBehavior FrozenMarketBehavior) ExitCheck {
	switch market.Status {
	case domain.MarketResolved:
		return ExitCheck{
			ShouldExit: true, Reason: domain.ExitResolved,
			KnownOutcome: market.ResolvedOutcome != domain.OutcomeUnknown,
			Outcome:      market.ResolvedOutcome,
		}
	case domain.MarketInvalid:
		return ExitCheck{ShouldExit: true, Reason: domain.ExitMarketInvalid, ExitProbability: pos.EntryProbability}
	case domain.MarketFrozen:
		if frozenBehavior == FrozenFlatClose {
			return ExitCheck{ShouldExit: true, Reason: domain.ExitFrozen, ExitProbability: pos.EntryProbability}
		}
		return ExitCheck{}
	}

	prob := market.CurrentProbability
	if pos.Side == domain.SideYes {
		if prob >= takeProfitYes {
			return ExitCheck{ShouldExit: true, Reason: domain.ExitTakeProfit, ExitProbability: prob}
		}
		if prob <= stopLossYes {
			return ExitCheck{ShouldExit: true, Reason: domain.ExitStopLoss, ExitProbability: prob}
		}
	} else {
		if prob <= takeProfitNo {
			return ExitCheck{ShouldExit: true, Reason: domain.ExitTakeProfit, ExitProbability: prob}
		}
		if prob >= stopLossNo {
			return ExitCheck{ShouldExit: true, Reason: domain.ExitStopLoss, ExitProbability: prob}
		}
	}

	if now.Sub(pos.OpenedAt) >= timeoutAge {
		return ExitCheck{ShouldExit: true, Reason: domain.ExitTimeout, ExitProbability: prob}
	}

	if latestScore < scoreDecayPct*pos.EntryScore {
		return ExitCheck{ShouldExit: true, Reason: domain.ExitScoreDecay, ExitProbability: prob}
	}

	return ExitCheck{}
}

// ExitPnl computes realized PnL on close per spec.md §4.10. Resolved
// markets with a known outcome use that 0/1 outcome; every other exit
// marks to the exit probability. A market reported RESOLVED whose
// outcome the upstream never exposed (ExitResolved without
// KnownOutcome) closes at flat PnL, the same treatment as an invalid
// market, rather than pricing against domain.OutcomeUnknown's -1
// sentinel.
func ExitPnl(pos *domain.Position, check ExitCheck) decimal.Decimal {
	if check.Reason == domain.ExitMarketInvalid {
		return decimal.Zero
	}
	if check.Reason == domain.ExitResolved && !check.KnownOutcome {
		return decimal.Zero
	}

	direction := decimal.NewFromInt(pos.Side.Direction())
	var delta float64
	if check.KnownOutcome {
		delta = float64(check.Outcome) - pos.EntryProbability
	} else {
		delta = check.ExitProbability - pos.EntryProbability
	}
	deltaDec := decimal.NewFromFloat(delta)
	return direction.Mul(deltaDec).Mul(pos.SizeUsd)
}

// UnrealizedPnl mirrors ExitPnl using the market's current probability
// in place of an exit probability — for metrics only, never persisted
// as realized.
func UnrealizedPnl(pos *domain.Position, currentProbability float64) decimal.Decimal {
	direction := decimal.NewFromInt(pos.Side.Direction())
	delta := decimal.NewFromFloat(currentProbability - pos.EntryProbability)
	return direction.Mul(delta).Mul(pos.SizeUsd)
}

// ShouldFlip reports whether a fresh decision on the opposite side of
// an existing position clears the configured confidence threshold,
// per spec.md §4.10's flip rule.
func ShouldFlip(pos *domain.Position, newSide domain.Side, newConfidence, threshold float64) bool {
	return newSide != pos.Side && newConfidence > threshold
}
