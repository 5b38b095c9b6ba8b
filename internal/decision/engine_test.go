package decision

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/synthetic-markets/agent-engine/internal/domain"
)

func freshPortfolio(capital float64) *domain.AgentPortfolio {
	c := decimal.NewFromFloat(capital)
	return &domain.AgentPortfolio{
		AgentID:            domain.AgentGrok4,
		StartingCapitalUsd: c,
		MaxEquityUsd:       c,
		OpenPositions:      map[string]*domain.Position{},
	}
}

func TestSizeAppliesConfidenceWeighting(t *testing.T) {
	in := SizingInput{
		Agent:     domain.AgentProfile{Risk: domain.RiskMedium},
		MarketID:  "m1",
		Category:  domain.CategoryCrypto,
		Decision:  domain.AITradeDecision{Side: domain.SideYes, Confidence: 1.0},
		Portfolio: freshPortfolio(10000),
		Now:       time.Now(),
	}
	trade := Size(in)
	assert.Equal(t, "OPEN", trade.Intent)
	// base=0.025*10000=250, confWeight=1.0 -> 250
	f, _ := trade.SizeUsd.Float64()
	assert.InDelta(t, 250, f, 0.01)
}

func TestSizeClampsToSingleMarketCap(t *testing.T) {
	in := SizingInput{
		Agent:                     domain.AgentProfile{Risk: domain.RiskHigh},
		MarketID:                  "m1",
		Category:                  domain.CategoryCrypto,
		Decision:                  domain.AITradeDecision{Side: domain.SideYes, Confidence: 1.0},
		PersonalitySizeMultiplier: 6.0,
		Portfolio:                 freshPortfolio(10000),
		Now:                       time.Now(),
	}
	trade := Size(in)
	f, _ := trade.SizeUsd.Float64()
	assert.LessOrEqual(t, f, 0.20*10000+1e-6)
	assert.Contains(t, trade.Reason.GatesBlocked, "single_market_cap")
}

func TestSizeDropsBelowMinimum(t *testing.T) {
	p := freshPortfolio(10000)
	p.OpenPositions["existing"] = &domain.Position{
		MarketID: "existing", SizeUsd: decimal.NewFromFloat(3990), Category: domain.CategoryCrypto,
	}
	in := SizingInput{
		Agent:     domain.AgentProfile{Risk: domain.RiskLow},
		MarketID:  "m2",
		Category:  domain.CategoryCrypto,
		Decision:  domain.AITradeDecision{Side: domain.SideYes, Confidence: 0.5},
		Portfolio: p,
		Now:       time.Now(),
	}
	trade := Size(in)
	assert.Equal(t, "REJECT", trade.Intent)
	assert.Contains(t, trade.Reason.GatesBlocked, "below_min_size")
}

func TestSelectTopKeepsHighestScoresWithinBudget(t *testing.T) {
	candidates := []Scored{
		{Trade: ProposedTrade{MarketID: "low", Intent: "OPEN"}, Score: 10},
		{Trade: ProposedTrade{MarketID: "high", Intent: "OPEN"}, Score: 90},
		{Trade: ProposedTrade{MarketID: "mid", Intent: "OPEN"}, Score: 50},
	}
	out := SelectTop(candidates, 0, 2)

	var opened []string
	for _, c := range out {
		if c.Intent == "OPEN" {
			opened = append(opened, c.MarketID)
		}
	}
	assert.ElementsMatch(t, []string{"high", "mid"}, opened)
}

func TestSelectTopRespectsExistingOpenCount(t *testing.T) {
	candidates := []Scored{{Trade: ProposedTrade{MarketID: "m1", Intent: "OPEN"}, Score: 10}}
	out := SelectTop(candidates, 3, 3)
	assert.Equal(t, "REJECT", out[0].Intent)
}

func TestShouldCooldownEntersAtTrigger(t *testing.T) {
	p := freshPortfolio(10000)
	p.RealizedPnlUsd = decimal.NewFromFloat(-5000)
	enter, clear := ShouldCooldown(p, time.Now(), 0.40, 0.30)
	assert.True(t, enter)
	assert.False(t, clear)
}

func TestShouldCooldownClearsAfterRecovery(t *testing.T) {
	p := freshPortfolio(10000)
	until := time.Now().Add(time.Hour)
	p.CooldownUntil = &until
	p.RealizedPnlUsd = decimal.NewFromFloat(-1000) // drawdown below recover threshold
	enter, clear := ShouldCooldown(p, time.Now(), 0.40, 0.30)
	assert.False(t, enter)
	assert.True(t, clear)
}
