// Package domain holds the shared record types that flow between the
// engine's components: markets, news, scored candidates, decisions,
// trades, positions, and portfolios. Adapters at every external
// boundary map into these types; nothing downstream of an adapter
// carries an untyped payload.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryCrypto     Category = "Crypto"
	CategoryPolitics   Category = "Politics"
	CategorySports     Category = "Sports"
	CategoryTech       Category = "Tech"
	CategoryEconomics  Category = "Economics"
	CategoryOther      Category = "Other"
)

type AgentID string

const (
	AgentGrok4      AgentID = "GROK_4"
	AgentGPT5       AgentID = "GPT_5"
	AgentDeepSeekV3 AgentID = "DEEPSEEK_V3"
	AgentGemini25   AgentID = "GEMINI_2_5"
	AgentClaude45   AgentID = "CLAUDE_4_5"
	AgentQwen25     AgentID = "QWEN_2_5"
)

// AllAgents is the closed set of 6 agent identities, in a fixed order
// used wherever iteration order matters (cycle fan-out, leaderboard).
var AllAgents = []AgentID{
	AgentGrok4, AgentGPT5, AgentDeepSeekV3, AgentGemini25, AgentClaude45, AgentQwen25,
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

type Weights struct {
	Volume        float64
	Liquidity     float64
	PriceMovement float64
	News          float64
	Probability   float64
}

func (w Weights) Sum() float64 {
	return w.Volume + w.Liquidity + w.PriceMovement + w.News + w.Probability
}

// AgentProfile is static, config-loaded, and immutable during a cycle.
type AgentProfile struct {
	AgentID         AgentID
	DisplayName     string
	Risk            RiskLevel
	MinVolumeUsd    float64
	MinLiquidityUsd float64
	MaxTrades       int
	FocusCategories []Category
	Weights         Weights
	Enabled         bool
}

type MarketStatus string

const (
	MarketActive   MarketStatus = "ACTIVE"
	MarketResolved MarketStatus = "RESOLVED"
	MarketFrozen   MarketStatus = "FROZEN"
	MarketInvalid  MarketStatus = "INVALID"
)

type Outcome int

const (
	OutcomeUnknown Outcome = -1
	OutcomeNo      Outcome = 0
	OutcomeYes     Outcome = 1
)

// Market is fetched each market-cache refresh and never mutated locally
// except through refresh.
type Market struct {
	MarketID           string
	Question           string
	Category           Category
	VolumeUsd          float64
	LiquidityUsd       float64
	CurrentProbability float64
	PriceChange24h     float64
	Status             MarketStatus
	ResolvedOutcome    Outcome
}

// NewsArticle's ArticleID is providerName:url. Deduplicated by
// normalized lowercased title across all providers per cache window.
type NewsArticle struct {
	ArticleID   string
	Title       string
	Description string
	Source      string
	SourceAPI   string
	PublishedAt time.Time
	URL         string
}

type ScoreComponents struct {
	VolumeScore        float64
	LiquidityScore     float64
	PriceMovementScore float64
	NewsScore          float64
	ProbScore          float64
}

type ScoredMarket struct {
	Market
	Score      float64
	Components ScoreComponents
}

type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Direction returns +1 for YES, -1 for NO, matching spec.md §4.10.
func (s Side) Direction() int64 {
	if s == SideYes {
		return 1
	}
	return -1
}

type AITradeDecision struct {
	Side       Side
	Confidence float64
	Reasoning  []string
	// Unavailable is true when the LLM call failed, timed out, or no
	// credential was configured; the caller must use the deterministic
	// fallback instead of treating this as a valid decision.
	Unavailable bool
	Reason      string
}

type TradeStatus string

const (
	TradeOpen   TradeStatus = "OPEN"
	TradeClosed TradeStatus = "CLOSED"
)

type ExitReason string

const (
	ExitTakeProfit    ExitReason = "TP"
	ExitStopLoss      ExitReason = "SL"
	ExitTimeout       ExitReason = "TIMEOUT"
	ExitScoreDecay    ExitReason = "SCORE_DECAY"
	ExitMarketInvalid ExitReason = "MARKET_INVALID"
	ExitResolved      ExitReason = "RESOLVED"
	ExitManual        ExitReason = "MANUAL"
	ExitFlip          ExitReason = "FLIP"
	ExitFrozen        ExitReason = "FROZEN_FLAT_CLOSE"
)

// Trade is the durable record of one position's lifetime. CLOSED is
// terminal; PnlUsd is set exactly once, upon close.
type Trade struct {
	TradeID          string
	AgentID          AgentID
	MarketID         string
	Category         Category
	Side             Side
	SizeUsd          decimal.Decimal
	EntryProbability float64
	EntryScore       float64
	Confidence       float64
	Status           TradeStatus
	PnlUsd           *decimal.Decimal
	OpenedAt         time.Time
	ClosedAt         *time.Time
	ExitReason       *ExitReason
	Reasoning        []string
	Seed             string
}

// Position is derived: one per open trade per agent.
type Position struct {
	TradeID          string
	MarketID         string
	Side             Side
	SizeUsd          decimal.Decimal
	EntryProbability float64
	EntryScore       float64
	Confidence       float64
	OpenedAt         time.Time
	Category         Category
}

type AgentPortfolio struct {
	AgentID             AgentID
	StartingCapitalUsd  decimal.Decimal
	RealizedPnlUsd      decimal.Decimal
	UnrealizedPnlUsd    decimal.Decimal
	MaxEquityUsd        decimal.Decimal
	OpenPositions       map[string]*Position // marketId -> Position
	CooldownUntil       *time.Time
	LastUpdated         time.Time
}

// CurrentCapitalUsd must always equal StartingCapitalUsd + RealizedPnlUsd.
func (p *AgentPortfolio) CurrentCapitalUsd() decimal.Decimal {
	return p.StartingCapitalUsd.Add(p.RealizedPnlUsd)
}

func (p *AgentPortfolio) EquityUsd() decimal.Decimal {
	return p.CurrentCapitalUsd().Add(p.UnrealizedPnlUsd)
}

func (p *AgentPortfolio) MaxDrawdownPct() float64 {
	if p.MaxEquityUsd.IsZero() {
		return 0
	}
	equity := p.EquityUsd()
	dd := p.MaxEquityUsd.Sub(equity).Div(p.MaxEquityUsd)
	f, _ := dd.Float64()
	if f < 0 {
		return 0
	}
	return f
}

func (p *AgentPortfolio) InCooldown(now time.Time) bool {
	return p.CooldownUntil != nil && now.Before(*p.CooldownUntil)
}

type AdaptiveConfig struct {
	AgentID         AgentID
	RiskMultiplier  float64
	CategoryBias    map[Category]float64
	ComputedAt      time.Time
}

func (a AdaptiveConfig) BiasFor(c Category) float64 {
	if a.CategoryBias == nil {
		return 1.0
	}
	if v, ok := a.CategoryBias[c]; ok {
		return v
	}
	return 1.0
}

type ConsensusRecord struct {
	MarketID        string
	YesCount        int
	NoCount         int
	AgreementLevel  float64
	AvgConfidence   float64
	Conflict        bool
	ConsensusSide   Side
}
