package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/synthetic-markets/agent-engine/internal/config"
	"github.com/synthetic-markets/agent-engine/internal/domain"
)

func TestParseDecisionFromProseWrappedJSON(t *testing.T) {
	body := `Sure, here is my analysis. {"side": "yes", "confidence": 0.82, "reasoning": ["strong volume", "bullish news"]} Let me know if you need more.`
	d := parseDecision(body)
	assert.Equal(t, domain.SideYes, d.Side)
	assert.Equal(t, 0.82, d.Confidence)
	assert.Equal(t, []string{"strong volume", "bullish news"}, d.Reasoning)
}

func TestParseDecisionFromCodeFencedJSON(t *testing.T) {
	body := "```json\n{\"side\": \"NO\", \"confidence\": 0.3, \"reasoning\": [\"weak signal\"]}\n```"
	d := parseDecision(body)
	assert.Equal(t, domain.SideNo, d.Side)
	assert.Equal(t, 0.3, d.Confidence)
}

func TestParseDecisionMissingSideDefaultsToNo(t *testing.T) {
	d := parseDecision(`{"confidence": 0.6, "reasoning": ["x"]}`)
	assert.Equal(t, domain.SideNo, d.Side)
}

func TestParseDecisionMissingConfidenceDefaultsToHalf(t *testing.T) {
	d := parseDecision(`{"side": "YES", "reasoning": ["x"]}`)
	assert.Equal(t, 0.5, d.Confidence)
}

func TestParseDecisionConfidenceClampedToUnitRange(t *testing.T) {
	d := parseDecision(`{"side": "YES", "confidence": 1.7, "reasoning": []}`)
	assert.Equal(t, 1.0, d.Confidence)
}

func TestParseDecisionReasoningTruncatedToThree(t *testing.T) {
	d := parseDecision(`{"side": "YES", "confidence": 0.9, "reasoning": ["a","b","c","d","e"]}`)
	assert.Len(t, d.Reasoning, 3)
}

func TestParseDecisionNoJSONFallsBackToConservativeNo(t *testing.T) {
	d := parseDecision("the model refused to answer in JSON")
	assert.Equal(t, domain.SideNo, d.Side)
	assert.Equal(t, 0.5, d.Confidence)
}

func TestCacheHitWithinTTL(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	want := domain.AITradeDecision{Side: domain.SideYes, Confidence: 0.77}
	c.Set("GROK_4:m1", want)

	got, ok := c.Get("GROK_4:m1")
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestCacheMissAfterTTL(t *testing.T) {
	c := NewMemoryCache(time.Nanosecond)
	c.Set("GROK_4:m1", domain.AITradeDecision{Side: domain.SideYes})
	time.Sleep(time.Millisecond)

	_, ok := c.Get("GROK_4:m1")
	assert.False(t, ok)
}

func TestRegistryReturnsUnavailableWithoutCredential(t *testing.T) {
	t.Setenv("GROK_API_KEY", "")
	cfgs := []config.LLMProviderConfig{
		{AgentID: domain.AgentGrok4, BaseURL: "https://example.invalid", APIKeyEnv: "GROK_API_KEY"},
	}
	reg := NewRegistry(cfgs, NewMemoryCache(5*time.Minute))

	sm := domain.ScoredMarket{Market: domain.Market{MarketID: "m1"}}
	d := reg.Decide(t.Context(), domain.AgentGrok4, sm, nil, nil)
	assert.True(t, d.Unavailable)
}

func TestRegistryUnconfiguredAgentIsUnavailable(t *testing.T) {
	reg := NewRegistry(nil, NewMemoryCache(5*time.Minute))
	sm := domain.ScoredMarket{Market: domain.Market{MarketID: "m1"}}
	d := reg.Decide(t.Context(), domain.AgentGPT5, sm, nil, nil)
	assert.True(t, d.Unavailable)
	assert.Equal(t, "no credential configured", d.Reason)
}
