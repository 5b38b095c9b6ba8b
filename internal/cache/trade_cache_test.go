package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/synthetic-markets/agent-engine/internal/domain"
)

func TestGetMissesWithoutPriorSet(t *testing.T) {
	c := NewTradeCache(30 * time.Second)
	_, ok := c.Get(domain.AgentGrok4, []string{"m1"})
	assert.False(t, ok)
}

func TestGetHitsWithinTTLAndSameMarketSet(t *testing.T) {
	c := NewTradeCache(30 * time.Second)
	trades := []domain.Trade{{TradeID: "t1"}}
	c.Set(domain.AgentGrok4, trades, []string{"m2", "m1"}, time.Now())

	got, ok := c.Get(domain.AgentGrok4, []string{"m1", "m2"})
	assert.True(t, ok)
	assert.Len(t, got, 1)
}

func TestGetMissesWhenMarketSetChanges(t *testing.T) {
	c := NewTradeCache(30 * time.Second)
	c.Set(domain.AgentGrok4, []domain.Trade{{TradeID: "t1"}}, []string{"m1"}, time.Now())

	_, ok := c.Get(domain.AgentGrok4, []string{"m1", "m2"})
	assert.False(t, ok)
}

func TestGetMissesAfterTTLExpires(t *testing.T) {
	c := NewTradeCache(30 * time.Second)
	c.Set(domain.AgentGrok4, []domain.Trade{{TradeID: "t1"}}, []string{"m1"}, time.Now().Add(-31*time.Second))

	_, ok := c.Get(domain.AgentGrok4, []string{"m1"})
	assert.False(t, ok)
}

func TestGetTreatsYoungEmptySetAsMiss(t *testing.T) {
	c := NewTradeCache(30 * time.Second)
	c.Set(domain.AgentGrok4, nil, []string{"m1"}, time.Now())

	_, ok := c.Get(domain.AgentGrok4, []string{"m1"})
	assert.False(t, ok)
}

func TestGetAllowsOldEmptySet(t *testing.T) {
	c := NewTradeCache(30 * time.Second)
	c.Set(domain.AgentGrok4, nil, []string{"m1"}, time.Now().Add(-11*time.Second))

	_, ok := c.Get(domain.AgentGrok4, []string{"m1"})
	assert.True(t, ok)
}

func TestInvalidateForcesNextGetToMiss(t *testing.T) {
	c := NewTradeCache(30 * time.Second)
	c.Set(domain.AgentGrok4, []domain.Trade{{TradeID: "t1"}}, []string{"m1"}, time.Now())
	c.Invalidate(domain.AgentGrok4)

	_, ok := c.Get(domain.AgentGrok4, []string{"m1"})
	assert.False(t, ok)
}
