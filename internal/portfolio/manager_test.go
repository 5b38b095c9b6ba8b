package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/synthetic-markets/agent-engine/internal/domain"
)

func TestOpenThenCloseUpdatesRealizedPnlAndCapital(t *testing.T) {
	m := NewManager([]domain.AgentID{domain.AgentGrok4}, decimal.NewFromInt(3000))
	now := time.Now()

	m.Open(domain.AgentGrok4, domain.Trade{
		MarketID: "m1", Side: domain.SideYes, SizeUsd: decimal.NewFromInt(100),
		EntryProbability: 0.5, EntryScore: 60, OpenedAt: now,
	}, domain.CategoryCrypto, now)

	snap, ok := m.Snapshot(domain.AgentGrok4)
	assert.True(t, ok)
	assert.Len(t, snap.OpenPositions, 1)

	m.Close(domain.AgentGrok4, "m1", decimal.NewFromInt(20), now)
	snap, _ = m.Snapshot(domain.AgentGrok4)
	assert.Len(t, snap.OpenPositions, 0)
	assert.True(t, snap.RealizedPnlUsd.Equal(decimal.NewFromInt(20)))
	assert.True(t, snap.CurrentCapitalUsd().Equal(decimal.NewFromInt(3020)))
}

func TestCloseUpdatesMaxEquityMonotonically(t *testing.T) {
	m := NewManager([]domain.AgentID{domain.AgentGrok4}, decimal.NewFromInt(1000))
	now := time.Now()

	m.Close(domain.AgentGrok4, "m1", decimal.NewFromInt(500), now)
	snap, _ := m.Snapshot(domain.AgentGrok4)
	assert.True(t, snap.MaxEquityUsd.Equal(decimal.NewFromInt(1500)))

	m.Close(domain.AgentGrok4, "m2", decimal.NewFromInt(-2000), now)
	snap, _ = m.Snapshot(domain.AgentGrok4)
	// equity dropped but maxEquity must not decrease
	assert.True(t, snap.MaxEquityUsd.Equal(decimal.NewFromInt(1500)))
}

func TestEnterCooldownThenClear(t *testing.T) {
	m := NewManager([]domain.AgentID{domain.AgentGrok4}, decimal.NewFromInt(1000))
	now := time.Now()
	m.EnterCooldown(domain.AgentGrok4, now, 24*time.Hour)

	snap, _ := m.Snapshot(domain.AgentGrok4)
	assert.True(t, snap.InCooldown(now))

	m.ClearCooldown(domain.AgentGrok4)
	snap, _ = m.Snapshot(domain.AgentGrok4)
	assert.False(t, snap.InCooldown(now))
}

func TestRestoreOverwritesInMemoryState(t *testing.T) {
	m := NewManager([]domain.AgentID{domain.AgentGrok4}, decimal.NewFromInt(1000))
	m.Restore(&domain.AgentPortfolio{
		AgentID: domain.AgentGrok4, StartingCapitalUsd: decimal.NewFromInt(5000),
	})
	snap, _ := m.Snapshot(domain.AgentGrok4)
	assert.True(t, snap.StartingCapitalUsd.Equal(decimal.NewFromInt(5000)))
	assert.NotNil(t, snap.OpenPositions)
}
