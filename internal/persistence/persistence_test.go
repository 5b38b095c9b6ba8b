package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/synthetic-markets/agent-engine/internal/domain"
)

func TestSaveTradeIdempotentNoOpOnSameStatus(t *testing.T) {
	s := NewMemoryStore()
	trade := domain.Trade{TradeID: "t1", AgentID: domain.AgentGrok4, Status: domain.TradeOpen, Confidence: 0.6}
	assert.NoError(t, s.SaveTrade(trade))

	trade.Confidence = 0.9
	assert.NoError(t, s.SaveTrade(trade))

	got, err := s.LoadTrades(domain.AgentGrok4, time.Time{})
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	// no-op means the stored record is untouched by the second write
	assert.Equal(t, 0.6, got[0].Confidence)
}

func TestSaveTradeTransitionsOpenToClosed(t *testing.T) {
	s := NewMemoryStore()
	trade := domain.Trade{TradeID: "t1", AgentID: domain.AgentGrok4, Status: domain.TradeOpen}
	assert.NoError(t, s.SaveTrade(trade))

	trade.Status = domain.TradeClosed
	assert.NoError(t, s.SaveTrade(trade))

	got, _ := s.LoadTrades(domain.AgentGrok4, time.Time{})
	assert.Equal(t, domain.TradeClosed, got[0].Status)
}

func TestSaveTradeRejectsReopeningClosedTrade(t *testing.T) {
	s := NewMemoryStore()
	trade := domain.Trade{TradeID: "t1", AgentID: domain.AgentGrok4, Status: domain.TradeClosed}
	assert.NoError(t, s.SaveTrade(trade))

	trade.Status = domain.TradeOpen
	err := s.SaveTrade(trade)
	assert.ErrorIs(t, err, ErrReopenClosedTrade)
}

func TestLoadTradesFiltersByAgentAndSince(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	_ = s.SaveTrade(domain.Trade{TradeID: "t1", AgentID: domain.AgentGrok4, OpenedAt: now.Add(-48 * time.Hour)})
	_ = s.SaveTrade(domain.Trade{TradeID: "t2", AgentID: domain.AgentGrok4, OpenedAt: now})
	_ = s.SaveTrade(domain.Trade{TradeID: "t3", AgentID: domain.AgentGPT5, OpenedAt: now})

	got, _ := s.LoadTrades(domain.AgentGrok4, now.Add(-24*time.Hour))
	assert.Len(t, got, 1)
	assert.Equal(t, "t2", got[0].TradeID)
}

func TestGetPortfolioMissingReturnsFalse(t *testing.T) {
	s := NewMemoryStore()
	_, ok, err := s.GetPortfolio(domain.AgentGrok4)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStoreRoundTripsPortfolioAcrossReload(t *testing.T) {
	dir := t.TempDir()
	fs1, err := NewFileStore(dir)
	assert.NoError(t, err)

	assert.NoError(t, fs1.SavePortfolio(domain.AgentPortfolio{AgentID: domain.AgentGrok4}))
	assert.NoError(t, fs1.SaveTrade(domain.Trade{TradeID: "t1", AgentID: domain.AgentGrok4, Status: domain.TradeOpen}))

	fs2, err := NewFileStore(dir)
	assert.NoError(t, err)

	_, ok, _ := fs2.GetPortfolio(domain.AgentGrok4)
	assert.True(t, ok)

	trades, _ := fs2.LoadTrades(domain.AgentGrok4, time.Time{})
	assert.Len(t, trades, 1)
}
