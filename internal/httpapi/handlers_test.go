package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthetic-markets/agent-engine/internal/domain"
	"github.com/synthetic-markets/agent-engine/internal/persistence"
	"github.com/synthetic-markets/agent-engine/internal/portfolio"
)

func testProfiles() []domain.AgentProfile {
	return []domain.AgentProfile{
		{AgentID: domain.AgentGrok4, DisplayName: "Grok 4", Risk: domain.RiskHigh, MaxTrades: 5, Enabled: true},
		{AgentID: domain.AgentGPT5, DisplayName: "GPT-5", Risk: domain.RiskMedium, MaxTrades: 5, Enabled: true},
	}
}

func newTestServer(t *testing.T) (*Server, persistence.Store, *portfolio.Manager) {
	t.Helper()
	store := persistence.NewMemoryStore()
	mgr := portfolio.NewManager([]domain.AgentID{domain.AgentGrok4, domain.AgentGPT5}, decimal.NewFromInt(1000))
	s := NewServer(DefaultServerConfig(), testProfiles(), store, mgr, 1000)
	return s, store, mgr
}

func TestAgentTradesReturnsKnownAgentFeed(t *testing.T) {
	s, store, _ := newTestServer(t)
	pnl := decimal.NewFromInt(50)
	closedAt := time.Now()
	require.NoError(t, store.SaveTrade(domain.Trade{
		TradeID: "t1", AgentID: domain.AgentGrok4, MarketID: "m1",
		Status: domain.TradeClosed, PnlUsd: &pnl, OpenedAt: closedAt.Add(-time.Hour), ClosedAt: &closedAt,
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/agents/grok/trades", nil)
	rr := httptest.NewRecorder()
	router := mux.NewRouter()
	router.HandleFunc("/api/agents/{agentId}/trades", s.AgentTrades)
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp AgentTradesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "grok", resp.Agent.AgentID)
	require.Len(t, resp.Trades, 1)
	assert.Equal(t, "t1", resp.Trades[0].TradeID)
	require.NotNil(t, resp.Trades[0].PnlUsd)
	assert.Equal(t, 50.0, *resp.Trades[0].PnlUsd)
}

func TestAgentTradesRejectsUnknownFrontendID(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/agents/nobody/trades", nil)
	rr := httptest.NewRecorder()
	router := mux.NewRouter()
	router.HandleFunc("/api/agents/{agentId}/trades", s.AgentTrades)
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAgentsSummaryAggregatesAcrossAgents(t *testing.T) {
	s, store, mgr := newTestServer(t)
	pnl := decimal.NewFromInt(100)
	closedAt := time.Now()
	require.NoError(t, store.SaveTrade(domain.Trade{
		TradeID: "t1", AgentID: domain.AgentGrok4, MarketID: "m1",
		Status: domain.TradeClosed, PnlUsd: &pnl, OpenedAt: closedAt.Add(-time.Hour), ClosedAt: &closedAt,
	}))
	p, ok := mgr.Snapshot(domain.AgentGrok4)
	require.True(t, ok)
	p.RealizedPnlUsd = pnl
	mgr.Restore(&p)

	req := httptest.NewRequest(http.MethodGet, "/api/agents/summary", nil)
	rr := httptest.NewRecorder()
	s.AgentsSummary(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp AgentsSummaryResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Agents, 2)
	assert.Equal(t, "grok", resp.Totals.BestAgent)
	assert.Contains(t, resp.TradesByAgent, "grok")
	assert.Contains(t, resp.TradesByAgent, "gpt5")
}

func TestNotFoundHandlerReturnsJSONError(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	rr := httptest.NewRecorder()
	s.NotFound(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "not_found")
}

func TestIDMapRoundTripsForAllConfiguredAgents(t *testing.T) {
	for frontend, internal := range frontendToInternal {
		assert.Equal(t, frontend, toFrontendID(internal))
		got, ok := toInternalID(frontend)
		assert.True(t, ok)
		assert.Equal(t, internal, got)
	}
}
