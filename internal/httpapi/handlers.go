package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/synthetic-markets/agent-engine/internal/domain"
	"github.com/synthetic-markets/agent-engine/internal/leaderboard"
)

func (s *Server) profileByID(agentID domain.AgentID) (domain.AgentProfile, bool) {
	for _, p := range s.agents {
		if p.AgentID == agentID {
			return p, true
		}
	}
	return domain.AgentProfile{}, false
}

// AgentTrades serves GET /api/agents/{agentId}/trades. agentId is the
// frontend's short slug (grok, gpt5, ...), never the internal
// domain.AgentID.
func (s *Server) AgentTrades(w http.ResponseWriter, r *http.Request) {
	frontendID := mux.Vars(r)["agentId"]
	agentID, ok := toInternalID(frontendID)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown_agent", "agentId": frontendID})
		return
	}
	profile, ok := s.profileByID(agentID)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown_agent", "agentId": frontendID})
		return
	}

	trades, err := s.store.LoadTrades(agentID, time.Time{})
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "trades_unavailable"})
		return
	}

	s.writeJSON(w, http.StatusOK, AgentTradesResponse{
		Agent:  profileView(profile),
		Trades: tradeViews(trades),
	})
}

// AgentsSummary serves GET /api/agents/summary: one metrics row per
// configured agent plus cross-agent totals, computed fresh from
// persistence on every call since this is a low-traffic read surface
// with no caching requirement in spec.md §6.
func (s *Server) AgentsSummary(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	agentsOut := make([]AgentSummaryView, 0, len(s.agents))
	tradesByAgent := make(map[string][]TradeView, len(s.agents))

	totals := TotalsView{}
	var bestAgent string
	bestPnlPct := 0.0
	haveBest := false

	for _, profile := range s.agents {
		trades, err := s.store.LoadTrades(profile.AgentID, time.Time{})
		if err != nil {
			continue
		}
		snap, _ := s.portfolios.Snapshot(profile.AgentID)
		metrics := leaderboard.ComputeMetrics(profile.AgentID, trades, snap, leaderboard.WindowAllTime, now)

		view := summaryView(profile, metrics, len(snap.OpenPositions))
		agentsOut = append(agentsOut, view)
		tradesByAgent[toFrontendID(profile.AgentID)] = tradeViews(trades)

		totals.TotalPnlUsd += floatOf(snap.RealizedPnlUsd) + floatOf(snap.UnrealizedPnlUsd)
		totals.OpenCount += len(snap.OpenPositions)
		totals.ClosedCount += metrics.TradesCount

		if !haveBest || metrics.PnlPct > bestPnlPct {
			haveBest = true
			bestPnlPct = metrics.PnlPct
			bestAgent = toFrontendID(profile.AgentID)
		}
	}
	totals.BestAgent = bestAgent

	s.writeJSON(w, http.StatusOK, AgentsSummaryResponse{
		Agents:        agentsOut,
		TradesByAgent: tradesByAgent,
		Totals:        totals,
	})
}
