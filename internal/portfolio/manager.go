// Package portfolio holds each agent's synthetic capital and open
// positions in memory and applies trade/exit mutations atomically, per
// spec.md §3/§4.10. Durable persistence is a separate concern, handled
// by internal/persistence; Manager is the single in-process source of
// truth a scheduler cycle reads and writes against.
package portfolio

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/synthetic-markets/agent-engine/internal/domain"
)

// Manager owns one AgentPortfolio per agent identity, guarded by a
// single mutex — cycles touch at most a handful of agents per tick, so
// a coarse lock is simpler than per-agent locking and never a
// contention point in practice.
type Manager struct {
	mu         sync.RWMutex
	portfolios map[domain.AgentID]*domain.AgentPortfolio
}

// NewManager seeds one fresh portfolio per agent at startingCapitalUsd.
// Callers that have persisted state should use Restore instead.
func NewManager(agents []domain.AgentID, startingCapitalUsd decimal.Decimal) *Manager {
	m := &Manager{portfolios: make(map[domain.AgentID]*domain.AgentPortfolio, len(agents))}
	now := time.Now()
	for _, id := range agents {
		m.portfolios[id] = &domain.AgentPortfolio{
			AgentID:            id,
			StartingCapitalUsd: startingCapitalUsd,
			MaxEquityUsd:       startingCapitalUsd,
			OpenPositions:      make(map[string]*domain.Position),
			LastUpdated:        now,
		}
	}
	return m
}

// Restore installs a previously persisted portfolio, overwriting any
// in-memory state for that agent. Used once at startup per agent whose
// persistence load succeeded.
func (m *Manager) Restore(p *domain.AgentPortfolio) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.OpenPositions == nil {
		p.OpenPositions = make(map[string]*domain.Position)
	}
	m.portfolios[p.AgentID] = p
}

// Snapshot returns a deep copy so callers can inspect portfolio state
// without holding the manager's lock across a scoring/decision pass.
func (m *Manager) Snapshot(agentID domain.AgentID) (domain.AgentPortfolio, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.portfolios[agentID]
	if !ok {
		return domain.AgentPortfolio{}, false
	}
	return copyPortfolio(p), true
}

func copyPortfolio(p *domain.AgentPortfolio) domain.AgentPortfolio {
	out := *p
	out.OpenPositions = make(map[string]*domain.Position, len(p.OpenPositions))
	for k, v := range p.OpenPositions {
		pos := *v
		out.OpenPositions[k] = &pos
	}
	return out
}

// Open records a new position built from trade. It does not persist
// the trade; that is left to the caller. Callers must have already run it through decision.Size
// and personality.Apply — Open performs no sizing or gating itself.
func (m *Manager) Open(agentID domain.AgentID, trade domain.Trade, category domain.Category, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.portfolios[agentID]
	if p == nil {
		return
	}
	p.OpenPositions[trade.MarketID] = &domain.Position{
		TradeID:          trade.TradeID,
		MarketID:         trade.MarketID,
		Side:             trade.Side,
		SizeUsd:          trade.SizeUsd,
		EntryProbability: trade.EntryProbability,
		EntryScore:       trade.EntryScore,
		Confidence:       trade.Confidence,
		OpenedAt:         trade.OpenedAt,
		Category:         category,
	}
	p.LastUpdated = now
}

// Close applies a realized PnL to the portfolio and removes the
// position, per spec.md §4.10's portfolio-update-on-close formula:
// realizedPnlUsd += pnlUsd, currentCapitalUsd recomputed from it,
// maxEquityUsd monotonically non-decreasing.
func (m *Manager) Close(agentID domain.AgentID, marketID string, pnlUsd decimal.Decimal, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.portfolios[agentID]
	if p == nil {
		return
	}
	delete(p.OpenPositions, marketID)
	p.RealizedPnlUsd = p.RealizedPnlUsd.Add(pnlUsd)
	p.LastUpdated = now

	equity := p.EquityUsd()
	if equity.GreaterThan(p.MaxEquityUsd) {
		p.MaxEquityUsd = equity
	}
}

// EnterCooldown sets CooldownUntil to now+duration. A no-op if the
// agent is already in cooldown with a later expiry.
func (m *Manager) EnterCooldown(agentID domain.AgentID, now time.Time, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.portfolios[agentID]
	if p == nil {
		return
	}
	until := now.Add(duration)
	if p.CooldownUntil == nil || until.After(*p.CooldownUntil) {
		p.CooldownUntil = &until
	}
}

// ClearCooldown removes any active cooldown.
func (m *Manager) ClearCooldown(agentID domain.AgentID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.portfolios[agentID]
	if p == nil {
		return
	}
	p.CooldownUntil = nil
}

// SetUnrealizedPnl updates the mark-to-market figure used for metrics
// and equity/drawdown calculations; it never touches realized PnL.
func (m *Manager) SetUnrealizedPnl(agentID domain.AgentID, unrealized decimal.Decimal, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.portfolios[agentID]
	if p == nil {
		return
	}
	p.UnrealizedPnlUsd = unrealized
	p.LastUpdated = now
	equity := p.EquityUsd()
	if equity.GreaterThan(p.MaxEquityUsd) {
		p.MaxEquityUsd = equity
	}
}

// All returns every tracked agent ID, in AllAgents order where present.
func (m *Manager) All() []domain.AgentID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.AgentID, 0, len(m.portfolios))
	for _, id := range domain.AllAgents {
		if _, ok := m.portfolios[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
