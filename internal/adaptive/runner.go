package adaptive

import (
	"context"
	"time"

	"github.com/synthetic-markets/agent-engine/internal/domain"
	"github.com/synthetic-markets/agent-engine/internal/observ"
	"github.com/synthetic-markets/agent-engine/internal/persistence"
)

// Sink receives a freshly tuned config; the scheduler implements it to
// hot-swap its in-memory copy without a restart.
type Sink interface {
	SetAdaptiveConfig(c domain.AdaptiveConfig)
}

// Runner ticks the tuner on its own slower cadence, independent of the
// trading cycle's ticker, per spec.md §4.13's "separate, slower
// cadence" requirement.
type Runner struct {
	store              persistence.Store
	sink               Sink
	agents             []domain.AgentID
	startingCapitalUsd float64
	interval           time.Duration
}

func NewRunner(store persistence.Store, sink Sink, agents []domain.AgentID, startingCapitalUsd float64, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Runner{store: store, sink: sink, agents: agents, startingCapitalUsd: startingCapitalUsd, interval: interval}
}

func (r *Runner) Run(ctx context.Context) {
	r.tick(time.Now())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(time.Now())
		}
	}
}

func (r *Runner) tick(now time.Time) {
	for _, agentID := range r.agents {
		trades, err := r.store.LoadTrades(agentID, time.Time{})
		if err != nil {
			observ.LogError("adaptive_tuner_load_failed", err, map[string]any{"agent_id": string(agentID)})
			continue
		}
		cfg := Compute(agentID, trades, r.startingCapitalUsd, now)
		if err := r.store.SaveAdaptiveConfig(cfg); err != nil {
			observ.LogError("adaptive_tuner_save_failed", err, map[string]any{"agent_id": string(agentID)})
			continue
		}
		r.sink.SetAdaptiveConfig(cfg)
		observ.Log("adaptive_tuner_updated", map[string]any{
			"agent_id":        string(agentID),
			"risk_multiplier": cfg.RiskMultiplier,
		})
	}
}
