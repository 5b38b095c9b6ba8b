// Package scheduler drives one cycle of the engine: fetch shared
// markets/news snapshots, then fan out per agent to score candidates,
// run the decision pipeline, evaluate exits, and persist the result.
// The ticking shape is grounded on the reference engine's
// monitoringLoop in internal/risk/manager.go.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/synthetic-markets/agent-engine/internal/adapters"
	"github.com/synthetic-markets/agent-engine/internal/cache"
	"github.com/synthetic-markets/agent-engine/internal/decision"
	"github.com/synthetic-markets/agent-engine/internal/determinism"
	"github.com/synthetic-markets/agent-engine/internal/domain"
	"github.com/synthetic-markets/agent-engine/internal/fallback"
	"github.com/synthetic-markets/agent-engine/internal/llm"
	"github.com/synthetic-markets/agent-engine/internal/news"
	"github.com/synthetic-markets/agent-engine/internal/observ"
	"github.com/synthetic-markets/agent-engine/internal/persistence"
	"github.com/synthetic-markets/agent-engine/internal/personality"
	"github.com/synthetic-markets/agent-engine/internal/portfolio"
	"github.com/synthetic-markets/agent-engine/internal/scoring"
	"github.com/synthetic-markets/agent-engine/internal/websearch"
)

// candidatesPerAgent bounds how many scored markets run through the
// expensive web-search/LLM pipeline in one cycle; an implementation
// choice since spec.md leaves the exact pool size unspecified.
const candidatesPerAgent = 12

// DrawdownConfig carries the cooldown trigger/recover thresholds and
// the cooldown duration once entered.
type DrawdownConfig struct {
	TriggerPct    float64
	RecoverPct    float64
	CooldownFor   time.Duration
}

// CycleRecord is the structured per-agent record spec.md §4.16 names.
type CycleRecord struct {
	AgentID          domain.AgentID
	CandidateMarkets int
	NewTrades        int
	ClosedTrades     int
	OpenPositions    int
	CycleMs          int64
	Error            error
}

// Scheduler owns every long-lived dependency a cycle touches. It holds
// no business logic of its own beyond orchestration and persistence
// glue; scoring/decision/portfolio packages own the actual rules.
type Scheduler struct {
	markets   *adapters.MarketSource
	news      *news.Aggregator
	websearch *websearch.Adapter
	llm       *llm.Registry

	agents     []domain.AgentProfile
	portfolios *portfolio.Manager
	store      persistence.Store
	tradeCache cache.Store

	drawdown      DrawdownConfig
	flipThreshold float64
	interval      time.Duration
	frozenBehavior portfolio.FrozenMarketBehavior

	adaptiveMu sync.RWMutex
	adaptive   map[domain.AgentID]domain.AdaptiveConfig

	alerts *observ.AlertMonitor

	running sync.Mutex
	onCycle func([]CycleRecord)
}

type Deps struct {
	Markets       *adapters.MarketSource
	News          *news.Aggregator
	WebSearch     *websearch.Adapter
	LLM           *llm.Registry
	Agents        []domain.AgentProfile
	Portfolios    *portfolio.Manager
	Store         persistence.Store
	TradeCache    cache.Store
	Drawdown      DrawdownConfig
	FlipThreshold float64
	Interval      time.Duration
	FrozenMarketBehavior portfolio.FrozenMarketBehavior
	Alerts        *observ.AlertMonitor
	OnCycle       func([]CycleRecord)
}

func New(d Deps) *Scheduler {
	alerts := d.Alerts
	if alerts == nil {
		alerts = observ.NewAlertMonitor(3, 30*time.Minute, d.Drawdown.TriggerPct)
	}
	s := &Scheduler{
		markets:       d.Markets,
		news:          d.News,
		websearch:     d.WebSearch,
		llm:           d.LLM,
		agents:        d.Agents,
		portfolios:    d.Portfolios,
		store:         d.Store,
		tradeCache:    d.TradeCache,
		drawdown:      d.Drawdown,
		flipThreshold: d.FlipThreshold,
		frozenBehavior: d.FrozenMarketBehavior,
		interval:      d.Interval,
		adaptive:      make(map[domain.AgentID]domain.AdaptiveConfig),
		alerts:        alerts,
		onCycle:       d.OnCycle,
	}
	for _, a := range d.Agents {
		if c, ok, err := d.Store.GetAdaptiveConfig(a.AgentID); err == nil && ok {
			s.adaptive[a.AgentID] = c
		}
	}
	return s
}

// SetAdaptiveConfig installs a freshly tuned config for one agent,
// called by the adaptive tuner after its daily recompute.
func (s *Scheduler) SetAdaptiveConfig(c domain.AdaptiveConfig) {
	s.adaptiveMu.Lock()
	defer s.adaptiveMu.Unlock()
	s.adaptive[c.AgentID] = c
}

func (s *Scheduler) adaptiveFor(agentID domain.AgentID) *domain.AdaptiveConfig {
	s.adaptiveMu.RLock()
	defer s.adaptiveMu.RUnlock()
	if c, ok := s.adaptive[agentID]; ok {
		return &c
	}
	return nil
}

// Run blocks, running one cycle immediately and then every interval
// until ctx is cancelled, matching the reference engine's
// ticker-plus-ctx.Done() monitoringLoop shape.
func (s *Scheduler) Run(ctx context.Context) {
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs at most one cycle at a time; an overlapping tick is
// dropped, not queued, per spec.md §4.12.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.running.TryLock() {
		observ.LogWarn("cycle_dropped_overlap", nil)
		return
	}
	defer s.running.Unlock()
	s.runCycle(ctx)
}

func (s *Scheduler) runCycle(ctx context.Context) {
	start := time.Now()

	var markets []domain.Market
	var articles []domain.NewsArticle
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		markets = s.markets.FetchAllMarkets(ctx)
	}()
	go func() {
		defer wg.Done()
		articles = s.news.FetchLatestNews(ctx)
	}()
	wg.Wait()

	s.fireAlert(s.alerts.RecordAdapterResult("markets", len(markets) == 0, start))
	s.fireAlert(s.alerts.RecordAdapterResult("news", len(articles) == 0, start))

	marketByID := make(map[string]domain.Market, len(markets))
	for _, m := range markets {
		marketByID[m.MarketID] = m
	}

	records := make([]CycleRecord, len(s.agents))
	var agentWg sync.WaitGroup
	agentWg.Add(len(s.agents))
	for i, agent := range s.agents {
		i, agent := i, agent
		go func() {
			defer agentWg.Done()
			records[i] = s.processAgent(ctx, agent, markets, marketByID, articles, start)
		}()
	}
	agentWg.Wait()

	totalCandidates := 0
	for _, r := range records {
		totalCandidates += r.CandidateMarkets
	}
	s.fireAlert(s.alerts.RecordCandidateMarkets(totalCandidates, start))

	for _, r := range records {
		if snap, ok := s.portfolios.Snapshot(r.AgentID); ok {
			s.fireAlert(s.alerts.RecordDrawdown(string(r.AgentID), snap.MaxDrawdownPct(), start))
		}
	}

	for _, r := range records {
		fields := map[string]any{
			"agent_id":          string(r.AgentID),
			"candidate_markets": r.CandidateMarkets,
			"new_trades":        r.NewTrades,
			"closed_trades":     r.ClosedTrades,
			"open_positions":    r.OpenPositions,
			"cycle_ms":          r.CycleMs,
		}
		if r.Error != nil {
			observ.LogError("cycle_record", r.Error, fields)
		} else {
			observ.Log("cycle_record", fields)
		}
		observ.RecordDuration("cycle_duration_ms", time.Duration(r.CycleMs)*time.Millisecond, map[string]string{"agent_id": string(r.AgentID)})
		observ.SetGauge("open_positions", float64(r.OpenPositions), map[string]string{"agent_id": string(r.AgentID)})
	}

	if s.onCycle != nil {
		s.onCycle(records)
	}
}

// fireAlert logs a fired alert predicate; nil means the predicate
// didn't trip this cycle.
func (s *Scheduler) fireAlert(a *observ.Alert) {
	if a == nil {
		return
	}
	fields := map[string]any{"alert": a.Name}
	for k, v := range a.Fields {
		fields[k] = v
	}
	observ.LogWarn("alert_fired", fields)
}

func (s *Scheduler) processAgent(ctx context.Context, agent domain.AgentProfile, markets []domain.Market, marketByID map[string]domain.Market, articles []domain.NewsArticle, now time.Time) CycleRecord {
	rec := CycleRecord{AgentID: agent.AgentID}
	defer func() { rec.CycleMs = time.Since(now).Milliseconds() }()

	if !agent.Enabled {
		return rec
	}

	snap, ok := s.portfolios.Snapshot(agent.AgentID)
	if !ok {
		return rec
	}
	adaptive := s.adaptiveFor(agent.AgentID)

	enter, clear := decision.ShouldCooldown(&snap, now, s.drawdown.TriggerPct, s.drawdown.RecoverPct)
	if enter {
		s.portfolios.EnterCooldown(agent.AgentID, now, s.drawdown.CooldownFor)
	}
	if clear {
		s.portfolios.ClearCooldown(agent.AgentID)
	}
	inCooldown := snap.InCooldown(now) || enter

	unrealized := decimal.Zero
	for marketID, pos := range snap.OpenPositions {
		market, have := marketByID[marketID]
		if !have {
			// No fresh data for this market this cycle: treat its
			// probability as unchanged rather than risking a bogus exit.
			unrealized = unrealized.Add(portfolio.UnrealizedPnl(pos, pos.EntryProbability))
			continue
		}
		scored := scoring.Score(market, scoring.MatchingArticles(market, articles, 5), agent, adaptive, now)
		check := portfolio.EvaluateExit(pos, market, scored.Score, now, s.frozenBehavior)
		if !check.ShouldExit {
			unrealized = unrealized.Add(portfolio.UnrealizedPnl(pos, market.CurrentProbability))
			continue
		}
		s.closePosition(agent.AgentID, marketID, pos, check, now, &rec)
	}
	s.portfolios.SetUnrealizedPnl(agent.AgentID, unrealized, now)

	if inCooldown {
		snap, _ = s.portfolios.Snapshot(agent.AgentID)
		rec.OpenPositions = len(snap.OpenPositions)
		return rec
	}

	candidateMarkets := scoring.FilterCandidates(markets, agent)
	scoredList := make([]domain.ScoredMarket, 0, len(candidateMarkets))
	for _, m := range candidateMarkets {
		scoredList = append(scoredList, scoring.Score(m, scoring.MatchingArticles(m, articles, 5), agent, adaptive, now))
	}
	sortByScoreDesc(scoredList)
	if len(scoredList) > candidatesPerAgent {
		scoredList = scoredList[:candidatesPerAgent]
	}
	rec.CandidateMarkets = len(scoredList)

	snap, _ = s.portfolios.Snapshot(agent.AgentID)
	working := snap
	working.OpenPositions = make(map[string]*domain.Position, len(snap.OpenPositions))
	for k, v := range snap.OpenPositions {
		p := *v
		working.OpenPositions[k] = &p
	}

	type evaluated struct {
		market   domain.ScoredMarket
		decision personality.Result
	}
	evaluatedByMarket := make(map[string]evaluated, len(scoredList))

	var candidates []decision.Scored
	for _, sm := range scoredList {
		if ctx.Err() != nil {
			break
		}
		dec := s.decideFor(ctx, agent, sm, articles)
		personalityResult := personality.Apply(personality.Context{
			Market:     sm.Market,
			Components: sm.Components,
			Agent:      agent,
			Decision:   dec,
			NewsCount:  len(scoring.MatchingArticles(sm.Market, articles, 5)),
		}, personality.Rules)
		evaluatedByMarket[sm.MarketID] = evaluated{market: sm, decision: personalityResult}

		if existing, open := working.OpenPositions[sm.MarketID]; open {
			if !portfolio.ShouldFlip(existing, personalityResult.Decision.Side, personalityResult.Decision.Confidence, s.flipThreshold) {
				continue
			}
			check := portfolio.ExitCheck{ShouldExit: true, Reason: domain.ExitFlip, ExitProbability: sm.CurrentProbability}
			s.closePosition(agent.AgentID, sm.MarketID, existing, check, now, &rec)
			delete(working.OpenPositions, sm.MarketID)
		}

		trade := decision.Size(decision.SizingInput{
			Agent:                     agent,
			MarketID:                  sm.MarketID,
			Category:                  sm.Category,
			Decision:                  personalityResult.Decision,
			PersonalitySizeMultiplier: personalityResult.SizeMultiplier,
			Portfolio:                 &working,
			Adaptive:                  adaptive,
			Now:                       now,
		})
		candidates = append(candidates, decision.Scored{Trade: trade, Score: sm.Score})

		if trade.Intent == "OPEN" {
			working.OpenPositions[sm.MarketID] = &domain.Position{
				MarketID: sm.MarketID, Side: personalityResult.Decision.Side, SizeUsd: trade.SizeUsd,
				EntryProbability: sm.CurrentProbability, EntryScore: sm.Score, OpenedAt: now, Category: sm.Category,
			}
		}
	}

	final := decision.SelectTop(candidates, len(snap.OpenPositions), agent.MaxTrades)
	for _, t := range final {
		if t.Intent != "OPEN" {
			continue
		}
		ev, ok := evaluatedByMarket[t.MarketID]
		if !ok {
			continue
		}
		openSeed := determinism.Seed(string(agent.AgentID), t.MarketID, now.Format(time.RFC3339Nano))
		trade := domain.Trade{
			TradeID:          determinism.TradeID(openSeed),
			AgentID:          agent.AgentID,
			MarketID:         t.MarketID,
			Category:         ev.market.Category,
			Side:             ev.decision.Decision.Side,
			SizeUsd:          t.SizeUsd,
			EntryProbability: ev.market.CurrentProbability,
			EntryScore:       ev.market.Score,
			Confidence:       ev.decision.Decision.Confidence,
			Status:           domain.TradeOpen,
			OpenedAt:         now,
			Reasoning:        ev.decision.Decision.Reasoning,
			Seed:             determinism.Seed(string(agent.AgentID), t.MarketID),
		}
		s.portfolios.Open(agent.AgentID, trade, ev.market.Category, now)
		_ = s.store.SaveTrade(trade)
		s.tradeCache.Invalidate(agent.AgentID)
		rec.NewTrades++
	}

	finalSnap, _ := s.portfolios.Snapshot(agent.AgentID)
	rec.OpenPositions = len(finalSnap.OpenPositions)
	_ = s.store.SavePortfolio(finalSnap)

	allTrades, _ := s.store.LoadTrades(agent.AgentID, time.Time{})
	ids := make([]string, 0, len(markets))
	for _, m := range markets {
		ids = append(ids, m.MarketID)
	}
	s.tradeCache.Set(agent.AgentID, allTrades, ids, now)

	return rec
}

func (s *Scheduler) decideFor(ctx context.Context, agent domain.AgentProfile, sm domain.ScoredMarket, articles []domain.NewsArticle) domain.AITradeDecision {
	newsContext := scoring.MatchingArticles(sm.Market, articles, 5)
	webSnippets := s.websearch.SearchWeb(ctx, sm.Question)
	dec := s.llm.Decide(ctx, agent.AgentID, sm, newsContext, webSnippets)
	if dec.Unavailable {
		seed := determinism.Seed(string(agent.AgentID), sm.MarketID)
		return fallback.Decide(sm, agent, seed)
	}
	return dec
}

func sortByScoreDesc(list []domain.ScoredMarket) {
	for i := 1; i < len(list); i++ {
		for j := i; j > 0 && list[j].Score > list[j-1].Score; j-- {
			list[j], list[j-1] = list[j-1], list[j]
		}
	}
}

// closePosition applies an exit, persists the resulting CLOSED trade,
// and invalidates the agent's trade cache. Shared by the resolution
// exit pass and the in-cycle flip pass so both record PnL identically.
func (s *Scheduler) closePosition(agentID domain.AgentID, marketID string, pos *domain.Position, check portfolio.ExitCheck, now time.Time, rec *CycleRecord) {
	pnl := portfolio.ExitPnl(pos, check)
	s.portfolios.Close(agentID, marketID, pnl, now)
	s.tradeCache.Invalidate(agentID)
	rec.ClosedTrades++

	closedAt := now
	reason := check.Reason
	_ = s.store.SaveTrade(domain.Trade{
		TradeID:          pos.TradeID,
		AgentID:          agentID,
		MarketID:         marketID,
		Category:         pos.Category,
		Side:             pos.Side,
		SizeUsd:          pos.SizeUsd,
		EntryProbability: pos.EntryProbability,
		EntryScore:       pos.EntryScore,
		Status:           domain.TradeClosed,
		PnlUsd:           &pnl,
		OpenedAt:         pos.OpenedAt,
		ClosedAt:         &closedAt,
		ExitReason:       &reason,
	})
}
