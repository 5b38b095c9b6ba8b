package observ

import (
	"strconv"
	"sync"
	"time"
)

// Alert is one fired predicate, ready to log or ship to a notification
// sink. Alert carries no severity; nothing in this package pages
// anyone directly.
type Alert struct {
	Name    string
	Message string
	FiredAt time.Time
	Fields  map[string]any
}

// AlertMonitor tracks the small amount of cross-cycle state the three
// alert predicates in spec.md §4.16 need: a running consecutive-
// failure count per adapter, how long every agent has reported zero
// candidate markets, and which agents are currently at or above the
// drawdown stop threshold. It holds no opinion on delivery; each Record
// method returns the fired *Alert (or nil) for the caller to forward
// however it likes.
type AlertMonitor struct {
	mu sync.Mutex

	failureThreshold int
	zeroCandidateFor time.Duration
	drawdownStopPct  float64

	consecutiveFailures map[string]int
	failureAlerted      map[string]bool

	zeroCandidateSince time.Time
	zeroCandidateFired bool

	drawdownAlerted map[string]bool
}

func NewAlertMonitor(failureThreshold int, zeroCandidateFor time.Duration, drawdownStopPct float64) *AlertMonitor {
	return &AlertMonitor{
		failureThreshold:    failureThreshold,
		zeroCandidateFor:    zeroCandidateFor,
		drawdownStopPct:     drawdownStopPct,
		consecutiveFailures: make(map[string]int),
		failureAlerted:      make(map[string]bool),
		drawdownAlerted:     make(map[string]bool),
	}
}

// RecordAdapterResult feeds one adapter call's outcome; a run of
// failureThreshold or more consecutive failures for the same adapter
// name fires an alert exactly once, and resets once the streak breaks.
func (m *AlertMonitor) RecordAdapterResult(adapter string, failed bool, now time.Time) *Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !failed {
		m.consecutiveFailures[adapter] = 0
		m.failureAlerted[adapter] = false
		return nil
	}

	m.consecutiveFailures[adapter]++
	if m.consecutiveFailures[adapter] >= m.failureThreshold && !m.failureAlerted[adapter] {
		m.failureAlerted[adapter] = true
		return &Alert{
			Name:    "consecutive_adapter_failures",
			Message: "adapter has failed " + strconv.Itoa(m.consecutiveFailures[adapter]) + " cycles in a row",
			FiredAt: now,
			Fields: map[string]any{
				"adapter":              adapter,
				"consecutive_failures": m.consecutiveFailures[adapter],
			},
		}
	}
	return nil
}

// RecordCandidateMarkets feeds the per-cycle total candidateMarkets
// across every agent; a sustained zero for longer than zeroCandidateFor
// fires once per streak.
func (m *AlertMonitor) RecordCandidateMarkets(totalCandidates int, now time.Time) *Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	if totalCandidates > 0 {
		m.zeroCandidateSince = time.Time{}
		m.zeroCandidateFired = false
		return nil
	}

	if m.zeroCandidateSince.IsZero() {
		m.zeroCandidateSince = now
	}
	if !m.zeroCandidateFired && now.Sub(m.zeroCandidateSince) > m.zeroCandidateFor {
		m.zeroCandidateFired = true
		return &Alert{
			Name:    "zero_candidate_markets",
			Message: "no agent has found a candidate market for longer than the alert window",
			FiredAt: now,
			Fields: map[string]any{
				"since": m.zeroCandidateSince,
			},
		}
	}
	return nil
}

// RecordDrawdown feeds one agent's current maxDrawdownPct; fires once
// when it crosses the stop threshold and resets once it recovers
// below it, so a sustained breach does not re-alert every cycle.
func (m *AlertMonitor) RecordDrawdown(agentID string, drawdownPct float64, now time.Time) *Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	if drawdownPct < m.drawdownStopPct {
		m.drawdownAlerted[agentID] = false
		return nil
	}

	if m.drawdownAlerted[agentID] {
		return nil
	}
	m.drawdownAlerted[agentID] = true
	return &Alert{
		Name:    "drawdown_stop",
		Message: "agent is at or above the max-drawdown stop threshold",
		FiredAt: now,
		Fields: map[string]any{
			"agent_id":     agentID,
			"drawdown_pct": drawdownPct,
		},
	}
}
