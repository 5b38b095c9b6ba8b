// Command replay deterministically reprocesses a persisted trade
// history and prints one JSON line per trade plus a leaderboard
// summary, the same shape the reference engine's replay tool used to
// re-run fixture-based decisions offline.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/synthetic-markets/agent-engine/internal/config"
	"github.com/synthetic-markets/agent-engine/internal/domain"
	"github.com/synthetic-markets/agent-engine/internal/leaderboard"
	"github.com/synthetic-markets/agent-engine/internal/persistence"
)

var (
	dataDir      string
	agentFilter  string
	sinceStr     string
	startCapital float64
)

var rootCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a persisted trade history and print a leaderboard",
	RunE:  runReplay,
}

func init() {
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "data", "persistence data directory to replay from")
	rootCmd.Flags().StringVar(&agentFilter, "agent", "", "internal agent id to limit replay to (default: every agent in the built-in default profiles)")
	rootCmd.Flags().StringVar(&sinceStr, "since", "", "RFC3339 timestamp; trades opened before this are skipped")
	rootCmd.Flags().Float64Var(&startCapital, "starting-capital-usd", 10_000, "starting capital used to compute pnl percentages")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(1)
	}
}

type tradeLine struct {
	AgentID  domain.AgentID `json:"agentId"`
	TradeID  string         `json:"tradeId"`
	MarketID string         `json:"marketId"`
	Status   string         `json:"status"`
	PnlUsd   *float64       `json:"pnlUsd,omitempty"`
	OpenedAt string         `json:"openedAt"`
}

func runReplay(cmd *cobra.Command, args []string) error {
	store, err := persistence.NewFileStore(dataDir)
	if err != nil {
		return fmt.Errorf("open persistence at %s: %w", dataDir, err)
	}

	since := time.Time{}
	if sinceStr != "" {
		t, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			return fmt.Errorf("parse --since: %w", err)
		}
		since = t
	}

	agentIDs := agentsToReplay()
	now := time.Now()

	for _, agentID := range agentIDs {
		trades, err := store.LoadTrades(agentID, since)
		if err != nil {
			return fmt.Errorf("load trades for %s: %w", agentID, err)
		}
		for _, t := range trades {
			line := tradeLine{
				AgentID:  agentID,
				TradeID:  t.TradeID,
				MarketID: t.MarketID,
				Status:   string(t.Status),
				OpenedAt: t.OpenedAt.Format(time.RFC3339),
			}
			if t.PnlUsd != nil {
				f, _ := t.PnlUsd.Float64()
				line.PnlUsd = &f
			}
			b, err := json.Marshal(line)
			if err != nil {
				return fmt.Errorf("marshal trade %s: %w", t.TradeID, err)
			}
			fmt.Println(string(b))
		}

		snap, ok, err := store.GetPortfolio(agentID)
		if err != nil {
			return fmt.Errorf("load portfolio for %s: %w", agentID, err)
		}
		if !ok {
			snap = domain.AgentPortfolio{AgentID: agentID, StartingCapitalUsd: decimal.NewFromFloat(startCapital)}
		}
		metrics := leaderboard.ComputeMetrics(agentID, trades, snap, leaderboard.WindowAllTime, now)
		summary, _ := json.Marshal(metrics)
		fmt.Println(string(summary))
	}

	return nil
}

func agentsToReplay() []domain.AgentID {
	if agentFilter != "" {
		return []domain.AgentID{domain.AgentID(agentFilter)}
	}
	ids := make([]domain.AgentID, 0, len(config.DefaultAgentProfiles()))
	for _, a := range config.DefaultAgentProfiles() {
		ids = append(ids, a.AgentID)
	}
	return ids
}
