// Command engine runs the scheduler daemon: it loads configuration,
// wires every adapter and the read API, then runs scheduler cycles on
// a fixed interval until signaled to stop.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/synthetic-markets/agent-engine/internal/adaptive"
	"github.com/synthetic-markets/agent-engine/internal/adapters"
	"github.com/synthetic-markets/agent-engine/internal/cache"
	"github.com/synthetic-markets/agent-engine/internal/config"
	"github.com/synthetic-markets/agent-engine/internal/domain"
	"github.com/synthetic-markets/agent-engine/internal/httpapi"
	"github.com/synthetic-markets/agent-engine/internal/llm"
	"github.com/synthetic-markets/agent-engine/internal/news"
	"github.com/synthetic-markets/agent-engine/internal/observ"
	"github.com/synthetic-markets/agent-engine/internal/persistence"
	"github.com/synthetic-markets/agent-engine/internal/portfolio"
	"github.com/synthetic-markets/agent-engine/internal/scheduler"
	"github.com/synthetic-markets/agent-engine/internal/websearch"
)

var (
	cfgPath string
	envPath string
)

var rootCmd = &cobra.Command{
	Use:   "engine",
	Short: "Synthetic multi-agent prediction-market trading engine",
	Long: `engine runs the scheduler daemon: six LLM-backed agents evaluate
binary prediction markets on a fixed cadence, trade synthetic capital,
and expose their performance over a read-only HTTP API.`,
	RunE: runEngine,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config/config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", ".env", "env file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "engine: %v\n", err)
		os.Exit(1)
	}
}

func runEngine(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnv(envPath); err != nil {
		observ.Log("env_load_skipped", map[string]any{"path": envPath, "error": err.Error()})
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	agentCfgs := cfg.Agents
	if len(agentCfgs) == 0 {
		agentCfgs = config.DefaultAgentProfiles()
	}
	profiles := make([]domain.AgentProfile, 0, len(agentCfgs))
	agentIDs := make([]domain.AgentID, 0, len(agentCfgs))
	for _, a := range agentCfgs {
		profiles = append(profiles, a.ToAgentProfile())
		agentIDs = append(agentIDs, a.AgentID)
	}

	store, err := openStore(cfg.Persistence)
	if err != nil {
		return fmt.Errorf("open persistence: %w", err)
	}

	startingCapital := decimal.NewFromFloat(cfg.StartingCapitalUsd)
	portfolios := portfolio.NewManager(agentIDs, startingCapital)
	for _, id := range agentIDs {
		if p, ok, err := store.GetPortfolio(id); err == nil && ok {
			portfolios.Restore(&p)
		}
	}

	markets := adapters.NewMarketSourceFromConfig(cfg.MarketSource)
	newsAggregator := news.NewAggregator(
		news.ConfiguredProviders(cfg.NewsProviders),
		news.NewCache(time.Duration(cfg.Cache.NewsTTLSeconds)*time.Second),
		10*time.Second,
	)
	webSearch := websearch.NewAdapterFromConfig(cfg.WebSearch)
	registry := llm.NewRegistry(cfg.LLMProviders, llm.NewCacheFromConfig(cfg.Cache))
	tradeCache := cache.NewStoreFromConfig(cfg.Cache)

	alertMonitor := observ.NewAlertMonitor(
		cfg.Alerting.ConsecutiveAdapterFailures,
		time.Duration(cfg.Alerting.ZeroCandidateMinutes)*time.Minute,
		cfg.Drawdown.TriggerPct,
	)

	sched := scheduler.New(scheduler.Deps{
		Markets:    markets,
		News:       newsAggregator,
		WebSearch:  webSearch,
		LLM:        registry,
		Agents:     profiles,
		Portfolios: portfolios,
		Store:      store,
		TradeCache: tradeCache,
		Drawdown: scheduler.DrawdownConfig{
			TriggerPct:  cfg.Drawdown.TriggerPct,
			RecoverPct:  cfg.Drawdown.RecoverPct,
			CooldownFor: time.Duration(cfg.Drawdown.DurationHours) * time.Hour,
		},
		FlipThreshold:        cfg.FlipConfidenceThreshold,
		Interval:             time.Duration(cfg.Scheduling.IntervalMs) * time.Millisecond,
		Alerts:               alertMonitor,
		FrozenMarketBehavior: frozenMarketBehavior(cfg.Scheduling.FrozenMarketBehavior),
	})

	tuner := adaptive.NewRunner(
		store,
		sched,
		agentIDs,
		cfg.StartingCapitalUsd,
		time.Duration(cfg.Scheduling.AdaptiveTunerIntervalMs)*time.Millisecond,
	)

	server := httpapi.NewServer(
		httpapi.ServerConfig{
			Host:         cfg.HTTPAPI.Host,
			Port:         cfg.HTTPAPI.Port,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		profiles, store, portfolios, cfg.StartingCapitalUsd,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go tuner.Run(ctx)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			observ.LogError("http_server_exited", err, nil)
		}
	}()

	observ.Log("engine_starting", map[string]any{
		"agents":         len(profiles),
		"interval_ms":    cfg.Scheduling.IntervalMs,
		"http_addr":      fmt.Sprintf("%s:%d", cfg.HTTPAPI.Host, cfg.HTTPAPI.Port),
		"scheduler_mode": cfg.Scheduling.Mode,
	})

	sched.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		observ.LogError("http_server_shutdown_failed", err, nil)
	}
	observ.Log("engine_stopped", nil)
	return nil
}

func openStore(cfg config.Persistence) (persistence.Store, error) {
	if cfg.Backend == "file" {
		return persistence.NewFileStore(cfg.DataDir)
	}
	return persistence.NewMemoryStore(), nil
}

func frozenMarketBehavior(configured string) portfolio.FrozenMarketBehavior {
	if configured == string(portfolio.FrozenFlatClose) {
		return portfolio.FrozenFlatClose
	}
	return portfolio.FrozenHold
}
