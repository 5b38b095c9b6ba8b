package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/synthetic-markets/agent-engine/internal/observ"
)

// LiveMarketConfig configures the HTTP-backed market source, grounded
// on the reference engine's AlphaVantageConfig rate/timeout knobs,
// generalized from a quotes vendor to a binary-market vendor.
type LiveMarketConfig struct {
	BaseURL            string
	APIKey             string
	RateLimitPerMinute int
	TimeoutSeconds     int
}

// LiveMarketAdapter fetches pages of binary markets from an HTTP API.
// Every call passes through a rate limiter and a circuit breaker so a
// degrading upstream trips open instead of being hammered, the
// generalized form of the reference engine's hand-rolled HealthMonitor
// consecutive-error counter.
type LiveMarketAdapter struct {
	client  *resty.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	baseURL string
	apiKey  string
}

func NewLiveMarketAdapter(cfg LiveMarketConfig) *LiveMarketAdapter {
	rps := float64(cfg.RateLimitPerMinute) / 60.0
	if rps <= 0 {
		rps = 1
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().SetTimeout(timeout).SetBaseURL(cfg.BaseURL)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "market-source",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observ.Log("circuit_breaker_state_change", map[string]any{
				"breaker": name, "from": from.String(), "to": to.String(),
			})
		},
	})

	return &LiveMarketAdapter{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		breaker: breaker,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

func (a *LiveMarketAdapter) Name() string { return "live" }

type marketsPageResponse struct {
	Markets []struct {
		ID                 string `json:"id"`
		Question           string `json:"question"`
		Category           string `json:"category"`
		VolumeUsd          string `json:"volume_usd"`
		LiquidityUsd       string `json:"liquidity_usd"`
		CurrentProbability string `json:"current_probability"`
		PriceChange24h     string `json:"price_change_24h"`
		Status             string `json:"status"`
		ResolvedOutcome    string `json:"resolved_outcome"`
	} `json:"markets"`
}

func (a *LiveMarketAdapter) FetchPage(ctx context.Context, page, pageSize int) ([]RawMarket, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := a.breaker.Execute(func() (interface{}, error) {
		var body marketsPageResponse
		resp, err := a.client.R().
			SetContext(ctx).
			SetQueryParam("page", fmt.Sprintf("%d", page)).
			SetQueryParam("limit", fmt.Sprintf("%d", pageSize)).
			SetHeader("Authorization", "Bearer "+a.apiKey).
			SetResult(&body).
			Get("/markets")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("market source returned status %d", resp.StatusCode())
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}

	body := result.(marketsPageResponse)
	raws := make([]RawMarket, 0, len(body.Markets))
	for _, m := range body.Markets {
		raws = append(raws, RawMarket{
			MarketID: m.ID, Question: m.Question, Category: m.Category,
			VolumeUsd: m.VolumeUsd, LiquidityUsd: m.LiquidityUsd,
			CurrentProbability: m.CurrentProbability, PriceChange24h: m.PriceChange24h,
			Status: m.Status, ResolvedOutcome: m.ResolvedOutcome,
		})
	}
	return raws, nil
}
