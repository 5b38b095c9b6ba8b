// Package websearch implements the optional per-market contextual
// search adapter. Absence of credentials yields an empty result list;
// it never fails the caller.
package websearch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/synthetic-markets/agent-engine/internal/config"
	"github.com/synthetic-markets/agent-engine/internal/observ"
)

const maxSnippetLen = 150

type Result struct {
	Title   string
	Snippet string
	URL     string
	Source  string
}

// Searcher is the common contract for a search provider.
// SerpAPISearcher is the only implementation; there is no Google CSE
// searcher, and the Google CSE settings in config.WebSearch are unused.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// Adapter wraps at most one configured searcher. With no credentials
// configured it is still usable and always returns an empty slice.
type Adapter struct {
	searcher   Searcher
	maxResults int
	timeout    time.Duration
}

func NewAdapter(searcher Searcher, maxResults int, timeout time.Duration) *Adapter {
	if maxResults <= 0 {
		maxResults = 5
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{searcher: searcher, maxResults: maxResults, timeout: timeout}
}

func (a *Adapter) SearchWeb(ctx context.Context, query string) []Result {
	if a.searcher == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	results, err := a.searcher.Search(ctx, query)
	if err != nil {
		observ.LogWarn("websearch_failed", map[string]any{"error": err.Error()})
		return nil
	}
	if len(results) > a.maxResults {
		results = results[:a.maxResults]
	}
	for i := range results {
		if len(results[i].Snippet) > maxSnippetLen {
			results[i].Snippet = results[i].Snippet[:maxSnippetLen]
		}
	}
	return results
}

// SerpAPISearcher queries SerpAPI's search endpoint behind a rate
// limiter and circuit breaker, the same shape as
// adapters.LiveMarketAdapter and news.HTTPProvider, since this is the
// other outbound HTTP provider call the engine makes per cycle.
type SerpAPISearcher struct {
	client  *resty.Client
	apiKey  string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

func NewSerpAPISearcher(apiKey string, timeout time.Duration, rateLimitPerMinute int) *SerpAPISearcher {
	rps := float64(rateLimitPerMinute) / 60.0
	if rps <= 0 {
		rps = 1
	}
	return &SerpAPISearcher{
		client:  resty.New().SetTimeout(timeout).SetBaseURL("https://serpapi.com"),
		apiKey:  apiKey,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     "websearch-serpapi",
			Interval: 60 * time.Second,
			Timeout:  30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				observ.Log("circuit_breaker_state_change", map[string]any{
					"breaker": name, "from": from.String(), "to": to.String(),
				})
			},
		}),
	}
}

type serpAPIResponse struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
		Source  string `json:"source"`
	} `json:"organic_results"`
}

func (s *SerpAPISearcher) Search(ctx context.Context, query string) ([]Result, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		var body serpAPIResponse
		resp, err := s.client.R().
			SetContext(ctx).
			SetQueryParam("q", query).
			SetQueryParam("api_key", s.apiKey).
			SetResult(&body).
			Get("/search")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("serpapi returned status %d", resp.StatusCode())
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}

	body := result.(serpAPIResponse)
	out := make([]Result, 0, len(body.OrganicResults))
	for _, r := range body.OrganicResults {
		out = append(out, Result{Title: r.Title, Snippet: r.Snippet, URL: r.Link, Source: r.Source})
	}
	return out, nil
}

// NewAdapterFromConfig installs a SerpAPI searcher when its key is
// present, or no searcher at all (the adapter is still safe to call).
func NewAdapterFromConfig(cfg config.WebSearch) *Adapter {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if config.EnvPresent(cfg.SerpAPIKeyEnv) {
		searcher := NewSerpAPISearcher(config.EnvOrDefault(cfg.SerpAPIKeyEnv, ""), timeout, cfg.RateLimitPerMinute)
		return NewAdapter(searcher, cfg.MaxResults, timeout)
	}
	return NewAdapter(nil, cfg.MaxResults, timeout)
}
