package news

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/synthetic-markets/agent-engine/internal/config"
	"github.com/synthetic-markets/agent-engine/internal/domain"
	"github.com/synthetic-markets/agent-engine/internal/observ"
)

// HTTPProvider is a generic JSON news provider: per-provider mapping
// fields are adapter-local (the raw response shape), outputs conform
// to the unified domain.NewsArticle per spec.md §4.3. Every call passes
// through a per-provider rate limiter and circuit breaker, the same
// shape as adapters.LiveMarketAdapter, so one degrading vendor trips
// open instead of slowing down every other provider's fan-out.
type HTTPProvider struct {
	name    string
	client  *resty.Client
	apiKey  string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

func NewHTTPProvider(cfg config.NewsProviderConfig, apiKey string) *HTTPProvider {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := float64(cfg.RateLimitPerMinute) / 60.0
	if rps <= 0 {
		rps = 1
	}
	return &HTTPProvider{
		name:    cfg.Name,
		client:  resty.New().SetTimeout(timeout).SetBaseURL(cfg.BaseURL),
		apiKey:  apiKey,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     "news-" + cfg.Name,
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

func (p *HTTPProvider) Name() string { return p.name }

type articlesResponse struct {
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Source      string `json:"source"`
		URL         string `json:"url"`
		PublishedAt string `json:"published_at"`
	} `json:"articles"`
}

func (p *HTTPProvider) FetchLatest(ctx context.Context) ([]domain.NewsArticle, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := p.breaker.Execute(func() (interface{}, error) {
		var body articlesResponse
		resp, err := p.client.R().
			SetContext(ctx).
			SetHeader("Authorization", "Bearer "+p.apiKey).
			SetResult(&body).
			Get("/articles")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("%s returned status %d", p.name, resp.StatusCode())
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}

	body := result.(articlesResponse)
	out := make([]domain.NewsArticle, 0, len(body.Articles))
	for _, a := range body.Articles {
		publishedAt, err := time.Parse(time.RFC3339, a.PublishedAt)
		if err != nil {
			publishedAt = time.Now()
		}
		out = append(out, domain.NewsArticle{
			ArticleID:   p.name + ":" + a.URL,
			Title:       a.Title,
			Description: a.Description,
			Source:      a.Source,
			SourceAPI:   p.name,
			PublishedAt: publishedAt,
			URL:         a.URL,
		})
	}
	return out, nil
}

// ConfiguredProviders builds one HTTPProvider per entry whose API key
// env var is present, matching spec.md §6: "presence enables that
// provider". Absent providers are silently skipped, not errored.
func ConfiguredProviders(cfgs []config.NewsProviderConfig) []Provider {
	var providers []Provider
	for _, cfg := range cfgs {
		apiKey := config.EnvOrDefault(cfg.APIKeyEnv, "")
		if !config.EnvPresent(cfg.APIKeyEnv) {
			continue
		}
		providers = append(providers, NewHTTPProvider(cfg, apiKey))
	}
	return providers
}
