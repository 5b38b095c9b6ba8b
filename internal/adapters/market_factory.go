package adapters

import (
	"time"

	"github.com/synthetic-markets/agent-engine/internal/config"
	"github.com/synthetic-markets/agent-engine/internal/observ"
)

// NewMarketSourceFromConfig selects mock vs live the same way the
// reference engine's QuotesAdapterFactory does: fall back to mock with
// a ConfigurationAbsent-flavored log line when the credential is
// missing, rather than failing startup.
func NewMarketSourceFromConfig(cfg config.MarketSource) *MarketSource {
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cache := NewMarketCache(ttl)

	apiKey := config.EnvOrDefault(cfg.APIKeyEnv, "")
	if apiKey == "" {
		observ.Log("market_adapter_fallback", map[string]any{
			"requested_adapter": "live",
			"fallback_to":       "mock",
			"reason":            "missing API key",
			"api_key_env":       cfg.APIKeyEnv,
		})
		return NewMarketSource(NewMockMarketAdapter(), cache, cfg.MaxPages, cfg.PageSize)
	}

	adapter := NewLiveMarketAdapter(LiveMarketConfig{
		BaseURL:            cfg.BaseURL,
		APIKey:             apiKey,
		RateLimitPerMinute: 60,
		TimeoutSeconds:     cfg.TimeoutSeconds,
	})
	return NewMarketSource(adapter, cache, cfg.MaxPages, cfg.PageSize)
}
