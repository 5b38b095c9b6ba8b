package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/synthetic-markets/agent-engine/internal/domain"
)

type Scheduling struct {
	Mode                    string `yaml:"mode"` // live | simulation
	Debug                   bool   `yaml:"debug"`
	IntervalMs              int    `yaml:"interval_ms"`
	AdaptiveTunerIntervalMs int    `yaml:"adaptive_tuner_interval_ms"`
	FrozenMarketBehavior    string `yaml:"frozen_market_behavior"` // hold | flat_close
}

type MarketSource struct {
	BaseURL          string `yaml:"base_url"`
	APIKeyEnv        string `yaml:"api_key_env"`
	APISecretEnv     string `yaml:"api_secret_env"`
	APIPassphraseEnv string `yaml:"api_passphrase_env"`
	PageSize         int    `yaml:"page_size"`
	MaxPages         int    `yaml:"max_pages"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
	CacheTTLSeconds  int    `yaml:"cache_ttl_seconds"`
}

type NewsProviderConfig struct {
	Name               string `yaml:"name"`
	APIKeyEnv          string `yaml:"api_key_env"`
	BaseURL            string `yaml:"base_url"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	Tier               string `yaml:"tier"` // TOP_TIER | MAJOR | LONG_TAIL
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
}

type LLMProviderConfig struct {
	AgentID        domain.AgentID `yaml:"agent_id"`
	BaseURL        string         `yaml:"base_url"`
	Model          string         `yaml:"model"`
	APIKeyEnv      string         `yaml:"api_key_env"`
	AuthHeader     string         `yaml:"auth_header"` // e.g. "Authorization" or "x-api-key"
	TimeoutSeconds int            `yaml:"timeout_seconds"`
}

type WebSearch struct {
	SerpAPIKeyEnv        string `yaml:"serpapi_key_env"`
	GoogleCSEKeyEnv      string `yaml:"google_cse_key_env"`
	GoogleCSEEngineIDEnv string `yaml:"google_cse_engine_id_env"`
	TimeoutSeconds       int    `yaml:"timeout_seconds"`
	MaxResults           int    `yaml:"max_results"`
	RateLimitPerMinute   int    `yaml:"rate_limit_per_minute"`
}

type CacheConfig struct {
	Backend                   string `yaml:"backend"` // memory | redis
	RedisAddr                 string `yaml:"redis_addr"`
	MarketTTLSeconds          int    `yaml:"market_ttl_seconds"`
	NewsTTLSeconds            int    `yaml:"news_ttl_seconds"`
	AIDecisionTTLSeconds      int    `yaml:"ai_decision_ttl_seconds"`
	AgentTradeSetTTLSeconds   int    `yaml:"agent_trade_set_ttl_seconds"`
}

type DrawdownCooldown struct {
	TriggerPct    float64 `yaml:"trigger_pct"`
	RecoverPct    float64 `yaml:"recover_pct"`
	DurationHours int     `yaml:"duration_hours"`
}

type Persistence struct {
	Backend string `yaml:"backend"` // memory | file
	DataDir string `yaml:"data_dir"`
}

// Alerting configures the three alert predicates spec.md §4.16 names:
// consecutive adapter failures, a sustained zero-candidate-markets
// cycle, and an agent at or above the drawdown stop threshold. The
// drawdown stop defaults to the same threshold that triggers cooldown.
type Alerting struct {
	ConsecutiveAdapterFailures int `yaml:"consecutive_adapter_failures"`
	ZeroCandidateMinutes       int `yaml:"zero_candidate_minutes"`
}

type HTTPAPI struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type AgentProfileConfig struct {
	AgentID         domain.AgentID    `yaml:"agent_id"`
	DisplayName     string            `yaml:"display_name"`
	Risk            domain.RiskLevel  `yaml:"risk"`
	MinVolumeUsd    float64           `yaml:"min_volume_usd"`
	MinLiquidityUsd float64           `yaml:"min_liquidity_usd"`
	MaxTrades       int               `yaml:"max_trades"`
	FocusCategories []domain.Category `yaml:"focus_categories"`
	Weights         domain.Weights    `yaml:"weights"`
	Enabled         *bool             `yaml:"enabled"`
}

type Root struct {
	Scheduling              Scheduling           `yaml:"scheduling"`
	MarketSource            MarketSource         `yaml:"market_source"`
	NewsProviders           []NewsProviderConfig `yaml:"news_providers"`
	LLMProviders            []LLMProviderConfig  `yaml:"llm_providers"`
	WebSearch               WebSearch            `yaml:"web_search"`
	Cache                   CacheConfig          `yaml:"cache"`
	Persistence             Persistence          `yaml:"persistence"`
	Agents                  []AgentProfileConfig `yaml:"agents"`
	StartingCapitalUsd      float64              `yaml:"starting_capital_usd"`
	FlipConfidenceThreshold float64              `yaml:"flip_confidence_threshold"`
	Drawdown                DrawdownCooldown     `yaml:"drawdown"`
	Alerting                Alerting             `yaml:"alerting"`
	HTTPAPI                 HTTPAPI              `yaml:"http_api"`
}

// Load reads a YAML config file and fills defaults for anything left
// zero, matching the reference engine's Load() idiom of filling
// per-field defaults after unmarshal rather than relying on zero
// values being acceptable.
func Load(path string) (Root, error) {
	var c Root
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	applyDefaults(&c)
	return c, nil
}

// LoadEnv loads a .env file into the process environment if present.
// It never overrides a variable already set by the shell, matching
// the reference engine's env-override-takes-priority convention in
// internal/adapters/factory.go (QUOTES env var beats config.Adapter).
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

func applyDefaults(c *Root) {
	if c.Scheduling.Mode == "" {
		c.Scheduling.Mode = "simulation"
	}
	if c.Scheduling.IntervalMs == 0 {
		c.Scheduling.IntervalMs = 60_000
	}
	if c.Scheduling.AdaptiveTunerIntervalMs == 0 {
		c.Scheduling.AdaptiveTunerIntervalMs = 24 * 60 * 60 * 1000
	}
	if c.Scheduling.FrozenMarketBehavior == "" {
		c.Scheduling.FrozenMarketBehavior = "hold"
	}

	if c.MarketSource.PageSize == 0 {
		c.MarketSource.PageSize = 1000
	}
	if c.MarketSource.MaxPages == 0 {
		c.MarketSource.MaxPages = 5
	}
	if c.MarketSource.TimeoutSeconds == 0 {
		c.MarketSource.TimeoutSeconds = 10
	}
	if c.MarketSource.CacheTTLSeconds == 0 {
		c.MarketSource.CacheTTLSeconds = 60
	}

	for i := range c.NewsProviders {
		if c.NewsProviders[i].TimeoutSeconds == 0 {
			c.NewsProviders[i].TimeoutSeconds = 10
		}
		if c.NewsProviders[i].Tier == "" {
			c.NewsProviders[i].Tier = "LONG_TAIL"
		}
		if c.NewsProviders[i].RateLimitPerMinute == 0 {
			c.NewsProviders[i].RateLimitPerMinute = 60
		}
	}

	for i := range c.LLMProviders {
		if c.LLMProviders[i].TimeoutSeconds == 0 {
			c.LLMProviders[i].TimeoutSeconds = 30
		}
		if c.LLMProviders[i].AuthHeader == "" {
			c.LLMProviders[i].AuthHeader = "Authorization"
		}
	}

	if c.WebSearch.TimeoutSeconds == 0 {
		c.WebSearch.TimeoutSeconds = 5
	}
	if c.WebSearch.MaxResults == 0 {
		c.WebSearch.MaxResults = 5
	}
	if c.WebSearch.RateLimitPerMinute == 0 {
		c.WebSearch.RateLimitPerMinute = 30
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.MarketTTLSeconds == 0 {
		c.Cache.MarketTTLSeconds = 60
	}
	if c.Cache.NewsTTLSeconds == 0 {
		c.Cache.NewsTTLSeconds = 300
	}
	if c.Cache.AIDecisionTTLSeconds == 0 {
		c.Cache.AIDecisionTTLSeconds = 300
	}
	if c.Cache.AgentTradeSetTTLSeconds == 0 {
		c.Cache.AgentTradeSetTTLSeconds = 30
	}

	if c.Persistence.Backend == "" {
		c.Persistence.Backend = "memory"
	}
	if c.Persistence.DataDir == "" {
		c.Persistence.DataDir = "data"
	}

	if c.StartingCapitalUsd == 0 {
		c.StartingCapitalUsd = 3000
	}
	if c.FlipConfidenceThreshold == 0 {
		c.FlipConfidenceThreshold = 0.60
	}
	if c.Drawdown.TriggerPct == 0 {
		c.Drawdown.TriggerPct = 0.40
	}
	if c.Drawdown.RecoverPct == 0 {
		c.Drawdown.RecoverPct = 0.30
	}
	if c.Drawdown.DurationHours == 0 {
		c.Drawdown.DurationHours = 24
	}

	if c.Alerting.ConsecutiveAdapterFailures == 0 {
		c.Alerting.ConsecutiveAdapterFailures = 3
	}
	if c.Alerting.ZeroCandidateMinutes == 0 {
		c.Alerting.ZeroCandidateMinutes = 30
	}

	if c.HTTPAPI.Host == "" {
		c.HTTPAPI.Host = "127.0.0.1"
	}
	if c.HTTPAPI.Port == 0 {
		c.HTTPAPI.Port = 8090
	}

	if len(c.Agents) == 0 {
		c.Agents = DefaultAgentProfiles()
	}
}

// DefaultAgentProfiles returns the closed set of 6 agent identities
// with default risk/weights, used when no override store configures
// them explicitly.
func DefaultAgentProfiles() []AgentProfileConfig {
	enabled := true
	return []AgentProfileConfig{
		{
			AgentID: domain.AgentGrok4, DisplayName: "Grok", Risk: domain.RiskHigh,
			MinVolumeUsd: 50_000, MinLiquidityUsd: 10_000, MaxTrades: 5,
			FocusCategories: []domain.Category{domain.CategoryCrypto, domain.CategoryTech},
			Weights: domain.Weights{Volume: 1.3, Liquidity: 1.0, PriceMovement: 1.4, News: 0.9, Probability: 1.0},
			Enabled: &enabled,
		},
		{
			AgentID: domain.AgentGPT5, DisplayName: "GPT-5", Risk: domain.RiskMedium,
			MinVolumeUsd: 30_000, MinLiquidityUsd: 8_000, MaxTrades: 6,
			FocusCategories: []domain.Category{},
			Weights: domain.Weights{Volume: 1.0, Liquidity: 1.0, PriceMovement: 1.0, News: 1.2, Probability: 1.1},
			Enabled: &enabled,
		},
		{
			AgentID: domain.AgentDeepSeekV3, DisplayName: "DeepSeek", Risk: domain.RiskMedium,
			MinVolumeUsd: 25_000, MinLiquidityUsd: 5_000, MaxTrades: 7,
			FocusCategories: []domain.Category{domain.CategoryEconomics, domain.CategoryPolitics},
			Weights: domain.Weights{Volume: 1.1, Liquidity: 0.9, PriceMovement: 1.0, News: 1.3, Probability: 0.9},
			Enabled: &enabled,
		},
		{
			AgentID: domain.AgentGemini25, DisplayName: "Gemini", Risk: domain.RiskLow,
			MinVolumeUsd: 60_000, MinLiquidityUsd: 15_000, MaxTrades: 4,
			FocusCategories: []domain.Category{domain.CategoryTech, domain.CategoryEconomics},
			Weights: domain.Weights{Volume: 1.0, Liquidity: 1.3, PriceMovement: 0.8, News: 1.0, Probability: 1.2},
			Enabled: &enabled,
		},
		{
			AgentID: domain.AgentClaude45, DisplayName: "Claude", Risk: domain.RiskLow,
			MinVolumeUsd: 40_000, MinLiquidityUsd: 12_000, MaxTrades: 4,
			FocusCategories: []domain.Category{},
			Weights: domain.Weights{Volume: 0.9, Liquidity: 1.2, PriceMovement: 0.9, News: 1.4, Probability: 1.0},
			Enabled: &enabled,
		},
		{
			AgentID: domain.AgentQwen25, DisplayName: "Qwen", Risk: domain.RiskHigh,
			MinVolumeUsd: 20_000, MinLiquidityUsd: 5_000, MaxTrades: 8,
			FocusCategories: []domain.Category{domain.CategorySports, domain.CategoryCrypto},
			Weights: domain.Weights{Volume: 1.2, Liquidity: 0.8, PriceMovement: 1.3, News: 0.8, Probability: 0.9},
			Enabled: &enabled,
		},
	}
}

// ToAgentProfile converts the config form to the domain form.
func (a AgentProfileConfig) ToAgentProfile() domain.AgentProfile {
	enabled := true
	if a.Enabled != nil {
		enabled = *a.Enabled
	}
	return domain.AgentProfile{
		AgentID:         a.AgentID,
		DisplayName:     a.DisplayName,
		Risk:            a.Risk,
		MinVolumeUsd:    a.MinVolumeUsd,
		MinLiquidityUsd: a.MinLiquidityUsd,
		MaxTrades:       a.MaxTrades,
		FocusCategories: a.FocusCategories,
		Weights:         a.Weights,
		Enabled:         enabled,
	}
}

// EnvPresent reports whether the named environment variable is set to
// a non-empty value, used throughout the adapters to decide whether a
// provider is "configured" per spec.md's ConfigurationAbsent taxonomy
// entry.
func EnvPresent(name string) bool {
	if name == "" {
		return false
	}
	return strings.TrimSpace(os.Getenv(name)) != ""
}

func EnvOrDefault(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func EnvIntOrDefault(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
