// Package scoring implements the pure scoring functions that turn a
// Market plus the current news set and an agent's profile into a
// ScoredMarket, per spec.md §4.5.
package scoring

import (
	"strings"
	"time"

	"github.com/synthetic-markets/agent-engine/internal/domain"
)

const (
	maxVolumeScore        = 30.0
	maxLiquidityScore     = 20.0
	maxPriceMovementScore = 15.0
	maxNewsScore          = 25.0
	maxProbScore          = 10.0
)

func clampUnit(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func volumeScore(m domain.Market) float64 {
	return clampUnit(m.VolumeUsd/100000) * maxVolumeScore
}

func liquidityScore(m domain.Market) float64 {
	return clampUnit(m.LiquidityUsd/50000) * maxLiquidityScore
}

func priceMovementScore(m domain.Market) float64 {
	return clampUnit(absf(m.PriceChange24h)*10) * maxPriceMovementScore
}

func probScore(m domain.Market) float64 {
	return (1 - 2*absf(m.CurrentProbability-0.5)) * maxProbScore
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// stopwords excludes common length>=4 tokens that carry no topical
// signal for keyword matching against news titles/descriptions.
var stopwords = map[string]struct{}{
	"will": {}, "this": {}, "that": {}, "with": {}, "from": {}, "have": {},
	"been": {}, "were": {}, "their": {}, "about": {}, "which": {}, "there": {},
	"happen": {}, "does": {}, "when": {}, "what": {}, "year": {},
}

// extractKeywords tokenizes a market question into lowercase tokens of
// length >= 4, minus the stopword list.
func extractKeywords(question string) []string {
	fields := strings.FieldsFunc(question, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9')
	})
	var out []string
	for _, f := range fields {
		token := strings.ToLower(f)
		if len(token) < 4 {
			continue
		}
		if _, stop := stopwords[token]; stop {
			continue
		}
		out = append(out, token)
	}
	return out
}

func recencyWeight(publishedAt, now time.Time) float64 {
	age := now.Sub(publishedAt)
	switch {
	case age < time.Hour:
		return 1.0
	case age < 6*time.Hour:
		return 0.7
	case age < 24*time.Hour:
		return 0.4
	case age < 72*time.Hour:
		return 0.25
	default:
		return 0.1
	}
}

// sourceTier is the fixed allowlist from spec.md §4.5. Sources absent
// from the allowlist fall to LONG_TAIL.
var sourceTier = map[string]string{
	"reuters":         "TOP_TIER",
	"bloomberg":       "TOP_TIER",
	"associated press": "TOP_TIER",
	"ap":              "TOP_TIER",
	"bbc":             "TOP_TIER",
	"cnbc":            "MAJOR",
	"cnn":             "MAJOR",
	"fox news":        "MAJOR",
	"the guardian":    "MAJOR",
	"coindesk":        "MAJOR",
}

func sourceWeight(source string) float64 {
	tier, ok := sourceTier[strings.ToLower(strings.TrimSpace(source))]
	if !ok {
		tier = "LONG_TAIL"
	}
	switch tier {
	case "TOP_TIER":
		return 1.0
	case "MAJOR":
		return 0.8
	default:
		return 0.5
	}
}

func newsScoreFor(m domain.Market, articles []domain.NewsArticle, now time.Time) float64 {
	keywords := extractKeywords(m.Question)
	if len(keywords) == 0 {
		return 0
	}
	var total float64
	for _, a := range articles {
		haystack := strings.ToLower(a.Title + " " + a.Description)
		matched := false
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		total += recencyWeight(a.PublishedAt, now) * sourceWeight(a.Source)
	}
	return clampUnit(total/6.0) * maxNewsScore
}

// Score computes the ScoredMarket for one (agent, market) pair.
func Score(m domain.Market, articles []domain.NewsArticle, agent domain.AgentProfile, adaptive *domain.AdaptiveConfig, now time.Time) domain.ScoredMarket {
	components := domain.ScoreComponents{
		VolumeScore:        volumeScore(m),
		LiquidityScore:     liquidityScore(m),
		PriceMovementScore: priceMovementScore(m),
		NewsScore:          newsScoreFor(m, articles, now),
		ProbScore:          probScore(m),
	}

	w := agent.Weights
	sumWeights := w.Sum()
	raw := components.VolumeScore*w.Volume +
		components.LiquidityScore*w.Liquidity +
		components.PriceMovementScore*w.PriceMovement +
		components.NewsScore*w.News +
		components.ProbScore*w.Probability

	final := raw
	if sumWeights > 0 {
		final = raw / sumWeights
	}
	if adaptive != nil {
		final *= adaptive.BiasFor(m.Category)
	}
	if final < 0 {
		final = 0
	}

	return domain.ScoredMarket{Market: m, Score: final, Components: components}
}

// MatchingArticles returns up to n articles whose title or description
// contains one of the market question's keywords, in input order. Used
// by the LLM decision layer to build bounded prompt context.
func MatchingArticles(m domain.Market, articles []domain.NewsArticle, n int) []domain.NewsArticle {
	keywords := extractKeywords(m.Question)
	var out []domain.NewsArticle
	for _, a := range articles {
		if len(out) >= n {
			break
		}
		haystack := strings.ToLower(a.Title + " " + a.Description)
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// FilterCandidates applies the volume/liquidity/status filter and the
// focus-category preference-with-fallback rule from spec.md §4.5.
func FilterCandidates(markets []domain.Market, agent domain.AgentProfile) []domain.Market {
	var passed []domain.Market
	for _, m := range markets {
		if m.Status != domain.MarketActive {
			continue
		}
		if m.VolumeUsd < agent.MinVolumeUsd || m.LiquidityUsd < agent.MinLiquidityUsd {
			continue
		}
		passed = append(passed, m)
	}
	if len(agent.FocusCategories) == 0 {
		return passed
	}

	focusSet := make(map[domain.Category]struct{}, len(agent.FocusCategories))
	for _, c := range agent.FocusCategories {
		focusSet[c] = struct{}{}
	}
	var inFocus []domain.Market
	for _, m := range passed {
		if _, ok := focusSet[m.Category]; ok {
			inFocus = append(inFocus, m)
		}
	}
	if len(inFocus) >= 2*agent.MaxTrades {
		return inFocus
	}
	return passed
}
