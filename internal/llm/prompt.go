package llm

import (
	"fmt"
	"strings"

	"github.com/synthetic-markets/agent-engine/internal/domain"
	"github.com/synthetic-markets/agent-engine/internal/websearch"
)

// buildPrompt assembles a single deterministic templated string: market
// fields, formatted context bullets, and the JSON-reply instruction.
// Identical inputs always produce an identical prompt string.
func buildPrompt(sm domain.ScoredMarket, newsContext []domain.NewsArticle, webSnippets []websearch.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Market: %s\n", sm.Question)
	fmt.Fprintf(&b, "Category: %s\n", sm.Category)
	fmt.Fprintf(&b, "Current probability: %.2f\n", sm.CurrentProbability)
	fmt.Fprintf(&b, "24h price change: %.2f\n", sm.PriceChange24h)
	fmt.Fprintf(&b, "Volume USD: %.0f\n", sm.VolumeUsd)
	fmt.Fprintf(&b, "Liquidity USD: %.0f\n", sm.LiquidityUsd)
	fmt.Fprintf(&b, "Score: %.1f\n\n", sm.Score)

	if len(newsContext) > 0 {
		b.WriteString("Recent news:\n")
		for _, a := range newsContext {
			fmt.Fprintf(&b, "- %s (%s)\n", a.Title, a.Source)
		}
		b.WriteString("\n")
	}

	if len(webSnippets) > 0 {
		b.WriteString("Web search context:\n")
		for _, r := range webSnippets {
			fmt.Fprintf(&b, "- %s: %s\n", r.Title, r.Snippet)
		}
		b.WriteString("\n")
	}

	b.WriteString("Reply with exactly one JSON object: ")
	b.WriteString(`{"side": "YES"|"NO", "confidence": 0.0-1.0, "reasoning": ["short string", ...]}`)
	b.WriteString("\n")
	return b.String()
}

// TopNews returns the first n articles in input order, or all of them
// when there are n or fewer. It does no keyword matching of its own;
// scoring.MatchingArticles is what selects keyword-matched news for the
// prompt context.
func TopNews(articles []domain.NewsArticle, n int) []domain.NewsArticle {
	if len(articles) <= n {
		return articles
	}
	return articles[:n]
}
