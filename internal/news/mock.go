package news

import (
	"context"
	"time"

	"github.com/synthetic-markets/agent-engine/internal/domain"
)

// MockProvider is a deterministic fixed article set for tests.
// ConfiguredProviders never adds it: with no news provider credentials
// the aggregator has no providers at all.
type MockProvider struct {
	name     string
	articles []domain.NewsArticle
}

func NewMockProvider(name string) *MockProvider {
	now := time.Now()
	return &MockProvider{
		name: name,
		articles: []domain.NewsArticle{
			{
				ArticleID: name + ":mock-1", Title: "Regulators weigh new crypto framework",
				Description: "Officials discuss rules affecting digital asset markets.",
				Source: "Mock Wire", SourceAPI: name, PublishedAt: now.Add(-2 * time.Hour),
				URL: "https://mock.example/1",
			},
		},
	}
}

func (m *MockProvider) Name() string { return m.name }

func (m *MockProvider) FetchLatest(_ context.Context) ([]domain.NewsArticle, error) {
	return m.articles, nil
}
