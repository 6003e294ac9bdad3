package retrieval

import (
	"context"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/field"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/result"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/strategy"
)

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Searcher runs a similarity search against one field's embedding space.
type Searcher interface {
	SearchField(
		ctx context.Context, vector []float32, f field.Field, limit int, match filter.Match,
	) ([]result.Candidate, error)
}

// Ranker turns a query vector into one fused, deduplicated ranking.
type Ranker interface {
	Strategy() strategy.Strategy
	Rank(ctx context.Context, vector []float32) ([]result.Ranked, error)
}
