package kbsearch

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	openaiEmb "github.com/kailas-cloud/kbsearch/internal/transport/openai"
)

// Embedder converts query text to a vector in the index's embedding space.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// NewOpenAIEmbedder returns an Embedder for any OpenAI-compatible endpoint.
// dimensions 0 keeps the model's native size.
func NewOpenAIEmbedder(baseURL, apiKey, model string, dimensions int) Embedder {
	return &domainEmbedder{inner: openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		Model:      model,
		Dimensions: dimensions,
		Provider:   "openai",
	})}
}

// domainEmbedder exposes an internal embedder through the public interface.
type domainEmbedder struct {
	inner *openaiEmb.Embedder
}

func (d *domainEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	r, err := d.inner.Embed(ctx, text)
	if err != nil {
		return EmbeddingResult{}, err //nolint:wrapcheck // sentinel must stay visible to callers
	}
	return EmbeddingResult{Embedding: r.Embedding, PromptTokens: r.PromptTokens, TotalTokens: r.TotalTokens}, nil
}

func (d *domainEmbedder) HealthCheck(ctx context.Context) error {
	return d.inner.HealthCheck(ctx) //nolint:wrapcheck // transparent
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		if classified(err) {
			return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
		}
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w: %w", domain.ErrEmbeddingService, err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// classified reports whether err already carries a sentinel the engine maps.
func classified(err error) bool {
	return errors.Is(err, domain.ErrInvalidQuery) ||
		errors.Is(err, domain.ErrEmbeddingService) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// HealthCheck delegates when the wrapped embedder can report health.
func (a *embedderAdapter) HealthCheck(ctx context.Context) error {
	if hc, ok := a.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent
	}
	return nil
}
