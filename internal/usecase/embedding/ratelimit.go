package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/kailas-cloud/kbsearch/internal/domain"
)

// RateLimitedEmbedder caps outbound embedding calls. Callers wait for a token;
// nothing is retried or dropped.
type RateLimitedEmbedder struct {
	inner   domain.Embedder
	limiter *rate.Limiter
}

// NewRateLimitedEmbedder allows rps calls per second with the given burst.
// A non-positive rps disables limiting.
func NewRateLimitedEmbedder(inner domain.Embedder, rps float64, burst int) *RateLimitedEmbedder {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedEmbedder{inner: inner, limiter: rate.NewLimiter(limit, burst)}
}

// Embed waits for the limiter, then delegates.
func (e *RateLimitedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.EmbeddingResult{}, fmt.Errorf("rate limit wait: %w", ctxErr)
		}
		if _, ok := ctx.Deadline(); ok {
			// The limiter refuses to wait past the deadline without waiting for it.
			return domain.EmbeddingResult{}, fmt.Errorf("rate limit wait: %w: %v", context.DeadlineExceeded, err) //nolint:errorlint // deadline is the cause
		}
		return domain.EmbeddingResult{}, fmt.Errorf("rate limit wait: %w: %w", domain.ErrEmbeddingService, err)
	}
	return e.inner.Embed(ctx, text) //nolint:wrapcheck // transparent decorator
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (e *RateLimitedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}
