package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/kbsearch/internal/domain"
)

func TestRateLimitedEmbedder_Unlimited(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	e := NewRateLimitedEmbedder(inner, 0, 0)

	for range 50 {
		if _, err := e.Embed(context.Background(), "q"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if inner.calls != 50 {
		t.Errorf("expected 50 calls, got %d", inner.calls)
	}
}

func TestRateLimitedEmbedder_WaitExceedsDeadline(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	e := NewRateLimitedEmbedder(inner, 0.01, 1) // one call per 100s

	if _, err := e.Embed(context.Background(), "first"); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := e.Embed(ctx, "second")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner must not be called while waiting, got %d calls", inner.calls)
	}
}

func TestRateLimitedEmbedder_Canceled(t *testing.T) {
	inner := &mockEmbedder{}
	e := NewRateLimitedEmbedder(inner, 1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Embed(ctx, "q"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRateLimitedEmbedder_HealthCheck(t *testing.T) {
	e := NewRateLimitedEmbedder(&mockEmbedder{healthErr: errors.New("down")}, 1, 1)
	if err := e.HealthCheck(context.Background()); err == nil {
		t.Error("expected health error to propagate")
	}
}
