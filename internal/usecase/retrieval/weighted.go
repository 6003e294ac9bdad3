package retrieval

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/field"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/result"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/strategy"
	"github.com/kailas-cloud/kbsearch/internal/logger"
)

// Weights are per-field multipliers for raw similarity scores. They need not sum to 1.
type Weights struct {
	Title   float64
	Summary float64
	Chunk   float64
}

// DefaultWeights favors the title space heavily.
func DefaultWeights() Weights {
	return Weights{Title: 0.9, Summary: 0.05, Chunk: 0.05}
}

// For returns the weight of f.
func (w Weights) For(f field.Field) float64 {
	switch f {
	case field.Title:
		return w.Title
	case field.Summary:
		return w.Summary
	case field.Chunk:
		return w.Chunk
	default:
		return 0
	}
}

// WeightedConfig configures the weighted-sum ranker.
type WeightedConfig struct {
	Weights      Weights
	TitleLimit   int
	SummaryLimit int
	ChunkLimit   int
	// AllowPartial fuses the fields that answered when others fail with a
	// retrieval service error. Timeouts always fail the call.
	AllowPartial bool
}

// DefaultWeightedConfig returns limits 3/25/25 with default weights.
func DefaultWeightedConfig() WeightedConfig {
	return WeightedConfig{
		Weights:      DefaultWeights(),
		TitleLimit:   3,
		SummaryLimit: 25,
		ChunkLimit:   25,
	}
}

func (c WeightedConfig) limit(f field.Field) int {
	switch f {
	case field.Title:
		return c.TitleLimit
	case field.Summary:
		return c.SummaryLimit
	default:
		return c.ChunkLimit
	}
}

// WeightedRanker searches all three fields concurrently and sums weighted scores per ID.
type WeightedRanker struct {
	searcher Searcher
	cfg      WeightedConfig
}

// NewWeightedRanker creates a weighted-sum ranker.
func NewWeightedRanker(s Searcher, cfg WeightedConfig) *WeightedRanker {
	return &WeightedRanker{searcher: s, cfg: cfg}
}

// Strategy returns strategy.Weighted.
func (r *WeightedRanker) Strategy() strategy.Strategy { return strategy.Weighted }

// Rank returns every ID seen by any field, ordered by fused score.
func (r *WeightedRanker) Rank(ctx context.Context, vector []float32) ([]result.Ranked, error) {
	fields := field.All()
	lists := make([][]result.Candidate, len(fields))
	failures := make([]error, len(fields))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range fields {
		g.Go(func() error {
			hits, err := r.searcher.SearchField(gctx, vector, f, r.cfg.limit(f), filter.Match{})
			if err != nil {
				if r.cfg.AllowPartial && tolerable(gctx, err) {
					failures[i] = err
					return nil
				}
				return fmt.Errorf("%s field: %w", f, err)
			}
			lists[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // already wrapped per field
	}

	if r.cfg.AllowPartial {
		failed := 0
		for i, err := range failures {
			if err == nil {
				continue
			}
			failed++
			logger.FromContext(ctx).Warn("field search failed, fusing remaining fields",
				zap.String("field", fields[i].String()), zap.Error(err))
		}
		if failed == len(fields) {
			return nil, fmt.Errorf("all field searches failed: %w", errors.Join(failures...))
		}
	}

	return fuseWeighted(fields, lists, r.cfg.Weights), nil
}

// tolerable reports whether a field failure may be skipped under partial fusion.
func tolerable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, domain.ErrRetrievalService)
}

// fuseWeighted computes fused[id] = sum(raw * weight[field]) with each ID counted once per field.
// The payload comes from the first list, in field order, that contains the ID.
// Output is sorted by fused score descending, ties by ID ascending.
func fuseWeighted(fields []field.Field, lists [][]result.Candidate, w Weights) []result.Ranked {
	type fused struct {
		score   float64
		payload result.Payload
	}

	merged := make(map[string]*fused)
	order := make([]string, 0)

	for i, hits := range lists {
		weight := w.For(fields[i])
		seen := make(map[string]struct{}, len(hits))
		for j := range hits {
			c := &hits[j]
			if _, dup := seen[c.ID()]; dup {
				continue
			}
			seen[c.ID()] = struct{}{}

			if e, ok := merged[c.ID()]; ok {
				e.score += c.Score() * weight
				continue
			}
			merged[c.ID()] = &fused{score: c.Score() * weight, payload: c.Payload()}
			order = append(order, c.ID())
		}
	}

	out := make([]result.Ranked, 0, len(merged))
	for _, id := range order {
		e := merged[id]
		out = append(out, result.NewRanked(id, e.score, e.payload))
	}
	sortRanked(out)
	return out
}

func sortRanked(rs []result.Ranked) {
	slices.SortStableFunc(rs, func(a, b result.Ranked) int {
		if c := cmp.Compare(b.Score(), a.Score()); c != 0 {
			return c
		}
		return cmp.Compare(a.ID(), b.ID())
	})
}
