package retrieval

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/kbsearch/internal/domain/knowledge"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/field"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/result"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/strategy"
	"github.com/kailas-cloud/kbsearch/internal/logger"
)

// CascadeConfig configures the staged title → summary → chunk ranker.
type CascadeConfig struct {
	TitleLimit   int
	SummaryLimit int // per distinct title
	SummaryKeep  int
	ChunkLimit   int // per distinct summary
	ChunkKeep    int
	// TitleKey and SummaryKey name the payload attributes used as stage filters.
	TitleKey   string
	SummaryKey string
}

// DefaultCascadeConfig returns 3 titles, 3 summaries per title (keep 5), 1 chunk per summary (keep 2).
func DefaultCascadeConfig() CascadeConfig {
	return CascadeConfig{
		TitleLimit:   3,
		SummaryLimit: 3,
		SummaryKeep:  5,
		ChunkLimit:   1,
		ChunkKeep:    2,
		TitleKey:     knowledge.PayloadTitle,
		SummaryKey:   knowledge.PayloadSummary,
	}
}

// CascadeRanker narrows the search stage by stage, each stage filtered by
// the payload values of the previous stage's survivors.
type CascadeRanker struct {
	searcher Searcher
	cfg      CascadeConfig
}

// NewCascadeRanker creates a staged ranker.
func NewCascadeRanker(s Searcher, cfg CascadeConfig) *CascadeRanker {
	return &CascadeRanker{searcher: s, cfg: cfg}
}

// Strategy returns strategy.Cascade.
func (r *CascadeRanker) Strategy() strategy.Strategy { return strategy.Cascade }

// Rank returns the surviving chunk hits with their raw scores.
// An empty stage ends the cascade with an empty result.
func (r *CascadeRanker) Rank(ctx context.Context, vector []float32) ([]result.Ranked, error) {
	log := logger.FromContext(ctx)

	titles, err := r.searcher.SearchField(ctx, vector, field.Title, r.cfg.TitleLimit, filter.Match{})
	if err != nil {
		return nil, fmt.Errorf("title stage: %w", err)
	}
	titleValues, err := distinctValues(titles, r.cfg.TitleKey)
	if err != nil {
		return nil, fmt.Errorf("title stage: %w", err)
	}
	log.Debug("cascade title stage", zap.Int("hits", len(titles)), zap.Int("filters", len(titleValues)))
	if len(titleValues) == 0 {
		return []result.Ranked{}, nil
	}

	summaries, err := r.fanOut(ctx, vector, field.Summary, r.cfg.SummaryLimit, r.cfg.TitleKey, titleValues)
	if err != nil {
		return nil, fmt.Errorf("summary stage: %w", err)
	}
	summaries = keepTop(dedupe(summaries), r.cfg.SummaryKeep)
	summaryValues, err := distinctValues(summaries, r.cfg.SummaryKey)
	if err != nil {
		return nil, fmt.Errorf("summary stage: %w", err)
	}
	log.Debug("cascade summary stage", zap.Int("hits", len(summaries)), zap.Int("filters", len(summaryValues)))
	if len(summaryValues) == 0 {
		return []result.Ranked{}, nil
	}

	chunks, err := r.fanOut(ctx, vector, field.Chunk, r.cfg.ChunkLimit, r.cfg.SummaryKey, summaryValues)
	if err != nil {
		return nil, fmt.Errorf("chunk stage: %w", err)
	}
	chunks = keepTop(dedupe(chunks), r.cfg.ChunkKeep)
	log.Debug("cascade chunk stage", zap.Int("hits", len(chunks)))

	out := make([]result.Ranked, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		out = append(out, result.NewRanked(c.ID(), c.Score(), c.Payload()))
	}
	return out, nil
}

// fanOut runs one filtered search per value concurrently and concatenates
// the hits in value order.
func (r *CascadeRanker) fanOut(
	ctx context.Context, vector []float32, f field.Field, limit int, key string, values []string,
) ([]result.Candidate, error) {
	lists := make([][]result.Candidate, len(values))

	g, gctx := errgroup.WithContext(ctx)
	for i, v := range values {
		g.Go(func() error {
			m, err := filter.NewMatch(key, v)
			if err != nil {
				return fmt.Errorf("build filter: %w", err)
			}
			hits, err := r.searcher.SearchField(gctx, vector, f, limit, m)
			if err != nil {
				return fmt.Errorf("%s filtered by %s: %w", f, m, err)
			}
			lists[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // wrapped per search
	}

	var all []result.Candidate
	for _, l := range lists {
		all = append(all, l...)
	}
	return all, nil
}

// distinctValues collects the non-empty string values of key in first-seen order.
func distinctValues(cs []result.Candidate, key string) ([]string, error) {
	seen := make(map[string]struct{}, len(cs))
	out := make([]string, 0, len(cs))
	for i := range cs {
		v, err := cs[i].Payload().StringField(key)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", cs[i].ID(), err)
		}
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// dedupe keeps one hit per ID: the highest score, the first seen on ties.
// The result is sorted by score descending, ties by ID ascending.
func dedupe(cs []result.Candidate) []result.Candidate {
	best := make(map[string]int, len(cs))
	out := make([]result.Candidate, 0, len(cs))
	for i := range cs {
		c := cs[i]
		if j, ok := best[c.ID()]; ok {
			if c.Score() > out[j].Score() {
				out[j] = c
			}
			continue
		}
		best[c.ID()] = len(out)
		out = append(out, c)
	}
	slices.SortStableFunc(out, func(a, b result.Candidate) int {
		if c := cmp.Compare(b.Score(), a.Score()); c != 0 {
			return c
		}
		return cmp.Compare(a.ID(), b.ID())
	})
	return out
}

func keepTop[T any](xs []T, n int) []T {
	if n >= 0 && len(xs) > n {
		return xs[:n]
	}
	return xs
}
