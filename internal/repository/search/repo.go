package search

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/kailas-cloud/kbsearch/internal/db"
	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/knowledge"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/field"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/result"
	"github.com/kailas-cloud/kbsearch/internal/metrics"
)

// store is the consumer interface for field searches (ISP).
type store interface {
	SearchField(ctx context.Context, q *db.FieldQuery) (*db.SearchResult, error)
}

// Config binds the repository to one collection on one backend.
type Config struct {
	Collection string
	// Backend labels metrics ("qdrant", "redis").
	Backend string
	// VectorNames overrides the per-field vector name. Missing entries use field.VectorName().
	VectorNames map[field.Field]string
}

// Repo implements usecase/retrieval.Searcher.
type Repo struct {
	store       store
	collection  string
	backend     string
	vectorNames map[field.Field]string
}

// New creates a search repository.
func New(s store, cfg Config) *Repo {
	names := make(map[field.Field]string, len(field.All()))
	for _, f := range field.All() {
		names[f] = f.VectorName()
		if n, ok := cfg.VectorNames[f]; ok && n != "" {
			names[f] = n
		}
	}
	collection := cfg.Collection
	if collection == "" {
		collection = domain.DefaultCollection
	}
	return &Repo{
		store:       s,
		collection:  collection,
		backend:     cfg.Backend,
		vectorNames: names,
	}
}

// SearchField returns up to limit hits for vector against one field's embedding space,
// optionally restricted by an exact payload match.
// Hits are ordered by descending score, ties by ascending ID.
func (r *Repo) SearchField(
	ctx context.Context, vector []float32, f field.Field, limit int, match filter.Match,
) ([]result.Candidate, error) {
	if !f.IsValid() {
		return nil, fmt.Errorf("unknown field %q: %w", f, domain.ErrInvalidRequest)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit %d for field %s: %w", limit, f, domain.ErrInvalidRequest)
	}

	q := &db.FieldQuery{
		Collection:    r.collection,
		VectorName:    r.vectorNames[f],
		Vector:        vector,
		Filter:        match,
		Limit:         limit,
		WithPayload:   true,
		PayloadFields: knowledge.PayloadFields(),
	}

	start := time.Now()
	sr, err := r.store.SearchField(ctx, q)
	metrics.FieldSearchDuration.WithLabelValues(r.backend, f.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FieldSearchErrorsTotal.WithLabelValues(r.backend, f.String()).Inc()
		return nil, fmt.Errorf("search %s in %s: %w: %w", f, r.collection, domain.ErrRetrievalService, err)
	}

	return toCandidates(sr, f), nil
}

func toCandidates(sr *db.SearchResult, f field.Field) []result.Candidate {
	if sr == nil || len(sr.Entries) == 0 {
		return []result.Candidate{}
	}

	out := make([]result.Candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		out = append(out, result.NewCandidate(e.ID, f, e.Score, result.Payload(e.Payload)))
	}
	slices.SortStableFunc(out, func(a, b result.Candidate) int {
		if c := cmp.Compare(b.Score(), a.Score()); c != 0 {
			return c
		}
		return cmp.Compare(a.ID(), b.ID())
	})
	return out
}
