package retrieval

import (
	"context"
	"fmt"
	"sync"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/field"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/result"
)

// --- Mocks ---

type searchCall struct {
	field field.Field
	limit int
	match filter.Match
}

// mockSearcher answers by field, or by field and filter value when a filtered response is registered.
type mockSearcher struct {
	mu       sync.Mutex
	byField  map[field.Field][]result.Candidate
	byFilter map[string][]result.Candidate // key: field + "|" + filter value
	errs     map[field.Field]error
	block    map[field.Field]bool
	calls    []searchCall
}

func newMockSearcher() *mockSearcher {
	return &mockSearcher{
		byField:  make(map[field.Field][]result.Candidate),
		byFilter: make(map[string][]result.Candidate),
		errs:     make(map[field.Field]error),
		block:    make(map[field.Field]bool),
	}
}

func (m *mockSearcher) SearchField(
	ctx context.Context, _ []float32, f field.Field, limit int, match filter.Match,
) ([]result.Candidate, error) {
	m.mu.Lock()
	m.calls = append(m.calls, searchCall{field: f, limit: limit, match: match})
	blocked := m.block[f]
	err := m.errs[f]
	hits, filtered := m.byFilter[filterKey(f, match.Value())]
	if !filtered {
		hits = m.byField[f]
	}
	m.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return nil, fmt.Errorf("search %s: %w: %w", f, domain.ErrRetrievalService, ctx.Err())
	}
	if err != nil {
		return nil, err
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (m *mockSearcher) callsFor(f field.Field) []searchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []searchCall
	for _, c := range m.calls {
		if c.field == f {
			out = append(out, c)
		}
	}
	return out
}

func filterKey(f field.Field, value string) string {
	return string(f) + "|" + value
}

type mockEmbedder struct {
	mu     sync.Mutex
	vector []float32
	err    error
	calls  int
	block  bool
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if err := domain.ValidateQuery(text); err != nil {
		return domain.EmbeddingResult{}, err
	}
	if m.block {
		<-ctx.Done()
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingService, ctx.Err())
	}
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vector, TotalTokens: 4}, nil
}

// --- Helpers ---

func cand(id string, f field.Field, score float64, kv ...any) result.Candidate {
	p := result.Payload{}
	for i := 0; i+1 < len(kv); i += 2 {
		p[kv[i].(string)] = kv[i+1]
	}
	return result.NewCandidate(id, f, score, p)
}

func ids(rs []result.Ranked) []string {
	out := make([]string, len(rs))
	for i := range rs {
		out[i] = rs[i].ID()
	}
	return out
}

func approx(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
