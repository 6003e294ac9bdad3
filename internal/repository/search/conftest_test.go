package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/kbsearch/internal/db"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/filter"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchFieldFn func(ctx context.Context, q *db.FieldQuery) (*db.SearchResult, error)
}

func (m *mockStore) SearchField(ctx context.Context, q *db.FieldQuery) (*db.SearchResult, error) {
	if m.searchFieldFn != nil {
		return m.searchFieldFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, Config{Collection: "PassportKnowledgeBase", Backend: "test"})
	return repo, ms
}

func testVector() []float32 {
	vec := make([]float32, 4)
	for i := range vec {
		vec[i] = 0.1
	}
	return vec
}

func mustMatch(t *testing.T, key, value string) filter.Match {
	t.Helper()
	m, err := filter.NewMatch(key, value)
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	return m
}
