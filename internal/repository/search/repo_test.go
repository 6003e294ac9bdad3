package search

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/kbsearch/internal/db"
	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/field"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/filter"
)

func TestSearchField_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchFieldFn = func(_ context.Context, q *db.FieldQuery) (*db.SearchResult, error) {
		if q.Collection != "PassportKnowledgeBase" {
			t.Errorf("unexpected collection: %s", q.Collection)
		}
		if q.VectorName != "title_vector" {
			t.Errorf("unexpected vector name: %s", q.VectorName)
		}
		if q.Limit != 3 {
			t.Errorf("unexpected limit: %d", q.Limit)
		}
		if !q.WithPayload || len(q.PayloadFields) != 3 {
			t.Errorf("expected payload fields to be requested, got %v", q.PayloadFields)
		}
		if !q.Filter.IsEmpty() {
			t.Errorf("expected no filter, got %s", q.Filter)
		}
		return &db.SearchResult{Entries: []db.SearchEntry{
			{ID: "a", Score: 0.5, Payload: map[string]any{"title": "Visa"}},
			{ID: "b", Score: 0.9, Payload: map[string]any{"title": "Passport"}},
		}}, nil
	}

	got, err := repo.SearchField(context.Background(), testVector(), field.Title, 3, filter.Match{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].ID() != "b" || got[1].ID() != "a" {
		t.Errorf("expected descending score order, got %s, %s", got[0].ID(), got[1].ID())
	}
	if got[0].Field() != field.Title {
		t.Errorf("expected field title, got %s", got[0].Field())
	}
	if title, _ := got[0].Payload().StringField("title"); title != "Passport" {
		t.Errorf("unexpected payload title %q", title)
	}
}

func TestSearchField_TieBreakByID(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchFieldFn = func(_ context.Context, _ *db.FieldQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Entries: []db.SearchEntry{
			{ID: "z", Score: 0.7},
			{ID: "m", Score: 0.7},
			{ID: "a", Score: 0.7},
		}}, nil
	}

	got, err := repo.SearchField(context.Background(), testVector(), field.Chunk, 25, filter.Match{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range []string{"a", "m", "z"} {
		if got[i].ID() != want {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID(), want)
		}
	}
}

func TestSearchField_PassesFilter(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchFieldFn = func(_ context.Context, q *db.FieldQuery) (*db.SearchResult, error) {
		if q.VectorName != "summary_vector" {
			t.Errorf("unexpected vector name: %s", q.VectorName)
		}
		if q.Filter.Key() != "title" || q.Filter.Value() != "Education Visa" {
			t.Errorf("unexpected filter: %s", q.Filter)
		}
		return &db.SearchResult{}, nil
	}

	m := mustMatch(t, "title", "Education Visa")
	if _, err := repo.SearchField(context.Background(), testVector(), field.Summary, 3, m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSearchField_EmptyIsNotError(t *testing.T) {
	repo, _ := newTestRepo(t)

	got, err := repo.SearchField(context.Background(), testVector(), field.Title, 3, filter.Match{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestSearchField_StoreErrorWrapped(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchFieldFn = func(_ context.Context, _ *db.FieldQuery) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: context.DeadlineExceeded}
	}

	_, err := repo.SearchField(context.Background(), testVector(), field.Title, 3, filter.Match{})
	if !errors.Is(err, domain.ErrRetrievalService) {
		t.Errorf("expected ErrRetrievalService, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected underlying cause to stay visible, got %v", err)
	}
}

func TestSearchField_InvalidRequest(t *testing.T) {
	repo, ms := newTestRepo(t)
	called := false
	ms.searchFieldFn = func(_ context.Context, _ *db.FieldQuery) (*db.SearchResult, error) {
		called = true
		return &db.SearchResult{}, nil
	}

	tests := []struct {
		name  string
		f     field.Field
		limit int
	}{
		{"zero limit", field.Title, 0},
		{"negative limit", field.Summary, -2},
		{"unknown field", field.Field("body"), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.SearchField(context.Background(), testVector(), tt.f, tt.limit, filter.Match{})
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
	if called {
		t.Error("store must not be called for invalid requests")
	}
}

func TestNew_VectorNameOverrides(t *testing.T) {
	ms := &mockStore{}
	repo := New(ms, Config{VectorNames: map[field.Field]string{field.Chunk: "text_vector"}})

	if repo.collection != domain.DefaultCollection {
		t.Errorf("expected default collection, got %s", repo.collection)
	}
	if repo.vectorNames[field.Chunk] != "text_vector" {
		t.Errorf("expected override, got %s", repo.vectorNames[field.Chunk])
	}
	if repo.vectorNames[field.Title] != "title_vector" {
		t.Errorf("expected default title vector, got %s", repo.vectorNames[field.Title])
	}
}
